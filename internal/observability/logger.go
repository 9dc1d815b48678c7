package observability

import "github.com/tphakala/codeseek/internal/logger"

func log() logger.Logger {
	return logger.Global().Module("metrics")
}
