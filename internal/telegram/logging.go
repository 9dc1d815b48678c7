package telegram

import (
	"fmt"
	"strings"

	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/privacy"
)

// botLogger routes the Bot API client log output to the module logger.
type botLogger struct {
	log logger.Logger
}

func (l *botLogger) Println(v ...any) {
	l.log.Debug(privacy.ScrubMessage(strings.TrimSuffix(fmt.Sprintln(v...), "\n")))
}

func (l *botLogger) Printf(format string, v ...any) {
	l.log.Debug(privacy.ScrubMessage(fmt.Sprintf(format, v...)))
}
