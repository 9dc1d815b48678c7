package conf

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// WriteYAML writes the effective settings as YAML with secrets redacted.
func WriteYAML(w io.Writer, settings *Settings) error {
	masked := *settings
	masked.Bot.Token = redactIfSet(settings.Bot.Token)
	masked.Store.DSN = redactIfSet(settings.Store.DSN)
	masked.Store.MySQL.Password = redactIfSet(settings.Store.MySQL.Password)
	masked.Sentry.DSN = redactIfSet(settings.Sentry.DSN)

	masked.Alerts.URLs = make([]string, len(settings.Alerts.URLs))
	for i, u := range settings.Alerts.URLs {
		// keep the service scheme for troubleshooting
		if scheme, _, ok := strings.Cut(u, "://"); ok {
			masked.Alerts.URLs[i] = scheme + "://" + redacted
		} else {
			masked.Alerts.URLs[i] = redacted
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return fmt.Errorf("error encoding settings: %w", err)
	}
	return enc.Close()
}

func redactIfSet(value string) string {
	if value == "" {
		return ""
	}
	return redacted
}
