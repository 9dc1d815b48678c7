// Package notification sends operational alerts through shoutrrr service
// URLs. Repeated alerts of the same kind are suppressed for a cooldown period.
package notification

import (
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/privacy"
)

// DefaultCooldown is used when no cooldown is configured.
const DefaultCooldown = 15 * time.Minute

// Alert kinds
const (
	KindStoreUnavailable = "store_unavailable"
	KindStartup          = "startup"
)

// Sender delivers a message to every configured service.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Alerter sends alerts with a per-kind cooldown. A nil or disabled Alerter
// drops every alert.
type Alerter struct {
	sender   Sender
	cooldown time.Duration
	now      func() time.Time
	log      logger.Logger

	mu   sync.Mutex
	last map[string]time.Time
	wg   sync.WaitGroup
}

// New builds an alerter from settings. Without URLs the alerter is disabled.
func New(settings *conf.AlertSettings) (*Alerter, error) {
	if len(settings.URLs) == 0 {
		return NewWithSender(nil, settings.Cooldown), nil
	}

	router, err := shoutrrr.CreateSender(slices.Clone(settings.URLs)...)
	if err != nil {
		// service URLs carry tokens
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_sender").
			Build()
	}
	if settings.Timeout > 0 {
		router.Timeout = settings.Timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))

	return NewWithSender(router, settings.Cooldown), nil
}

// NewWithSender returns an alerter using sender. A nil sender disables it.
func NewWithSender(sender Sender, cooldown time.Duration) *Alerter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Alerter{
		sender:   sender,
		cooldown: cooldown,
		now:      time.Now,
		log:      logger.Global().Module("notification"),
		last:     make(map[string]time.Time),
	}
}

// Enabled reports whether alerts are delivered anywhere.
func (a *Alerter) Enabled() bool {
	return a != nil && a.sender != nil
}

// Alert sends title and message unless an alert of the same kind was sent
// within the cooldown. It reports whether the alert was sent.
func (a *Alerter) Alert(kind, title, message string) bool {
	if !a.Enabled() || !a.claim(kind) {
		return false
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	for _, err := range a.sender.Send(privacy.ScrubMessage(message), &params) {
		if err != nil {
			a.log.Warn("failed to send alert",
				logger.String("kind", kind),
				logger.Error(privacy.WrapError(err)))
			return false
		}
	}

	a.log.Info("alert sent", logger.String("kind", kind))
	return true
}

// claim records an alert of kind as sent now, or returns false when one was
// sent within the cooldown.
func (a *Alerter) claim(kind string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if last, ok := a.last[kind]; ok && now.Sub(last) < a.cooldown {
		return false
	}
	a.last[kind] = now
	return true
}

// StoreUnavailable alerts that the record store cannot be reached. Sending
// happens in the background; Close waits for it.
func (a *Alerter) StoreUnavailable(err error) {
	if !a.Enabled() {
		return
	}
	a.wg.Go(func() {
		a.Alert(KindStoreUnavailable, "codeseek: record store unavailable",
			fmt.Sprintf("Searches are failing because the record store cannot be reached: %v", err))
	})
}

// Close waits for background alerts to finish.
func (a *Alerter) Close() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
