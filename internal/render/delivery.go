package render

import (
	"context"
	"os"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/observability/metrics"
)

// Sender is the chat front-end side of delivery.
type Sender interface {
	SendText(ctx context.Context, caption string) error
	SendRemotePhoto(ctx context.Context, url, caption string) error
	SendLocalPhoto(ctx context.Context, path, caption string) error
}

// Validator confirms a URL serves an image.
type Validator interface {
	IsImage(ctx context.Context, url string) bool
}

// Fetcher downloads an image into a transient file owned by the caller.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Deliverer sends instructions with the two tier image policy: a remote
// reference when the URL validates and the front-end accepts it, otherwise a
// local copy, and the caption alone when both fail.
type Deliverer struct {
	validator Validator
	fetcher   Fetcher
	metrics   *metrics.CoverMetrics
	log       logger.Logger
}

// NewDeliverer returns a deliverer. m may be nil.
func NewDeliverer(validator Validator, fetcher Fetcher, m *metrics.CoverMetrics) *Deliverer {
	return &Deliverer{
		validator: validator,
		fetcher:   fetcher,
		metrics:   m,
		log:       logger.Global().Module("render"),
	}
}

// Deliver sends one instruction. Only a failure of the final text-only tier
// is returned.
func (d *Deliverer) Deliver(ctx context.Context, s Sender, in Instruction) error {
	if in.Kind == KindPhoto {
		switch {
		case in.Image.LocalPath != "":
			err := s.SendLocalPhoto(ctx, in.Image.LocalPath, in.Caption)
			if err == nil {
				return nil
			}
			d.log.Warn("local photo rejected", logger.String("path", in.Image.LocalPath), logger.Error(err))
		case in.Image.RemoteURL != "":
			if d.deliverImage(ctx, s, in.Image.RemoteURL, in.Caption) {
				return nil
			}
		}
		d.metrics.RecordDeliveryFallback(metrics.TierText)
	}

	if err := s.SendText(ctx, in.Caption); err != nil {
		return errors.New(err).
			Component("render").
			Category(errors.CategoryDelivery).
			Context("kind", string(in.Kind)).
			Build()
	}
	return nil
}

// DeliverAll sends instructions in order and stops at the first failure.
func (d *Deliverer) DeliverAll(ctx context.Context, s Sender, ins []Instruction) error {
	for _, in := range ins {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Deliver(ctx, s, in); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deliverer) deliverImage(ctx context.Context, s Sender, url, caption string) bool {
	if d.validator != nil && d.validator.IsImage(ctx, url) {
		err := s.SendRemotePhoto(ctx, url, caption)
		if err == nil {
			return true
		}
		d.log.Debug("remote photo rejected", logger.String("url", url), logger.Error(err))
	}

	// some hosts reject probes or hotlinking but serve full downloads
	d.metrics.RecordDeliveryFallback(metrics.TierLocal)
	if d.fetcher == nil {
		return false
	}

	path, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		d.log.Warn("local cover fetch failed", logger.String("url", url), logger.Error(err))
		return false
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.log.Warn("failed to remove transient cover", logger.String("path", path), logger.Error(err))
		}
	}()

	if err := s.SendLocalPhoto(ctx, path, caption); err != nil {
		d.log.Warn("local photo rejected", logger.String("url", url), logger.Error(err))
		return false
	}
	return true
}
