// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Backoff interface {
	RetryNotify(Operation, Notify) error
	Retry(Operation) error
}

type (
	Operation func() error
	Notify    func(error, time.Duration)
)

type Config struct {
	Exponential *ExponentialConfig
	Constant    *ConstantConfig
}

type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint
}

type ConstantConfig struct {
	Interval   time.Duration
	MaxRetries uint
}

// ErrPermanent stops the retries when wrapped by the error returned by an
// operation.
var ErrPermanent = errors.New("permanent error, do not retry")

type Provider func(ctx context.Context) Backoff

// NewProvider returns a backoff provider based on the config on input. If no
// valid input is provided, a no retry backoff provider is returned instead.
func NewProvider(cfg *Config) Provider {
	switch {
	case cfg == nil:
	case cfg.Constant != nil:
		return func(ctx context.Context) Backoff {
			return newBackoff(ctx, backoff.NewConstantBackOff(cfg.Constant.Interval), cfg.Constant.MaxRetries)
		}
	case cfg.Exponential != nil:
		return func(ctx context.Context) Backoff {
			exp := backoff.NewExponentialBackOff()
			if cfg.Exponential.InitialInterval > 0 {
				exp.InitialInterval = cfg.Exponential.InitialInterval
			}
			if cfg.Exponential.MaxInterval > 0 {
				exp.MaxInterval = cfg.Exponential.MaxInterval
			}
			return newBackoff(ctx, exp, cfg.Exponential.MaxRetries)
		}
	}

	return func(ctx context.Context) Backoff {
		return &boBackoff{BackOff: &backoff.StopBackOff{}}
	}
}

// boBackoff adapts the cenkalti backoff policies to the Backoff interface.
type boBackoff struct {
	backoff.BackOff
}

func newBackoff(ctx context.Context, bo backoff.BackOff, maxRetries uint) *boBackoff {
	if maxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(maxRetries))
	}
	return &boBackoff{BackOff: backoff.WithContext(bo, ctx)}
}

func (b *boBackoff) Retry(op Operation) error {
	return b.RetryNotify(op, nil)
}

func (b *boBackoff) RetryNotify(op Operation, notify Notify) error {
	boOp := func() error {
		err := op()
		if errors.Is(err, ErrPermanent) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(boOp, b.BackOff, backoff.Notify(notify))
}
