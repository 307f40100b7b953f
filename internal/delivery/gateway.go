package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"vepbot/internal/logger"
)

// Channel is the messaging transport. Session lifecycle (pairing, reconnects)
// belongs to the implementation.
type Channel interface {
	IsConnected(ctx context.Context) bool
	SendText(ctx context.Context, address, body string) error
	SendDocument(ctx context.Context, address, caption, filename string, data []byte) error
}

// Document is one PDF to attach, with the tax id and owner it belongs to.
type Document struct {
	Cuit  string
	Owner string
	Data  []byte
}

type Options struct {
	MaxBytes int64
	Attempts int

	TextTimeout     time.Duration
	DocumentTimeout time.Duration

	BackoffBase        time.Duration
	TextBackoffCap     time.Duration
	DocumentBackoffCap time.Duration

	ReconnectWait  time.Duration
	ReconnectPoll  time.Duration
	InterSendPause time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxBytes:           16 * 1024 * 1024,
		Attempts:           3,
		TextTimeout:        30 * time.Second,
		DocumentTimeout:    45 * time.Second,
		BackoffBase:        2 * time.Second,
		TextBackoffCap:     5 * time.Second,
		DocumentBackoffCap: 10 * time.Second,
		ReconnectWait:      30 * time.Second,
		ReconnectPoll:      time.Second,
		InterSendPause:     time.Second,
	}
}

// Gateway wraps a Channel with the circuit breaker, rate limiter, size guard
// and per-send retry. Callers only see one pass/fail result per delivery.
type Gateway struct {
	channel Channel
	breaker *Breaker
	limiter *Limiter
	opts    Options
	log     *zap.SugaredLogger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewGateway(ch Channel, breaker *Breaker, limiter *Limiter, opts Options, log *zap.SugaredLogger) *Gateway {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		channel: ch,
		breaker: breaker,
		limiter: limiter,
		opts:    opts,
		log:     log,
		sleep:   sleepCtx,
	}
}

func (g *Gateway) IsConnected(ctx context.Context) bool {
	return g.channel.IsConnected(ctx)
}

// Deliver sends message plus docs to address and returns the file names used.
func (g *Gateway) Deliver(ctx context.Context, address, message string, docs []Document) ([]string, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "waiting for rate limiter")
	}

	names := FileNames(docs)
	for i, d := range docs {
		if int64(len(d.Data)) > g.opts.MaxBytes {
			err := errors.Wrapf(ErrPayloadTooLarge, "%s is %d bytes", names[i], len(d.Data))
			return nil, errors.WithDetailf(err, "limit is %d bytes", g.opts.MaxBytes)
		}
	}

	var err error
	switch len(docs) {
	case 0:
		err = g.sendText(ctx, address, message)
	case 1:
		err = g.sendDocument(ctx, address, message, names[0], docs[0].Data)
	default:
		err = g.sendMultiple(ctx, address, message, docs, names)
	}
	if err != nil {
		// cancellation says nothing about channel health
		if ctx.Err() == nil {
			g.breaker.Failure()
		}
		return nil, err
	}

	g.breaker.Success()
	return names, nil
}

func (g *Gateway) sendText(ctx context.Context, address, body string) error {
	return g.withRetry(ctx, "text", g.opts.TextTimeout, g.opts.TextBackoffCap, func(ctx context.Context) error {
		return g.channel.SendText(ctx, address, body)
	})
}

func (g *Gateway) sendDocument(ctx context.Context, address, caption, filename string, data []byte) error {
	return g.withRetry(ctx, "document "+filename, g.opts.DocumentTimeout, g.opts.DocumentBackoffCap, func(ctx context.Context) error {
		return g.channel.SendDocument(ctx, address, caption, filename, data)
	})
}

// sendMultiple sends the body alone, then every document in order, pausing
// between sends so the channel does not flag a burst.
func (g *Gateway) sendMultiple(ctx context.Context, address, message string, docs []Document, names []string) error {
	if err := g.sendText(ctx, address, message); err != nil {
		return err
	}
	for i, d := range docs {
		if err := g.sleep(ctx, g.opts.InterSendPause); err != nil {
			return err
		}
		if err := g.sendDocument(ctx, address, "", names[i], d.Data); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) withRetry(ctx context.Context, what string, timeout, backoffCap time.Duration, send func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= g.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := g.sleep(ctx, backoff(attempt-1, g.opts.BackoffBase, backoffCap)); err != nil {
				return err
			}
		}

		if !g.awaitConnection(ctx) {
			last = ErrChannelDisconnected
			g.log.Warnw("channel down, attempt skipped", "send", what, logger.FieldAttempt, attempt)
			continue
		}

		last = g.callWithTimeout(ctx, timeout, send)
		if last == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.log.Warnw("send attempt failed", "send", what, logger.FieldAttempt, attempt, logger.FieldError, last)
	}

	err := errors.Wrapf(last, "%s failed after %d attempts", what, g.opts.Attempts)
	return errors.Mark(err, ErrDeliveryFailed)
}

// awaitConnection polls the channel for up to ReconnectWait.
func (g *Gateway) awaitConnection(ctx context.Context) bool {
	if g.channel.IsConnected(ctx) {
		return true
	}
	polls := 0
	if g.opts.ReconnectPoll > 0 {
		polls = int(g.opts.ReconnectWait / g.opts.ReconnectPoll)
	}
	for i := 0; i < polls; i++ {
		if err := g.sleep(ctx, g.opts.ReconnectPoll); err != nil {
			return false
		}
		if g.channel.IsConnected(ctx) {
			return true
		}
	}
	return false
}

// callWithTimeout bounds send even when the channel ignores ctx.
func (g *Gateway) callWithTimeout(ctx context.Context, timeout time.Duration, send func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- send(cctx) }()

	select {
	case err := <-done:
		return err
	case <-cctx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(ErrSendTimeout, "no response within %s", timeout)
	}
}

func backoff(retry int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// FileNames builds one PDF name per document, suffixing repeats.
func FileNames(docs []Document) []string {
	out := make([]string, len(docs))
	seen := map[string]int{}
	for i, d := range docs {
		label := strings.TrimSpace(d.Owner)
		if label == "" {
			label = d.Cuit
		}
		name := "VEP " + sanitize(label)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		out[i] = name + ".pdf"
	}
	return out
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, s)
}
