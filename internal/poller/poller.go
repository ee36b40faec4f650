// Package poller drives the periodic fetch cycle against the Ally API:
// renew the bearer token when it nears expiry, fetch the device
// listing, and hand the readings to the configured sinks. Cycle errors
// are logged and the loop keeps going.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bgaechter/danfoss-ally-go/ally"
	"github.com/bgaechter/danfoss-ally-go/internal/sink"
)

const (
	DefaultInterval = 30 * time.Second

	// DefaultRefreshBuffer is how long before token expiry a renewal
	// is triggered.
	DefaultRefreshBuffer = 30 * time.Second
)

// Options configures a Poller. Zero values fall back to defaults.
type Options struct {
	Interval      time.Duration
	RefreshBuffer time.Duration
	Logger        *slog.Logger
	Sinks         []sink.Sink
}

// Poller owns the poll loop and the latest snapshot. The snapshot is
// what metrics and HTTP handlers read; the loop is its only writer.
type Poller struct {
	client   *ally.Client
	sinks    []sink.Sink
	logger   *slog.Logger
	interval time.Duration
	buffer   time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot is the outcome of the most recent poll cycle. On failure the
// previously fetched devices and readings are carried forward. The token
// refresh counts are cumulative over the poller's lifetime.
type Snapshot struct {
	Devices     []ally.Device
	Readings    []ally.RoomTemperature
	PolledAt    time.Time
	LastSuccess time.Time
	Success     bool
	TokenValid  bool
	LastError   string

	TokenRefreshSuccesses uint64
	TokenRefreshFailures  uint64
}

func New(client *ally.Client, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RefreshBuffer <= 0 {
		opts.RefreshBuffer = DefaultRefreshBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		client:   client,
		sinks:    opts.Sinks,
		logger:   opts.Logger,
		interval: opts.Interval,
		buffer:   opts.RefreshBuffer,
	}
}

// Run polls immediately and then on every tick until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Snapshot returns the latest poll outcome.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

func (p *Poller) poll(ctx context.Context) {
	polledAt := time.Now()

	if p.client.NeedsRefresh(p.buffer) {
		if err := p.client.GetToken(ctx); err != nil {
			p.logger.Error("could not fetch token", "error", err)
			p.recordTokenRefresh(false)
			p.recordFailure(polledAt, err)
			return
		}
		p.recordTokenRefresh(true)
	}

	devices, err := p.client.GetDevices(ctx)
	if err != nil {
		p.logger.Error("could not get devices", "error", err)
		p.recordFailure(polledAt, err)
		return
	}

	readings := p.client.RoomTemperatures()
	for _, s := range p.sinks {
		if err := s.Publish(ctx, readings); err != nil {
			p.logger.Error("sink publish failed", "sink", s.Name(), "error", err)
		}
	}

	p.mu.Lock()
	p.snapshot = Snapshot{
		Devices:     devices,
		Readings:    readings,
		PolledAt:    polledAt,
		LastSuccess: polledAt,
		Success:     true,
		TokenValid:  p.client.Authenticated(),

		TokenRefreshSuccesses: p.snapshot.TokenRefreshSuccesses,
		TokenRefreshFailures:  p.snapshot.TokenRefreshFailures,
	}
	p.mu.Unlock()
}

func (p *Poller) recordTokenRefresh(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.snapshot.TokenRefreshSuccesses++
	} else {
		p.snapshot.TokenRefreshFailures++
	}
}

func (p *Poller) recordFailure(polledAt time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot.PolledAt = polledAt
	p.snapshot.Success = false
	p.snapshot.LastError = err.Error()
	p.snapshot.TokenValid = p.client.Authenticated()
}
