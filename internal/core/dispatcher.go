package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"autodj/internal/events"
	"autodj/internal/history"
	"autodj/internal/ratelimit"
)

// Dispatcher routes next-track requests to platform providers, applying
// source canonicalization, rate limiting, timeout bounding and
// per-consumer history exclusion around each call.
type Dispatcher struct {
	cfg   AutoplayConfig
	cfgMu sync.RWMutex

	providers map[Source]Provider
	history   *history.Store
	gate      *ratelimit.Gate
	bus       *events.Bus
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher over the given provider registry. The
// registry is fixed after construction; callers extend it by passing
// custom providers here.
func NewDispatcher(cfg AutoplayConfig, providers map[Source]Provider, bus *events.Bus, logger *zap.Logger) *Dispatcher {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if bus != nil {
		bus.SetEnabled(cfg.EnableEvents)
	}

	registry := make(map[Source]Provider, len(providers))
	for src, p := range providers {
		registry[src] = p
	}

	return &Dispatcher{
		cfg:       cfg,
		providers: registry,
		history:   history.New(cfg.HistorySize),
		gate:      ratelimit.New(cfg.RateLimitDelay),
		bus:       bus,
		logger:    logger,
	}
}

// NextTrack resolves a replacement for the finished track. The raw source
// name is canonicalized with URI sniffing and default fallback, so the
// call never fails purely on naming convention drift.
//
// A nil track is a programmer error and returns a *ValidationError; every
// reachable runtime failure comes back as a failure-shaped result.
func (d *Dispatcher) NextTrack(ctx context.Context, track *TrackInfo, consumerID string) (*AutoplayResult, error) {
	if track == nil {
		return nil, &ValidationError{Reason: "track info is required"}
	}
	if track.SourceName == "" && track.URI == "" {
		return &AutoplayResult{
			Success: false,
			Error:   "track source name is required",
		}, nil
	}

	src := Canonicalize(track.SourceName, track.URI, d.config().DefaultSource)
	return d.resolve(ctx, track, src, consumerID), nil
}

// NextTrackForSource runs the same pipeline with the platform pinned by
// the caller, skipping canonicalization entirely.
func (d *Dispatcher) NextTrackForSource(ctx context.Context, track *TrackInfo, source Source, consumerID string) (*AutoplayResult, error) {
	if track == nil {
		return nil, &ValidationError{Reason: "track info is required"}
	}
	return d.resolve(ctx, track, source, consumerID), nil
}

// resolve is the shared pipeline: rate-limit gate, capability check,
// timeout-bounded provider call, ledger stamp, history insert.
func (d *Dispatcher) resolve(ctx context.Context, track *TrackInfo, src Source, consumerID string) *AutoplayResult {
	cfg := d.config()

	provider, ok := d.providers[src]
	if !ok {
		err := &UnsupportedSourceError{Source: string(src)}
		d.emit(events.Error, src, track, nil, err)
		return &AutoplayResult{Success: false, Source: src, Error: err.Error()}
	}

	if allowed, retryAfter := d.gate.Allow(string(src)); !allowed {
		err := &RateLimitedError{Source: src, RetryAfter: retryAfter}
		d.logger.Debug("Rate limited",
			zap.String("source", string(src)),
			zap.Duration("retryAfter", retryAfter))
		d.emit(events.RateLimited, src, track, nil, err)
		return &AutoplayResult{Success: false, Source: src, Error: err.Error()}
	}

	if !provider.CanHandle(track) {
		err := &AutoplayError{Message: "provider cannot handle this track"}
		d.emit(events.Error, src, track, nil, err)
		return &AutoplayResult{Success: false, Source: src, Error: err.Error()}
	}

	exclude := d.history.Snapshot(consumerID)

	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	// Buffered so an abandoned provider call can still deliver its result
	// and exit instead of leaking.
	resultCh := make(chan *AutoplayResult, 1)
	go func() {
		resultCh <- provider.NextTrack(callCtx, track, exclude)
	}()

	var result *AutoplayResult
	select {
	case result = <-resultCh:
	case <-callCtx.Done():
		timeoutErr := &TimeoutError{Source: src, Timeout: cfg.Timeout}
		d.logger.Warn("Provider resolution timed out",
			zap.String("source", string(src)),
			zap.Duration("timeout", cfg.Timeout))
		d.emit(events.Timeout, src, track, nil, timeoutErr)
		result = &AutoplayResult{Success: false, Source: src, Error: timeoutErr.Error()}
	}

	// The attempt completed, one way or the other.
	d.gate.Stamp(string(src))

	if result.Success && consumerID != "" && result.TrackID != "" {
		d.history.Add(consumerID, result.TrackID)
	}
	if result.Success {
		d.emit(events.Success, src, track, result, nil)
	}

	return result
}

// HasProvider reports whether a provider is registered for the source.
func (d *Dispatcher) HasProvider(src Source) bool {
	_, ok := d.providers[src]
	return ok
}

// Providers lists the registered canonical sources, sorted.
func (d *Dispatcher) Providers() []Source {
	out := make([]Source, 0, len(d.providers))
	for src := range d.providers {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProviderInfo returns per-provider introspection data.
func (d *Dispatcher) ProviderInfo() []ProviderStatus {
	sources := d.Providers()
	out := make([]ProviderStatus, 0, len(sources))
	for _, src := range sources {
		allowed, retryAfter := d.gate.Allow(string(src))
		out = append(out, ProviderStatus{
			Source:       src,
			RateLimited:  !allowed,
			RetryAfterMS: retryAfter.Milliseconds(),
		})
	}
	return out
}

// ClearRateLimit resets the ledger for the given sources, or all of them.
func (d *Dispatcher) ClearRateLimit(sources ...Source) {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, string(s))
	}
	d.gate.Clear(names...)
}

// RateLimitStatus returns the last-request timestamp per source.
func (d *Dispatcher) RateLimitStatus() map[Source]time.Time {
	status := d.gate.Status()
	out := make(map[Source]time.Time, len(status))
	for s, t := range status {
		out[Source(s)] = t
	}
	return out
}

// ClearHistory drops the exclusion sets for the given consumers, or all.
func (d *Dispatcher) ClearHistory(consumerIDs ...string) {
	d.history.Clear(consumerIDs...)
}

// HistorySize returns the number of excluded track IDs for a consumer.
func (d *Dispatcher) HistorySize(consumerID string) int {
	return d.history.Size(consumerID)
}

// HistoryConsumers lists consumers with a non-empty exclusion set.
func (d *Dispatcher) HistoryConsumers() []string {
	return d.history.Consumers()
}

// UpdateConfig merges a partial configuration into the live one; changes
// take effect on the next call.
func (d *Dispatcher) UpdateConfig(update ConfigUpdate) {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()

	if update.Timeout != nil {
		d.cfg.Timeout = *update.Timeout
	}
	if update.MaxRetries != nil {
		d.cfg.MaxRetries = *update.MaxRetries
	}
	if update.RateLimitDelay != nil {
		d.cfg.RateLimitDelay = *update.RateLimitDelay
		d.gate.SetDelay(*update.RateLimitDelay)
	}
	if update.EnableEvents != nil {
		d.cfg.EnableEvents = *update.EnableEvents
		if d.bus != nil {
			d.bus.SetEnabled(*update.EnableEvents)
		}
	}
	if update.HistorySize != nil {
		d.cfg.HistorySize = *update.HistorySize
		d.history.SetMaxEntries(*update.HistorySize)
	}
	if update.DefaultSource != nil {
		d.cfg.DefaultSource = *update.DefaultSource
	}
}

// Config returns a snapshot of the live configuration.
func (d *Dispatcher) Config() AutoplayConfig {
	return d.config()
}

func (d *Dispatcher) config() AutoplayConfig {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.cfg
}

func (d *Dispatcher) emit(typ events.Type, src Source, track *TrackInfo, result *AutoplayResult, err error) {
	if d.bus == nil {
		return
	}
	d.bus.Emit(events.Event{
		Type:   typ,
		Source: string(src),
		Track:  track,
		Result: result,
		Err:    err,
	})
}
