package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"go.uber.org/zap"
)

// Config bounds how long the supervisor waits on collectors
type Config struct {
	StartTimeout time.Duration
	StopTimeout  time.Duration
}

// entry is the fixed per-service slot. mu serializes start/stop for that name.
type entry struct {
	mu        sync.Mutex
	collector collector.Collector
	gen       uint64 // run generation, atomic
	fwd       *forwarder
}

type forwarder struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns the authoritative status of every collection service
type Supervisor struct {
	mu       sync.RWMutex
	services map[string]*Service

	entries map[string]*entry
	sink    BatchSink
	cfg     Config
}

// New registers one service per collector, all initially stopped
func New(cfg Config, collectors map[string]collector.Collector, sink BatchSink) *Supervisor {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 10 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}

	s := &Supervisor{
		services: make(map[string]*Service, len(collectors)),
		entries:  make(map[string]*entry, len(collectors)),
		sink:     sink,
		cfg:      cfg,
	}
	for name, c := range collectors {
		s.services[name] = &Service{Name: name, Status: StatusStopped, Stats: models.Metadata{}}
		s.entries[name] = &entry{collector: c}
		serviceStatusGauge.WithLabelValues(name).Set(statusValue(StatusStopped))
	}
	return s
}

// ========================================
// COMMANDS
// ========================================

// Start moves a stopped or failed service through starting to running
func (s *Supervisor) Start(ctx context.Context, name string) (*Service, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, ErrUnknownService
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch current := s.statusOf(name); current {
	case StatusRunning, StatusStarting:
		return s.snapshot(name), ErrAlreadyRunning
	case StatusStopped, StatusError:
	default:
		return s.snapshot(name), fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, current)
	}

	if err := s.transition(name, StatusStarting, func(svc *Service) { svc.Error = "" }); err != nil {
		return s.snapshot(name), err
	}

	handle, err := s.startCollector(ctx, name, e.collector)
	if err != nil {
		_ = s.transition(name, StatusError, func(svc *Service) { svc.Error = err.Error() })
		logger.WithContext(ctx).Error("Failed to start collection service", zap.String("service", name), zap.Error(err))
		return s.snapshot(name), fmt.Errorf("start %s: %w", name, err)
	}

	gen := atomic.AddUint64(&e.gen, 1)
	now := time.Now().UTC()
	if err := s.transition(name, StatusRunning, func(svc *Service) {
		svc.LastStarted = &now
		svc.Handle = handle
	}); err != nil {
		return s.snapshot(name), err
	}
	e.fwd = s.forward(name, e, gen, e.collector.Batches())
	return s.snapshot(name), nil
}

// startCollector calls the collector's start hook, bounded by StartTimeout
func (s *Supervisor) startCollector(ctx context.Context, name string, c collector.Collector) (string, error) {
	startCtx, cancel := context.WithTimeout(ctx, s.cfg.StartTimeout)
	defer cancel()

	type startResult struct {
		handle string
		err    error
	}
	resultCh := make(chan startResult, 1)
	go func() {
		handle, err := c.Start(startCtx)
		resultCh <- startResult{handle, err}
	}()

	select {
	case r := <-resultCh:
		return r.handle, r.err
	case <-startCtx.Done():
		// a late successful start must not leave an orphaned collector running
		go func() {
			if r := <-resultCh; r.err == nil {
				stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
				defer cancel()
				if err := c.Stop(stopCtx); err != nil {
					logger.Warn("Failed to stop late-starting collector", zap.String("service", name), zap.Error(err))
				}
			}
		}()
		return "", fmt.Errorf("collector did not acknowledge start within %s: %w", s.cfg.StartTimeout, startCtx.Err())
	}
}

// Stop moves a service through stopping to stopped. If the collector does not
// acknowledge within StopTimeout the service is forced to stopped, a note is
// recorded in its stats and ErrStopTimeout is returned alongside the record.
func (s *Supervisor) Stop(ctx context.Context, name string) (*Service, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, ErrUnknownService
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.statusOf(name) == StatusStopped {
		return s.snapshot(name), ErrNotRunning
	}
	if err := s.transition(name, StatusStopping, nil); err != nil {
		return s.snapshot(name), err
	}

	// stop pulling new batches; a batch already handed to the sink drains on its own
	if e.fwd != nil {
		e.fwd.cancel()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- e.collector.Stop(stopCtx) }()

	var stopErr error
	select {
	case stopErr = <-errCh:
	case <-stopCtx.Done():
		stopErr = stopCtx.Err()
	}

	now := time.Now().UTC()
	if errors.Is(stopErr, context.DeadlineExceeded) {
		note := fmt.Sprintf("collector did not acknowledge stop within %s; forced to stopped", s.cfg.StopTimeout)
		_ = s.transition(name, StatusStopped, func(svc *Service) {
			svc.LastStopped = &now
			svc.Handle = ""
			svc.Stats["forced_stop"] = models.Bool(true)
			svc.Stats["stop_note"] = models.String(note)
			svc.Stats["forced_stop_at"] = models.String(now.Format(time.RFC3339))
		})
		stopTimeoutsTotal.WithLabelValues(name).Inc()
		logger.WithContext(ctx).Error("Collection service stop forced",
			zap.String("service", name),
			zap.Duration("timeout", s.cfg.StopTimeout),
			zap.Error(ErrStopTimeout),
		)
		return s.snapshot(name), ErrStopTimeout
	}

	_ = s.transition(name, StatusStopped, func(svc *Service) {
		svc.LastStopped = &now
		svc.Handle = ""
		delete(svc.Stats, "forced_stop")
		delete(svc.Stats, "stop_note")
		if stopErr != nil {
			svc.Stats["stop_error"] = models.String(stopErr.Error())
		}
	})
	if stopErr != nil {
		logger.WithContext(ctx).Warn("Collector reported an error while stopping",
			zap.String("service", name), zap.Error(stopErr))
	}
	return s.snapshot(name), nil
}

// Shutdown stops every service that is not already stopped and waits for
// in-flight batches to drain or ctx to expire
func (s *Supervisor) Shutdown(ctx context.Context) {
	for _, name := range s.Names() {
		if s.statusOf(name) == StatusStopped {
			continue
		}
		if _, err := s.Stop(ctx, name); err != nil && !errors.Is(err, ErrNotRunning) {
			logger.Warn("Error stopping service during shutdown", zap.String("service", name), zap.Error(err))
		}
	}
	for _, name := range s.Names() {
		e := s.entries[name]
		e.mu.Lock()
		fwd := e.fwd
		e.mu.Unlock()
		if fwd == nil {
			continue
		}
		select {
		case <-fwd.done:
		case <-ctx.Done():
			return
		}
	}
}

// ========================================
// QUERIES
// ========================================

// Status returns a copy of one service record
func (s *Supervisor) Status(name string) (*Service, error) {
	if _, ok := s.entries[name]; !ok {
		return nil, ErrUnknownService
	}
	return s.snapshot(name), nil
}

// List returns copies of every service record ordered by name
func (s *Supervisor) List() []*Service {
	names := s.Names()
	out := make([]*Service, 0, len(names))
	for _, name := range names {
		out = append(out, s.snapshot(name))
	}
	return out
}

// Names returns the registered service names in order
func (s *Supervisor) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered
func (s *Supervisor) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// ========================================
// STATE
// ========================================

func (s *Supervisor) statusOf(name string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services[name].Status
}

func (s *Supervisor) snapshot(name string) *Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services[name].clone()
}

func (s *Supervisor) transition(name string, to Status, mutate func(*Service)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc := s.services[name]
	from := svc.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	svc.Status = to
	if mutate != nil {
		mutate(svc)
	}

	serviceStatusGauge.WithLabelValues(name).Set(statusValue(to))
	serviceTransitionsTotal.WithLabelValues(name, string(to)).Inc()
	logger.Info("Collection service status changed",
		zap.String("service", name),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// ========================================
// BATCH FORWARDING
// ========================================

func (s *Supervisor) forward(name string, e *entry, gen uint64, batches <-chan collector.Batch) *forwarder {
	ctx, cancel := context.WithCancel(context.Background())
	f := &forwarder{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(f.done)
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-batches:
				if !ok {
					s.collectorExited(name, e, gen)
					return
				}
				s.handleBatch(name, batch)
			}
		}
	}()
	return f
}

// handleBatch records collector stats and hands items to the sink. The sink gets
// a fresh context so stopping the service never cancels a batch mid-flight.
func (s *Supervisor) handleBatch(name string, batch collector.Batch) {
	s.mu.Lock()
	svc := s.services[name]
	for k, v := range batch.Stats {
		svc.Stats[k] = v
	}
	addCount(svc.Stats, "batches_received", 1)
	addCount(svc.Stats, "items_received", len(batch.Items))
	svc.Stats["last_batch_at"] = models.String(time.Now().UTC().Format(time.RFC3339))
	s.mu.Unlock()

	if len(batch.Items) == 0 || s.sink == nil {
		return
	}
	if batch.Service == "" {
		batch.Service = name
	}

	outcome, err := s.sink.ProcessBatch(context.Background(), batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	svc = s.services[name]
	addCount(svc.Stats, "items_kept", outcome.Kept)
	addCount(svc.Stats, "items_discarded", outcome.Discarded)
	addCount(svc.Stats, "items_duplicate", outcome.Duplicates)
	addCount(svc.Stats, "items_failed", outcome.Failed)
	if err != nil {
		svc.Stats["last_triage_error"] = models.String(err.Error())
		logger.Error("Triage failed for batch", zap.String("service", name), zap.Error(err))
	}
}

// collectorExited flags a crash when the current run's channel closes while running
func (s *Supervisor) collectorExited(name string, e *entry, gen uint64) {
	if atomic.LoadUint64(&e.gen) != gen || s.statusOf(name) != StatusRunning {
		return
	}
	err := s.transition(name, StatusError, func(svc *Service) {
		svc.Error = "collector exited unexpectedly"
	})
	if err == nil {
		logger.Error("Collection service crashed", zap.String("service", name))
	}
}

func addCount(stats models.Metadata, key string, n int) {
	current, _ := stats[key].AsNumber()
	stats[key] = models.Number(current + float64(n))
}
