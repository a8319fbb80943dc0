package patrol

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/supervisor"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// ServiceController is the supervisor surface the session manager drives
type ServiceController interface {
	Start(ctx context.Context, name string) (*supervisor.Service, error)
	Stop(ctx context.Context, name string) (*supervisor.Service, error)
	Status(name string) (*supervisor.Service, error)
	Has(name string) bool
}

// Manager tracks patrol sessions and guarantees a service belongs to at most
// one active session
type Manager struct {
	services ServiceController

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	owners   map[string]uuid.UUID
}

// NewManager creates a session manager over the given supervisor
func NewManager(services ServiceController) *Manager {
	return &Manager{
		services: services,
		sessions: make(map[uuid.UUID]*Session),
		owners:   make(map[string]uuid.UUID),
	}
}

// ========================================
// COMMANDS
// ========================================

// StartSession reserves the named services, then starts each through the
// supervisor. If any start fails the services it started are stopped again and
// the reservation is released.
func (m *Manager) StartSession(ctx context.Context, req *StartSessionRequest) (*Session, error) {
	names := dedupe(req.Services)
	if len(names) == 0 {
		return nil, ErrNoServices
	}
	if req.Config.ScrapeInterval < 0 {
		return nil, fmt.Errorf("%w: scrape_interval must not be negative", ErrInvalidConfig)
	}
	for _, name := range names {
		if !m.services.Has(name) {
			return nil, fmt.Errorf("%s: %w", name, supervisor.ErrUnknownService)
		}
	}

	session := &Session{ID: uuid.New(), Services: names, Config: req.Config}
	if err := m.reserve(session); err != nil {
		return nil, err
	}
	m.markBaseline(session)

	ctx = logger.ContextWithSession(ctx, session.ID.String())
	log := logger.WithContext(ctx)
	startCtx := collector.WithScrapeInterval(ctx, req.Config.Interval())

	var started []string
	for _, name := range names {
		_, err := m.services.Start(startCtx, name)
		switch {
		case err == nil:
			started = append(started, name)
		case errors.Is(err, supervisor.ErrAlreadyRunning):
			// running outside any session; the session adopts it
			log.Info("Session adopted running service", zap.String("service", name))
		default:
			log.Error("Session start failed, rolling back", zap.String("service", name), zap.Error(err))
			m.rollback(ctx, session, started)
			return nil, fmt.Errorf("start %s: %w", name, err)
		}
	}

	m.mu.Lock()
	session.StartedAt = time.Now().UTC()
	session.Active = true
	out := session.clone()
	m.mu.Unlock()

	log.Info("Patrol session started",
		zap.Strings("services", names),
		zap.Int("scrape_interval", req.Config.ScrapeInterval),
		zap.Bool("enable_real_time", req.Config.EnableRealTime),
	)
	return out, nil
}

// StopSession stops every service of an active session. Services that were
// force-stopped after a timeout still count as stopped; other failures are
// returned joined, after the session has been closed.
func (m *Manager) StopSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if !session.Active {
		out := session.clone()
		m.mu.Unlock()
		return out, ErrSessionNotActive
	}
	session.Active = false
	m.mu.Unlock()

	ctx = logger.ContextWithSession(ctx, id.String())
	var errs []error
	forced := 0
	for _, name := range session.Services {
		_, err := m.services.Stop(ctx, name)
		switch {
		case err == nil, errors.Is(err, supervisor.ErrNotRunning):
		case errors.Is(err, supervisor.ErrStopTimeout):
			forced++
			logger.WithContext(ctx).Warn("Service force-stopped while closing session", zap.String("service", name))
		default:
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
		}
	}

	m.mu.RLock()
	snapshot := session.clone()
	m.mu.RUnlock()
	final := m.collect(snapshot).Stats
	final.ServicesRunning = 0
	if final.ForcedStops < forced {
		final.ForcedStops = forced
	}

	now := time.Now().UTC()
	m.mu.Lock()
	session.StoppedAt = &now
	session.final = &final
	m.release(session)
	out := session.clone()
	m.mu.Unlock()

	logger.WithContext(ctx).Info("Patrol session stopped",
		zap.Int("items_kept", final.ItemsKept),
		zap.Int("forced_stops", final.ForcedStops),
	)
	return out, errors.Join(errs...)
}

// Shutdown stops all active sessions
func (m *Manager) Shutdown(ctx context.Context) {
	for _, s := range m.List() {
		if !s.Active {
			continue
		}
		if _, err := m.StopSession(ctx, s.ID); err != nil && !errors.Is(err, ErrSessionNotActive) {
			logger.Warn("Error stopping session during shutdown", zap.String("session_id", s.ID.String()), zap.Error(err))
		}
	}
}

// ========================================
// QUERIES
// ========================================

// Get returns a session with live service status and aggregate statistics
func (m *Manager) Get(id uuid.UUID) (*SessionView, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrSessionNotFound
	}
	out := session.clone()
	m.mu.RUnlock()

	return m.view(out), nil
}

// List returns all sessions, newest first
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// ActiveSessionFor returns the active session that owns service, if any
func (m *Manager) ActiveSessionFor(service string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.owners[service]
	if !ok {
		return nil, false
	}
	s := m.sessions[id]
	if !s.Active {
		return nil, false
	}
	return s.clone(), true
}

// RealTimeEnabled reports whether alerts from service should be pushed immediately
func (m *Manager) RealTimeEnabled(service string) bool {
	s, ok := m.ActiveSessionFor(service)
	return ok && s.Config.EnableRealTime
}

// ========================================
// INTERNAL
// ========================================

func (m *Manager) reserve(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range session.Services {
		if owner, taken := m.owners[name]; taken {
			return fmt.Errorf("%w: %s is held by session %s", ErrServiceInUse, name, owner)
		}
	}
	for _, name := range session.Services {
		m.owners[name] = session.ID
	}
	m.sessions[session.ID] = session
	return nil
}

// release frees the session's services; callers hold m.mu
func (m *Manager) release(session *Session) {
	for _, name := range session.Services {
		if m.owners[name] == session.ID {
			delete(m.owners, name)
		}
	}
}

func (m *Manager) rollback(ctx context.Context, session *Session, started []string) {
	for _, name := range started {
		if _, err := m.services.Stop(ctx, name); err != nil && !errors.Is(err, supervisor.ErrStopTimeout) {
			logger.WithContext(ctx).Warn("Rollback stop failed", zap.String("service", name), zap.Error(err))
		}
	}
	m.mu.Lock()
	m.release(session)
	delete(m.sessions, session.ID)
	m.mu.Unlock()
}

// markBaseline records the lifetime counters of the session's services so that
// its statistics start from zero
func (m *Manager) markBaseline(session *Session) {
	baseline := make(map[string]SessionStats, len(session.Services))
	for _, name := range session.Services {
		if svc, err := m.services.Status(name); err == nil {
			baseline[name] = counters(svc)
		}
	}
	m.mu.Lock()
	session.baseline = baseline
	session.since = time.Now().UTC()
	m.mu.Unlock()
}

func (m *Manager) view(session *Session) *SessionView {
	if session.final == nil {
		return m.collect(session)
	}
	v := &SessionView{Session: session, ServiceStatus: make([]*supervisor.Service, 0, len(session.Services)), Stats: *session.final}
	for _, name := range session.Services {
		if svc, err := m.services.Status(name); err == nil {
			v.ServiceStatus = append(v.ServiceStatus, svc)
		}
	}
	return v
}

// collect reads live service status and reports the work done since the session started
func (m *Manager) collect(session *Session) *SessionView {
	v := &SessionView{Session: session, ServiceStatus: make([]*supervisor.Service, 0, len(session.Services))}
	for _, name := range session.Services {
		svc, err := m.services.Status(name)
		if err != nil {
			continue
		}
		v.ServiceStatus = append(v.ServiceStatus, svc)
		v.Stats.add(counters(svc).delta(session.baseline[name]))
		if svc.Status == supervisor.StatusRunning {
			v.Stats.ServicesRunning++
		}
		if forced, _ := svc.Stats["forced_stop"].AsBool(); forced && svc.LastStopped != nil && svc.LastStopped.After(session.since) {
			v.Stats.ForcedStops++
		}
	}
	return v
}

// counters are a service's lifetime batch and item totals
func counters(svc *supervisor.Service) SessionStats {
	return SessionStats{
		BatchesReceived: statInt(svc, "batches_received"),
		ItemsScraped:    statInt(svc, "items_received"),
		ItemsKept:       statInt(svc, "items_kept"),
		ItemsDiscarded:  statInt(svc, "items_discarded"),
		ItemsDuplicate:  statInt(svc, "items_duplicate"),
		ItemsFailed:     statInt(svc, "items_failed"),
	}
}

func statInt(svc *supervisor.Service, key string) int {
	n, _ := svc.Stats[key].AsNumber()
	return int(n)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
