package patrol

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/supervisor"
)

var (
	ErrNoServices       = errors.New("session must name at least one service")
	ErrInvalidConfig    = errors.New("invalid session config")
	ErrServiceInUse     = errors.New("service already belongs to an active session")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not active")
)

// SessionConfig is the run configuration shared by a session's services
type SessionConfig struct {
	// ScrapeInterval is seconds between collection cycles; 0 keeps the collector default
	ScrapeInterval int `json:"scrape_interval"`
	// EnableRealTime pushes each alert as it is committed instead of one summary per batch
	EnableRealTime bool `json:"enable_real_time"`
}

// Interval returns ScrapeInterval as a duration
func (c SessionConfig) Interval() time.Duration {
	return time.Duration(c.ScrapeInterval) * time.Second
}

// Session groups services under one run configuration
type Session struct {
	ID        uuid.UUID     `json:"id"`
	Services  []string      `json:"services"`
	Config    SessionConfig `json:"config"`
	StartedAt time.Time     `json:"started_at"`
	StoppedAt *time.Time    `json:"stopped_at,omitempty"`
	Active    bool          `json:"active"`

	// baseline holds each service's lifetime counters when the session claimed it;
	// final freezes the session's totals once it stops. Both are written under the
	// manager lock and never mutated afterwards.
	baseline map[string]SessionStats
	since    time.Time
	final    *SessionStats
}

func (s *Session) clone() *Session {
	out := *s
	out.Services = append([]string(nil), s.Services...)
	return &out
}

// SessionStats aggregates the statistics of a session's services
type SessionStats struct {
	ServicesRunning int `json:"services_running"`
	BatchesReceived int `json:"batches_received"`
	ItemsScraped    int `json:"items_scraped"`
	ItemsKept       int `json:"items_kept"`
	ItemsDiscarded  int `json:"items_discarded"`
	ItemsDuplicate  int `json:"items_duplicate"`
	ItemsFailed     int `json:"items_failed"`
	ForcedStops     int `json:"forced_stops"`
}

func (s *SessionStats) add(o SessionStats) {
	s.ServicesRunning += o.ServicesRunning
	s.BatchesReceived += o.BatchesReceived
	s.ItemsScraped += o.ItemsScraped
	s.ItemsKept += o.ItemsKept
	s.ItemsDiscarded += o.ItemsDiscarded
	s.ItemsDuplicate += o.ItemsDuplicate
	s.ItemsFailed += o.ItemsFailed
	s.ForcedStops += o.ForcedStops
}

// delta returns the counters accumulated after base; negative deltas clamp to zero
func (s SessionStats) delta(base SessionStats) SessionStats {
	d := func(now, then int) int {
		if now < then {
			return 0
		}
		return now - then
	}
	return SessionStats{
		BatchesReceived: d(s.BatchesReceived, base.BatchesReceived),
		ItemsScraped:    d(s.ItemsScraped, base.ItemsScraped),
		ItemsKept:       d(s.ItemsKept, base.ItemsKept),
		ItemsDiscarded:  d(s.ItemsDiscarded, base.ItemsDiscarded),
		ItemsDuplicate:  d(s.ItemsDuplicate, base.ItemsDuplicate),
		ItemsFailed:     d(s.ItemsFailed, base.ItemsFailed),
	}
}

// SessionView is a session with the live status of its services
type SessionView struct {
	*Session
	ServiceStatus []*supervisor.Service `json:"service_status"`
	Stats         SessionStats          `json:"stats"`
}

// StartSessionRequest is the body of POST /sessions
type StartSessionRequest struct {
	Services []string      `json:"services" binding:"required"`
	Config   SessionConfig `json:"config"`
}
