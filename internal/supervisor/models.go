package supervisor

import (
	"context"
	"time"

	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/pkg/models"
)

// Status is the lifecycle state of a collection service
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// transitions lists every legal edge of the service state machine
var transitions = map[Status][]Status{
	StatusStopped:  {StatusStarting},
	StatusError:    {StatusStarting, StatusStopping},
	StatusStarting: {StatusRunning, StatusError},
	StatusRunning:  {StatusStopping, StatusError},
	StatusStopping: {StatusStopped},
}

// CanTransition reports whether from -> to is a legal edge
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Service is the supervisor's record of one named collection service
type Service struct {
	Name        string          `json:"name"`
	Status      Status          `json:"status"`
	LastStarted *time.Time      `json:"last_started,omitempty"`
	LastStopped *time.Time      `json:"last_stopped,omitempty"`
	Handle      string          `json:"handle,omitempty"`
	Error       string          `json:"error,omitempty"`
	Stats       models.Metadata `json:"stats"`
}

func (s *Service) clone() *Service {
	out := *s
	out.Stats = make(models.Metadata, len(s.Stats))
	for k, v := range s.Stats {
		out.Stats[k] = v
	}
	return &out
}

// BatchSink receives batches pulled from running collectors
type BatchSink interface {
	ProcessBatch(ctx context.Context, batch collector.Batch) (collector.BatchOutcome, error)
}
