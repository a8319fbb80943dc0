package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// recentActivityWindow is how far back the daily breakdown in Stats reaches
const recentActivityWindow = 7 * 24 * time.Hour

// Service handles the alert workflow for operators
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates a new alerts service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// GetAlert returns one alert
func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAlerts returns a filtered page of alerts and the total match count
func (s *Service) ListAlerts(ctx context.Context, filter *ListFilter) ([]*Alert, int64, error) {
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidStatus, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// GetStats returns the dashboard summary
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	since := s.now().Add(-recentActivityWindow)
	return s.repo.GetStats(ctx, since)
}

// UpdateStatus moves an alert along the workflow
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Alert, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, to)
	}

	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == to {
		return alert, nil
	}
	if !CanTransition(alert.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, alert.Status, to)
	}

	var resolvedAt *time.Time
	if to == StatusResolved || to == StatusClosed {
		now := s.now()
		resolvedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, to, resolvedAt); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Alert status updated",
		zap.String("alert_id", id.String()),
		zap.String("from", string(alert.Status)),
		zap.String("to", string(to)),
	)

	alert.Status = to
	if resolvedAt != nil {
		alert.ResolvedAt = resolvedAt
	}
	return alert, nil
}

// Assign hands an alert to an officer. A pending alert is opened on assignment.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, officer string) (*Alert, error) {
	if officer == "" {
		return nil, fmt.Errorf("officer is required")
	}
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Assign(ctx, id, officer); err != nil {
		return nil, err
	}
	alert.AssignedTo = officer

	if alert.Status == StatusPending {
		if err := s.repo.UpdateStatus(ctx, id, StatusOpen, nil); err != nil {
			return nil, err
		}
		alert.Status = StatusOpen
	}

	logger.WithContext(ctx).Info("Alert assigned",
		zap.String("alert_id", id.String()),
		zap.String("officer", officer),
	)
	return alert, nil
}
