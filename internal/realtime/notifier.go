package realtime

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/cyber-patrol/internal/alerts"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/triage"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	ws "github.com/richxcame/cyber-patrol/pkg/websocket"
	"go.uber.org/zap"
)

// Bus subjects
const (
	SubjectAlertCreated   = "patrol.alerts.created"
	SubjectBatchCompleted = "patrol.batches.completed"
)

// Message types pushed to dashboards
const (
	MessageAlertCreated   = "alert_created"
	MessageAlertDigest    = "alert_digest"
	MessageBatchCompleted = "batch_completed"
)

// RoomAll receives every alert. RoomBatches receives batch summaries.
const (
	RoomAll     = "alerts"
	RoomBatches = "batches"
)

// TierRoom is the room for one risk tier, e.g. "tier:HIGH"
func TierRoom(tier string) string { return "tier:" + tier }

// ServiceRoom is the room for one collection service, e.g. "service:facebook"
func ServiceRoom(service string) string { return "service:" + service }

var pushesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "patrol_realtime_pushes_total",
		Help: "Messages fanned out to dashboards and the bus, by channel and type",
	},
	[]string{"channel", "type"},
)

// Publisher is the part of the event bus the notifier needs
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}

// Broadcaster is the part of the websocket hub the notifier needs
type Broadcaster interface {
	SendToRooms(rooms []string, msg *ws.Message) int
}

// Notifier fans committed alerts out to the bus and connected dashboards.
// Either side may be nil.
type Notifier struct {
	bus Publisher
	hub Broadcaster
}

var _ triage.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier
func NewNotifier(bus Publisher, hub Broadcaster) *Notifier {
	return &Notifier{bus: bus, hub: hub}
}

// AlertSummary is the dashboard view of an alert
type AlertSummary struct {
	AlertID    string   `json:"alert_id"`
	Service    string   `json:"service"`
	Platform   string   `json:"platform"`
	SourceID   string   `json:"source_id"`
	SourceURL  string   `json:"source_url,omitempty"`
	RiskTier   string   `json:"risk_tier"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at"`
}

func summarize(service string, a *alerts.Alert) AlertSummary {
	return AlertSummary{
		AlertID:    a.ID.String(),
		Service:    service,
		Platform:   a.SourcePlatform,
		SourceID:   a.SourceID,
		SourceURL:  a.SourceURL,
		RiskTier:   string(a.RiskTier),
		Category:   string(a.Category),
		Confidence: a.Confidence,
		Signals:    a.Signals,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s AlertSummary) toMap() map[string]interface{} {
	return map[string]interface{}{
		"alert_id":   s.AlertID,
		"service":    s.Service,
		"platform":   s.Platform,
		"source_id":  s.SourceID,
		"source_url": s.SourceURL,
		"risk_tier":  s.RiskTier,
		"category":   s.Category,
		"confidence": s.Confidence,
		"signals":    s.Signals,
		"status":     s.Status,
		"created_at": s.CreatedAt,
	}
}

// BatchSummary is published once per batch for services without real-time push
type BatchSummary struct {
	Service  string                 `json:"service"`
	Outcome  collector.BatchOutcome `json:"outcome"`
	AlertIDs []string               `json:"alert_ids"`
}

// AlertCreated pushes one alert immediately
func (n *Notifier) AlertCreated(ctx context.Context, service string, alert *alerts.Alert) {
	summary := summarize(service, alert)
	n.publish(ctx, SubjectAlertCreated, MessageAlertCreated, summary)

	if n.hub == nil {
		return
	}
	rooms := []string{RoomAll, TierRoom(summary.RiskTier), ServiceRoom(service)}
	n.push(rooms, &ws.Message{Type: MessageAlertCreated, Data: summary.toMap(), Timestamp: time.Now().UTC()})
}

// BatchCompleted publishes the batch summary and pushes one digest of the alerts it created.
// The digest goes once to every client watching any room it touches.
func (n *Notifier) BatchCompleted(ctx context.Context, service string, outcome collector.BatchOutcome, created []*alerts.Alert) {
	summary := BatchSummary{Service: service, Outcome: outcome, AlertIDs: make([]string, 0, len(created))}
	for _, a := range created {
		summary.AlertIDs = append(summary.AlertIDs, a.ID.String())
	}
	n.publish(ctx, SubjectBatchCompleted, MessageBatchCompleted, summary)

	if n.hub == nil {
		return
	}
	now := time.Now().UTC()
	n.push([]string{RoomBatches, ServiceRoom(service)}, &ws.Message{
		Type: MessageBatchCompleted,
		Data: map[string]interface{}{
			"service":    service,
			"scraped":    outcome.Scraped,
			"kept":       outcome.Kept,
			"discarded":  outcome.Discarded,
			"duplicates": outcome.Duplicates,
			"failed":     outcome.Failed,
		},
		Timestamp: now,
	})

	if len(created) == 0 {
		return
	}
	items := make([]map[string]interface{}, 0, len(created))
	tiers := make(map[string]struct{})
	for _, a := range created {
		items = append(items, summarize(service, a).toMap())
		tiers[string(a.RiskTier)] = struct{}{}
	}
	rooms := []string{RoomAll, ServiceRoom(service)}
	for _, tier := range sortedKeys(tiers) {
		rooms = append(rooms, TierRoom(tier))
	}
	n.push(rooms, &ws.Message{
		Type:      MessageAlertDigest,
		Data:      map[string]interface{}{"service": service, "alerts": items},
		Timestamp: now,
	})
}

// publish sends to the bus. Failures are logged; dashboards are best-effort.
func (n *Notifier) publish(ctx context.Context, subject, eventType string, data interface{}) {
	if n.bus == nil {
		return
	}
	if err := n.bus.Publish(context.WithoutCancel(ctx), subject, eventType, data); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish realtime event",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	pushesTotal.WithLabelValues("bus", eventType).Inc()
}

func (n *Notifier) push(rooms []string, msg *ws.Message) {
	if sent := n.hub.SendToRooms(rooms, msg); sent > 0 {
		pushesTotal.WithLabelValues("websocket", msg.Type).Add(float64(sent))
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
