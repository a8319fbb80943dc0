package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/eventbus"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"github.com/richxcame/cyber-patrol/pkg/resilience"
	"go.uber.org/zap"
)

// Event types exchanged with the browser-automation layer
const (
	EventItemsCollected = "items.collected"
	EventCollectStart   = "collect.start"
	EventCollectStop    = "collect.stop"
)

// Bus is the subset of eventbus.Bus the collector needs
type Bus interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
	Subscribe(ctx context.Context, subject, durable string, handler eventbus.Handler) (eventbus.Subscription, error)
}

// CollectedPayload is the data of an items.collected event
type CollectedPayload struct {
	Items []RawItem       `json:"items"`
	Stats models.Metadata `json:"stats,omitempty"`
}

// CommandPayload instructs the scraping layer to start or stop a platform
type CommandPayload struct {
	Platform       string `json:"platform"`
	Handle         string `json:"handle"`
	ScrapeInterval int    `json:"scrape_interval"`
}

// NATSCollector receives batches that scrapers publish on patrol.items.<platform>
type NATSCollector struct {
	platform       string
	bus            Bus
	scrapeInterval time.Duration
	maxBatch       int
	commands       *resilience.CircuitBreaker

	mu  sync.Mutex
	run *natsRun
}

type natsRun struct {
	handle  string
	sub     eventbus.Subscription
	batches chan Batch
	done    chan struct{}
	senders sync.WaitGroup
}

// NewNATSCollector creates a collector for platform
func NewNATSCollector(platform string, bus Bus, scrapeInterval time.Duration, maxBatch int) *NATSCollector {
	if maxBatch <= 0 {
		maxBatch = 25
	}
	settings := resilience.CollectorSettings(platform)
	return &NATSCollector{
		platform:       platform,
		bus:            bus,
		scrapeInterval: scrapeInterval,
		maxBatch:       maxBatch,
		commands:       resilience.NewCircuitBreaker(settings, resilience.Degraded(settings.Name)),
	}
}

// ItemsSubject is where scrapers publish harvested items for platform
func ItemsSubject(platform string) string {
	return "patrol.items." + platform
}

// CommandSubject is where scrapers listen for start/stop commands
func CommandSubject(platform string) string {
	return "patrol.commands." + platform
}

// Start subscribes to the platform's item stream and tells scrapers to begin
func (c *NATSCollector) Start(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		return "", errors.New("collector already started")
	}

	run := &natsRun{
		handle:  uuid.New().String(),
		batches: make(chan Batch, 4),
		done:    make(chan struct{}),
	}
	sub, err := c.bus.Subscribe(context.Background(), ItemsSubject(c.platform), "collector-"+c.platform,
		func(ctx context.Context, event *eventbus.Event) error {
			return c.deliver(run, event)
		})
	if err != nil {
		return "", fmt.Errorf("subscribe to %s items: %w", c.platform, err)
	}

	cmd := CommandPayload{
		Platform:       c.platform,
		Handle:         run.handle,
		ScrapeInterval: int(ScrapeIntervalFrom(ctx, c.scrapeInterval) / time.Second),
	}
	if _, err := c.commands.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, c.bus.Publish(ctx, CommandSubject(c.platform), EventCollectStart, cmd)
	}); err != nil {
		_ = sub.Unsubscribe()
		return "", fmt.Errorf("publish start command: %w", err)
	}

	run.sub = sub
	c.run = run
	return run.handle, nil
}

// Stop detaches from the item stream, tells scrapers to halt and closes Batches
func (c *NATSCollector) Stop(ctx context.Context) error {
	c.mu.Lock()
	run := c.run
	c.run = nil
	c.mu.Unlock()

	if run == nil {
		return nil
	}
	if err := run.sub.Unsubscribe(); err != nil {
		logger.Warn("collector: unsubscribe failed", zap.String("platform", c.platform), zap.Error(err))
	}
	if err := c.bus.Publish(ctx, CommandSubject(c.platform), EventCollectStop, CommandPayload{
		Platform: c.platform,
		Handle:   run.handle,
	}); err != nil {
		logger.Warn("collector: publish stop command failed", zap.String("platform", c.platform), zap.Error(err))
	}

	close(run.done)
	run.senders.Wait()
	close(run.batches)
	return nil
}

// Batches returns the current run's channel, or nil when not started
func (c *NATSCollector) Batches() <-chan Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return nil
	}
	return c.run.batches
}

func (c *NATSCollector) deliver(run *natsRun, event *eventbus.Event) error {
	if event.Type != EventItemsCollected {
		return nil
	}
	var payload CollectedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Warn("collector: dropping malformed batch", zap.String("platform", c.platform), zap.Error(err))
		return nil
	}

	now := time.Now().UTC()
	for i := range payload.Items {
		item := &payload.Items[i]
		if item.Platform == "" {
			item.Platform = c.platform
		}
		if item.Kind == "" {
			item.Kind = ItemKindPost
		}
		if item.CollectedAt.IsZero() {
			item.CollectedAt = now
		}
	}

	chunks := chunk(payload.Items, c.maxBatch)
	if len(chunks) == 0 && len(payload.Stats) > 0 {
		chunks = [][]RawItem{nil}
	}

	c.mu.Lock()
	if c.run != run {
		c.mu.Unlock()
		return errStopped
	}
	run.senders.Add(1)
	c.mu.Unlock()
	defer run.senders.Done()

	for i, items := range chunks {
		batch := Batch{Service: c.platform, Items: items}
		if i == 0 {
			batch.Stats = payload.Stats
		}
		select {
		case run.batches <- batch:
		case <-run.done:
			// naked, so JetStream redelivers to the next run
			return errStopped
		}
	}
	return nil
}

var errStopped = errors.New("collector stopped")

func chunk(items []RawItem, size int) [][]RawItem {
	var out [][]RawItem
	for len(items) > 0 {
		n := size
		if len(items) < n {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
