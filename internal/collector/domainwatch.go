package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"go.uber.org/zap"
)

// DomainSource lists candidate domains to evaluate on each cycle
type DomainSource func(ctx context.Context) ([]string, error)

// StaticDomains is a DomainSource over a fixed list
func StaticDomains(domains []string) DomainSource {
	return func(context.Context) ([]string, error) {
		out := make([]string, len(domains))
		copy(out, domains)
		return out, nil
	}
}

// DomainWatchCollector polls a DomainSource every interval and emits domain observations
type DomainWatchCollector struct {
	name     string
	source   DomainSource
	interval time.Duration
	maxBatch int

	mu      sync.Mutex
	cancel  context.CancelFunc
	exited  chan struct{}
	batches chan Batch
}

// NewDomainWatchCollector creates a collector registered under name
func NewDomainWatchCollector(name string, source DomainSource, interval time.Duration, maxBatch int) *DomainWatchCollector {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxBatch <= 0 {
		maxBatch = 25
	}
	return &DomainWatchCollector{name: name, source: source, interval: interval, maxBatch: maxBatch}
}

// Start launches the polling loop. The first cycle runs immediately.
func (c *DomainWatchCollector) Start(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return "", errors.New("collector already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.exited = make(chan struct{})
	c.batches = make(chan Batch, 1)

	go c.loop(runCtx, ScrapeIntervalFrom(ctx, c.interval), c.batches, c.exited)
	return uuid.New().String(), nil
}

// Stop cancels the loop and waits for it to exit or for ctx to expire
func (c *DomainWatchCollector) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, exited := c.cancel, c.exited
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Batches returns the current run's channel
func (c *DomainWatchCollector) Batches() <-chan Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

func (c *DomainWatchCollector) loop(ctx context.Context, interval time.Duration, batches chan Batch, exited chan struct{}) {
	defer close(exited)
	defer close(batches)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycles := 0
	for {
		cycles++
		if !c.cycle(ctx, batches, cycles) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle emits one round of observations; false means the collector was stopped
func (c *DomainWatchCollector) cycle(ctx context.Context, batches chan Batch, n int) bool {
	domains, err := c.source(ctx)
	stats := models.Metadata{
		"cycles":       models.Int(n),
		"last_cycle":   models.String(time.Now().UTC().Format(time.RFC3339)),
		"last_scraped": models.Int(len(domains)),
	}
	if err != nil {
		logger.Warn("domain watch: source failed", zap.String("service", c.name), zap.Error(err))
		stats["last_error"] = models.String(err.Error())
		domains = nil
	}

	now := time.Now().UTC()
	items := make([]RawItem, 0, len(domains))
	for _, d := range domains {
		items = append(items, RawItem{
			Platform:    c.name,
			SourceID:    d,
			Kind:        ItemKindDomain,
			Content:     d,
			ObservedAt:  now,
			CollectedAt: now,
		})
	}

	chunks := chunk(items, c.maxBatch)
	if len(chunks) == 0 {
		chunks = [][]RawItem{nil}
	}
	for i, part := range chunks {
		batch := Batch{Service: c.name, Items: part}
		if i == 0 {
			batch.Stats = stats
		}
		select {
		case batches <- batch:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
