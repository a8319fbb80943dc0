package collector

import (
	"context"
	"time"

	"github.com/richxcame/cyber-patrol/pkg/models"
)

// ItemKind distinguishes social posts from domain observations
type ItemKind string

const (
	ItemKindPost   ItemKind = "post"
	ItemKindDomain ItemKind = "domain"
)

// RawItem is one harvested post or domain. It lives only until triage decides keep or discard.
type RawItem struct {
	Platform    string    `json:"platform"`
	SourceID    string    `json:"source_id"`
	Kind        ItemKind  `json:"kind"`
	Author      string    `json:"author,omitempty"`
	Content     string    `json:"content"`
	MediaURLs   []string  `json:"media_urls,omitempty"`
	URL         string    `json:"url,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
	CollectedAt time.Time `json:"collected_at"`
	Processed   bool      `json:"processed"`
}

// Key is the natural idempotency key platform:source_id
func (i *RawItem) Key() string {
	return i.Platform + ":" + i.SourceID
}

// Batch is what a collector emits: items, periodic statistics, or both
type Batch struct {
	Service string          `json:"service"`
	Items   []RawItem       `json:"items"`
	Stats   models.Metadata `json:"stats,omitempty"`
}

// BatchOutcome summarises what triage did with a batch
type BatchOutcome struct {
	Scraped    int `json:"scraped"`
	Kept       int `json:"kept"`
	Discarded  int `json:"discarded"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Add accumulates o into b
func (b *BatchOutcome) Add(o BatchOutcome) {
	b.Scraped += o.Scraped
	b.Kept += o.Kept
	b.Discarded += o.Discarded
	b.Duplicates += o.Duplicates
	b.Failed += o.Failed
}

// Collector harvests content from one platform. Stop must be safe to call at any time.
type Collector interface {
	// Start begins collection and returns an opaque handle identifying the run
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) error
	// Batches is closed when the collector exits
	Batches() <-chan Batch
}

type scrapeIntervalKey struct{}

// WithScrapeInterval carries a per-run scrape interval into Collector.Start
func WithScrapeInterval(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, scrapeIntervalKey{}, d)
}

// ScrapeIntervalFrom returns the interval set by WithScrapeInterval, or fallback
func ScrapeIntervalFrom(ctx context.Context, fallback time.Duration) time.Duration {
	if d, ok := ctx.Value(scrapeIntervalKey{}).(time.Duration); ok && d > 0 {
		return d
	}
	return fallback
}
