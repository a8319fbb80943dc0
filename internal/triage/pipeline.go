package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/alerts"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/reputation"
	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"go.uber.org/zap"
)

// DefaultKeepThreshold is the minimum score for an item to become an alert
const DefaultKeepThreshold = 0.5

// ErrStore wraps persistence failures for a batch
var ErrStore = errors.New("alert store failure")

// Scorer scores text content
type Scorer interface {
	Score(ctx context.Context, content scoring.Content) *scoring.Result
}

// DomainAnalyzer scores domain observations
type DomainAnalyzer interface {
	Analyze(domain string) (*reputation.Result, error)
}

// AlertStore persists kept items idempotently
type AlertStore interface {
	UpsertByNaturalKey(ctx context.Context, a *alerts.Alert) (bool, error)
}

// Notifier receives committed alerts
type Notifier interface {
	// AlertCreated is called once per new alert when real-time push is enabled
	AlertCreated(ctx context.Context, service string, alert *alerts.Alert)
	// BatchCompleted is called once per batch with the alerts it created
	BatchCompleted(ctx context.Context, service string, outcome collector.BatchOutcome, created []*alerts.Alert)
}

// RealTimePolicy decides per service whether alerts are pushed as they are committed
type RealTimePolicy interface {
	RealTimeEnabled(service string) bool
}

// Config tunes the pipeline
type Config struct {
	// KeepThreshold is the minimum score to keep; nil means DefaultKeepThreshold and 0 keeps everything
	KeepThreshold  *float64
	Workers        int
	DedupeCapacity int
}

// Threshold returns a pointer for Config.KeepThreshold
func Threshold(v float64) *float64 { return &v }

// Decision is the triage verdict for one item
type Decision struct {
	Key       string           `json:"key"`
	Score     float64          `json:"score"`
	Tier      scoring.RiskTier `json:"risk_tier"`
	Category  scoring.Category `json:"category"`
	Signals   []string         `json:"signals"`
	Reasoning string           `json:"reasoning"`
	Keep      bool             `json:"keep"`

	language scoring.Language
	metadata models.Metadata
}

// Pipeline turns batches of raw items into alerts and discards the rest
type Pipeline struct {
	scorer   Scorer
	analyzer DomainAnalyzer
	store    AlertStore
	ledger   Ledger
	notifier Notifier
	policy   RealTimePolicy
	cfg      Config
	keep     float64

	locks     *keyLocks
	committed *committedCache
}

// Option configures optional collaborators
type Option func(*Pipeline)

// WithLedger adds a shared committed-key ledger
func WithLedger(l Ledger) Option {
	return func(p *Pipeline) { p.ledger = l }
}

// WithNotifier adds an alert notifier
func WithNotifier(n Notifier, policy RealTimePolicy) Option {
	return func(p *Pipeline) {
		p.notifier = n
		p.policy = policy
	}
}

// NewPipeline creates a triage pipeline
func NewPipeline(cfg Config, scorer Scorer, analyzer DomainAnalyzer, store AlertStore, opts ...Option) *Pipeline {
	keep := DefaultKeepThreshold
	if cfg.KeepThreshold != nil && *cfg.KeepThreshold >= 0 {
		keep = *cfg.KeepThreshold
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	p := &Pipeline{
		scorer:    scorer,
		analyzer:  analyzer,
		store:     store,
		cfg:       cfg,
		keep:      keep,
		locks:     newKeyLocks(),
		committed: newCommittedCache(cfg.DedupeCapacity),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ========================================
// BATCH PROCESSING
// ========================================

type itemResult struct {
	outcome string
	alert   *alerts.Alert
	err     error
}

// ProcessBatch evaluates every item independently, commits the kept ones and
// drops the rest. Re-processing a batch never creates a second alert for the
// same platform and source id.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch collector.Batch) (collector.BatchOutcome, error) {
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	results := make([]itemResult, len(batch.Items))
	sem := make(chan struct{}, p.cfg.Workers)
	var wg sync.WaitGroup
	for i := range batch.Items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.processItem(ctx, batch.Service, &batch.Items[i])
			batch.Items[i].Processed = true
		}(i)
	}
	wg.Wait()

	outcome := collector.BatchOutcome{Scraped: len(batch.Items)}
	var created []*alerts.Alert
	var errs []error
	for _, r := range results {
		itemsTotal.WithLabelValues(r.outcome).Inc()
		switch r.outcome {
		case outcomeKept:
			outcome.Kept++
			created = append(created, r.alert)
		case outcomeDiscarded:
			outcome.Discarded++
		case outcomeDuplicate:
			outcome.Duplicates++
		case outcomeFailed:
			outcome.Failed++
			if r.err != nil {
				errs = append(errs, r.err)
			}
		}
	}

	logger.WithContext(ctx).Info("Batch triaged",
		zap.String("service", batch.Service),
		zap.Int("scraped", outcome.Scraped),
		zap.Int("kept", outcome.Kept),
		zap.Int("discarded", outcome.Discarded),
		zap.Int("duplicates", outcome.Duplicates),
		zap.Int("failed", outcome.Failed),
		zap.Duration("took", time.Since(start)),
	)

	if p.notifier != nil && !p.realTime(batch.Service) {
		p.notifier.BatchCompleted(ctx, batch.Service, outcome, created)
	}

	if len(errs) > 0 {
		return outcome, fmt.Errorf("%w: %d of %d items not stored: %w", ErrStore, len(errs), outcome.Scraped, errors.Join(errs...))
	}
	return outcome, nil
}

func (p *Pipeline) processItem(ctx context.Context, service string, item *collector.RawItem) itemResult {
	decision, err := p.Evaluate(ctx, item)
	if err != nil {
		// unscorable input is counted but not retried
		logger.WithContext(ctx).Warn("Item could not be evaluated",
			zap.String("service", service), zap.String("key", item.Key()), zap.Error(err))
		return itemResult{outcome: outcomeFailed}
	}
	if !decision.Keep {
		return itemResult{outcome: outcomeDiscarded}
	}
	return p.commit(ctx, service, item, decision)
}

// Evaluate scores one item and applies the keep threshold. It has no side effects.
func (p *Pipeline) Evaluate(ctx context.Context, item *collector.RawItem) (*Decision, error) {
	if item.Platform == "" || item.SourceID == "" {
		return nil, errors.New("item is missing platform or source id")
	}

	var d *Decision
	if item.Kind == collector.ItemKindDomain {
		rep, err := p.analyzer.Analyze(item.Content)
		if err != nil {
			return nil, err
		}
		d = domainDecision(rep)
	} else {
		res := p.scorer.Score(ctx, scoring.Content{Text: item.Content, MediaURLs: item.MediaURLs})
		d = &Decision{
			Score:     res.Score,
			Tier:      res.Tier,
			Category:  res.Category,
			Signals:   res.Signals,
			Reasoning: res.Reasoning,
			language:  res.Language,
			metadata:  res.Metadata(),
		}
	}
	d.Key = item.Key()
	d.Keep = d.Score >= p.keep
	return d, nil
}

func domainDecision(rep *reputation.Result) *Decision {
	reasoning := "No domain risk indicators found"
	if len(rep.Reasons) > 0 {
		reasoning = "Domain flagged: " + strings.Join(rep.Reasons, ", ")
	}
	md := models.Metadata{
		"domain":        models.String(rep.Domain),
		"is_legitimate": models.Bool(rep.IsLegitimate),
		"reasons":       models.Strings(rep.Reasons),
		"reasoning":     models.String(reasoning),
	}
	if rep.Lookalike != "" {
		md["lookalike_of"] = models.String(rep.Lookalike)
	}
	return &Decision{
		Score:     rep.Score,
		Tier:      rep.Tier,
		Category:  scoring.CategorySuspiciousDomain,
		Signals:   rep.Reasons,
		Reasoning: reasoning,
		metadata:  md,
	}
}

// commit writes a kept item under its key lock
func (p *Pipeline) commit(ctx context.Context, service string, item *collector.RawItem, d *Decision) itemResult {
	key := item.Key()
	unlock := p.locks.lock(key)
	defer unlock()

	if _, ok := p.committed.get(key); ok {
		return itemResult{outcome: outcomeDuplicate}
	}
	if p.ledger != nil {
		seen, err := p.ledger.Committed(ctx, key)
		if err != nil {
			logger.WithContext(ctx).Warn("Ledger lookup failed, falling back to store", zap.String("key", key), zap.Error(err))
		} else if seen {
			return itemResult{outcome: outcomeDuplicate}
		}
	}

	alert := newAlert(service, item, d)
	created, err := p.store.UpsertByNaturalKey(ctx, alert)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to store alert", zap.String("key", key), zap.Error(err))
		return itemResult{outcome: outcomeFailed, err: fmt.Errorf("%s: %w", key, err)}
	}

	p.committed.add(key, alert.ID)
	if p.ledger != nil {
		if err := p.ledger.MarkCommitted(ctx, key, alert.ID); err != nil {
			logger.WithContext(ctx).Warn("Failed to mark key committed", zap.String("key", key), zap.Error(err))
		}
	}
	if !created {
		return itemResult{outcome: outcomeDuplicate}
	}

	alertsCreatedTotal.WithLabelValues(string(alert.RiskTier)).Inc()
	logger.WithContext(ctx).Info("Alert created",
		zap.String("alert_id", alert.ID.String()),
		zap.String("key", key),
		zap.Float64("score", alert.Confidence),
		zap.String("tier", string(alert.RiskTier)),
		zap.String("category", string(alert.Category)),
	)
	if p.notifier != nil && p.realTime(service) {
		p.notifier.AlertCreated(ctx, service, alert)
	}
	return itemResult{outcome: outcomeKept, alert: alert}
}

func (p *Pipeline) realTime(service string) bool {
	return p.policy != nil && p.policy.RealTimeEnabled(service)
}

func newAlert(service string, item *collector.RawItem, d *Decision) *alerts.Alert {
	status := alerts.StatusPending
	if d.Tier == scoring.TierHigh {
		status = alerts.StatusOpen
	}

	md := make(models.Metadata, len(d.metadata)+2)
	for k, v := range d.metadata {
		md[k] = v
	}
	if service != "" {
		md["service"] = models.String(service)
	}
	md["item_kind"] = models.String(string(item.Kind))

	a := &alerts.Alert{
		ID:             uuid.New(),
		SourcePlatform: item.Platform,
		SourceID:       item.SourceID,
		SourceURL:      item.URL,
		Author:         item.Author,
		Content:        item.Content,
		MediaURLs:      item.MediaURLs,
		Confidence:     d.Score,
		RiskTier:       d.Tier,
		Category:       d.Category,
		Signals:        d.Signals,
		Reasoning:      d.Reasoning,
		Language:       d.language,
		Metadata:       md,
		Status:         status,
	}
	if !item.ObservedAt.IsZero() {
		t := item.ObservedAt
		a.ObservedAt = &t
	}
	if !item.CollectedAt.IsZero() {
		t := item.CollectedAt
		a.CollectedAt = &t
	}
	return a
}

// CachedKeys returns how many committed keys are held in memory
func (p *Pipeline) CachedKeys() int {
	return p.committed.len()
}

// AnalyzeText scores text without triaging or storing it
func (p *Pipeline) AnalyzeText(ctx context.Context, content scoring.Content) *scoring.Result {
	return p.scorer.Score(ctx, content)
}

// AnalyzeDomain scores a domain without triaging or storing it
func (p *Pipeline) AnalyzeDomain(domain string) (*reputation.Result, error) {
	return p.analyzer.Analyze(domain)
}
