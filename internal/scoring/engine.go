package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// Classifier health values reported by the engine
const (
	ClassifierHealthOperational  = "operational"
	ClassifierHealthDegraded     = "degraded"
	ClassifierHealthNotAvailable = "not_available"
)

// Config configures an Engine
type Config struct {
	Rules             *Rules
	Classifier        Classifier
	ClassifierTimeout time.Duration
	ClassifierWeight  float64
}

// Engine computes deterministic, explainable fraud scores
type Engine struct {
	rules             *compiledRules
	classifier        Classifier
	classifierTimeout time.Duration
	classifierWeight  float64
}

// NewEngine compiles the rule set. A nil Rules means DefaultRules.
func NewEngine(cfg Config) (*Engine, error) {
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = 5 * time.Second
	}
	if cfg.ClassifierWeight <= 0 {
		cfg.ClassifierWeight = 0.2
	}
	return &Engine{
		rules:             compiled,
		classifier:        cfg.Classifier,
		classifierTimeout: cfg.ClassifierTimeout,
		classifierWeight:  cfg.ClassifierWeight,
	}, nil
}

// Score scores content. It never fails: classifier problems degrade to local scoring.
func (e *Engine) Score(ctx context.Context, content Content) *Result {
	result := e.scoreLocal(content.Text)

	if e.classifier == nil {
		result.Classifier = ClassifierNotConfigured
	} else if strings.TrimSpace(content.Text) != "" || len(content.MediaURLs) > 0 {
		e.applyClassifier(ctx, content, result)
	}

	result.Score = clamp(result.KeywordScore + result.PatternScore + result.ClassifierScore)
	result.Tier = TierForScore(result.Score)
	result.Reasoning = buildReasoning(result)
	scoresByTier.WithLabelValues(string(result.Tier)).Inc()
	return result
}

// ClassifierHealth reports operational, degraded or not_available
func (e *Engine) ClassifierHealth() string {
	if e.classifier == nil {
		return ClassifierHealthNotAvailable
	}
	if h, ok := e.classifier.(interface{ Healthy() bool }); ok && !h.Healthy() {
		return ClassifierHealthDegraded
	}
	return ClassifierHealthOperational
}

func (e *Engine) scoreLocal(text string) *Result {
	result := &Result{
		Category:        CategoryUnclassified,
		MatchedKeywords: []string{},
		MatchedPatterns: []string{},
		Signals:         []string{},
	}

	normalized := normalize(text)
	if normalized == "" {
		result.Language = LanguageUnknown
		return result
	}
	lower := strings.ToLower(normalized)
	profile := profileScripts(normalized)
	result.Language = detectLanguage(lower, profile)

	// keyword layer, routed by the scripts present in the text
	fired := map[Category]string{}
	seen := map[string]bool{}
	for _, script := range []Script{ScriptLatin, ScriptDevanagari} {
		if (script == ScriptLatin && profile.latin == 0) || (script == ScriptDevanagari && profile.devanagari == 0) {
			continue
		}
		for _, m := range e.rules.keywords[script] {
			if seen[m.term] || !m.match(lower) {
				continue
			}
			seen[m.term] = true
			result.MatchedKeywords = append(result.MatchedKeywords, m.term)
			result.Signals = append(result.Signals, "keyword:"+m.term)
			if m.group.Category != "" {
				if _, ok := fired[m.group.Category]; !ok {
					fired[m.group.Category] = m.group.Name
				}
			}
		}
	}
	r := e.rules.rules
	result.KeywordScore = math.Min(float64(len(result.MatchedKeywords))*r.KeywordWeight, r.KeywordCeiling)

	// pattern layer
	var patternScore float64
	for _, p := range e.rules.patterns {
		if p.re.MatchString(lower) {
			result.MatchedPatterns = append(result.MatchedPatterns, p.rule.Name)
			result.Signals = append(result.Signals, "pattern:"+p.rule.Name)
			patternScore += p.rule.Weight
		}
	}
	result.PatternScore = math.Min(patternScore, r.PatternCeiling)

	for _, c := range categoryPriority {
		if rule, ok := fired[c]; ok {
			result.Category = c
			result.CategoryRule = rule
			break
		}
	}
	return result
}

func (e *Engine) applyClassifier(ctx context.Context, content Content, result *Result) {
	ctx, cancel := context.WithTimeout(ctx, e.classifierTimeout)
	defer cancel()

	classification, err := e.classifier.Classify(ctx, content)
	if err != nil {
		classifierFallbacksTotal.Inc()
		result.Classifier = ClassifierDegraded
		logger.Warn("classifier unavailable, scoring locally", zap.Error(err))
		return
	}

	result.Classifier = ClassifierApplied
	result.ClassifierLabel = classification.Labels
	result.ClassifierScore = classification.Confidence * e.classifierWeight
	if result.ClassifierScore > 0 {
		label := "confidence"
		if len(classification.Labels) > 0 {
			label = classification.Labels[0]
		}
		result.Signals = append(result.Signals, "classifier:"+label)
	}
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func buildReasoning(r *Result) string {
	var parts []string
	if n := len(r.MatchedKeywords); n > 0 {
		shown := r.MatchedKeywords
		if n > 5 {
			shown = shown[:5]
		}
		part := fmt.Sprintf("Detected %d fraud keywords: %s", n, strings.Join(shown, ", "))
		if n > 5 {
			part += fmt.Sprintf(" and %d more", n-5)
		}
		parts = append(parts, part)
	}
	if len(r.MatchedPatterns) > 0 {
		parts = append(parts, fmt.Sprintf("Matched %d fraud patterns: %s", len(r.MatchedPatterns), strings.Join(r.MatchedPatterns, ", ")))
	}
	if r.CategoryRule != "" {
		parts = append(parts, fmt.Sprintf("Category %s from rule %s", r.Category, r.CategoryRule))
	}
	switch r.Classifier {
	case ClassifierApplied:
		parts = append(parts, fmt.Sprintf("Classifier added %.2f", r.ClassifierScore))
	case ClassifierDegraded:
		parts = append(parts, "Classifier unavailable, local scoring only")
	}

	switch r.Tier {
	case TierHigh:
		parts = append(parts, "HIGH confidence fraud detection")
	case TierMedium:
		parts = append(parts, "Moderate fraud indicators present")
	case TierLow:
		parts = append(parts, "Low fraud probability")
	default:
		if !r.HasSignals() {
			parts = append(parts, "No fraud indicators found")
		} else {
			parts = append(parts, "Minimal fraud probability")
		}
	}
	return strings.Join(parts, ". ") + "."
}
