package scoring

import (
	"github.com/richxcame/cyber-patrol/pkg/models"
)

// RiskTier is a coarse bucketing of a fraud score
type RiskTier string

const (
	TierHigh    RiskTier = "HIGH"
	TierMedium  RiskTier = "MEDIUM"
	TierLow     RiskTier = "LOW"
	TierMinimal RiskTier = "MINIMAL"
)

// Tier thresholds. Scores are compared after rounding to four decimals.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
	LowThreshold    = 0.1
)

// Category is the fraud category assigned by the highest-priority rule group that matched
type Category string

const (
	CategoryPaymentFraud       Category = "payment_fraud"
	CategoryInvestmentScam     Category = "investment_scam"
	CategoryTourismBookingScam Category = "tourism_booking_scam"
	CategoryDocumentForgery    Category = "document_forgery"
	CategoryGamblingScam       Category = "gambling_scam"
	CategoryCryptoScam         Category = "cryptocurrency_scam"
	CategoryUnclassified       Category = "unclassified"

	// CategorySuspiciousDomain is assigned to domain observations, never by text rules
	CategorySuspiciousDomain Category = "suspicious_domain"
)

// categoryPriority orders categories from most to least specific
var categoryPriority = []Category{
	CategoryPaymentFraud,
	CategoryInvestmentScam,
	CategoryTourismBookingScam,
	CategoryDocumentForgery,
	CategoryGamblingScam,
	CategoryCryptoScam,
}

// Language is the coarse language tag produced by script detection
type Language string

const (
	LanguageEnglish   Language = "en"
	LanguageHindi     Language = "hi"
	LanguageMarathi   Language = "mr"
	LanguageRomanized Language = "hi-Latn"
	LanguageUnknown   Language = "unknown"
)

// ClassifierStatus describes what happened with the external classifier for one score
type ClassifierStatus string

const (
	ClassifierApplied       ClassifierStatus = "applied"
	ClassifierDegraded      ClassifierStatus = "degraded"
	ClassifierNotConfigured ClassifierStatus = "not_configured"
)

// Content is the input to the engine
type Content struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// Result is a fully explained fraud score
type Result struct {
	Score           float64          `json:"score"`
	Tier            RiskTier         `json:"risk_tier"`
	Category        Category         `json:"category"`
	CategoryRule    string           `json:"category_rule,omitempty"`
	Language        Language         `json:"language"`
	MatchedKeywords []string         `json:"matched_keywords"`
	MatchedPatterns []string         `json:"matched_patterns"`
	Signals         []string         `json:"signals"`
	KeywordScore    float64          `json:"keyword_score"`
	PatternScore    float64          `json:"pattern_score"`
	ClassifierScore float64          `json:"classifier_score"`
	Classifier      ClassifierStatus `json:"classifier"`
	ClassifierLabel []string         `json:"classifier_labels,omitempty"`
	Reasoning       string           `json:"reasoning"`
}

// HasSignals reports whether anything matched
func (r *Result) HasSignals() bool {
	return len(r.Signals) > 0
}

// Metadata renders the explanation as an opaque structured value for persistence
func (r *Result) Metadata() models.Metadata {
	md := models.Metadata{
		"matched_keywords": models.Strings(r.MatchedKeywords),
		"matched_patterns": models.Strings(r.MatchedPatterns),
		"keyword_score":    models.Number(r.KeywordScore),
		"pattern_score":    models.Number(r.PatternScore),
		"classifier":       models.String(string(r.Classifier)),
		"language":         models.String(string(r.Language)),
		"reasoning":        models.String(r.Reasoning),
	}
	if r.CategoryRule != "" {
		md["category_rule"] = models.String(r.CategoryRule)
	}
	if r.Classifier == ClassifierApplied {
		md["classifier_score"] = models.Number(r.ClassifierScore)
		md["classifier_labels"] = models.Strings(r.ClassifierLabel)
	}
	return md
}
