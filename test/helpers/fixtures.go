package helpers

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/alerts"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/evidence"
	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/richxcame/cyber-patrol/pkg/models"
)

// ScamPostText clears the keep threshold under the default rules
const ScamPostText = "URGENT hotel booking 70% off, beachfront villa with sea view, book now! " +
	"Advance payment via UPI only, whatsapp only. Limited time, last rooms."

// BenignPostText matches no rule
const BenignPostText = "Sunset at Baga beach was lovely today, the fish thali at the shack was great."

// CreateTestPost creates a social post item with a unique source ID
func CreateTestPost(platform, content string) collector.RawItem {
	now := time.Now().UTC()
	return collector.RawItem{
		Platform:    platform,
		SourceID:    uuid.NewString(),
		Kind:        collector.ItemKindPost,
		Author:      "goa_travel_deals",
		Content:     content,
		URL:         "https://" + platform + ".example/posts/1",
		ObservedAt:  now.Add(-time.Minute),
		CollectedAt: now,
	}
}

// CreateTestDomainItem creates a domain observation item
func CreateTestDomainItem(domain string) collector.RawItem {
	now := time.Now().UTC()
	return collector.RawItem{
		Platform:    "domains",
		SourceID:    domain,
		Kind:        collector.ItemKindDomain,
		Content:     domain,
		URL:         "http://" + domain,
		ObservedAt:  now,
		CollectedAt: now,
	}
}

// CreateTestBatch wraps items into a batch for service
func CreateTestBatch(service string, items ...collector.RawItem) collector.Batch {
	return collector.Batch{Service: service, Items: items, Stats: models.Metadata{}}
}

// CreateTestAlert creates an open HIGH alert with default values
func CreateTestAlert() *alerts.Alert {
	now := time.Now().UTC()
	return &alerts.Alert{
		ID:             uuid.New(),
		SourcePlatform: "facebook",
		SourceID:       uuid.NewString(),
		Content:        ScamPostText,
		MediaURLs:      []string{},
		Confidence:     0.85,
		RiskTier:       scoring.TierHigh,
		Category:       scoring.CategoryTourismBookingScam,
		Signals:        []string{"keyword:advance payment"},
		Metadata:       models.Metadata{},
		Status:         alerts.StatusOpen,
		CollectedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CreateTestEvidenceRequest creates a screenshot evidence request for alertID
func CreateTestEvidenceRequest(alertID *uuid.UUID, officer string) *evidence.CreateEvidenceRequest {
	return &evidence.CreateEvidenceRequest{
		AlertID:    alertID,
		CaseNumber: "GOA-CYB-2026-0147",
		Type:       evidence.TypeScreenshot,
		Data:       []byte("\x89PNG screenshot bytes"),
		Officer:    officer,
	}
}
