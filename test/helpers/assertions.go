package helpers

import (
	"testing"

	"github.com/richxcame/cyber-patrol/internal/alerts"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/evidence"
	"github.com/stretchr/testify/assert"
)

// AssertAlertFromItem asserts that an alert carries its source item's identity and content
func AssertAlertFromItem(t *testing.T, item collector.RawItem, alert *alerts.Alert) {
	t.Helper()
	assert.Equal(t, item.Platform, alert.SourcePlatform)
	assert.Equal(t, item.SourceID, alert.SourceID)
	assert.Equal(t, item.Content, alert.Content)
	assert.Equal(t, item.Author, alert.Author)
	assert.GreaterOrEqual(t, alert.Confidence, 0.0)
	assert.LessOrEqual(t, alert.Confidence, 1.0)
	assert.NotEmpty(t, alert.Signals)
}

// AssertCustodyChain asserts that custody entries run oldest first with the given actions
func AssertCustodyChain(t *testing.T, entries []*evidence.CustodyEntry, actions ...evidence.Action) {
	t.Helper()
	if !assert.Len(t, entries, len(actions)) {
		return
	}
	for i, entry := range entries {
		assert.Equal(t, actions[i], entry.Action, "entry %d", i)
		if i > 0 {
			assert.False(t, entry.CreatedAt.Before(entries[i-1].CreatedAt), "entry %d out of order", i)
		}
	}
}

// AssertAdmissible asserts the court-admissibility verdict and the state it is derived from
func AssertAdmissible(t *testing.T, e *evidence.Evidence, want bool) {
	t.Helper()
	assert.Equal(t, want, e.CourtAdmissible)
	if want {
		assert.GreaterOrEqual(t, e.LegalStatus.Rank(), evidence.LegalSubmitted.Rank())
		if assert.NotNil(t, e.LastIntegrityResult) {
			assert.Equal(t, evidence.IntegrityIntact, *e.LastIntegrityResult)
		}
	}
}
