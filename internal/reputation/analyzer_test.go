package reputation

import (
	"testing"

	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_LowTrustTLD(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	result, err := analyzer.Analyze("cheap-goa-hotels.tk")
	require.NoError(t, err)

	assert.Equal(t, scoring.TierHigh, result.Tier)
	assert.False(t, result.IsLegitimate)
	assert.Contains(t, result.Reasons, "suspicious_tld:.tk")
	assert.Contains(t, result.Reasons, "lure_tokens:cheap")
	assert.Empty(t, result.Lookalike)
}

func TestAnalyze_AllowListed(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	for _, domain := range []string{"booking.com", "https://www.booking.com/hotels?city=goa", "deals.makemytrip.com"} {
		result, err := analyzer.Analyze(domain)
		require.NoError(t, err)
		assert.True(t, result.IsLegitimate, domain)
		assert.Equal(t, scoring.TierMinimal, result.Tier, domain)
		assert.Equal(t, 0.0, result.Score, domain)
		assert.Empty(t, result.Reasons, domain)
	}
}

func TestAnalyze_Lookalike(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	tests := []struct {
		domain string
		target string
		tier   scoring.RiskTier
	}{
		{"bookimg.com", "booking.com", scoring.TierMedium},
		{"booking.com.secure-login.xyz", "booking.com", scoring.TierHigh},
		{"airbnb-goa-offers.in", "airbnb.com", scoring.TierHigh},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			result, err := analyzer.Analyze(tt.domain)
			require.NoError(t, err)
			assert.Equal(t, tt.target, result.Lookalike)
			assert.Equal(t, tt.tier, result.Tier)
			assert.False(t, result.IsLegitimate)
		})
	}
}

func TestAnalyze_DenyList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DenyList = []string{"goa-villas-direct.in", "evil.booking.com"}
	analyzer := NewAnalyzer(cfg)

	t.Run("exact entry", func(t *testing.T) {
		result, err := analyzer.Analyze("goa-villas-direct.in")
		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Score)
		assert.Contains(t, result.Reasons, "deny_listed")
	})

	t.Run("deny beats allow", func(t *testing.T) {
		result, err := analyzer.Analyze("evil.booking.com")
		require.NoError(t, err)
		assert.False(t, result.IsLegitimate)
		assert.Equal(t, scoring.TierHigh, result.Tier)
	})
}

func TestAnalyze_OrdinaryDomain(t *testing.T) {
	result, err := NewAnalyzer(DefaultConfig()).Analyze("example.org")
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, scoring.TierMinimal, result.Tier)
	assert.False(t, result.IsLegitimate)
}

func TestAnalyze_InvalidDomain(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	for _, domain := range []string{"", "localhost", "bad..com", "-x.com", "hello world.com"} {
		_, err := analyzer.Analyze(domain)
		assert.ErrorIs(t, err, ErrInvalidDomain, domain)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())
	first, err := analyzer.Analyze("free-paytm-cashback.click")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := analyzer.Analyze("free-paytm-cashback.click")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("booking", "booking"))
	assert.InDelta(t, 1-1.0/7, similarity("bookimg", "booking"), 1e-9)
	assert.Less(t, similarity("example", "booking"), 0.5)
}

func TestAnalyze_CyrillicHomograph(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	// the two o's are U+043E CYRILLIC SMALL LETTER O
	result, err := analyzer.Analyze("bооking.com")
	require.NoError(t, err)

	assert.Equal(t, "xn--bking-jyea.com", result.Domain)
	assert.Equal(t, "bооking.com", result.Display)
	assert.Equal(t, "booking.com", result.Lookalike)
	assert.Contains(t, result.Reasons, "homograph")
	assert.Contains(t, result.Reasons, "lookalike:booking.com")
	assert.NotContains(t, result.Reasons, "excessive_hyphens")
	assert.Equal(t, scoring.TierHigh, result.Tier)
	assert.False(t, result.IsLegitimate)
}

func TestAnalyze_PunycodeInputDecoded(t *testing.T) {
	analyzer := NewAnalyzer(DefaultConfig())

	result, err := analyzer.Analyze("https://xn--bking-jyea.com/deals")
	require.NoError(t, err)

	assert.Equal(t, "xn--bking-jyea.com", result.Domain)
	assert.Equal(t, "booking.com", result.Lookalike)
	assert.NotContains(t, result.Reasons, "excessive_hyphens")
	assert.Equal(t, scoring.TierHigh, result.Tier)
}

func TestAnalyze_AccentedNameIsNotHomograph(t *testing.T) {
	result, err := NewAnalyzer(DefaultConfig()).Analyze("café-goa.in")
	require.NoError(t, err)

	assert.NotContains(t, result.Reasons, "homograph")
	assert.Empty(t, result.Lookalike)
}

func TestSkeleton(t *testing.T) {
	got, folded := skeleton("pаytm")
	assert.Equal(t, "paytm", got)
	assert.True(t, folded)

	got, folded = skeleton("goibibo")
	assert.Equal(t, "goibibo", got)
	assert.False(t, folded)

	got, folded = skeleton("bóoking")
	assert.Equal(t, "booking", got)
	assert.False(t, folded)
}
