package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customRulesYAML = `
keyword_ceiling: 0.3
keywords:
  - name: lucky_draw
    category: gambling_scam
    script: latin
    language: en
    terms: ["lucky draw", "spin to win"]
`

func TestLoadRules_OverridesKeywordsKeepsPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customRulesYAML), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 0.3, rules.KeywordCeiling)
	assert.Equal(t, 0.15, rules.KeywordWeight)
	assert.Len(t, rules.Keywords, 1)
	assert.Len(t, rules.Patterns, len(defaultPatterns()))

	engine, err := NewEngine(Config{Rules: rules})
	require.NoError(t, err)

	result := engine.Score(context.Background(), Content{Text: "Win the lucky draw, spin to win, call 9876543210"})
	assert.Equal(t, CategoryGamblingScam, result.Category)
	assert.InDelta(t, 0.3, result.KeywordScore, 1e-9)
	assert.Contains(t, result.MatchedPatterns, "phone_number")
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "keywords: [unterminated"},
		{"unknown category", "keywords:\n  - name: x\n    category: nope\n    script: latin\n    terms: [a]\n"},
		{"unknown script", "keywords:\n  - name: x\n    script: cyrillic\n    terms: [a]\n"},
		{"bad pattern", "patterns:\n  - name: broken\n    expr: \"(\"\n    weight: 0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguageEnglish, DetectLanguage("Cheap rooms near the beach"))
	assert.Equal(t, LanguageHindi, DetectLanguage("सस्ता होटल यहाँ"))
	assert.Equal(t, LanguageMarathi, DetectLanguage("हे हॉटेल स्वस्त आहे"))
	assert.Equal(t, LanguageRomanized, DetectLanguage("sasta hotel hai"))
	assert.Equal(t, LanguageUnknown, DetectLanguage("12345 !!"))
}
