package scoring

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script selects how a keyword group is matched
type Script string

const (
	ScriptLatin      Script = "latin"
	ScriptDevanagari Script = "devanagari"
)

// KeywordGroup is a curated list of terms sharing a language and, optionally, a category.
// Groups without a category add score but never decide the category.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category,omitempty"`
	Script   Script   `yaml:"script"`
	Language Language `yaml:"language"`
	Terms    []string `yaml:"terms"`
}

// PatternRule is a named regular expression detector
type PatternRule struct {
	Name   string  `yaml:"name"`
	Expr   string  `yaml:"expr"`
	Weight float64 `yaml:"weight"`
	Reason string  `yaml:"reason"`
}

// Rules is the full keyword/pattern rule set used by the engine
type Rules struct {
	KeywordWeight  float64        `yaml:"keyword_weight"`
	KeywordCeiling float64        `yaml:"keyword_ceiling"`
	PatternCeiling float64        `yaml:"pattern_ceiling"`
	Keywords       []KeywordGroup `yaml:"keywords"`
	Patterns       []PatternRule  `yaml:"patterns"`
}

// DefaultRules returns the built-in rule set
func DefaultRules() *Rules {
	return &Rules{
		KeywordWeight:  0.15,
		KeywordCeiling: 0.6,
		PatternCeiling: 0.4,
		Keywords:       defaultKeywordGroups(),
		Patterns:       defaultPatterns(),
	}
}

// LoadRules reads a YAML rule file. Sections missing from the file keep their defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses YAML rule data on top of DefaultRules and validates the result
func ParseRules(data []byte) (*Rules, error) {
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	rules := DefaultRules()
	if override.KeywordWeight > 0 {
		rules.KeywordWeight = override.KeywordWeight
	}
	if override.KeywordCeiling > 0 {
		rules.KeywordCeiling = override.KeywordCeiling
	}
	if override.PatternCeiling > 0 {
		rules.PatternCeiling = override.PatternCeiling
	}
	if len(override.Keywords) > 0 {
		rules.Keywords = override.Keywords
	}
	if len(override.Patterns) > 0 {
		rules.Patterns = override.Patterns
	}

	if _, err := compileRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ========================================
// COMPILED FORM
// ========================================

type keywordMatcher struct {
	term  string
	group *KeywordGroup
	re    *regexp.Regexp // nil for substring matching
}

func (m keywordMatcher) match(lower string) bool {
	if m.re != nil {
		return m.re.MatchString(lower)
	}
	return strings.Contains(lower, m.term)
}

type patternMatcher struct {
	rule PatternRule
	re   *regexp.Regexp
}

type compiledRules struct {
	rules    *Rules
	keywords map[Script][]keywordMatcher
	patterns []patternMatcher
}

func compileRules(rules *Rules) (*compiledRules, error) {
	known := map[Category]bool{}
	for _, c := range categoryPriority {
		known[c] = true
	}

	compiled := &compiledRules{rules: rules, keywords: map[Script][]keywordMatcher{}}
	for i := range rules.Keywords {
		group := &rules.Keywords[i]
		if group.Category != "" && !known[group.Category] {
			return nil, fmt.Errorf("keyword group %q: unknown category %q", group.Name, group.Category)
		}
		switch group.Script {
		case ScriptLatin, ScriptDevanagari:
		default:
			return nil, fmt.Errorf("keyword group %q: unknown script %q", group.Name, group.Script)
		}
		for _, term := range group.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			m := keywordMatcher{term: term, group: group}
			if group.Script == ScriptLatin {
				// letters and digits on either side mean the term is part of a longer word
				m.re = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(term) + `(?:$|[^\p{L}\p{N}])`)
			}
			compiled.keywords[group.Script] = append(compiled.keywords[group.Script], m)
		}
	}

	for _, p := range rules.Patterns {
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
		}
		compiled.patterns = append(compiled.patterns, patternMatcher{rule: p, re: re})
	}
	return compiled, nil
}

// ========================================
// DEFAULT RULE SET
// ========================================

func defaultKeywordGroups() []KeywordGroup {
	return []KeywordGroup{
		{
			Name: "payment_demand", Category: CategoryPaymentFraud, Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"advance payment", "upfront payment", "send money", "transfer money", "payment first",
				"bank transfer", "wire transfer", "deposit now", "advance only"},
		},
		{
			Name: "payment_channel", Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"advance", "upi", "paytm", "phonepe", "googlepay", "gpay", "pay now", "booking amount"},
		},
		{
			Name: "investment", Category: CategoryInvestmentScam, Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"guaranteed returns", "double your money", "triple your investment", "risk-free", "no risk",
				"100% profit", "passive income", "work from home", "earn lakhs", "earn crores", "get rich quick", "easy money"},
		},
		{
			Name: "tourism_booking", Category: CategoryTourismBookingScam, Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"cheap hotel", "hotel booking", "cheap accommodation", "discounted stay", "book now",
				"free trip", "free stay", "urgent booking", "70% off", "80% off", "90% off", "luxury resort",
				"beachfront", "sea view", "private pool"},
		},
		{
			Name: "urgency", Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"urgent", "immediately", "hurry", "today only", "expires today", "last chance", "limited time",
				"limited offer", "act now", "only few left", "last rooms", "exclusive deal"},
		},
		{
			Name: "document_forgery", Category: CategoryDocumentForgery, Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"fake certificate", "duplicate certificate", "fake passport", "driving license without test",
				"aadhaar card available", "pan card available", "marksheet", "degree certificate"},
		},
		{
			Name: "gambling", Category: CategoryGamblingScam, Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"betting", "satta", "matka", "lottery", "jackpot", "casino", "roulette", "earn by playing"},
		},
		{
			Name: "crypto", Category: CategoryCryptoScam, Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"bitcoin", "crypto", "trading bot", "forex signals", "binary options", "pump and dump"},
		},
		{
			Name: "contact_red_flag", Script: ScriptLatin, Language: LanguageEnglish,
			Terms: []string{"whatsapp only", "dm for details", "inbox me", "message for price", "serious buyers only"},
		},
		{
			Name: "payment_demand_romanized", Category: CategoryPaymentFraud, Script: ScriptLatin, Language: LanguageRomanized,
			Terms: []string{"paise bhejo", "paisa bhejo", "paise pathva"},
		},
		{
			Name: "tourism_booking_romanized", Category: CategoryTourismBookingScam, Script: ScriptLatin, Language: LanguageRomanized,
			Terms: []string{"booking karo", "sasta hotel", "swasta hotel"},
		},
		{
			Name: "investment_romanized", Category: CategoryInvestmentScam, Script: ScriptLatin, Language: LanguageRomanized,
			Terms: []string{"paisa kamao", "paise kamao", "guarantee return"},
		},
		{
			Name: "urgency_romanized", Script: ScriptLatin, Language: LanguageRomanized,
			Terms: []string{"jaldi karo", "muft", "aaj hi"},
		},
		{
			Name: "payment_demand_hi", Category: CategoryPaymentFraud, Script: ScriptDevanagari, Language: LanguageHindi,
			Terms: []string{"पैसे भेजो", "पैसे भेजें"},
		},
		{
			Name: "payment_channel_hi", Script: ScriptDevanagari, Language: LanguageHindi,
			Terms: []string{"एडवांस"},
		},
		{
			Name: "tourism_booking_hi", Category: CategoryTourismBookingScam, Script: ScriptDevanagari, Language: LanguageHindi,
			Terms: []string{"बुकिंग", "सस्ता होटल"},
		},
		{
			Name: "investment_hi", Category: CategoryInvestmentScam, Script: ScriptDevanagari, Language: LanguageHindi,
			Terms: []string{"गारंटीड", "पैसा कमाएं", "रिटर्न"},
		},
		{
			Name: "urgency_hi", Script: ScriptDevanagari, Language: LanguageHindi,
			Terms: []string{"तुरंत", "आज ही", "मुफ्त"},
		},
		{
			Name: "payment_demand_mr", Category: CategoryPaymentFraud, Script: ScriptDevanagari, Language: LanguageMarathi,
			Terms: []string{"पैसे पाठवा"},
		},
		{
			Name: "tourism_booking_mr", Category: CategoryTourismBookingScam, Script: ScriptDevanagari, Language: LanguageMarathi,
			Terms: []string{"स्वस्त"},
		},
		{
			Name: "urgency_mr", Script: ScriptDevanagari, Language: LanguageMarathi,
			Terms: []string{"मोफत", "लगेच"},
		},
	}
}

func defaultPatterns() []PatternRule {
	return []PatternRule{
		{
			Name:   "phone_number",
			Expr:   `\b\d{10}\b|\+91[\s-]?\d{10}\b`,
			Weight: 0.2,
			Reason: "contains a phone number",
		},
		{
			Name:   "payment_app",
			Expr:   `\b(upi|paytm|phonepe|googlepay|gpay|bhim)\b`,
			Weight: 0.15,
			Reason: "mentions a payment app",
		},
		{
			Name:   "excessive_discount",
			Expr:   `([5-9]\d%\s*(off|discount))|((off|discount)\s*[5-9]\d%)`,
			Weight: 0.25,
			Reason: "unrealistic discount of 50% or more",
		},
		{
			Name:   "urgency_pressure",
			Expr:   `\b(urgent|hurry|limited|today only|last chance|act now)\b`,
			Weight: 0.2,
			Reason: "urgency or pressure tactics",
		},
		{
			Name:   "guaranteed_returns",
			Expr:   `\b(guaranteed|risk[- ]?free|double your money)\b|100%\s*(profit|returns?|guaranteed)`,
			Weight: 0.3,
			Reason: "unrealistic guarantees",
		},
	}
}
