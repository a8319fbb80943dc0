package reputation

import (
	"errors"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/richxcame/cyber-patrol/internal/scoring"
)

// ErrInvalidDomain is returned for input that is not a dotted host name
var ErrInvalidDomain = errors.New("invalid domain")

// Flag weights
const (
	weightDenyListed   = 1.0
	weightSuspiciousTL = 0.7
	weightLookalike    = 0.5
	weightLureToken    = 0.1
	maxLureScore       = 0.2
	weightHyphens      = 0.1
	weightHomograph    = 0.3

	// brands shorter than this are too generic to flag when embedded as a token
	minBrandTokenLen = 5
)

// Config holds the curated lists the analyzer checks against
type Config struct {
	AllowList           []string
	DenyList            []string
	SuspiciousTLDs      []string
	LureTokens          []string
	SimilarityThreshold float64
}

// DefaultConfig returns the built-in lists
func DefaultConfig() Config {
	return Config{
		AllowList: []string{
			"booking.com", "airbnb.com", "makemytrip.com", "goibibo.com", "tripadvisor.com",
			"agoda.com", "expedia.com", "oyorooms.com", "yatra.com", "cleartrip.com",
			"irctc.co.in", "goa.gov.in", "goatourism.gov.in", "paytm.com", "phonepe.com", "sbi.co.in",
		},
		SuspiciousTLDs: []string{
			"tk", "ml", "ga", "cf", "gq", "xyz", "top", "buzz", "click", "link",
			"work", "loan", "win", "bid", "icu", "rest", "monster", "cyou",
		},
		LureTokens: []string{
			"cheap", "free", "discount", "offer", "offers", "deal", "deals", "lottery",
			"bonus", "refund", "kyc", "verify", "login", "cashback",
		},
		SimilarityThreshold: 0.8,
	}
}

// Result is the reputation verdict for one domain
type Result struct {
	Domain       string           `json:"domain"`
	Display      string           `json:"display_domain,omitempty"`
	Score        float64          `json:"score"`
	Tier         scoring.RiskTier `json:"risk_tier"`
	IsLegitimate bool             `json:"is_legitimate"`
	Reasons      []string         `json:"reasons"`
	Lookalike    string           `json:"lookalike,omitempty"`
}

// Analyzer scores bare domain names. It never performs network calls.
type Analyzer struct {
	allow     []string
	deny      map[string]bool
	tlds      map[string]bool
	lures     map[string]bool
	threshold float64
}

// NewAnalyzer builds an analyzer from cfg
func NewAnalyzer(cfg Config) *Analyzer {
	a := &Analyzer{
		deny:      map[string]bool{},
		tlds:      map[string]bool{},
		lures:     map[string]bool{},
		threshold: cfg.SimilarityThreshold,
	}
	if a.threshold <= 0 || a.threshold > 1 {
		a.threshold = 0.8
	}
	for _, d := range cfg.AllowList {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		a.allow = append(a.allow, d)
	}
	sort.Strings(a.allow)
	for _, d := range cfg.DenyList {
		a.deny[strings.ToLower(strings.TrimSpace(d))] = true
	}
	for _, t := range cfg.SuspiciousTLDs {
		a.tlds[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(t)), ".")] = true
	}
	for _, l := range cfg.LureTokens {
		a.lures[strings.ToLower(l)] = true
	}
	return a
}

// Analyze scores a domain
func (a *Analyzer) Analyze(domain string) (*Result, error) {
	host, err := Normalize(domain)
	if err != nil {
		return nil, err
	}

	result := &Result{Domain: host, Reasons: []string{}}
	labels := strings.Split(host, ".")
	tld := labels[len(labels)-1]

	var score float64
	denied := a.isDenied(host)
	if denied {
		score += weightDenyListed
		result.Reasons = append(result.Reasons, "deny_listed")
	}
	badTLD := a.tlds[tld]
	if badTLD {
		score += weightSuspiciousTL
		result.Reasons = append(result.Reasons, "suspicious_tld:."+tld)
	}

	if allowed := a.allowedEntry(host); allowed != "" && !denied && !badTLD {
		result.IsLegitimate = true
		result.Tier = scoring.TierMinimal
		return result, nil
	}

	// lexical checks run on what a reader sees, folded back to the ASCII it imitates
	display := toUnicode(host)
	if display != host {
		result.Display = display
	}
	folded, homograph := skeleton(display)
	if homograph {
		score += weightHomograph
		result.Reasons = append(result.Reasons, "homograph")
	}

	foldedLabels := strings.Split(folded, ".")
	registrable := registrableDomain(foldedLabels)
	if target := a.lookalikeOf(folded, registrable, homograph); target != "" {
		score += weightLookalike
		result.Lookalike = target
		result.Reasons = append(result.Reasons, "lookalike:"+target)
	}

	name := strings.TrimSuffix(folded, "."+foldedLabels[len(foldedLabels)-1])
	if lures := a.lureTokens(name); len(lures) > 0 {
		score += math.Min(float64(len(lures))*weightLureToken, maxLureScore)
		result.Reasons = append(result.Reasons, "lure_tokens:"+strings.Join(lures, ","))
	}
	if strings.Count(name, "-") >= 2 {
		score += weightHyphens
		result.Reasons = append(result.Reasons, "excessive_hyphens")
	}

	result.Score = math.Round(math.Min(score, 1)*10000) / 10000
	result.Tier = scoring.TierForScore(result.Score)
	return result, nil
}

// Normalize lowercases a domain, strips scheme, path, port, "www." and a trailing
// dot, and returns the IDNA ASCII form. Internationalized names are accepted and
// come back as xn-- labels.
func Normalize(domain string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	if strings.Contains(d, "://") {
		u, err := url.Parse(d)
		if err != nil {
			return "", ErrInvalidDomain
		}
		d = u.Hostname()
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")

	if d == "" || !strings.Contains(d, ".") {
		return "", ErrInvalidDomain
	}
	d, err := toASCII(d)
	if err != nil {
		return "", err
	}
	for _, label := range strings.Split(d, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", ErrInvalidDomain
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return "", ErrInvalidDomain
			}
		}
	}
	return d, nil
}

func (a *Analyzer) isDenied(host string) bool {
	if a.deny[host] {
		return true
	}
	for d := range a.deny {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// allowedEntry returns the allow-list entry host equals or is a subdomain of
func (a *Analyzer) allowedEntry(host string) string {
	for _, d := range a.allow {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d
		}
	}
	return ""
}

// lookalikeOf returns the allow-list entry host imitates, if any. host is the
// folded skeleton; when homograph is set an exact brand match is itself an imitation.
func (a *Analyzer) lookalikeOf(host, registrable string, homograph bool) string {
	regLabel := strings.Split(registrable, ".")[0]
	sub := strings.TrimSuffix(strings.TrimSuffix(host, registrable), ".")
	tokens := strings.FieldsFunc(sub+"."+regLabel, isSeparator)

	// a.allow is sorted so ties resolve the same way every time
	for _, entry := range a.allow {
		brand := brandLabel(entry)
		if (regLabel != brand || homograph) && similarity(regLabel, brand) >= a.threshold {
			return entry
		}
		if len(brand) < minBrandTokenLen || registrable == entry {
			continue
		}
		for _, token := range tokens {
			if token == brand {
				return entry
			}
		}
	}
	return ""
}

func (a *Analyzer) lureTokens(name string) []string {
	var out []string
	seen := map[string]bool{}
	for _, token := range strings.FieldsFunc(name, isSeparator) {
		if a.lures[token] && !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return r == '.' || r == '-'
}

// registrableDomain keeps the last two labels, or three under second-level suffixes such as co.in
func registrableDomain(labels []string) string {
	n := len(labels)
	if n >= 3 && len(labels[n-1]) == 2 {
		switch labels[n-2] {
		case "co", "com", "gov", "org", "net", "ac", "nic", "edu":
			return strings.Join(labels[n-3:], ".")
		}
	}
	if n >= 2 {
		return strings.Join(labels[n-2:], ".")
	}
	return strings.Join(labels, ".")
}

func brandLabel(domain string) string {
	return strings.Split(registrableDomain(strings.Split(domain, ".")), ".")[0]
}

// similarity is 1 - levenshtein/maxLen
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
