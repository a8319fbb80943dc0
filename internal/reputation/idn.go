package reputation

import (
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// confusables folds characters that render like ASCII letters in common fonts.
// Cyrillic and Greek cover almost every homograph seen against booking and payment brands.
var confusables = map[rune]rune{
	// Cyrillic
	'а': 'a', 'в': 'b', 'с': 'c', 'ԁ': 'd', 'е': 'e', 'һ': 'h', 'і': 'i', 'ј': 'j',
	'к': 'k', 'ӏ': 'l', 'м': 'm', 'п': 'n', 'о': 'o', 'р': 'p', 'ԛ': 'q', 'г': 'r',
	'ѕ': 's', 'т': 't', 'ս': 'u', 'ѵ': 'v', 'ԝ': 'w', 'х': 'x', 'у': 'y', 'ё': 'e',
	'ї': 'i', 'ӧ': 'o',
	// Greek
	'α': 'a', 'β': 'b', 'ε': 'e', 'η': 'n', 'ι': 'i', 'κ': 'k', 'ν': 'v', 'ο': 'o',
	'ρ': 'p', 'τ': 't', 'υ': 'u', 'χ': 'x', 'γ': 'y', 'ω': 'w',
	// Latin lookalikes outside a-z
	'ı': 'i', 'ɡ': 'g', 'ɑ': 'a', 'ℓ': 'l',
}

// toASCII validates host under the IDNA lookup profile and returns its ASCII form
func toASCII(host string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", ErrInvalidDomain
	}
	return strings.ToLower(ascii), nil
}

// toUnicode returns the display form of an ASCII host. Hosts without xn-- labels come back unchanged.
func toUnicode(ascii string) string {
	if !strings.Contains(ascii, "xn--") {
		return ascii
	}
	u, err := idna.Lookup.ToUnicode(ascii)
	if err != nil {
		return ascii
	}
	return u
}

// skeleton reduces s to the ASCII it imitates: diacritics are stripped and
// confusable letters folded. It reports whether any confusable was folded.
func skeleton(s string) (string, bool) {
	var b strings.Builder
	folded := false
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
			continue
		}
		if ascii, ok := confusables[r]; ok {
			b.WriteRune(ascii)
			folded = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), folded
}
