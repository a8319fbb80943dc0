package scoring

import (
	"strings"
	"unicode"
)

// marathiMarkers are frequent Marathi words and letters that Hindi text rarely contains
var marathiMarkers = []string{"ळ", "आहे", "आणि", "पाठवा", "नाही", "मोफत", "स्वस्त", "लगेच"}

// romanizedMarkers are Hindi/Marathi words commonly typed in Latin script
var romanizedMarkers = map[string]bool{
	"bhejo": true, "karo": true, "kamao": true, "jaldi": true, "sasta": true, "paisa": true,
	"paise": true, "hai": true, "nahi": true, "muft": true, "aaj": true, "pathva": true,
}

// scriptProfile counts letters per script
type scriptProfile struct {
	latin      int
	devanagari int
}

func profileScripts(text string) scriptProfile {
	var p scriptProfile
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			p.devanagari++
		case unicode.Is(unicode.Latin, r):
			p.latin++
		}
	}
	return p
}

// DetectLanguage returns a coarse language tag based on script, not full language identification
func DetectLanguage(text string) Language {
	return detectLanguage(strings.ToLower(text), profileScripts(text))
}

func detectLanguage(lower string, p scriptProfile) Language {
	if p.devanagari == 0 && p.latin == 0 {
		return LanguageUnknown
	}
	if p.devanagari >= p.latin {
		for _, m := range marathiMarkers {
			if strings.Contains(lower, m) {
				return LanguageMarathi
			}
		}
		return LanguageHindi
	}
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if romanizedMarkers[word] {
			return LanguageRomanized
		}
	}
	return LanguageEnglish
}
