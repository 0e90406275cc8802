// Package normalize provides the canonical forms used for crew record
// matching: name tokenization, phone and email canonicalization, and
// department cleanup.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength is the shortest name token worth indexing; shorter tokens
// are linguistically ambiguous.
const minTokenLength = 3

// nicknames maps common Hungarian diminutives to their canonical given name.
// Keys and values are already in stripped lower-case form.
var nicknames = map[string]string{
	"gabi":   "gabriella",
	"zsuzsa": "zsuzsanna",
	"zsuzsi": "zsuzsanna",
	"gergo":  "gergely",
	"kati":   "katalin",
	"erzsi":  "erzsebet",
	"bobe":   "erzsebet",
	"bori":   "borbala",
	"dani":   "daniel",
	"moni":   "monika",
	"zoli":   "zoltan",
	"niki":   "nikoletta",
	"pisti":  "istvan",
	"magdi":  "magdolna",
	"jr":     "junior",
	"orsi":   "orsolya",
	"ricsi":  "richard",
	"gyuri":  "gyorgy",
}

// stopwords are tokens dropped outright; "ne" is the stripped form of the
// Hungarian married-name suffix "né".
var stopwords = map[string]bool{
	"ne": true,
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes combining diacritical marks, so "Gábor" becomes
// "Gabor". Returns the input unchanged when transformation fails.
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

// cleanName strips diacritics, lower-cases, removes quotes, parentheses and
// periods, and turns hyphens into spaces.
func cleanName(raw string) string {
	s := strings.ToLower(StripDiacritics(raw))

	var result strings.Builder
	for _, r := range s {
		switch {
		case r == '"' || r == '\'' || r == '`' || r == '(' || r == ')' || r == '.':
			// dropped
		case r == '-':
			result.WriteRune(' ')
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QueryTokens tokenizes an incoming record's name for scoring. Nickname
// forms collapse to their canonical spelling so a query matches no matter
// which form the source used. Empty input yields an empty slice.
func QueryTokens(raw string) []string {
	var tokens []string
	for _, token := range splitTokens(cleanName(raw)) {
		if stopwords[token] {
			continue
		}
		if canonical, ok := nicknames[token]; ok {
			tokens = append(tokens, canonical)
			continue
		}
		if len([]rune(token)) < minTokenLength {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// IndexTokens tokenizes a registry name variant for the token index. When a
// token has a nickname mapping both the original and the canonical form are
// retained, so queries using either spelling match. Tokens below the length
// floor are kept only when they are nickname-table targets.
func IndexTokens(raw string) []string {
	var tokens []string
	seen := map[string]bool{}
	add := func(token string) {
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}

	for _, token := range splitTokens(cleanName(raw)) {
		if stopwords[token] {
			continue
		}
		canonical, mapped := nicknames[token]
		if mapped {
			add(canonical)
		}
		if len([]rune(token)) >= minTokenLength {
			add(token)
		}
	}
	return tokens
}

// Phone reduces a phone number to a comparable national-subscriber form:
// digits only, any leading "36", "06" or bare "6" country prefix stripped,
// then "36" re-prepended. Empty digit strings stay empty. The function is
// idempotent.
func Phone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if s == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(s, "36"):
		s = s[2:]
	case strings.HasPrefix(s, "06"):
		s = s[2:]
	case strings.HasPrefix(s, "6"):
		s = s[1:]
	}
	return "36" + s
}

// Email canonicalizes an email string for comparison: diacritics stripped,
// lower-cased, quotes, parentheses and whitespace removed. Syntax is not
// validated here; callers require an "@" before treating a value as an
// email.
func Email(raw string) string {
	s := strings.ToLower(StripDiacritics(raw))

	var result strings.Builder
	for _, r := range s {
		if r == '"' || r == '\'' || r == '(' || r == ')' || unicode.IsSpace(r) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// Department canonicalizes a free-text department label.
func Department(raw string) string {
	s := strings.TrimSpace(strings.ToLower(StripDiacritics(raw)))
	return strings.Join(strings.Fields(s), " ")
}

// departmentByTitle maps general crew titles to their departments, for
// source rows that carry a job title but no department column.
var departmentByTitle = map[string]string{
	"director of photography":   "camera",
	"camera operator":           "camera",
	"focus puller":              "camera",
	"clapper loader":            "camera",
	"dit":                       "camera",
	"video assist operator":     "video",
	"gaffer":                    "electric",
	"best boy electric":         "electric",
	"electrician":               "electric",
	"key grip":                  "grip",
	"best boy grip":             "grip",
	"dolly grip":                "grip",
	"sound mixer":               "sound",
	"boom operator":             "sound",
	"production designer":       "art",
	"art director":              "art",
	"set decorator":             "art",
	"props master":              "props",
	"costume designer":          "costume",
	"costume supervisor":        "costume",
	"key makeup artist":         "makeup",
	"makeup artist":             "makeup",
	"key hairdresser":           "hair",
	"production manager":        "production",
	"production coordinator":    "production",
	"first assistant director":  "production",
	"second assistant director": "production",
	"location manager":          "locations",
	"location scout":            "locations",
	"stunt coordinator":         "stunts",
	"unit driver":               "transport",
	"transport captain":         "transport",
}

// DepartmentForTitle returns the department a general title belongs to, or
// "" when the title is unknown.
func DepartmentForTitle(title string) string {
	return departmentByTitle[Department(title)]
}
