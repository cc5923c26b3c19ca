// Package normalize canonicalizes DOIs and titles into comparable forms.
// Normalized values are for comparison only, never for display.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// doiPrefixes are stripped from the front of a lower-cased DOI.
// The first match wins, so longer forms come before their substrings.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// DOI returns the canonical form of a DOI, or "" for empty input.
func DOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, p := range doiPrefixes {
		if strings.HasPrefix(d, p) {
			d = d[len(p):]
			break
		}
	}
	return strings.TrimSpace(d)
}

// SameDOI reports whether two DOIs normalize to the same non-empty value.
func SameDOI(a, b string) bool {
	na := DOI(a)
	return na != "" && na == DOI(b)
}

// Title returns the comparison form of a title.
//
// The result contains only lower-case letters, digits, and single spaces.
// Roman numerals are matched as whole words before punctuation is removed,
// so "Type-II" becomes "typeroman2".
// Title is idempotent: Title(Title(s)) == Title(s).
func Title(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}

	s := cases.Lower(language.Und).String(title)
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if t, ok := transliterations[r]; ok {
			b.WriteString(t)
			continue
		}
		// Combining marks are dropped so they never split a word.
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	s = replaceNumerals(b.String())

	b.Reset()
	for _, r := range s {
		switch {
		case isWordRune(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// replaceNumerals tags every maximal run of letters and digits that is a
// Roman numeral. Other runes pass through.
func replaceNumerals(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		i := strings.IndexFunc(s, isWordRune)
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]

		end := strings.IndexFunc(s, func(r rune) bool { return !isWordRune(r) })
		if end < 0 {
			end = len(s)
		}
		word := s[:end]
		if n, ok := romanNumerals[word]; ok {
			b.WriteString("roman" + strconv.Itoa(n))
		} else {
			b.WriteString(word)
		}
		s = s[end:]
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// romanNumerals maps lower-case Roman numerals I..XX to their value.
var romanNumerals = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5,
	"vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10,
	"xi": 11, "xii": 12, "xiii": 13, "xiv": 14, "xv": 15,
	"xvi": 16, "xvii": 17, "xviii": 18, "xix": 19, "xx": 20,
}

// transliterations maps lower-case accented Latin and Greek letters to ASCII.
var transliterations = map[rune]string{
	// Latin
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a", 'ā': "a", 'ă': "a", 'ą': "a",
	'æ': "ae",
	'ç': "c", 'ć': "c", 'ĉ': "c", 'ċ': "c", 'č': "c",
	'ď': "d", 'đ': "d", 'ð': "d",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e", 'ē': "e", 'ĕ': "e", 'ė': "e", 'ę': "e", 'ě': "e",
	'ĝ': "g", 'ğ': "g", 'ġ': "g", 'ģ': "g",
	'ĥ': "h", 'ħ': "h",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i", 'ĩ': "i", 'ī': "i", 'ĭ': "i", 'į': "i", 'ı': "i",
	'ĵ': "j",
	'ķ': "k",
	'ĺ': "l", 'ļ': "l", 'ľ': "l", 'ŀ': "l", 'ł': "l",
	'ñ': "n", 'ń': "n", 'ņ': "n", 'ň': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o", 'ø': "o", 'ō': "o", 'ŏ': "o", 'ő': "o",
	'œ': "oe",
	'ŕ': "r", 'ŗ': "r", 'ř': "r",
	'ś': "s", 'ŝ': "s", 'ş': "s", 'š': "s", 'ș': "s",
	'ß': "ss",
	'ţ': "t", 'ť': "t", 'ŧ': "t", 'ț': "t",
	'þ': "th",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u", 'ũ': "u", 'ū': "u", 'ŭ': "u", 'ů': "u", 'ű': "u", 'ų': "u",
	'ŵ': "w",
	'ý': "y", 'ÿ': "y", 'ŷ': "y",
	'ź': "z", 'ż': "z", 'ž': "z",

	// Greek
	'α': "alpha", 'ά': "alpha",
	'β': "beta",
	'γ': "gamma",
	'δ': "delta",
	'ε': "epsilon", 'έ': "epsilon",
	'ζ': "zeta",
	'η': "eta", 'ή': "eta",
	'θ': "theta",
	'ι': "iota", 'ί': "iota", 'ϊ': "iota", 'ΐ': "iota",
	'κ': "kappa",
	'λ': "lambda",
	'μ': "mu", 'µ': "mu",
	'ν': "nu",
	'ξ': "xi",
	'ο': "omicron", 'ό': "omicron",
	'π': "pi",
	'ρ': "rho",
	'σ': "sigma", 'ς': "sigma",
	'τ': "tau",
	'υ': "upsilon", 'ύ': "upsilon", 'ϋ': "upsilon", 'ΰ': "upsilon",
	'φ': "phi",
	'χ': "chi",
	'ψ': "psi",
	'ω': "omega", 'ώ': "omega",
}
