package analyze

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// UnitKind distinguishes the two unit variants.
type UnitKind int

const (
	BaseKind UnitKind = iota
	CompoundKind
)

func (k UnitKind) String() string {
	if k == CompoundKind {
		return "compound"
	}
	return "base"
}

// Unit is a target lexical unit. The only implementations are Base and
// Compound; matching dispatches on the variant.
type Unit interface {
	Text() string
	Kind() UnitKind
	countFolded(folded string) int
}

// Base is an atomic unit counted by plain substring occurrence, overlaps
// included.
type Base string

// Compound is a phrase counted only where it appears intact.
type Compound string

func (b Base) Text() string { return string(b) }

func (Base) Kind() UnitKind { return BaseKind }

func (c Compound) Text() string { return string(c) }

func (Compound) Kind() UnitKind { return CompoundKind }

func (b Base) countFolded(folded string) int {
	needle := string(b)
	if needle == "" {
		return 0
	}
	n := 0
	for i := 0; i <= len(folded)-len(needle); {
		idx := strings.Index(folded[i:], needle)
		if idx < 0 {
			break
		}
		n++
		_, size := utf8.DecodeRuneInString(folded[i+idx:])
		i += idx + size
	}
	return n
}

func (c Compound) countFolded(folded string) int {
	needle := string(c)
	if needle == "" {
		return 0
	}
	if strings.ContainsFunc(needle, unicode.IsSpace) {
		return strings.Count(folded, needle)
	}
	n := 0
	for i := 0; i <= len(folded)-len(needle); {
		idx := strings.Index(folded[i:], needle)
		if idx < 0 {
			break
		}
		start, end := i+idx, i+idx+len(needle)
		if boundaryBefore(folded, start) && boundaryAfter(folded, end) {
			n++
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(folded[start:])
		i = start + size
	}
	return n
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Fold normalizes text for matching: NFC composition followed by Unicode
// case folding.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Count returns how many times u occurs in text under u's matching rule.
func Count(u Unit, text string) int {
	return u.countFolded(Fold(text))
}

// NewUnit builds a unit of the given kind from raw text, normalized the same
// way matched text is.
func NewUnit(kind UnitKind, text string) Unit {
	folded := Fold(strings.Join(strings.Fields(text), " "))
	if kind == CompoundKind {
		return Compound(folded)
	}
	return Base(folded)
}

// KeywordComponents splits a keyword into base units: pieces between
// non-letter/digit runes that are at least two runes long, in order and
// without duplicates.
func KeywordComponents(keyword string) []string {
	fields := strings.FieldsFunc(Fold(keyword), func(r rune) bool {
		return !isWordRune(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
