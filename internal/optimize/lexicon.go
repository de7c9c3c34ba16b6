package optimize

import (
	"github.com/HartBrook/keyfit/internal/analyze"
)

// Lexicon suggests substitutes for a word. An empty result is valid and means
// the word is left alone.
type Lexicon interface {
	Candidates(word string) []string
}

// StaticLexicon is a fixed word → synonyms table keyed by folded word.
type StaticLexicon map[string][]string

var defaultSynonyms = map[string][]string{
	"utilize":       {"use"},
	"utilise":       {"use"},
	"approximately": {"about"},
	"additional":    {"extra", "more"},
	"assistance":    {"help"},
	"demonstrate":   {"show"},
	"numerous":      {"many"},
	"purchase":      {"buy"},
	"require":       {"need"},
	"requires":      {"needs"},
	"sufficient":    {"enough"},
	"commence":      {"start", "begin"},
	"subsequently":  {"later", "then"},
	"regarding":     {"about", "on"},
	"frequently":    {"often"},
	"individuals":   {"people"},
	"however":       {"but", "yet"},
	"therefore":     {"so", "thus"},
	"important":     {"key", "vital"},
	"significant":   {"major", "big"},
	"information":   {"info", "facts"},
	"additionally":  {"also"},
	"particularly":  {"notably", "mainly"},
	"understanding": {"grasp"},
	"performance":   {"output"},
	"consider":      {"weigh"},
	"excellent":     {"great", "fine"},
	"그러므로":          {"그래서", "따라서"},
	"그렇지만":          {"하지만"},
	"대하여":           {"대해"},
	"중요합니다":         {"중요해요"},
	"필요합니다":         {"필요해요"},
	"때문입니다":         {"덕분이죠"},
}

// DefaultLexicon returns the built-in synonyms.
func DefaultLexicon() StaticLexicon {
	return NewStaticLexicon(nil)
}

// NewStaticLexicon returns the built-in synonyms merged with extra. Extra
// entries are tried first.
func NewStaticLexicon(extra map[string][]string) StaticLexicon {
	l := make(StaticLexicon, len(defaultSynonyms)+len(extra))
	for w, subs := range defaultSynonyms {
		l[w] = append([]string(nil), subs...)
	}
	for w, subs := range extra {
		key := analyze.Fold(w)
		l[key] = append(append([]string(nil), subs...), l[key]...)
	}
	return l
}

// Candidates returns the synonyms for word.
func (l StaticLexicon) Candidates(word string) []string {
	return l[analyze.Fold(word)]
}
