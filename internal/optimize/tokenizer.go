package optimize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenizer extracts noun-like phrases used to build natural filler
// sentences. Phrases come back in order of first appearance. An error makes
// the expander fall back to fixed phrases.
type Tokenizer interface {
	NounPhrases(text string) ([]string, error)
}

const (
	// A phrase is at most a head noun and one modifier.
	maxChunkWords  = 2
	minPhraseRunes = 3
	memoLimit      = 256
)

// ChunkTokenizer extracts noun phrases. English text is part-of-speech
// tagged and chunked into adjective and noun runs that end in a noun. Korean
// text keeps particle-stripped nominals and skips predicates. Results are
// memoized per text because tagging is the slow part of expansion.
type ChunkTokenizer struct {
	mu   sync.Mutex
	memo map[string][]string
}

// NewChunkTokenizer creates a ChunkTokenizer.
func NewChunkTokenizer() *ChunkTokenizer {
	return &ChunkTokenizer{memo: make(map[string][]string)}
}

// NounPhrases returns candidate phrases from text.
func (t *ChunkTokenizer) NounPhrases(text string) ([]string, error) {
	t.mu.Lock()
	out, ok := t.memo[text]
	t.mu.Unlock()
	if ok {
		return out, nil
	}

	if isKorean(text) {
		out = koreanNominals(text)
	} else {
		words, err := tagEnglish(text)
		if err != nil {
			return nil, err
		}
		out = chunkNouns(words)
	}

	t.mu.Lock()
	if t.memo == nil || len(t.memo) >= memoLimit {
		t.memo = make(map[string][]string)
	}
	t.memo[text] = out
	t.mu.Unlock()
	return out, nil
}

type taggedWord struct {
	text string
	tag  string
}

func tagEnglish(text string) ([]taggedWord, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, err
	}
	toks := doc.Tokens()
	out := make([]taggedWord, len(toks))
	for i, tok := range toks {
		out[i] = taggedWord{text: tok.Text, tag: tok.Tag}
	}
	return out, nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true, "with": true,
	"your": true, "you": true, "they": true, "their": true, "them": true, "its": true,
	"more": true, "most": true, "very": true, "such": true, "only": true, "each": true,
	"every": true, "many": true, "much": true, "other": true, "same": true, "several": true,
	"important": true, "thing": true, "things": true, "lot": true, "way": true,
}

// chunkNouns groups tagged words into runs of adjectives and nouns. A run
// keeps only its last maxChunkWords words and must end in a noun. Common
// nouns are lowercased; proper nouns keep their case.
func chunkNouns(words []taggedWord) []string {
	lower := cases.Lower(language.English)
	var (
		out  []string
		seen = make(map[string]bool)
		run  []taggedWord
	)
	flush := func() {
		for len(run) > 0 && !isNounTag(run[len(run)-1].tag) {
			run = run[:len(run)-1]
		}
		if len(run) > maxChunkWords {
			run = run[len(run)-maxChunkWords:]
		}
		if len(run) > 0 {
			parts := make([]string, len(run))
			for i, w := range run {
				parts[i] = w.text
				if !strings.HasPrefix(w.tag, "NNP") {
					parts[i] = lower.String(w.text)
				}
			}
			phrase := strings.Join(parts, " ")
			if utf8.RuneCountInString(phrase) >= minPhraseRunes && !seen[phrase] {
				seen[phrase] = true
				out = append(out, phrase)
			}
		}
		run = nil
	}

	for _, w := range words {
		if (w.tag == "JJ" || isNounTag(w.tag)) && isWordToken(w.text) && !stopWords[lower.String(w.text)] {
			run = append(run, w)
			continue
		}
		flush()
	}
	flush()
	return out
}

func isNounTag(tag string) bool {
	return strings.HasPrefix(tag, "NN")
}

func isWordToken(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

var (
	particles = []string{"에서", "으로", "에게", "까지", "부터", "은", "는", "이", "가", "을", "를", "의", "에", "로", "와", "과", "도"}

	// Verb and adjective endings: declarative and polite forms, connectives
	// and adnominal forms.
	predicateEndings = []string{"다", "요", "죠", "까", "하는", "되는", "하고", "하여", "해서", "해야", "하게", "있는", "없는", "같은", "위한", "대한"}

	// Adnominal endings that also close plenty of two-syllable nouns, so
	// they only count on longer words.
	longPredicateEndings = []string{"한", "된", "적인"}

	koreanStopWords = map[string]bool{
		"그리고": true, "또한": true, "매우": true, "자주": true, "정말": true, "이러한": true,
		"그러한": true, "모든": true, "어떤": true, "가장": true, "항상": true, "이것": true, "그것": true,
		"이에": true, "더해": true, "실제로": true, "특히": true, "결과적으로": true, "살펴볼": true,
		"많은": true, "좋은": true, "작은": true, "새로운": true,
	}
)

// koreanNominals returns particle-stripped nouns, pairing adjacent nouns
// into compounds. A particle other than the genitive closes the phrase.
func koreanNominals(text string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
		run  []string
	)
	flush := func() {
		if len(run) == 0 {
			return
		}
		phrase := strings.Join(run, " ")
		if !seen[phrase] {
			seen[phrase] = true
			out = append(out, phrase)
		}
		run = nil
	}

	for _, raw := range strings.Fields(text) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		first, _ := utf8.DecodeRuneInString(word)
		if word == "" || !unicode.Is(unicode.Hangul, first) || isPredicate(word) {
			flush()
			continue
		}
		stem, particle := stripParticle(word)
		if utf8.RuneCountInString(stem) < 2 || koreanStopWords[stem] || koreanStopWords[word] || isPredicate(stem) {
			flush()
			continue
		}
		run = append(run, stem)
		closes := raw != strings.TrimRightFunc(raw, unicode.IsPunct)
		if len(run) == maxChunkWords || (particle != "" && particle != "의") || closes {
			flush()
		}
	}
	flush()
	return out
}

func isPredicate(word string) bool {
	for _, e := range predicateEndings {
		if strings.HasSuffix(word, e) {
			return true
		}
	}
	if utf8.RuneCountInString(word) >= 3 {
		for _, e := range longPredicateEndings {
			if strings.HasSuffix(word, e) {
				return true
			}
		}
	}
	return false
}

func stripParticle(word string) (string, string) {
	if utf8.RuneCountInString(word) < 3 {
		return word, ""
	}
	for _, p := range particles {
		if strings.HasSuffix(word, p) {
			return strings.TrimSuffix(word, p), p
		}
	}
	return word, ""
}
