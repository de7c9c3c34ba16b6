package optimize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/document"
)

const (
	// A paragraph takes inserted sentences only above these sizes.
	minEligibleSentences = 2
	minEligibleChars     = 50

	maxResamples     = 5
	maxPhrases       = 5
	maxInsertionsRun = 200
)

var (
	phraseTemplates = []string{
		"Beyond that, the question of %s deserves a closer look.",
		"It is also worth stressing the role of %s.",
		"In practice, attention to %s has a real impact.",
		"Careful attention to %s pays off as well.",
		"A clear view of %s adds useful context here.",
	}
	phraseTemplatesKo = []string{
		"이에 더해, %s에 대한 심층적인 이해가 필요합니다.",
		"또한 %s의 중요성을 강조하고 싶습니다.",
		"%s과/와 관련하여 추가적인 정보를 살펴볼 만합니다.",
		"실제로 %s은/는 많은 영향을 미칩니다.",
		"그리고 %s에 대한 고려도 중요합니다.",
	}
	unitTemplates = []string{
		"In particular, the topic of %s deserves attention.",
		"This is where the role of %s becomes clear.",
		"Many experts stress the value of %s.",
		"For this reason, the use of %s counts.",
		"It also pays to understand %s well.",
	}
	unitTemplatesKo = []string{
		"또한, %s의 중요성을 간과해서는 안 됩니다.",
		"이러한 맥락에서 %s은/는 핵심적인 역할을 합니다.",
		"결과적으로 %s의 활용이 중요합니다.",
		"많은 전문가들이 %s의 가치를 강조합니다.",
		"특히 %s이/가 차지하는 비중을 이해해야 합니다.",
	}
	fallbackPhrases   = []string{"this point", "this topic", "the details"}
	fallbackPhrasesKo = []string{"이 점", "이 부분", "해당 내용"}

	// Two-form Korean particles as written in templates: the form after a
	// final consonant, then the form after a vowel.
	particlePairs = [][2]string{{"은", "는"}, {"이", "가"}, {"과", "와"}, {"을", "를"}}
)

// expandUnit inserts shortage sentences built around u, spread round-robin
// over the eligible paragraphs.
func (r *run) expandUnit(u analyze.Unit, shortage int) {
	targets := r.insertionTargets()
	templates := unitTemplates
	if isKorean(u.Text()) {
		templates = unitTemplatesKo
	}
	for i := 0; i < shortage; i++ {
		counts := r.counts()
		p := targets[i%len(targets)]
		sentence := r.sample(templates, []string{u.Text()}, counts, u, 0)
		r.insert(p, sentence)
	}
	r.log.Debug("inserted unit sentences", zap.String("unit", u.Text()), zap.Int("count", shortage))
}

// expandLength inserts filler sentences until at least need characters were
// added.
func (r *run) expandLength(need int) {
	targets := r.insertionTargets()
	added := 0
	for i := 0; added < need && i < maxInsertionsRun; i++ {
		counts := r.counts()
		p := targets[i%len(targets)]
		source := r.authoredText([]int{p})
		if source == "" {
			source = r.authoredText(r.doc.ProseIndexes())
		}
		templates := phraseTemplates
		if isKorean(source) || (source == "" && isKorean(r.doc.Body())) {
			templates = phraseTemplatesKo
		}
		room := r.spec.CharRange.Max - document.CharCount(r.doc.Body())
		sentence := r.sample(templates, r.phrases(source, counts), counts, nil, room)
		r.insert(p, sentence)
		added += document.CharCount(sentence)
	}
	r.log.Debug("inserted filler sentences", zap.Int("chars", added))
}

// insertionTargets returns the paragraphs that take new sentences: prose
// paragraphs large enough to absorb them, else the last paragraph when it is
// prose, else a new trailing paragraph.
func (r *run) insertionTargets() []int {
	var out []int
	for _, p := range r.doc.ProseIndexes() {
		para := r.doc.Paragraphs[p]
		if len(para.Sentences) >= minEligibleSentences && document.CharCount(para.Text()) > minEligibleChars {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		return out
	}
	if last := len(r.doc.Paragraphs) - 1; last >= 0 && !r.doc.Paragraphs[last].Structural() {
		return []int{last}
	}
	return []int{r.doc.AppendParagraph()}
}

// insert places sentence at a random position of paragraph p.
func (r *run) insert(p int, sentence string) {
	pos := r.rng.IntN(len(r.doc.Paragraphs[p].Sentences) + 1)
	r.doc.InsertSentence(p, pos, sentence)
	if r.inserted == nil {
		r.inserted = make(map[string]bool)
	}
	r.inserted[sentence] = true
}

// authoredText joins the sentences of paragraphs ps that expansion did not
// add.
func (r *run) authoredText(ps []int) string {
	var parts []string
	for _, p := range ps {
		for _, s := range r.doc.Paragraphs[p].Sentences {
			if !r.inserted[s] {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// phrases extracts insertion phrases from text, dropping any that carry a
// unit already at or over its maximum.
func (r *run) phrases(text string, counts map[analyze.Unit]int) []string {
	found, err := r.tokenizer.NounPhrases(text)
	if err != nil {
		r.log.Debug("tokenizer failed, using fallback phrases", zap.Error(err))
		found = nil
	}
	var out []string
	for _, ph := range found {
		if r.saturates(ph, counts, nil) {
			continue
		}
		out = append(out, ph)
		if len(out) == maxPhrases {
			break
		}
	}
	if len(out) == 0 {
		if isKorean(text) || (text == "" && isKorean(r.doc.Body())) {
			return fallbackPhrasesKo
		}
		return fallbackPhrases
	}
	return out
}

// sample draws a sentence from templates and phrases. A draw that carries a
// unit at or over its maximum, or that does not fit in room when room is
// positive, is redrawn up to maxResamples times; the last draw is then
// accepted anyway.
func (r *run) sample(templates, phrases []string, counts map[analyze.Unit]int, except analyze.Unit, room int) string {
	var sentence string
	for try := 0; try < maxResamples; try++ {
		phrase := phrases[r.rng.IntN(len(phrases))]
		sentence = capitalize(fillTemplate(templates[r.rng.IntN(len(templates))], phrase))
		if r.saturates(sentence, counts, except) {
			continue
		}
		if room > 0 && document.CharCount(sentence) > room {
			continue
		}
		return sentence
	}
	return sentence
}

// saturates reports whether text carries a unit, other than except, whose
// count is already at or over its maximum.
func (r *run) saturates(text string, counts map[analyze.Unit]int, except analyze.Unit) bool {
	for _, u := range r.spec.Units {
		if u == except {
			continue
		}
		if analyze.Count(u, text) > 0 && counts[u] >= r.spec.RangeFor(u).Max {
			return true
		}
	}
	return false
}

// fillTemplate puts phrase in place of the template's %s. A particle pair
// written right after it, such as "은/는", is resolved against the phrase.
func fillTemplate(tmpl, phrase string) string {
	i := strings.Index(tmpl, "%s")
	if i < 0 {
		return tmpl
	}
	rest := tmpl[i+2:]
	for _, p := range particlePairs {
		if marker := p[0] + "/" + p[1]; strings.HasPrefix(rest, marker) {
			particle := p[1]
			if endsInConsonant(phrase) {
				particle = p[0]
			}
			return tmpl[:i] + phrase + particle + rest[len(marker):]
		}
	}
	return tmpl[:i] + phrase + rest
}

// endsInConsonant reports whether word, read aloud in Korean, ends in a final
// consonant (batchim). Latin words count when they end in l, m or n.
func endsInConsonant(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	switch {
	case r >= 0xAC00 && r <= 0xD7A3:
		return (r-0xAC00)%28 != 0
	case r >= '0' && r <= '9':
		return strings.ContainsRune("013678", r)
	default:
		return strings.ContainsRune("lmnLMN", r)
	}
}

func capitalize(s string) string {
	c, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLower(c) {
		return s
	}
	return string(unicode.ToUpper(c)) + s[size:]
}

func isKorean(s string) bool {
	for _, c := range s {
		if unicode.Is(unicode.Hangul, c) {
			return true
		}
	}
	return false
}
