package optimize

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/document"
	"github.com/HartBrook/keyfit/internal/oracle"
)

// Score weights for picking which sentence to edit first. Higher scores go
// first.
const (
	discourseMarkerPenalty = 50
	overBaseBonus          = 200
	overCompoundBonus      = 150
	underMinPenalty        = 300
)

type candidate struct {
	p, s  int
	text  string
	score int
}

// counts returns the current count of every unit.
func (r *run) counts() map[analyze.Unit]int {
	res := r.measure()
	out := make(map[analyze.Unit]int, len(res.Units))
	for _, uc := range res.Units {
		out[uc.Unit] = uc.Count
	}
	return out
}

// score rates a sentence as a removal candidate: long sentences first,
// sentences carrying a discourse marker later, sentences carrying an
// over-maximum unit much earlier, and sentences whose loss would push a unit
// below its minimum much later.
func (r *run) score(sentence string, counts map[analyze.Unit]int) int {
	score := document.CharCount(sentence)
	if hasDiscourseMarker(sentence) {
		score -= discourseMarkerPenalty
	}
	for _, u := range r.spec.Units {
		n := analyze.Count(u, sentence)
		if n == 0 {
			continue
		}
		win := r.spec.RangeFor(u)
		if counts[u] > win.Max {
			if u.Kind() == analyze.CompoundKind {
				score += overCompoundBonus * n
			} else {
				score += overBaseBonus * n
			}
		}
		if counts[u]-n < win.Min {
			score -= underMinPenalty
		}
	}
	return score
}

// candidates lists prose sentences accepted by keep, best score first and
// document order among equals.
func (r *run) candidates(keep func(string) bool) []candidate {
	counts := r.counts()
	var out []candidate
	for _, p := range r.doc.ProseIndexes() {
		for s, text := range r.doc.Paragraphs[p].Sentences {
			if keep(text) {
				out = append(out, candidate{p: p, s: s, text: text, score: r.score(text, counts)})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})
	return out
}

// reduceUnit edits sentences containing u until its count is at most target.
// In force mode a sentence that is alone in its paragraph may take the
// paragraph with it.
func (r *run) reduceUnit(u analyze.Unit, target int, force bool) {
	asked := make(map[string]bool)
	for attempt := 0; attempt < unitReduceAttempts; attempt++ {
		count := analyze.Count(u, r.doc.Body())
		if count <= target {
			return
		}

		cands := r.candidates(func(s string) bool { return analyze.Count(u, s) > 0 })
		if len(cands) == 0 {
			r.log.Warn("no sentence carries the unit", zap.String("unit", u.Text()), zap.Int("count", count))
			return
		}

		changed := false
		for _, c := range cands {
			if r.reduceSentence(c, u, asked, force) {
				changed = true
				break
			}
		}
		if !changed {
			r.log.Debug("unit reduction made no progress", zap.String("unit", u.Text()), zap.Int("count", count))
			return
		}
	}
}

// reduceSentence tries the oracle, then local edits, then deletion. It
// reports whether the document changed.
func (r *run) reduceSentence(c candidate, u analyze.Unit, asked map[string]bool, force bool) bool {
	before := analyze.Count(u, c.text)
	sole := len(r.doc.Paragraphs[c.p].Sentences) == 1

	if !asked[c.text] {
		asked[c.text] = true
		reply, err := r.oracle.Suppress(r.ctx, c.text, u.Text())
		if err != nil {
			r.log.Warn("oracle failed, treating sentence as unchanged", zap.String("unit", u.Text()), zap.Error(err))
			reply = c.text
		}
		switch oracle.Classify(c.text, reply) {
		case oracle.Revised:
			if analyze.Count(u, reply) < before && !r.introducesUnits(c.text, reply) {
				r.log.Debug("oracle revised sentence", zap.String("unit", u.Text()))
				r.doc.ReplaceSentence(c.p, c.s, reply)
				return true
			}
		case oracle.Delete:
			if r.dropSentence(c, sole, force) {
				r.log.Debug("oracle deleted sentence", zap.String("unit", u.Text()))
				return true
			}
		}
	}

	if edited := r.localEdit(c.text, u); analyze.Count(u, edited) < before {
		r.doc.ReplaceSentence(c.p, c.s, edited)
		return true
	}

	return r.dropSentence(c, sole, force)
}

// dropSentence deletes the sentence unless it is the last one of its
// paragraph. In force mode the paragraph goes instead.
func (r *run) dropSentence(c candidate, sole, force bool) bool {
	switch {
	case !sole:
		r.doc.DeleteSentence(c.p, c.s)
		return true
	case force:
		r.doc.RemoveParagraph(c.p)
		return true
	default:
		return false
	}
}

// reduceLength shortens the text by at least excess characters when it can
// do so without invalidating any unit or going below the length minimum.
// Every sentence gets one local edit, best score first, before any sentence
// is deleted.
func (r *run) reduceLength(excess int) {
	removed := 0
	counts := r.counts()
	for _, c := range r.candidates(func(string) bool { return true }) {
		if removed >= excess {
			return
		}
		edited := r.localEdit(c.text, nil)
		gain := document.CharCount(c.text) - document.CharCount(edited)
		if gain <= 0 || !r.keepsUnitsValid(c.text, edited, counts) {
			continue
		}
		r.doc.ReplaceSentence(c.p, c.s, edited)
		removed += gain
		counts = r.counts()
	}

	for removed < excess {
		n, ok := r.deleteForLength()
		if !ok {
			return
		}
		removed += n
	}
}

// deleteForLength deletes the best-scored sentence that is not alone in its
// paragraph and whose loss keeps every unit valid and the text above the
// length minimum. It returns the characters removed.
func (r *run) deleteForLength() (int, bool) {
	counts := r.counts()
	total := document.CharCount(r.doc.Body())
	for _, c := range r.candidates(func(string) bool { return true }) {
		n := document.CharCount(c.text)
		if len(r.doc.Paragraphs[c.p].Sentences) == 1 || total-n < r.spec.CharRange.Min {
			continue
		}
		if !r.keepsUnitsValid(c.text, "", counts) {
			continue
		}
		r.doc.DeleteSentence(c.p, c.s)
		return n, true
	}
	return 0, false
}

// keepsUnitsValid reports whether replacing from with to leaves every
// currently valid unit valid.
func (r *run) keepsUnitsValid(from, to string, counts map[analyze.Unit]int) bool {
	for _, u := range r.spec.Units {
		win := r.spec.RangeFor(u)
		if !win.Contains(counts[u]) {
			continue
		}
		if !win.Contains(counts[u] - analyze.Count(u, from) + analyze.Count(u, to)) {
			return false
		}
	}
	return true
}

// introducesUnits reports whether to carries more of any unit than from.
func (r *run) introducesUnits(from, to string) bool {
	for _, u := range r.spec.Units {
		if analyze.Count(u, to) > analyze.Count(u, from) {
			return true
		}
	}
	return false
}

// localEdit applies deterministic shortening. With a target unit it only
// substitutes words carrying that unit; without one it substitutes words
// for shorter synonyms and never touches a word carrying any unit.
func (r *run) localEdit(sentence string, target analyze.Unit) string {
	out := stripFillers(sentence, r.fillers)
	if r.introducesUnits(sentence, out) {
		out = sentence
	}

	words := strings.Fields(out)
	for i, w := range words {
		pre, core, post := splitWord(w)
		if core == "" || r.isUnit(core) {
			continue
		}
		if target != nil && analyze.Count(target, core) == 0 {
			continue
		}
		if target == nil && r.carriesUnit(core) {
			continue
		}
		sub, ok := r.substitute(core, target == nil)
		if !ok {
			continue
		}
		prev := words[i]
		joinedBefore := strings.Join(words, " ")
		words[i] = pre + sub + post
		if r.introducesUnits(joinedBefore, strings.Join(words, " ")) {
			words[i] = prev
		}
	}
	return strings.Join(words, " ")
}

// substitute picks the shortest lexicon candidate that carries no unit. When
// shorter is set the candidate must also be shorter than word.
func (r *run) substitute(word string, shorter bool) (string, bool) {
	best, found := "", false
	for _, cand := range r.lexicon.Candidates(word) {
		if cand == "" || r.carriesUnit(cand) {
			continue
		}
		if shorter && document.CharCount(cand) >= document.CharCount(word) {
			continue
		}
		if !found || document.CharCount(cand) < document.CharCount(best) {
			best, found = cand, true
		}
	}
	if !found {
		return "", false
	}
	first, _ := utf8.DecodeRuneInString(word)
	if c, size := utf8.DecodeRuneInString(best); unicode.IsUpper(first) && unicode.IsLower(c) {
		best = string(unicode.ToUpper(c)) + best[size:]
	}
	return best, true
}

func (r *run) isUnit(word string) bool {
	_, ok := r.spec.Lookup(word)
	return ok
}

func (r *run) carriesUnit(text string) bool {
	for _, u := range r.spec.Units {
		if analyze.Count(u, text) > 0 {
			return true
		}
	}
	return false
}

// splitWord separates leading and trailing punctuation from a word.
func splitWord(w string) (pre, core, post string) {
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(w, isWord)
	if start < 0 {
		return w, "", ""
	}
	end := strings.LastIndexFunc(w, isWord)
	_, size := utf8.DecodeRuneInString(w[end:])
	return w[:start], w[start : end+size], w[end+size:]
}
