package optimize

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/document"
)

func newTestRun(o *Optimizer, text string, spec *analyze.TargetSpec) *run {
	return &run{
		Optimizer: o,
		ctx:       context.Background(),
		spec:      spec,
		doc:       document.Parse(text),
		rng:       rand.New(rand.NewPCG(1, 2)),
		log:       zap.NewNop(),
	}
}

func baseSpec(t *testing.T, units ...string) *analyze.TargetSpec {
	t.Helper()
	spec, err := analyze.NewTargetSpec("", units, nil)
	require.NoError(t, err)
	spec.CharRange = analyze.Range{Min: 0, Max: 1000}
	spec.BaseRange = analyze.Range{Min: 0, Max: 10}
	return spec
}

func TestStripFillers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lead-in and intensifier", "It is important to note that engines really need care.", "Engines need care."},
		{"wordy connective", "We left due to the fact that it rained.", "We left because it rained."},
		{"purpose clause", "Save money in order to travel.", "Save money to travel."},
		{"korean intensifier", "이 제품은 매우 좋습니다.", "이 제품은 좋습니다."},
		{"korean hedge", "좋은 선택이라고 할 수 있습니다.", "좋은 선택입니다."},
		{"nothing to strip", "Plain sentence here.", "Plain sentence here."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFillers(tt.in, defaultFillers))
		})
	}
}

func TestWithExtraFillers(t *testing.T) {
	_, err := WithExtraFillers([]string{"("})
	assert.Error(t, err)

	opt, err := WithExtraFillers([]string{`(?i)\bkind of\s+`})
	require.NoError(t, err)
	o := New(opt)

	assert.Equal(t, "It is slow.", stripFillers("It is kind of slow.", o.fillers))
	assert.Len(t, defaultFillers, len(o.fillers)-1)
}

func TestHasDiscourseMarker(t *testing.T) {
	assert.True(t, hasDiscourseMarker("However, it works."))
	assert.True(t, hasDiscourseMarker("따라서 교체가 필요합니다."))
	assert.False(t, hasDiscourseMarker("It works."))
}

func TestStaticLexicon(t *testing.T) {
	l := NewStaticLexicon(map[string][]string{
		"Rapid":    {"fast"},
		"numerous": {"lots"},
	})

	assert.Equal(t, []string{"fast"}, l.Candidates("rapid"))
	assert.Equal(t, []string{"lots", "many"}, l.Candidates("Numerous"))
	assert.Empty(t, l.Candidates("engine"))
	assert.Equal(t, []string{"many"}, DefaultLexicon().Candidates("numerous"))
}

func TestChunkNouns(t *testing.T) {
	tests := []struct {
		name  string
		words []taggedWord
		want  []string
	}{
		{
			"verbs end a chunk",
			[]taggedWord{{"Regular", "JJ"}, {"engine", "NN"}, {"care", "NN"}, {"keeps", "VBZ"}, {"cars", "NNS"}, {"running", "VBG"}, {".", "."}},
			[]string{"engine care", "cars"},
		},
		{
			"determiners and conjunctions split",
			[]taggedWord{{"The", "DT"}, {"filter", "NN"}, {"and", "CC"}, {"the", "DT"}, {"pump", "NN"}, {".", "."}},
			[]string{"filter", "pump"},
		},
		{
			"trailing adjective dropped",
			[]taggedWord{{"Oil", "NN"}, {"is", "VBZ"}, {"cheap", "JJ"}},
			[]string{"oil"},
		},
		{
			"proper nouns keep case",
			[]taggedWord{{"Toyota", "NNP"}, {"engines", "NNS"}, {"last", "VBP"}},
			[]string{"Toyota engines"},
		},
		{
			"duplicates collapse",
			[]taggedWord{{"oil", "NN"}, {"and", "CC"}, {"oil", "NN"}},
			[]string{"oil"},
		},
		{
			"nothing usable",
			[]taggedWord{{"It", "PRP"}, {"is", "VBZ"}, {"on", "IN"}},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkNouns(tt.words))
		})
	}
}

func TestKoreanNominals(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"genitive joins a compound", "엔진오일은 자동차의 수명을 결정합니다.", []string{"엔진오일", "자동차 수명"}},
		{"polite predicates skipped", "엔진오일은 중요합니다. 자주 점검하세요.", []string{"엔진오일"}},
		{"adnominal forms skipped", "중요한 부품을 교체하는 시기", []string{"부품", "시기"}},
		{"subject particle stripped", "이 제품은 품질이 매우 좋습니다.", []string{"제품", "품질"}},
		{"nothing usable", "그 는", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, koreanNominals(tt.in))
		})
	}
}

func TestChunkTokenizer_SkipsVerbs(t *testing.T) {
	tok := NewChunkTokenizer()

	got, err := tok.NounPhrases("Engine oil keeps parts moving well.")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, ph := range got {
		assert.NotContains(t, ph, "keeps")
		assert.NotContains(t, ph, "moving")
	}

	again, err := tok.NounPhrases("Engine oil keeps parts moving well.")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	ko, err := tok.NounPhrases("엔진오일은 중요합니다.")
	require.NoError(t, err)
	assert.Equal(t, []string{"엔진오일"}, ko)
}

func TestFillTemplate(t *testing.T) {
	tests := []struct {
		tmpl, phrase, want string
	}{
		{"실제로 %s은/는 많은 영향을 미칩니다.", "엔진오일", "실제로 엔진오일은 많은 영향을 미칩니다."},
		{"실제로 %s은/는 많은 영향을 미칩니다.", "타이어", "실제로 타이어는 많은 영향을 미칩니다."},
		{"%s과/와 관련하여", "부품", "부품과 관련하여"},
		{"%s과/와 관련하여", "타이어", "타이어와 관련하여"},
		{"특히 %s이/가 차지하는", "자동차 수명", "특히 자동차 수명이 차지하는"},
		{"특히 %s이/가 차지하는", "API", "특히 API가 차지하는"},
		{"%s은/는", "oil", "oil은"},
		{"또한 %s의 중요성", "엔진오일", "또한 엔진오일의 중요성"},
		{"Beyond that, %s matters.", "50% off", "Beyond that, 50% off matters."},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, fillTemplate(tt.tmpl, tt.phrase))
		})
	}
}

func TestKoreanTemplatesResolveParticles(t *testing.T) {
	for _, set := range [][]string{phraseTemplatesKo, unitTemplatesKo} {
		for _, tmpl := range set {
			for _, phrase := range []string{"엔진오일", "타이어"} {
				got := fillTemplate(tmpl, phrase)
				assert.NotContains(t, got, "/", "template %q", tmpl)
				assert.NotContains(t, got, "%s", "template %q", tmpl)
			}
		}
	}
}

func TestSplitWord(t *testing.T) {
	pre, core, post := splitWord("(oil),")
	assert.Equal(t, "(", pre)
	assert.Equal(t, "oil", core)
	assert.Equal(t, "),", post)

	pre, core, post = splitWord("...")
	assert.Equal(t, "...", pre)
	assert.Empty(t, core)
	assert.Empty(t, post)
}

func TestLocalEdit(t *testing.T) {
	t.Run("length mode shortens and skips units", func(t *testing.T) {
		r := newTestRun(New(), "", baseSpec(t, "oil"))
		got := r.localEdit("Numerous drivers frequently purchase oil.", nil)
		assert.Equal(t, "Many drivers often buy oil.", got)
	})

	t.Run("unit mode only touches words carrying the unit", func(t *testing.T) {
		lex := NewStaticLexicon(map[string][]string{"oily": {"greasy"}})
		r := newTestRun(New(WithLexicon(lex)), "", baseSpec(t, "oil"))
		got := r.localEdit("Numerous oily rags.", analyze.Base("oil"))
		assert.Equal(t, "Numerous greasy rags.", got)
	})

	t.Run("never introduces a unit", func(t *testing.T) {
		lex := NewStaticLexicon(map[string][]string{"automobile": {"car"}})
		r := newTestRun(New(WithLexicon(lex)), "", baseSpec(t, "car"))
		got := r.localEdit("The automobile stalled.", nil)
		assert.Equal(t, "The automobile stalled.", got)
	})
}

func TestScore(t *testing.T) {
	spec := oilSpec(t, 1)
	r := newTestRun(New(), "The oil type matters. Oil changes help.", spec)
	counts := r.counts()

	assert.Equal(t, 18+overBaseBonus-underMinPenalty, r.score("The oil type matters.", counts))
	assert.Equal(t, 15+overBaseBonus, r.score("Oil changes help.", counts))

	cands := r.candidates(func(string) bool { return true })
	require.Len(t, cands, 2)
	assert.Equal(t, "Oil changes help.", cands[0].text)
}

func TestInsertionTargets(t *testing.T) {
	t.Run("large prose paragraphs", func(t *testing.T) {
		text := "# Title\n\nShort one.\n\nEngines need regular care every season. Check the level often and early."
		r := newTestRun(New(), text, baseSpec(t))
		assert.Equal(t, []int{2}, r.insertionTargets())
	})

	t.Run("falls back to last prose paragraph", func(t *testing.T) {
		r := newTestRun(New(), "# Title\n\nShort one.", baseSpec(t))
		assert.Equal(t, []int{1}, r.insertionTargets())
	})

	t.Run("appends after a structural block", func(t *testing.T) {
		r := newTestRun(New(), "# Title", baseSpec(t))
		assert.Equal(t, []int{1}, r.insertionTargets())
		assert.Len(t, r.doc.Paragraphs, 2)
	})
}

func TestPhrasesSkipSaturatedUnits(t *testing.T) {
	spec := baseSpec(t, "engine")
	spec.BaseRange = analyze.Range{Min: 0, Max: 1}
	tok := fixedTokenizer{"engine care", "cars"}
	r := newTestRun(New(WithTokenizer(tok)), "The engine runs.", spec)

	phrases := r.phrases("Regular engine care keeps cars running.", r.counts())

	assert.Equal(t, []string{"cars"}, phrases)
}

type fixedTokenizer []string

func (f fixedTokenizer) NounPhrases(string) ([]string, error) {
	return f, nil
}

func TestReduceLength_EditsEverySentenceBeforeDeleting(t *testing.T) {
	filler := "It is important to note that engines really need care."
	text := filler + " " + filler + " Oil matters."

	t.Run("duplicates are each edited", func(t *testing.T) {
		r := newTestRun(New(), text, baseSpec(t))
		r.reduceLength(50)
		assert.Equal(t, "Engines need care. Engines need care. Oil matters.", r.doc.Body())
	})

	t.Run("deletion follows the edits", func(t *testing.T) {
		r := newTestRun(New(), text, baseSpec(t))
		r.reduceLength(70)
		assert.Equal(t, "Engines need care. Oil matters.", r.doc.Body())
	})

	t.Run("never deletes below the length minimum", func(t *testing.T) {
		spec := baseSpec(t)
		spec.CharRange = analyze.Range{Min: 40, Max: 1000}
		r := newTestRun(New(), text, spec)
		r.reduceLength(1000)
		assert.GreaterOrEqual(t, document.CharCount(r.doc.Body()), 40)
		assert.Contains(t, r.doc.Body(), "Oil matters.")
	})
}

func TestPhrasesFallBack(t *testing.T) {
	r := newTestRun(New(), "", baseSpec(t))

	assert.Equal(t, fallbackPhrases, r.phrases("It is on.", r.counts()))
	assert.Equal(t, fallbackPhrasesKo, r.phrases("그 는", r.counts()))
}
