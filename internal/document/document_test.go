package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple",
			input: "The oil type matters. Oil changes help.",
			want:  []string{"The oil type matters.", "Oil changes help."},
		},
		{
			name:  "mixed terminators",
			input: "Really? Yes! It works.",
			want:  []string{"Really?", "Yes!", "It works."},
		},
		{
			name:  "decimal point is not a boundary",
			input: "Version 3.14 shipped. Then 4.0 followed.",
			want:  []string{"Version 3.14 shipped.", "Then 4.0 followed."},
		},
		{
			name:  "closing quote stays with sentence",
			input: `He said "stop." Then he left.`,
			want:  []string{`He said "stop."`, "Then he left."},
		},
		{
			name:  "no terminator",
			input: "a fragment without an ending",
			want:  []string{"a fragment without an ending"},
		},
		{
			name:  "korean",
			input: "엔진오일은 중요합니다. 교체 주기를 확인하세요.",
			want:  []string{"엔진오일은 중요합니다.", "교체 주기를 확인하세요."},
		},
		{
			name:  "empty",
			input: "   ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.input))
		})
	}
}

func TestParse_ParagraphKinds(t *testing.T) {
	input := "# Title\n" +
		"First sentence here. Second one.\n\n" +
		"- item one\n- item two\n  continued\n\n" +
		"> quoted text\n\n" +
		"```go\nfunc main() {}\n\nfmt.Println()\n```\n\n" +
		"Closing prose."

	doc := Parse(input)
	require.Len(t, doc.Paragraphs, 6)

	kinds := make([]Kind, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		kinds[i] = p.Kind
	}
	assert.Equal(t, []Kind{Heading, Prose, List, Quote, Code, Prose}, kinds)

	assert.Equal(t, []string{"First sentence here.", "Second one."}, doc.Paragraphs[1].Sentences)
	assert.Contains(t, doc.Paragraphs[4].Raw, "fmt.Println()")
	assert.Equal(t, []int{1, 5}, doc.ProseIndexes())
}

func TestParse_SoftWrappedProseJoins(t *testing.T) {
	doc := Parse("A sentence that\nwraps over lines. Another.")

	require.Len(t, doc.Paragraphs, 1)
	assert.Equal(t, []string{"A sentence that wraps over lines.", "Another."}, doc.Paragraphs[0].Sentences)
}

func TestParse_ReferencesExcluded(t *testing.T) {
	input := "Body text. More body.\n\n## References\n\n1. Some source\n2. Another source\n"

	doc := Parse(input)

	require.Len(t, doc.Paragraphs, 1)
	assert.Equal(t, "## References\n\n1. Some source\n2. Another source", doc.References)
	assert.Equal(t, "Body text. More body.", doc.Body())
	assert.Equal(t, "Body text. More body.\n\n## References\n\n1. Some source\n2. Another source", doc.String())
}

func TestSplitReferences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantBody string
		wantRefs string
	}{
		{
			name:     "none",
			input:    "Just text.",
			wantBody: "Just text.",
			wantRefs: "",
		},
		{
			name:     "case and colon insensitive",
			input:    "Text.\n\n### SOURCES:\n- a",
			wantBody: "Text.",
			wantRefs: "### SOURCES:\n- a",
		},
		{
			name:     "korean heading",
			input:    "본문입니다.\n\n## 참고자료\n- 링크",
			wantBody: "본문입니다.",
			wantRefs: "## 참고자료\n- 링크",
		},
		{
			name:     "word inside prose is not a heading",
			input:    "See the references below.\n\nMore.",
			wantBody: "See the references below.\n\nMore.",
			wantRefs: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, refs := SplitReferences(tt.input)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantRefs, refs)
		})
	}
}

func TestDocument_Edits(t *testing.T) {
	doc := Parse("One. Two. Three.\n\nSolo.")

	doc.ReplaceSentence(0, 1, "  Deux.  ")
	assert.Equal(t, "One. Deux. Three.\n\nSolo.", doc.String())

	doc.InsertSentence(0, 0, "Zero.")
	doc.InsertSentence(0, 99, "Four.")
	assert.Equal(t, []string{"Zero.", "One.", "Deux.", "Three.", "Four."}, doc.Paragraphs[0].Sentences)

	doc.DeleteSentence(0, 2)
	assert.Equal(t, []string{"Zero.", "One.", "Three.", "Four."}, doc.Paragraphs[0].Sentences)

	// Deleting the only sentence removes the paragraph.
	doc.DeleteSentence(1, 0)
	assert.Len(t, doc.Paragraphs, 1)

	idx := doc.AppendParagraph("Appended.")
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Zero. One. Three. Four.\n\nAppended.", doc.String())
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := Parse("One. Two.")
	clone := doc.Clone()

	clone.ReplaceSentence(0, 0, "Changed.")

	assert.Equal(t, "One. Two.", doc.String())
	assert.Equal(t, "Changed. Two.", clone.String())
}

func TestCharCount(t *testing.T) {
	assert.Equal(t, 0, CharCount(" \n\t "))
	assert.Equal(t, 18, CharCount("The oil type matters."))
	assert.Equal(t, 6, CharCount("엔진 오일 교체"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "prose", Prose.String())
	assert.Equal(t, "heading", Heading.String())
	assert.Equal(t, "code", Code.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
