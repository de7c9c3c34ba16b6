// Package document splits generated prose into paragraphs and sentences so the
// optimizer can edit it one sentence at a time.
package document

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind classifies a paragraph.
type Kind int

const (
	// Prose is ordinary running text; the only kind the optimizer edits.
	Prose Kind = iota
	Heading
	List
	Code
	Quote
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case Prose:
		return "prose"
	case Heading:
		return "heading"
	case List:
		return "list"
	case Code:
		return "code"
	case Quote:
		return "quote"
	default:
		return "unknown"
	}
}

// Paragraph is one block of the document.
type Paragraph struct {
	Kind      Kind
	Raw       string   // Verbatim text of structural blocks
	Sentences []string // Sentences of prose blocks
}

// Structural reports whether the paragraph must never be edited.
func (p *Paragraph) Structural() bool {
	return p.Kind != Prose
}

// Text renders the paragraph.
func (p *Paragraph) Text() string {
	if p.Structural() {
		return p.Raw
	}
	return strings.Join(p.Sentences, " ")
}

// Document is an ordered sequence of paragraphs plus an optional trailing
// reference section that is carried along untouched.
type Document struct {
	Paragraphs []Paragraph
	References string
}

var (
	headingPattern = regexp.MustCompile(`^#{1,6}\s+\S`)
	listPattern    = regexp.MustCompile(`^([-*+•]|\d+[.)])\s+`)
)

// Parse splits text into paragraphs. Blank lines separate paragraphs, headings
// always stand alone, and fenced code blocks are kept whole.
func Parse(text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	body, refs := SplitReferences(text)

	doc := &Document{References: refs}
	for _, block := range splitBlocks(body) {
		doc.Paragraphs = append(doc.Paragraphs, newParagraph(block))
	}
	return doc
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{
		Paragraphs: make([]Paragraph, len(d.Paragraphs)),
		References: d.References,
	}
	for i, p := range d.Paragraphs {
		out.Paragraphs[i] = Paragraph{
			Kind:      p.Kind,
			Raw:       p.Raw,
			Sentences: append([]string(nil), p.Sentences...),
		}
	}
	return out
}

// Body renders the document without its reference section.
func (d *Document) Body() string {
	parts := make([]string, 0, len(d.Paragraphs))
	for i := range d.Paragraphs {
		if t := d.Paragraphs[i].Text(); strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// String renders the full document, reference section included.
func (d *Document) String() string {
	body := d.Body()
	if d.References == "" {
		return body
	}
	if body == "" {
		return d.References
	}
	return body + "\n\n" + d.References
}

// ProseIndexes returns the indexes of editable paragraphs in order.
func (d *Document) ProseIndexes() []int {
	var out []int
	for i := range d.Paragraphs {
		if !d.Paragraphs[i].Structural() && len(d.Paragraphs[i].Sentences) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// ReplaceSentence swaps the text of one sentence.
func (d *Document) ReplaceSentence(p, s int, text string) {
	d.Paragraphs[p].Sentences[s] = strings.TrimSpace(text)
}

// DeleteSentence removes one sentence. A paragraph left with no sentences is
// removed as well.
func (d *Document) DeleteSentence(p, s int) {
	para := &d.Paragraphs[p]
	para.Sentences = append(para.Sentences[:s:s], para.Sentences[s+1:]...)
	if len(para.Sentences) == 0 {
		d.RemoveParagraph(p)
	}
}

// InsertSentence inserts text before position pos of paragraph p. A pos past
// the end appends.
func (d *Document) InsertSentence(p, pos int, text string) {
	para := &d.Paragraphs[p]
	if pos < 0 {
		pos = 0
	}
	if pos >= len(para.Sentences) {
		para.Sentences = append(para.Sentences, text)
		return
	}
	para.Sentences = append(para.Sentences[:pos:pos], append([]string{text}, para.Sentences[pos:]...)...)
}

// RemoveParagraph drops paragraph p.
func (d *Document) RemoveParagraph(p int) {
	d.Paragraphs = append(d.Paragraphs[:p:p], d.Paragraphs[p+1:]...)
}

// AppendParagraph adds a prose paragraph at the end and returns its index.
func (d *Document) AppendParagraph(sentences ...string) int {
	d.Paragraphs = append(d.Paragraphs, Paragraph{Kind: Prose, Sentences: sentences})
	return len(d.Paragraphs) - 1
}

// CharCount counts the non-whitespace runes of s.
func CharCount(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func newParagraph(block string) Paragraph {
	first := strings.TrimSpace(strings.SplitN(block, "\n", 2)[0])
	switch kind := lineKind(block, first); kind {
	case Prose:
		joined := strings.Join(strings.Fields(block), " ")
		return Paragraph{Kind: Prose, Sentences: SplitSentences(joined)}
	default:
		return Paragraph{Kind: kind, Raw: block}
	}
}

func lineKind(line, trimmed string) Kind {
	switch {
	case isFence(trimmed):
		return Code
	case headingPattern.MatchString(trimmed):
		return Heading
	case listPattern.MatchString(trimmed):
		return List
	case strings.HasPrefix(trimmed, ">"):
		return Quote
	case strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t"):
		return Code
	default:
		return Prose
	}
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func splitBlocks(body string) []string {
	var (
		blocks  []string
		cur     []string
		curKind Kind
		inFence bool
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if inFence {
			cur = append(cur, line)
			if isFence(trimmed) {
				inFence = false
				flush()
			}
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}

		kind := lineKind(line, trimmed)
		switch {
		case kind == Code && isFence(trimmed):
			flush()
			cur = append(cur, line)
			inFence = true
		case kind == Heading:
			flush()
			blocks = append(blocks, line)
		case len(cur) == 0:
			cur = append(cur, line)
			curKind = kind
		case curKind == List || curKind == Quote:
			// Indented lines continue a list item or quote.
			if kind != curKind && !unicode.IsSpace(rune(line[0])) {
				flush()
				curKind = kind
			}
			cur = append(cur, line)
		case kind != curKind && kind != Code:
			flush()
			cur = append(cur, line)
			curKind = kind
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return blocks
}
