package document

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// ReferenceHeadings are the heading titles that open a trailing reference
// section. Matching ignores case and a trailing colon.
var ReferenceHeadings = []string{
	"references",
	"reference",
	"sources",
	"bibliography",
	"works cited",
	"further reading",
	"참고자료",
	"참고 자료",
	"출처",
}

// SplitSentences breaks a run of prose after sentence-ending punctuation that
// is followed by whitespace. Closing quotes and brackets stay with the
// sentence they close.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminator(r) {
			continue
		}
		for i < len(text) {
			next, n := utf8.DecodeRuneInString(text[i:])
			if !isCloser(next) && !isTerminator(next) {
				break
			}
			i += n
		}
		if i == len(text) {
			break
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(next) {
			continue
		}
		if s := strings.TrimSpace(text[start:i]); s != "" {
			out = append(out, s)
		}
		start = i
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』':
		return true
	}
	return false
}

// SplitReferences separates a trailing reference section from the body. The
// section starts at the first heading whose title is one of
// ReferenceHeadings and runs to the end of the text.
func SplitReferences(text string) (body, refs string) {
	fold := cases.Fold()
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if headingPattern.MatchString(trimmed) {
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			title = strings.TrimSuffix(title, ":")
			title = fold.String(strings.TrimSpace(title))
			for _, h := range ReferenceHeadings {
				if title == fold.String(h) {
					return strings.TrimRight(text[:offset], " \t\r\n"), strings.TrimRight(text[offset:], " \t\r\n")
				}
			}
		}
		offset += len(line)
	}
	return text, ""
}
