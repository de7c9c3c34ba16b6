package optimize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HartBrook/keyfit/internal/analyze"
)

// filler is a qualifier or connective that can be dropped or shortened
// without changing what a sentence says.
type filler struct {
	pattern *regexp.Regexp
	repl    string
}

var defaultFillers = []filler{
	{regexp.MustCompile(`(?i)\bit is important to note that\s+`), ""},
	{regexp.MustCompile(`(?i)\bit should be noted that\s+`), ""},
	{regexp.MustCompile(`(?i)\bdue to the fact that\b`), "because"},
	{regexp.MustCompile(`(?i)\bin order to\b`), "to"},
	{regexp.MustCompile(`(?i)\bas a matter of fact,?\s+`), ""},
	{regexp.MustCompile(`(?i)\b(very|really|quite|extremely|basically|actually|truly)\s+`), ""},
	{regexp.MustCompile(`(매우|정말|아주|굉장히|상당히)\s+`), ""},
	{regexp.MustCompile(`이라고\s+할\s+수\s+있습니다`), "입니다"},
	{regexp.MustCompile(`라고\s+볼\s+수\s+있습니다`), "입니다"},
}

// discourseMarkers keep a text flowing; sentences carrying them are kept
// longer.
var discourseMarkers = []string{
	"however", "therefore", "moreover", "furthermore", "consequently",
	"in conclusion", "as a result", "in contrast",
	"하지만", "그러나", "따라서", "결론적으로", "그러므로",
}

// compileFillers turns extra patterns from config into fillers that are
// removed outright.
func compileFillers(patterns []string) ([]filler, error) {
	out := make([]filler, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, filler{pattern: re})
	}
	return out, nil
}

// stripFillers applies every filler once and tidies the spacing and the
// leading capital of the result.
func stripFillers(sentence string, fillers []filler) string {
	out := sentence
	for _, f := range fillers {
		out = f.pattern.ReplaceAllString(out, f.repl)
	}
	if out == sentence {
		return sentence
	}
	out = strings.Join(strings.Fields(out), " ")
	first, _ := utf8.DecodeRuneInString(sentence)
	if r, size := utf8.DecodeRuneInString(out); unicode.IsUpper(first) && unicode.IsLower(r) {
		out = string(unicode.ToUpper(r)) + out[size:]
	}
	return out
}

func hasDiscourseMarker(sentence string) bool {
	folded := analyze.Fold(sentence)
	for _, m := range discourseMarkers {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}
