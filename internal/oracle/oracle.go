// Package oracle consults a generative model for sentence-level rewrites.
//
// The optimizer only ever asks one question: given a sentence and a unit,
// return the sentence with the unit removed, an empty reply when the whole
// sentence should go, or the sentence unchanged when it cannot be edited.
package oracle

import (
	"context"
	"strings"
)

// Oracle suppresses one unit in one sentence.
type Oracle interface {
	Suppress(ctx context.Context, sentence, unit string) (string, error)
}

// Outcome classifies an oracle reply.
type Outcome int

const (
	Unchanged Outcome = iota
	Revised
	Delete
)

func (o Outcome) String() string {
	switch o {
	case Revised:
		return "revised"
	case Delete:
		return "delete"
	default:
		return "unchanged"
	}
}

// Classify compares a cleaned reply with the sentence it answers.
func Classify(sentence, reply string) Outcome {
	switch {
	case reply == "":
		return Delete
	case reply == strings.TrimSpace(sentence):
		return Unchanged
	default:
		return Revised
	}
}

// None is the oracle of deterministic mode. It never edits anything.
type None struct{}

// Suppress returns the sentence unchanged.
func (None) Suppress(_ context.Context, sentence, _ string) (string, error) {
	return sentence, nil
}

// cleanReply strips what models wrap around a one-sentence answer: blank
// lines, surrounding quotes and a leading label.
func cleanReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if i := strings.IndexByte(reply, '\n'); i >= 0 {
		reply = strings.TrimSpace(reply[:i])
	}
	for _, label := range []string{"Revised sentence:", "Sentence:", "Output:"} {
		if strings.HasPrefix(reply, label) {
			reply = strings.TrimSpace(strings.TrimPrefix(reply, label))
		}
	}
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}, {"`", "`"}} {
		if len(reply) >= len(q[0])+len(q[1]) && strings.HasPrefix(reply, q[0]) && strings.HasSuffix(reply, q[1]) {
			reply = strings.TrimSpace(reply[len(q[0]) : len(reply)-len(q[1])])
		}
	}
	return reply
}
