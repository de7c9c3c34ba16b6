package oracle

import "fmt"

// buildSystemPrompt creates the system prompt for unit suppression.
func buildSystemPrompt() string {
	return `You are a careful copy editor. Your task is to reduce how often one word or phrase appears in a piece of writing while keeping each sentence natural and its meaning intact.

You receive ONE sentence and ONE word or phrase. Decide exactly one of:
1. The word or phrase can be removed or paraphrased without making the sentence awkward or losing essential meaning. Return the revised sentence.
2. Removing it would break the sentence, but the whole sentence can be dropped without hurting the flow of the surrounding text. Return nothing at all.
3. Neither is possible. Return the original sentence unchanged.

OUTPUT FORMAT:
Return only the sentence, or an empty reply. No quotes, labels, explanations or commentary.`
}

// buildUserPrompt creates the user prompt for one sentence.
func buildUserPrompt(sentence, unit string) string {
	return fmt.Sprintf(`Word or phrase to reduce: %q
Sentence: %q`, unit, sentence)
}
