package ledger

import "strings"

// EstimateTokens approximates the token count of text for a model without
// calling a remote tokenizer. GPT-style tokenizers average about four
// characters per token; blending the word count with chars/4 tracks real
// counts closer than either alone on mixed prose and code.
//
// The model id only selects the heuristic and may be arbitrary or unknown;
// this function never fails. Empty text counts as zero.
func EstimateTokens(text string, model string) int {
	if text == "" {
		return 0
	}

	words := len(strings.Fields(text))
	chars := len(text)
	if words == 0 {
		// No word boundaries at all, fall back to the plain chars/4 estimate.
		return chars / 4
	}

	estimate := (words + chars/4) / 2
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}
