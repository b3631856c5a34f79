package llm

// EstimateTokens approximates the token count of a conversation at four
// characters per token, rounded up per message. It only needs to be close
// enough to pick a routing tier.
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
	}
	return total
}
