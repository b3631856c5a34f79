package llm

import (
	"fmt"
	"strings"
)

// AnswerSystemPrompt is the grounding contract for single-query answers.
// The model may only use the supplied evidence and must cite every key
// conclusion.
const AnswerSystemPrompt = "You answer based ONLY on the provided Evidence. " +
	"After each key conclusion, cite the source as [source:<file:line>]. " +
	"If the evidence is insufficient, state clearly that you do not know " +
	"and list the files or keywords that would be needed."

// AccumulatedAnswerSystemPrompt extends the grounding contract for
// multi-aspect answers assembled from several sub-query searches.
const AccumulatedAnswerSystemPrompt = "You answer based ONLY on the provided Evidence. " +
	"After each key conclusion, cite the source as [source:<file:line>]. " +
	"If evidence is insufficient for any aspect, clearly state what is missing. " +
	"Structure your answer with clear sections matching the query aspects."

// AnswerMessages builds the chat messages for answer generation. The
// evidence block is pre-formatted by the caller, one cited chunk per
// paragraph.
func AnswerMessages(system, query, evidence string) []Message {
	return []Message{
		SystemMessage(system),
		UserMessage(fmt.Sprintf("# Query\n%s\n\n# Evidence\n%s", query, evidence)),
	}
}

// SubagentFilterMessages builds the re-ranking prompt. The candidates
// block lists each candidate as "[i] file / score / preview" and the
// model is asked for a comma-separated list of the most relevant indices.
func SubagentFilterMessages(query, candidates string, count, maxResults int) []Message {
	system := "You are a code search relevance judge. Given a query and a numbered " +
		"list of search candidates, select the candidates most relevant to the query. " +
		"Respond with ONLY a comma-separated list of indices, most relevant first. " +
		"No explanation."
	user := fmt.Sprintf(
		"Query: %s\n\n%d candidates:\n\n%s\nSelect up to %d indices, comma-separated:",
		query, count, candidates, maxResults)
	return []Message{SystemMessage(system), UserMessage(user)}
}

// QueryExpansionMessages builds the prompt for one round of iterative
// query expansion. topSources are the best sources found so far, used
// to steer the alternative phrasing away from what is already covered.
func QueryExpansionMessages(originalQuery string, topSources []string, iteration int) []Message {
	summary := "(no results found)"
	if len(topSources) > 0 {
		var b strings.Builder
		for _, src := range topSources {
			fmt.Fprintf(&b, "- %s\n", src)
		}
		summary = strings.TrimRight(b.String(), "\n")
	}
	system := "You expand code search queries. Given the original query and the " +
		"sources found so far, propose ONE alternative phrasing with different " +
		"technical terms that could surface code the current results missed. " +
		"Respond with the new query only, no explanation."
	user := fmt.Sprintf(
		"Original query: %s\nIteration: %d\n\nSources found so far:\n%s\n\nNew query:",
		originalQuery, iteration, summary)
	return []Message{SystemMessage(system), UserMessage(user)}
}

// DecompositionMessages builds the prompt that splits a complex query
// into aspect sub-queries, one per line.
func DecompositionMessages(query string) []Message {
	system := "You decompose complex code analysis queries into specific sub-queries. " +
		"Each sub-query should target one specific aspect. " +
		"Return 3-5 sub-queries, one per line. No numbering or bullets."
	user := fmt.Sprintf("Decompose this query into specific search terms:\n\n%s", query)
	return []Message{SystemMessage(system), UserMessage(user)}
}
