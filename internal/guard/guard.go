// Package guard decides whether retrieval results are strong enough to
// answer from. Weak results abstain with a short reason code instead of
// letting the model improvise.
package guard

import (
	"log/slog"
	"strings"
)

// Reason codes returned to callers. Diagnostics with thresholds and
// numbers go to the log, the codes stay short to save tokens.
const (
	ReasonNoResults           = "NO_RESULTS"
	ReasonInsufficientResults = "INSUFFICIENT_RESULTS"
	ReasonLowRelevance        = "LOW_RELEVANCE"
	ReasonLowDiversity        = "LOW_DIVERSITY"
	ReasonLowQuality          = "LOW_QUALITY"
	ReasonInsufficientQuality = "INSUFFICIENT_QUALITY"
)

// Result is the slice of a search hit the guardrail looks at.
type Result struct {
	Score  float64
	Source string
}

// Limits are the quality thresholds. Zero values mean "use the default".
type Limits struct {
	MinHits      int
	MinScore     float64
	MinDiversity int
	MinAvgScore  float64
}

// DefaultLimits returns the baseline thresholds.
func DefaultLimits() Limits {
	return Limits{MinHits: 1, MinScore: 0.1, MinDiversity: 1, MinAvgScore: 0.05}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MinHits == 0 {
		l.MinHits = d.MinHits
	}
	if l.MinScore == 0 {
		l.MinScore = d.MinScore
	}
	if l.MinDiversity == 0 {
		l.MinDiversity = d.MinDiversity
	}
	if l.MinAvgScore == 0 {
		l.MinAvgScore = d.MinAvgScore
	}
	return l
}

func stats(results []Result) (maxScore, avgScore float64, uniqueSources int) {
	seen := make(map[string]struct{})
	var sum float64
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
		sum += r.Score
		seen[r.Source] = struct{}{}
	}
	if len(results) > 0 {
		avgScore = sum / float64(len(results))
	}
	return maxScore, avgScore, len(seen)
}

// ShouldAbstain reports whether the results fail any quality check.
func ShouldAbstain(results []Result, limits Limits) bool {
	return Reason(results, limits) != ""
}

// Reason returns the code of the first failed check, or empty when the
// results pass. Checks run in a fixed order so the code is deterministic.
func Reason(results []Result, limits Limits) string {
	limits = limits.withDefaults()

	if len(results) == 0 {
		slog.Debug("abstain: no relevant results found")
		return ReasonNoResults
	}
	if len(results) < limits.MinHits {
		slog.Debug("abstain: insufficient results",
			"found", len(results), "required", limits.MinHits)
		return ReasonInsufficientResults
	}

	maxScore, avgScore, uniqueSources := stats(results)
	if maxScore < limits.MinScore {
		slog.Debug("abstain: low relevance",
			"max_score", maxScore, "threshold", limits.MinScore)
		return ReasonLowRelevance
	}
	if uniqueSources < limits.MinDiversity {
		slog.Debug("abstain: low diversity",
			"unique_sources", uniqueSources, "required", limits.MinDiversity)
		return ReasonLowDiversity
	}
	if avgScore < limits.MinAvgScore {
		slog.Debug("abstain: low average quality",
			"avg_score", avgScore, "threshold", limits.MinAvgScore)
		return ReasonLowQuality
	}
	return ""
}

// SuggestImprovements logs query improvement hints for a failed search.
// Hints never travel back to the caller, they are for the operator log.
func SuggestImprovements(query string, results []Result) {
	var suggestions []string

	words := strings.Fields(query)
	if len(query) < 10 {
		suggestions = append(suggestions, "query too short, provide more context")
	}
	if len(words) == 1 {
		suggestions = append(suggestions, "use multiple keywords to improve accuracy")
	}
	if len(results) > 0 {
		_, avgScore, uniqueSources := stats(results)
		if avgScore < 0.2 {
			suggestions = append(suggestions, "low keyword match, try synonyms or related terms")
		}
		if uniqueSources < 2 && len(results) > 2 {
			suggestions = append(suggestions, "results concentrated in few files, name specific functions or modules")
		}
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "use actual file, function, or class names from the codebase")
	}
	slog.Debug("query suggestions", "query", query, "suggestions", suggestions)
}
