package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The narrative endpoint historically returned either a single object or a
// one-element array. Both shapes are normalized here, at the boundary, so
// nothing downstream ever sees the raw payload.

// DecodeInsightPayload parses a narrative-insight response body. A missing
// body, an empty array, or an all-blank object normalizes to nil (no insight).
func DecodeInsightPayload(testID string, payload []byte) (*AIInsight, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var one AIInsight
	if strings.HasPrefix(trimmed, "[") {
		var many []AIInsight
		if err := json.Unmarshal(payload, &many); err != nil {
			return nil, fmt.Errorf("decode insight array: %w", err)
		}
		if len(many) == 0 {
			return nil, nil
		}
		one = many[0]
	} else {
		if err := json.Unmarshal(payload, &one); err != nil {
			return nil, fmt.Errorf("decode insight object: %w", err)
		}
	}
	one.TestID = testID
	return sanitizeInsight(&one), nil
}

// sanitizeInsight blanks "null"-equivalent narrative fields and collapses a
// fully empty insight to nil.
func sanitizeInsight(ai *AIInsight) *AIInsight {
	if ai == nil {
		return nil
	}
	ai.Comparison = CleanNarrative(ai.Comparison)
	ai.PurchaseDrivers = CleanNarrative(ai.PurchaseDrivers)
	ai.CompetitiveInsightA = CleanNarrative(ai.CompetitiveInsightA)
	ai.CompetitiveInsightB = CleanNarrative(ai.CompetitiveInsightB)
	ai.CompetitiveInsightC = CleanNarrative(ai.CompetitiveInsightC)
	ai.CommentSummary = CleanNarrative(ai.CommentSummary)
	ai.Recommendations = CleanNarrative(ai.Recommendations)

	if ai.Comparison == "" && ai.PurchaseDrivers == "" &&
		ai.CompetitiveInsightA == "" && ai.CompetitiveInsightB == "" && ai.CompetitiveInsightC == "" &&
		ai.CommentSummary == "" && ai.Recommendations == "" {
		return nil
	}
	return ai
}

// CleanNarrative maps "null"-equivalent strings to "". Sections render only
// when a narrative is genuinely present.
func CleanNarrative(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "n/a", "none":
		return ""
	}
	return s
}

// HasNarrative reports whether the cleaned value is renderable.
func HasNarrative(s string) bool {
	return CleanNarrative(s) != ""
}
