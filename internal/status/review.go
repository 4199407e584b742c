package status

import "encoding/json"

// DefaultReviewLabel is the label inspected when none is configured.
const DefaultReviewLabel = "Code-Review"

// Labels is a change's label map: label name to the fields the review server
// reports for it (approved, rejected, value, all, ...).
type Labels map[string]map[string]json.RawMessage

type ReviewState int

const (
	ReviewNeither ReviewState = iota
	ReviewReady
	ReviewReviewed
)

func (s ReviewState) String() string {
	switch s {
	case ReviewReady:
		return "ready_for_review"
	case ReviewReviewed:
		return "reviewed"
	default:
		return "neither"
	}
}

var verdictFields = []string{"approved", "rejected", "value"}

func hasVerdict(fields map[string]json.RawMessage) bool {
	for _, f := range verdictFields {
		if _, ok := fields[f]; ok {
			return true
		}
	}
	return false
}

// IsReadyForReview reports whether the label exists and carries no verdict.
func IsReadyForReview(labels Labels, label string) bool {
	fields, ok := labels[label]
	return ok && !hasVerdict(fields)
}

// IsReviewed reports whether the label exists and carries a verdict.
func IsReviewed(labels Labels, label string) bool {
	fields, ok := labels[label]
	return ok && hasVerdict(fields)
}

// ClassifyReview places a change in exactly one bucket. A change without the
// label satisfies neither predicate and is left out of both counts.
func ClassifyReview(labels Labels, label string) ReviewState {
	switch {
	case IsReadyForReview(labels, label):
		return ReviewReady
	case IsReviewed(labels, label):
		return ReviewReviewed
	default:
		return ReviewNeither
	}
}

type ReviewCounts struct {
	Ready    int
	Reviewed int
}

// Count classifies every change from scratch.
func Count(changes []Labels, label string) ReviewCounts {
	var c ReviewCounts
	for _, l := range changes {
		switch ClassifyReview(l, label) {
		case ReviewReady:
			c.Ready++
		case ReviewReviewed:
			c.Reviewed++
		}
	}
	return c
}
