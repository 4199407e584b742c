package status

import "fmt"

// Level is the severity shown for a category. Levels are ordered
// Good < AlmostGood < AlmostBad < Bad.
type Level int

const (
	Good Level = iota
	AlmostGood
	AlmostBad
	Bad
)

func (l Level) String() string {
	switch l {
	case Good:
		return "good"
	case AlmostGood:
		return "almost_good"
	case AlmostBad:
		return "almost_bad"
	case Bad:
		return "bad"
	default:
		return "unknown"
	}
}

type Category string

const (
	CategoryBuild          Category = "build"
	CategoryCITests        Category = "ci-tests"
	CategoryOtherTests     Category = "other-tests"
	CategoryReadyForReview Category = "ready-for-review"
	CategoryReviewed       Category = "reviewed"
)

// Categories lists every monitored category in publish order.
var Categories = []Category{
	CategoryBuild,
	CategoryCITests,
	CategoryOtherTests,
	CategoryReadyForReview,
	CategoryReviewed,
}

// Outcome is the result of a completed CI build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeUnstable Outcome = "UNSTABLE"
	OutcomeFailure  Outcome = "FAILURE"
	OutcomeAborted  Outcome = "ABORTED"
	OutcomeNotBuilt Outcome = "NOT_BUILT"
)

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeSuccess, OutcomeUnstable, OutcomeFailure, OutcomeAborted, OutcomeNotBuilt:
		return o, nil
	default:
		return "", fmt.Errorf("unknown build outcome %q", s)
	}
}

type JobResult struct {
	Job     string
	Number  int
	Outcome Outcome
}

// Partition buckets results by outcome. Every outcome has an entry, possibly empty.
func Partition(results []JobResult) map[Outcome][]JobResult {
	p := map[Outcome][]JobResult{
		OutcomeSuccess:  nil,
		OutcomeUnstable: nil,
		OutcomeFailure:  nil,
		OutcomeAborted:  nil,
		OutcomeNotBuilt: nil,
	}
	for _, r := range results {
		p[r.Outcome] = append(p[r.Outcome], r)
	}
	return p
}

// JobLevel reduces a category's results to one level. Failures dominate, then
// instability; Good requires at least one success, so an empty or
// aborted/not-built-only set is AlmostGood.
func JobLevel(results []JobResult) Level {
	p := Partition(results)
	switch {
	case len(p[OutcomeFailure]) > 0:
		return Bad
	case len(p[OutcomeUnstable]) > 0:
		return AlmostBad
	case len(p[OutcomeSuccess]) > 0:
		return Good
	default:
		return AlmostGood
	}
}

// Thresholds maps a count to a level. Good is an exact match, the other tiers
// are strict upper bounds.
type Thresholds struct {
	Good       int `yaml:"good"`
	AlmostGood int `yaml:"almost_good"`
	AlmostBad  int `yaml:"almost_bad"`
}

func (t Thresholds) Level(count int) Level {
	switch {
	case count == t.Good:
		return Good
	case count < t.AlmostGood:
		return AlmostGood
	case count < t.AlmostBad:
		return AlmostBad
	default:
		return Bad
	}
}

func (t Thresholds) Validate() error {
	if t.Good < 0 {
		return fmt.Errorf("good must not be negative, got %d", t.Good)
	}
	if t.Good >= t.AlmostGood {
		return fmt.Errorf("good (%d) must be below almost_good (%d)", t.Good, t.AlmostGood)
	}
	if t.AlmostGood > t.AlmostBad {
		return fmt.Errorf("almost_good (%d) must not exceed almost_bad (%d)", t.AlmostGood, t.AlmostBad)
	}
	return nil
}
