package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcin-skalski/mondrian/internal/fetch"
	"github.com/marcin-skalski/mondrian/internal/gerrit"
	"github.com/marcin-skalski/mondrian/internal/status"
)

type CIClient interface {
	LatestCompletedBuild(ctx context.Context, job string) (status.JobResult, error)
}

type ReviewClient interface {
	ListOpenChanges(ctx context.Context) ([]gerrit.ChangeSummary, error)
	ChangeDetail(ctx context.Context, id string) (status.Labels, error)
}

// JobCategory is a named, fixed set of CI jobs.
type JobCategory struct {
	name status.Category
	jobs []string
}

func NewJobCategory(name status.Category, jobs []string) JobCategory {
	return JobCategory{name: name, jobs: append([]string(nil), jobs...)}
}

func (c JobCategory) Name() status.Category { return c.name }

func (c JobCategory) Jobs() []string { return append([]string(nil), c.jobs...) }

// ReviewLimits holds the thresholds for the two review categories.
type ReviewLimits struct {
	Label          string
	ReadyForReview status.Thresholds
	Reviewed       status.Thresholds
}

type Aggregator struct {
	ci     CIClient
	review ReviewClient
	limits ReviewLimits
	logger *slog.Logger
}

func NewAggregator(ci CIClient, review ReviewClient, limits ReviewLimits, logger *slog.Logger) *Aggregator {
	if limits.Label == "" {
		limits.Label = status.DefaultReviewLabel
	}
	return &Aggregator{ci: ci, review: review, limits: limits, logger: logger}
}

// isolated reports whether a single fetch failure may be skipped without
// failing the whole cycle.
func isolated(err error) bool {
	return errors.Is(err, fetch.ErrConnection) || errors.Is(err, fetch.ErrNotFound)
}

// JobLevel fetches the latest completed build of every job in the category.
// Jobs that are unreachable or missing contribute nothing.
func (a *Aggregator) JobLevel(ctx context.Context, cat JobCategory) (status.Level, error) {
	results := make([]status.JobResult, 0, len(cat.jobs))
	for _, job := range cat.jobs {
		res, err := a.ci.LatestCompletedBuild(ctx, job)
		if err != nil {
			if ctx.Err() == nil && isolated(err) {
				a.logger.Warn("skipping job", "category", cat.name, "job", job, "err", err)
				continue
			}
			return 0, fmt.Errorf("category %s: %w", cat.name, err)
		}
		results = append(results, res)
	}

	level := status.JobLevel(results)
	a.logger.Debug("category classified",
		"category", cat.name,
		"jobs", len(cat.jobs),
		"results", len(results),
		"level", level)
	return level, nil
}

// ReviewCounts fetches all open changes and counts them per review bucket.
// A change whose detail is unreachable or gone is skipped; failing to list
// changes is not isolated.
func (a *Aggregator) ReviewCounts(ctx context.Context) (status.ReviewCounts, error) {
	changes, err := a.review.ListOpenChanges(ctx)
	if err != nil {
		return status.ReviewCounts{}, fmt.Errorf("review: %w", err)
	}

	labels := make([]status.Labels, 0, len(changes))
	for _, ch := range changes {
		l, err := a.review.ChangeDetail(ctx, ch.ID)
		if err != nil {
			if ctx.Err() == nil && isolated(err) {
				a.logger.Warn("skipping change", "change", ch.ID, "err", err)
				continue
			}
			return status.ReviewCounts{}, fmt.Errorf("review: %w", err)
		}
		labels = append(labels, l)
	}

	counts := status.Count(labels, a.limits.Label)
	a.logger.Debug("changes classified",
		"open", len(changes),
		"ready_for_review", counts.Ready,
		"reviewed", counts.Reviewed)
	return counts, nil
}

// ReviewLevels maps review counts through the configured thresholds.
func (a *Aggregator) ReviewLevels(counts status.ReviewCounts) (ready, reviewed status.Level) {
	return a.limits.ReadyForReview.Level(counts.Ready), a.limits.Reviewed.Level(counts.Reviewed)
}
