package daemon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mondrian/internal/fetch"
	"github.com/marcin-skalski/mondrian/internal/gerrit"
	"github.com/marcin-skalski/mondrian/internal/jenkins"
	"github.com/marcin-skalski/mondrian/internal/status"
)

func TestAggregator_JobLevel(t *testing.T) {
	tests := []struct {
		name string
		jobs []string
		errs map[string]error
		want status.Level
	}{
		{name: "all success", jobs: []string{"build"}, want: status.Good},
		{name: "unstable wins over success", jobs: []string{"build", "integ"}, want: status.AlmostBad},
		{name: "failure wins", jobs: []string{"build", "integ", "e2e"}, want: status.Bad},
		{name: "only aborted", jobs: []string{"lint"}, want: status.AlmostGood},
		{name: "no jobs", jobs: nil, want: status.AlmostGood},
		{
			name: "failed job unreachable",
			jobs: []string{"build", "e2e"},
			errs: map[string]error{"e2e": fetch.ErrConnection},
			want: status.Good,
		},
		{
			name: "missing job",
			jobs: []string{"unit"},
			errs: map[string]error{"unit": fetch.ErrNotFound},
			want: status.AlmostGood,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ci := healthyCI()
			for job, err := range tt.errs {
				ci.errs[job] = err
			}
			agg := NewAggregator(ci, reviewWith(0, 0), limits, testLogger())

			got, err := agg.JobLevel(context.Background(), NewJobCategory(status.CategoryBuild, tt.jobs))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.jobs, append([]string(nil), ci.calls...))
		})
	}
}

func TestAggregator_JobLevelPropagatesFatal(t *testing.T) {
	ci := healthyCI()
	ci.errs["build"] = fmt.Errorf("status 401: %w", fmt.Errorf("unauthorized"))
	agg := NewAggregator(ci, reviewWith(0, 0), limits, testLogger())

	_, err := agg.JobLevel(context.Background(), NewJobCategory(status.CategoryBuild, []string{"build", "unit"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category build")
	assert.Equal(t, []string{"build"}, ci.calls)
}

func TestAggregator_JobLevelUnauthorizedIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	ci := jenkins.NewClient(server.URL, fetch.NewClient(fetch.Options{User: "ci", Password: "stale"}, testLogger()), testLogger())
	agg := NewAggregator(ci, reviewWith(0, 0), limits, testLogger())

	_, err := agg.JobLevel(context.Background(), NewJobCategory(status.CategoryBuild, []string{"build"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrStatus)
	assert.NotErrorIs(t, err, fetch.ErrConnection)
}

func TestAggregator_JobLevelCancelledIsNotIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ci := healthyCI()
	ci.errs["build"] = fetch.ErrConnection
	agg := NewAggregator(ci, reviewWith(0, 0), limits, testLogger())

	_, err := agg.JobLevel(ctx, NewJobCategory(status.CategoryBuild, []string{"build"}))
	assert.ErrorIs(t, err, fetch.ErrConnection)
}

func TestAggregator_ReviewCounts(t *testing.T) {
	review := reviewWith(2, 3)
	review.changes = append(review.changes,
		gerrit.ChangeSummary{ID: "unlabelled"},
		gerrit.ChangeSummary{ID: "gone"})
	review.detailErrs = map[string]error{"gone": fmt.Errorf("change gone: %w", fetch.ErrNotFound)}

	agg := NewAggregator(healthyCI(), review, limits, testLogger())
	counts, err := agg.ReviewCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.ReviewCounts{Ready: 2, Reviewed: 3}, counts)

	ready, reviewed := agg.ReviewLevels(counts)
	assert.Equal(t, status.AlmostGood, ready)
	assert.Equal(t, status.AlmostBad, reviewed)
}

func TestAggregator_ReviewCountsCustomLabel(t *testing.T) {
	review := &fakeReview{
		changes: []gerrit.ChangeSummary{{ID: "a"}, {ID: "b"}},
		labels: map[string]string{
			"a": `{"Verified": {}}`,
			"b": `{"Code-Review": {}}`,
		},
	}
	agg := NewAggregator(healthyCI(), review, ReviewLimits{Label: "Verified"}, testLogger())

	counts, err := agg.ReviewCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.ReviewCounts{Ready: 1}, counts)
}

func TestAggregator_ReviewCountsIsolatesUnreachableDetail(t *testing.T) {
	review := reviewWith(2, 1)
	review.detailErrs = map[string]error{"ready-0": fmt.Errorf("change ready-0 detail: %w", fetch.ErrConnection)}

	agg := NewAggregator(healthyCI(), review, limits, testLogger())
	counts, err := agg.ReviewCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.ReviewCounts{Ready: 1, Reviewed: 1}, counts)
}

func TestAggregator_ReviewCountsDetailFatalErrors(t *testing.T) {
	for _, sentinel := range []error{fetch.ErrParse, fetch.ErrStatus} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			review := reviewWith(1, 0)
			review.detailErrs = map[string]error{"ready-0": fmt.Errorf("change ready-0 detail: %w", sentinel)}

			agg := NewAggregator(healthyCI(), review, limits, testLogger())
			_, err := agg.ReviewCounts(context.Background())
			assert.ErrorIs(t, err, sentinel)
		})
	}
}

func TestAggregator_ReviewCountsListErrorIsFatal(t *testing.T) {
	review := reviewWith(0, 0)
	review.listErr = fetch.ErrNotFound

	agg := NewAggregator(healthyCI(), review, limits, testLogger())
	_, err := agg.ReviewCounts(context.Background())
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestSinks(t *testing.T) {
	var got []string
	record := func(prefix string) SinkFuncs {
		return SinkFuncs{
			OnPublish: func(c status.Category, l status.Level) {
				got = append(got, fmt.Sprintf("%s:%s=%s", prefix, c, l))
			},
			OnShutdown: func() { got = append(got, prefix+":shutdown") },
		}
	}

	sinks := Sinks{record("a"), SinkFuncs{}, record("b"), NewLogSink(testLogger())}
	sinks.Publish(status.CategoryReviewed, status.Bad)
	sinks.PublishShutdown()

	assert.Equal(t, []string{
		"a:reviewed=bad",
		"b:reviewed=bad",
		"a:shutdown",
		"b:shutdown",
	}, got)
}

func TestLifecycle(t *testing.T) {
	lc, err := newLifecycle()
	require.NoError(t, err)
	assert.Equal(t, Stopped, lc.state())

	assert.Error(t, lc.fire(eventStop))
	assert.Error(t, lc.fire(eventFault))

	require.NoError(t, lc.fire(eventStart))
	assert.Equal(t, Running, lc.state())
	assert.Error(t, lc.fire(eventStart))

	require.NoError(t, lc.fire(eventStop))
	assert.Equal(t, Stopped, lc.state())

	require.NoError(t, lc.fire(eventStart))
	require.NoError(t, lc.fire(eventFault))
	assert.Equal(t, Faulted, lc.state())

	for _, ev := range []string{eventStart, eventStop, eventFault} {
		assert.Error(t, lc.fire(ev), ev)
	}
	assert.Equal(t, Faulted, lc.state())
}
