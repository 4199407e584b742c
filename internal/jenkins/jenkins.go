package jenkins

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/marcin-skalski/mondrian/internal/fetch"
	"github.com/marcin-skalski/mondrian/internal/status"
)

type Client struct {
	baseURL string
	http    *fetch.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, http *fetch.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		logger:  logger,
	}
}

type buildJSON struct {
	Number int     `json:"number"`
	Result *string `json:"result"`
}

type jobListJSON struct {
	Jobs []struct {
		Name string `json:"name"`
	} `json:"jobs"`
}

// LatestCompletedBuild returns the outcome of the job's last completed build.
// A job that has never completed a build is reported as fetch.ErrNotFound.
func (c *Client) LatestCompletedBuild(ctx context.Context, job string) (status.JobResult, error) {
	u := c.baseURL + jobPath(job) + "/lastCompletedBuild/api/json?tree=number,result"

	body, err := c.http.Get(ctx, u)
	if err != nil {
		return status.JobResult{}, fmt.Errorf("latest build of %s: %w", job, err)
	}

	var b buildJSON
	if err := fetch.Decode(body, &b); err != nil {
		return status.JobResult{}, fmt.Errorf("parse build of %s: %w", job, err)
	}
	if b.Result == nil {
		return status.JobResult{}, fmt.Errorf("%w: build %s #%d has no result", fetch.ErrParse, job, b.Number)
	}

	outcome, err := status.ParseOutcome(*b.Result)
	if err != nil {
		return status.JobResult{}, fmt.Errorf("%w: build %s #%d: %v", fetch.ErrParse, job, b.Number, err)
	}

	c.logger.Debug("latest build", "job", job, "number", b.Number, "outcome", outcome)
	return status.JobResult{Job: job, Number: b.Number, Outcome: outcome}, nil
}

// ListJobs returns the names of all top-level jobs on the server.
func (c *Client) ListJobs(ctx context.Context) ([]string, error) {
	body, err := c.http.Get(ctx, c.baseURL+"/api/json?tree=jobs[name]")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	var l jobListJSON
	if err := fetch.Decode(body, &l); err != nil {
		return nil, fmt.Errorf("parse jobs: %w", err)
	}

	names := make([]string, 0, len(l.Jobs))
	for _, j := range l.Jobs {
		names = append(names, j.Name)
	}
	return names, nil
}

// jobPath maps "folder/job" to "/job/folder/job/job".
func jobPath(job string) string {
	var b strings.Builder
	for _, part := range strings.Split(job, "/") {
		if part == "" {
			continue
		}
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(part))
	}
	return b.String()
}
