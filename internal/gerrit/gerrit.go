package gerrit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/marcin-skalski/mondrian/internal/fetch"
	"github.com/marcin-skalski/mondrian/internal/status"
)

// Every JSON response starts with ")]}'\n" to defeat XSSI.
const magicPrefixLen = 5

const DefaultPageSize = 100

type Client struct {
	baseURL  string
	pageSize int
	http     *fetch.Client
	logger   *slog.Logger
}

func NewClient(baseURL string, pageSize int, http *fetch.Client, logger *slog.Logger) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	base := strings.TrimRight(baseURL, "/")
	if http.HasAuth() {
		base += "/a"
	}
	return &Client{
		baseURL:  base,
		pageSize: pageSize,
		http:     http,
		logger:   logger,
	}
}

type ChangeSummary struct {
	ID          string `json:"id"`
	Number      int    `json:"_number"`
	Project     string `json:"project"`
	Subject     string `json:"subject"`
	MoreChanges bool   `json:"_more_changes"`
}

type changeDetail struct {
	Labels status.Labels `json:"labels"`
}

// ListOpenChanges returns every open change, following pagination.
func (c *Client) ListOpenChanges(ctx context.Context) ([]ChangeSummary, error) {
	var all []ChangeSummary
	for {
		q := url.Values{}
		q.Set("q", "status:open")
		q.Set("n", fmt.Sprint(c.pageSize))
		if len(all) > 0 {
			q.Set("S", fmt.Sprint(len(all)))
		}

		var page []ChangeSummary
		if err := c.get(ctx, c.baseURL+"/changes/?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("list open changes: %w", err)
		}
		all = append(all, page...)

		if len(page) == 0 || !page[len(page)-1].MoreChanges {
			break
		}
	}

	c.logger.Debug("open changes", "count", len(all))
	return all, nil
}

// ChangeDetail returns the label map of a change.
func (c *Client) ChangeDetail(ctx context.Context, id string) (status.Labels, error) {
	var d changeDetail
	if err := c.get(ctx, c.baseURL+"/changes/"+url.PathEscape(id)+"/detail", &d); err != nil {
		return nil, fmt.Errorf("change %s detail: %w", id, err)
	}
	if d.Labels == nil {
		d.Labels = status.Labels{}
	}
	return d.Labels, nil
}

func (c *Client) get(ctx context.Context, u string, v any) error {
	body, err := c.http.Get(ctx, u)
	if err != nil {
		return err
	}
	if len(body) < magicPrefixLen {
		return fmt.Errorf("%w: response of %d bytes is shorter than the magic prefix", fetch.ErrParse, len(body))
	}
	return fetch.Decode(body[magicPrefixLen:], v)
}
