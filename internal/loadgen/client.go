package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/dailyboard/internal/domain/model"
)

// Submission outcomes.
const (
	outcomeRanked    = "ranked"
	outcomeNotRanked = "not_ranked"
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// Client talks to the leaderboard HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

type serverStats struct {
	MaxResults  int64 `json:"maxResults"`
	QueueLength int   `json:"queueLength"`
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz status %d", resp.StatusCode)
	}
	return nil
}

// Stats reads /stats.
func (c *Client) Stats(ctx context.Context) (serverStats, error) {
	var s serverStats
	resp, err := c.get(ctx, "/stats")
	if err != nil {
		return s, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return s, fmt.Errorf("stats status %d", resp.StatusCode)
	}
	return s, json.NewDecoder(resp.Body).Decode(&s)
}

// Submit posts one result and classifies the response.
func (c *Client) Submit(ctx context.Context, sub model.ResultSubmission, async bool) (string, error) { //nolint:gocritic // hugeParam: matches the API body
	body, err := json.Marshal(sub)
	if err != nil {
		return outcomeFailed, err
	}
	path := "/results"
	if async {
		path += "?async=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return outcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeAccepted, nil
	case http.StatusOK:
		var out struct {
			Rank      *int `json:"rank"`
			Duplicate bool `json:"duplicate"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return outcomeFailed, err
		}
		switch {
		case out.Duplicate:
			return outcomeDuplicate, nil
		case out.Rank != nil && *out.Rank > 0:
			return outcomeRanked, nil
		default:
			return outcomeNotRanked, nil
		}
	default:
		msg, _ := io.ReadAll(resp.Body)
		return outcomeFailed, fmt.Errorf("submit status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
}

// Board pages through today's leaderboard of the mode triple.
func (c *Client) Board(ctx context.Context, language, mode, submode string, pageSize int) ([]model.RankedEntry, error) {
	var all []model.RankedEntry
	for minRank := 0; ; minRank += pageSize {
		q := url.Values{}
		q.Set("min", strconv.Itoa(minRank))
		q.Set("max", strconv.Itoa(minRank+pageSize-1))
		path := fmt.Sprintf("/leaderboards/daily/%s/%s/%s?%s",
			url.PathEscape(language), url.PathEscape(mode), url.PathEscape(submode), q.Encode())

		resp, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		var page []model.RankedEntry
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("leaderboard status %d", resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}
