// Package gateway holds clients for external proof sources.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/usecase"
)

// LeetCodeGateway fetches a user's latest accepted submission from an
// alfa-leetcode-api compatible endpoint.
type LeetCodeGateway struct {
	apiBase string
	client  *http.Client
}

func NewLeetCodeGateway(apiBase string) *LeetCodeGateway {
	return &LeetCodeGateway{
		apiBase: apiBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type acSubmission struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	Timestamp any    `json:"timestamp"`
}

// acSubmissionResponse tolerates the response shapes the API has shipped
// over time: the list has appeared under "submission", "data" and
// "submissions".
type acSubmissionResponse struct {
	Submission  []acSubmission `json:"submission"`
	Data        []acSubmission `json:"data"`
	Submissions []acSubmission `json:"submissions"`
}

func (r acSubmissionResponse) items() []acSubmission {
	if len(r.Submission) > 0 {
		return r.Submission
	}
	if len(r.Data) > 0 {
		return r.Data
	}
	return r.Submissions
}

func (g *LeetCodeGateway) FetchLatestAcceptedEvent(ctx context.Context, handle string) (*domain.ProofEvent, error) {
	endpoint := fmt.Sprintf("%s/%s/acSubmission?limit=1", g.apiBase, url.PathEscape(handle))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %v", handle, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proof source request failed for %s: %v", handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("proof source returned %d for %s", resp.StatusCode, handle)
	}

	var body acSubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode proof source response for %s: %v", handle, err)
	}

	items := body.items()
	if len(items) == 0 {
		return nil, nil
	}

	latest := items[0]
	ts, err := normalizeTimestamp(latest.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp for %s: %v", handle, err)
	}

	return &domain.ProofEvent{
		ID:        latest.TitleSlug + ":" + strconv.FormatInt(ts.Unix(), 10),
		Title:     latest.Title,
		Slug:      latest.TitleSlug,
		Timestamp: ts,
	}, nil
}

// normalizeTimestamp accepts the timestamp as a number or a numeric string,
// in seconds or milliseconds. Values at or above 1e12 are treated as
// milliseconds.
func normalizeTimestamp(raw any) (time.Time, error) {
	var value int64
	switch v := raw.(type) {
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		value = parsed
	case float64:
		value = int64(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", raw)
	}

	if value >= 1_000_000_000_000 {
		return time.UnixMilli(value).UTC(), nil
	}
	return time.Unix(value, 0).UTC(), nil
}

// ProblemURL builds the public problem page for a slug, used as the proof
// link on auto-verified check-ins.
func ProblemURL(slug string) string {
	return "https://leetcode.com/problems/" + slug + "/"
}

var _ usecase.ProofSource = (*LeetCodeGateway)(nil)
