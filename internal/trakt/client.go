// Package trakt checks linked Trakt.tv accounts for a movie's presence in
// their collection and watch history.
package trakt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultBaseURL = "https://api.trakt.tv"

	// historyPageSize and maxHistoryPages bound the per-user history scan so
	// one huge history cannot stall the whole enrichment step.
	historyPageSize = 100
	maxHistoryPages = 20

	defaultUserTimeout = 15 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	userTimeout time.Duration
	logger      *slog.Logger
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserTimeout sets the per-linked-account time budget.
func WithUserTimeout(d time.Duration) Option {
	return func(c *Client) { c.userTimeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(clientID string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		baseURL:     defaultBaseURL,
		clientID:    clientID,
		userTimeout: defaultUserTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report describes one linked account's relation to a movie.
type Report struct {
	Username     string
	InCollection bool
	WatchedAt    string // yyyy-mm-dd, empty when never watched
}

type historyEntry struct {
	WatchedAt string `json:"watched_at"`
	Movie     struct {
		IDs struct {
			TMDB int64 `json:"tmdb"`
		} `json:"ids"`
	} `json:"movie"`
}

type collectionEntry struct {
	Movie struct {
		IDs struct {
			TMDB int64 `json:"tmdb"`
		} `json:"ids"`
	} `json:"movie"`
}

// CheckMovie reports, per linked username, whether the movie is in that
// user's collection or watch history. Each account gets its own time budget;
// a failing or slow account is skipped rather than failing the whole check.
func (c *Client) CheckMovie(ctx context.Context, tmdbID string, usernames []string) []Report {
	var reports []Report
	for _, username := range usernames {
		if ctx.Err() != nil {
			break
		}

		r, err := c.checkUser(ctx, tmdbID, username)
		if err != nil {
			c.logger.Debug("trakt check skipped", "username", username, "error", err)
			continue
		}
		if r.InCollection || r.WatchedAt != "" {
			reports = append(reports, r)
		}
	}
	return reports
}

func (c *Client) checkUser(ctx context.Context, tmdbID, username string) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.userTimeout)
	defer cancel()

	r := Report{Username: username}

	var collection []collectionEntry
	if err := c.get(ctx, "/users/"+url.PathEscape(username)+"/collection/movies", &collection); err != nil {
		return Report{}, err
	}
	for _, e := range collection {
		if matchesTMDB(e.Movie.IDs.TMDB, tmdbID) {
			r.InCollection = true
			break
		}
	}

	for page := 1; page <= maxHistoryPages; page++ {
		path := fmt.Sprintf("/users/%s/history/movies?page=%d&limit=%d", url.PathEscape(username), page, historyPageSize)

		var history []historyEntry
		if err := c.get(ctx, path, &history); err != nil {
			// collection result is still worth reporting
			return r, nil
		}

		for _, e := range history {
			if matchesTMDB(e.Movie.IDs.TMDB, tmdbID) {
				if len(e.WatchedAt) >= 10 {
					r.WatchedAt = e.WatchedAt[:10]
				} else {
					r.WatchedAt = e.WatchedAt
				}
				return r, nil
			}
		}

		if len(history) < historyPageSize {
			break
		}
	}
	return r, nil
}

func matchesTMDB(id int64, tmdbID string) bool {
	return id != 0 && strconv.FormatInt(id, 10) == tmdbID
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trakt: unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
