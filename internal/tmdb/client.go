// Package tmdb is a small client for The Movie Database REST API covering
// movie search, lookup by id and trailer resolution.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL  = "https://image.tmdb.org/t/p/w500"

	// minQueryLen gates autocomplete lookups; shorter input returns nothing.
	minQueryLen = 3

	// maxSuggestions caps autocomplete results.
	maxSuggestions = 10
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = errors.New("tmdb: movie not found")

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Movie is the subset of TMDB movie fields the bot renders.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	IMDBID      string  `json:"imdb_id"`
}

// Year returns the release year for display, with a placeholder when the
// release date is unknown.
func (m Movie) Year() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return "????"
}

// PosterURL returns the full poster image URL, or empty when TMDB has none.
func (m Movie) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	return posterBaseURL + m.PosterPath
}

// SearchMovies runs a free-text search and returns at most ten candidates.
// Queries shorter than three characters return no results without a request.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	if len(query) < minQueryLen {
		return nil, nil
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("language", "en-US")
	q.Set("include_adult", "false")

	var resp struct {
		Results []Movie `json:"results"`
	}
	if err := c.get(ctx, "/search/movie?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	results := resp.Results
	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}
	return results, nil
}

// MovieByID fetches full movie details, including the IMDb id.
func (c *Client) MovieByID(ctx context.Context, tmdbID string) (*Movie, error) {
	var m Movie
	if err := c.get(ctx, "/movie/"+url.PathEscape(tmdbID)+"?language=en-US", &m); err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, ErrNotFound
	}
	return &m, nil
}

// TrailerURL returns the YouTube link of the movie's first trailer, or empty
// when TMDB lists none.
func (c *Client) TrailerURL(ctx context.Context, tmdbID string) (string, error) {
	var resp struct {
		Results []struct {
			Site string `json:"site"`
			Type string `json:"type"`
			Key  string `json:"key"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/movie/"+url.PathEscape(tmdbID)+"/videos?language=en-US", &resp); err != nil {
		return "", err
	}

	for _, v := range resp.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			return "https://www.youtube.com/watch?v=" + v.Key, nil
		}
	}
	return "", nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
