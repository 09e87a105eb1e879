// Package tmdbapi implements the external lookup adapter (C3): the
// contract with the movie-database collaborator. Idempotent detail
// fetches retry up to 3 times on transient network error with exponential
// backoff (base 500ms, factor 2, jitter); searches do not retry on empty
// results. Requests are serialized with at least 50ms spacing via a
// token-bucket rate limiter.
package tmdbapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	BaseURL        = "https://api.themoviedb.org/3"
	DefaultTimeout = 15 * time.Second // per spec §5: movie-database 15s per request

	retryMaxAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond
	retryFactor      = 2
)

// Client is the movie-database HTTP collaborator. A bearer token is
// preferred over an API key; whichever is set travels in the
// Authorization header and is never logged.
type Client struct {
	apiKey      string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	details     *detailCache
	seasons     *seasonCache
	baseURL     string
}

// Config configures a Client. Either APIKey or BearerToken must be set.
type Config struct {
	APIKey      string
	BearerToken string
	Timeout     time.Duration
	// RateLimitSpacing is the minimum interval between requests; defaults
	// to 50ms per spec §3/§5.
	RateLimitSpacing time.Duration
}

// NewClient constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BearerToken == "" {
		return nil, fmt.Errorf("tmdbapi: either an API key or a bearer token is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimitSpacing == 0 {
		cfg.RateLimitSpacing = 50 * time.Millisecond
	}
	return &Client{
		apiKey:      cfg.APIKey,
		bearerToken: cfg.BearerToken,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Every(cfg.RateLimitSpacing), 1),
		details:     newDetailCache(),
		seasons:     newSeasonCache(),
		baseURL:     BaseURL,
	}, nil
}

// get performs a single rate-limited GET. retry controls whether
// transient errors are retried (idempotent get_* calls) or surfaced
// immediately (search calls).
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, retry bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	apiURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())

	attempts := 1
	if retry {
		attempts = retryMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			delay += time.Duration(rand.Int63n(int64(delay) / 2))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if c.bearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.bearerToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			log.Debug().Str("endpoint", endpoint).Int("attempt", attempt+1).Err(err).Msg("tmdb request error, will retry if eligible")
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		if resp.StatusCode >= 500 && retry {
			lastErr = fmt.Errorf("tmdb returned status %d", resp.StatusCode)
			continue
		}
		return nil, fmt.Errorf("tmdb returned status %d", resp.StatusCode)
	}
	return nil, lastErr
}

// SearchMovie implements search_movie. Does not retry.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*SearchMovieResponse, error) {
	params := url.Values{"query": {title}}
	if year > 0 {
		params.Set("year", fmt.Sprintf("%d", year))
	}
	body, err := c.get(ctx, "/search/movie", params, false)
	if err != nil {
		return nil, err
	}
	var out SearchMovieResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse movie search: %w", err)
	}
	return &out, nil
}

// SearchTV implements search_tv. Does not retry.
func (c *Client) SearchTV(ctx context.Context, name string, year int) (*SearchTVResponse, error) {
	params := url.Values{"query": {name}}
	if year > 0 {
		params.Set("first_air_date_year", fmt.Sprintf("%d", year))
	}
	body, err := c.get(ctx, "/search/tv", params, false)
	if err != nil {
		return nil, err
	}
	var out SearchTVResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse tv search: %w", err)
	}
	return &out, nil
}

// GetMovieDetails implements get_movie_details. Retries on transient error.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	key := fmt.Sprintf("movie:%d", id)
	if cached, ok := c.details.get(key); ok {
		return cached.(*MovieDetails), nil
	}
	params := url.Values{"append_to_response": {"credits"}}
	body, err := c.get(ctx, fmt.Sprintf("/movie/%d", id), params, true)
	if err != nil {
		return nil, err
	}
	var out MovieDetails
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse movie details: %w", err)
	}
	c.details.set(key, &out)
	return &out, nil
}

// GetTVHierarchy implements get_tv_hierarchy: show details, plus season
// (cached per show/season) and, if requested, one episode's record.
func (c *Client) GetTVHierarchy(ctx context.Context, id, season int, episode *int) (*TVDetails, *SeasonDetails, *EpisodeDetail, error) {
	showKey := fmt.Sprintf("tv:%d", id)
	var show *TVDetails
	if cached, ok := c.details.get(showKey); ok {
		show = cached.(*TVDetails)
	} else {
		params := url.Values{"append_to_response": {"credits"}}
		body, err := c.get(ctx, fmt.Sprintf("/tv/%d", id), params, true)
		if err != nil {
			return nil, nil, nil, err
		}
		show = &TVDetails{}
		if err := json.Unmarshal(body, show); err != nil {
			return nil, nil, nil, fmt.Errorf("parse tv details: %w", err)
		}
		c.details.set(showKey, show)
	}

	seasonPayload, ok := c.seasons.get(id, season)
	if !ok {
		body, err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", id, season), nil, true)
		if err != nil {
			return show, nil, nil, err
		}
		seasonPayload = &SeasonDetails{}
		if err := json.Unmarshal(body, seasonPayload); err != nil {
			return show, nil, nil, fmt.Errorf("parse season details: %w", err)
		}
		c.seasons.set(id, season, seasonPayload)
	}

	var ep *EpisodeDetail
	if episode != nil {
		for i := range seasonPayload.Episodes {
			if seasonPayload.Episodes[i].EpisodeNumber == *episode {
				ep = &seasonPayload.Episodes[i]
				break
			}
		}
	}
	return show, seasonPayload, ep, nil
}

// GetExternalIDs fetches the imdb_id for a tv show (not present on the
// base /tv/{id} payload).
func (c *Client) GetExternalIDs(ctx context.Context, mediaKind string, id int) (*ExternalIDs, error) {
	body, err := c.get(ctx, fmt.Sprintf("/%s/%d/external_ids", mediaKind, id), nil, true)
	if err != nil {
		return nil, err
	}
	var out ExternalIDs
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse external ids: %w", err)
	}
	return &out, nil
}

// GetCollection fetches full collection membership for roll-up.
func (c *Client) GetCollection(ctx context.Context, id int) (*CollectionDetails, error) {
	key := fmt.Sprintf("collection:%d", id)
	if cached, ok := c.details.get(key); ok {
		return cached.(*CollectionDetails), nil
	}
	body, err := c.get(ctx, fmt.Sprintf("/collection/%d", id), nil, true)
	if err != nil {
		return nil, err
	}
	var out CollectionDetails
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse collection details: %w", err)
	}
	c.details.set(key, &out)
	return &out, nil
}
