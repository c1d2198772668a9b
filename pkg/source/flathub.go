package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"upm/internal/cache"
	"upm/internal/ratelimit"
)

// DefaultFlathubAPI is the base URL of the Flathub search API.
const DefaultFlathubAPI = "https://flathub.org/api/v2"

// flathubCacheTTL bounds how long a search response is reused. Flathub's
// index changes slowly; 15 minutes keeps repeat searches free.
const flathubCacheTTL = 15 * time.Minute

// flathubHit is one search result from the Flathub API.
type flathubHit struct {
	AppID   string `json:"app_id"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type flathubSearchResponse struct {
	Hits []flathubHit `json:"hits"`
}

// FlathubClient queries the Flathub search API. Calls are throttled by an
// adaptive limiter so a struggling upstream automatically sees less traffic,
// and responses are cached so repeated searches consume no budget.
type FlathubClient struct {
	baseURL  string
	http     *http.Client
	limiter  *ratelimit.AdaptiveRateLimiter
	cache    *cache.Cache
	cacheTTL time.Duration
}

// NewFlathubClient creates a client against baseURL. The cache may be nil,
// in which case every search hits the network.
func NewFlathubClient(baseURL string, limiter *ratelimit.AdaptiveRateLimiter, c *cache.Cache) *FlathubClient {
	if baseURL == "" {
		baseURL = DefaultFlathubAPI
	}
	return &FlathubClient{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  limiter,
		cache:    c,
		cacheTTL: flathubCacheTTL,
	}
}

// SetCacheTTL overrides how long search responses are reused.
func (f *FlathubClient) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		f.cacheTTL = ttl
	}
}

// Search queries the Flathub API. Cache hits cost no rate-limit budget; a
// throttled live call returns *ratelimit.DeniedError without touching the
// adaptation counters.
func (f *FlathubClient) Search(ctx context.Context, query string, limit int) ([]Package, error) {
	cacheKey := "flathub:search:" + query

	if f.cache != nil {
		if data, ok := f.cache.Get(cacheKey); ok {
			return f.decodeHits(data, limit)
		}
	}

	if f.limiter != nil && !f.limiter.IsAllowed() {
		return nil, &ratelimit.DeniedError{Key: ratelimit.KeyFlathub, Wait: f.limiter.WaitTime()}
	}

	data, err := f.fetch(ctx, query)
	if err != nil {
		if f.limiter != nil {
			f.limiter.RecordError()
		}
		return nil, err
	}
	if f.limiter != nil {
		f.limiter.RecordSuccess()
	}

	if f.cache != nil {
		_ = f.cache.Set(cacheKey, data, f.cacheTTL) //nolint:errcheck
	}

	return f.decodeHits(data, limit)
}

func (f *FlathubClient) fetch(ctx context.Context, query string) ([]byte, error) {
	u := f.baseURL + "/search/" + url.PathEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flathub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flathub returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read flathub response: %w", err)
	}
	return body, nil
}

func (f *FlathubClient) decodeHits(data []byte, limit int) ([]Package, error) {
	var parsed flathubSearchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode flathub response: %w", err)
	}

	var packages []Package
	for _, hit := range parsed.Hits {
		if hit.AppID == "" {
			continue
		}

		name := hit.Name
		if name == "" {
			name = hit.AppID
		}

		packages = append(packages, Package{
			SourceID:    hit.AppID,
			Name:        name,
			Description: hit.Summary,
			Kind:        KindFlatpak,
			SourceLabel: "Flathub",
		})

		if limit > 0 && len(packages) >= limit {
			break
		}
	}

	return packages, nil
}
