package pti

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"

	"github.com/bodspipeline/bodspipeline/pkg/redis_client"
	"github.com/bodspipeline/bodspipeline/pkg/util"
)

// RegionChecker answers whether a registered service operates in Scotland,
// which decides its bank-holiday calendar.
type RegionChecker interface {
	IsScottish(ctx context.Context, serviceRef string) (bool, error)
}

const scottishCacheKeyPrefix = "pti:scottish:"
const scottishCacheTTL = 2 * time.Hour
const scottishTrafficArea = "M"

const defaultRegistrationURL = "https://data.bus-data.dft.gov.uk/api/v1/registrations"

// ScottishRegionChecker resolves the region through the service
// registration API and caches the verdict per service reference.
type ScottishRegionChecker struct {
	Cache   *cache.Cache[string]
	Client  *http.Client
	BaseURL string
}

func NewScottishRegionChecker() *ScottishRegionChecker {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(scottishCacheTTL))

	baseURL := defaultRegistrationURL
	env := util.GetEnvironmentVariables()
	if env["BODSPIPE_REGISTRATION_URL"] != "" {
		baseURL = env["BODSPIPE_REGISTRATION_URL"]
	}

	return &ScottishRegionChecker{
		Cache:   cache.New[string](redisStore),
		Client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: baseURL,
	}
}

type registrationRecord struct {
	RegistrationNumber string `json:"registrationNumber"`
	TrafficAreaID      string `json:"trafficAreaId"`
}

func (c *ScottishRegionChecker) IsScottish(ctx context.Context, serviceRef string) (bool, error) {
	cacheKey := scottishCacheKeyPrefix + serviceRef

	if cached, err := c.Cache.Get(ctx, cacheKey); err == nil {
		return cached == "yes", nil
	}

	scottish, err := c.lookup(ctx, serviceRef)
	if err != nil {
		return false, err
	}

	verdict := "no"
	if scottish {
		verdict = "yes"
	}
	if err := c.Cache.Set(ctx, cacheKey, verdict); err != nil {
		log.Warn().Str("service_ref", serviceRef).Err(err).Msg("Failed to cache region verdict")
	}

	return scottish, nil
}

func (c *ScottishRegionChecker) lookup(ctx context.Context, serviceRef string) (bool, error) {
	requestURL := fmt.Sprintf("%s?serviceRef=%s", c.BaseURL, url.QueryEscape(serviceRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("registration service returned %d", resp.StatusCode)
	}

	var records []registrationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return false, err
	}

	for _, record := range records {
		if record.TrafficAreaID == scottishTrafficArea {
			return true, nil
		}
	}

	return false, nil
}
