package services

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

const GEOLOCATION_SVC = "geolocation_svc"

const (
	defaultGeolocationURL = "http://ip-api.com/json"
	geolocationTimeout    = 3 * time.Second
	geolocationCacheTTL   = 24 * time.Hour

	LocationLocal   = "Local"
	LocationUnknown = "Unknown"
)

// Locator resolves a client IP to a readable place name for audit entries.
type Locator interface {
	Locate(ctx context.Context, ip string) string
}

// GeolocationService looks up login locations and caches them in redis.
type GeolocationService struct {
	appContext.DefaultService

	apiURL   string
	timeout  time.Duration
	cacheTTL time.Duration
	redisSvc *RedisService
	disabled bool
}

func NewGeolocationService(apiURL string, redisSvc *RedisService) *GeolocationService {
	if apiURL == "" {
		apiURL = defaultGeolocationURL
	}
	return &GeolocationService{
		apiURL:   apiURL,
		timeout:  geolocationTimeout,
		cacheTTL: geolocationCacheTTL,
		redisSvc: redisSvc,
	}
}

func (svc GeolocationService) Id() string {
	return GEOLOCATION_SVC
}

func (svc *GeolocationService) Configure(ctx *appContext.Context) error {
	svc.apiURL = os.Getenv("GEOLOCATION_API_URL")
	if svc.apiURL == "" {
		svc.apiURL = defaultGeolocationURL
	}
	svc.disabled = os.Getenv("GEOLOCATION_DISABLED") == "true"
	svc.timeout = geolocationTimeout
	svc.cacheTTL = geolocationCacheTTL
	return svc.DefaultService.Configure(ctx)
}

func (svc *GeolocationService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// Locate never fails; lookups that cannot complete report Unknown.
func (svc *GeolocationService) Locate(ctx context.Context, ip string) string {
	if svc.disabled {
		return ""
	}
	if isLocalIP(ip) {
		return LocationLocal
	}

	cacheKey := fmt.Sprintf("geolocation:%s", ip)
	if svc.redisSvc != nil {
		if cached, err := svc.redisSvc.Get(ctx, cacheKey); err == nil && cached != "" {
			return cached
		}
	}

	location, ok := svc.lookup(ip)
	if !ok {
		return LocationUnknown
	}

	if svc.redisSvc != nil {
		if err := svc.redisSvc.Set(ctx, cacheKey, location, svc.cacheTTL); err != nil {
			log.WithError(err).WithField("ip", ip).Warn("Failed to cache geolocation result")
		}
	}
	return location
}

func (svc *GeolocationService) lookup(ip string) (string, bool) {
	agent := fiber.Get(fmt.Sprintf("%s/%s?fields=status,country,regionName,city", strings.TrimRight(svc.apiURL, "/"), ip))
	agent.JSONDecoder(shared.JSONUnmarshal)
	agent.Timeout(svc.timeout)
	if err := agent.Parse(); err != nil {
		log.WithError(err).WithField("ip", ip).Warn("Invalid geolocation request")
		return "", false
	}

	var result ipAPIResponse
	code, _, errs := agent.Struct(&result)
	if len(errs) > 0 {
		log.WithError(errs[0]).WithField("ip", ip).Warn("Geolocation lookup failed")
		return "", false
	}
	if code != fiber.StatusOK || result.Status != "success" {
		log.WithFields(log.Fields{"ip": ip, "status": code}).Warn("Geolocation API returned no result")
		return "", false
	}

	var parts []string
	for _, p := range []string{result.City, result.RegionName, result.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ", "), true
}

func isLocalIP(ip string) bool {
	if ip == "" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed == nil || parsed.IsLoopback() || parsed.IsPrivate()
}
