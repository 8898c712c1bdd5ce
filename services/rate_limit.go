package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

// RateLimitService counts requests per identifier in fixed Redis windows and
// blocks identifiers that exceed their endpoint budget.
type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*model.RateLimitConfig
	mutex   sync.RWMutex

	redisSvc *RedisService
	now      func() time.Time
}

const RATE_LIMIT_SVC = "rate_limit_svc"

const (
	RateLimitLogin          = "login"
	RateLimitRegister       = "register"
	RateLimitForgotPassword = "forgot_password"
	RateLimitStoryComplete  = "story_complete"
	RateLimitReport         = "report"
	RateLimitContact        = "contact"
	RateLimitProfileUpdate  = "profile_update"
	RateLimitAPIGeneral     = "api_general"
)

func NewRateLimitService(redisSvc *RedisService) *RateLimitService {
	svc := &RateLimitService{redisSvc: redisSvc, now: time.Now}
	svc.initDefaultConfigs()
	return svc
}

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.now = time.Now
	svc.initDefaultConfigs()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// ==================== CONFIGURATION MANAGEMENT ====================

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*model.RateLimitConfig{
		RateLimitLogin: {
			EndpointType: RateLimitLogin,
			MaxRequests:  10,
			WindowSize:   15 * time.Minute,
			BlockTime:    30 * time.Minute,
			Description:  "Login attempts rate limit",
			IsActive:     true,
		},
		RateLimitRegister: {
			EndpointType: RateLimitRegister,
			MaxRequests:  5,
			WindowSize:   15 * time.Minute,
			BlockTime:    60 * time.Minute,
			Description:  "Registration rate limit",
			IsActive:     true,
		},
		RateLimitForgotPassword: {
			EndpointType: RateLimitForgotPassword,
			MaxRequests:  3,
			WindowSize:   15 * time.Minute,
			BlockTime:    60 * time.Minute,
			Description:  "Password reset request rate limit",
			IsActive:     true,
		},
		RateLimitStoryComplete: {
			EndpointType: RateLimitStoryComplete,
			MaxRequests:  30,
			WindowSize:   time.Hour,
			BlockTime:    time.Hour,
			Description:  "Story choice and completion rate limit",
			IsActive:     true,
		},
		RateLimitReport: {
			EndpointType: RateLimitReport,
			MaxRequests:  5,
			WindowSize:   time.Hour,
			BlockTime:    2 * time.Hour,
			Description:  "Report submission rate limit",
			IsActive:     true,
		},
		RateLimitContact: {
			EndpointType: RateLimitContact,
			MaxRequests:  3,
			WindowSize:   time.Hour,
			BlockTime:    2 * time.Hour,
			Description:  "Contact form rate limit",
			IsActive:     true,
		},
		RateLimitProfileUpdate: {
			EndpointType: RateLimitProfileUpdate,
			MaxRequests:  20,
			WindowSize:   time.Hour,
			BlockTime:    30 * time.Minute,
			Description:  "Profile update rate limit",
			IsActive:     true,
		},
		RateLimitAPIGeneral: {
			EndpointType: RateLimitAPIGeneral,
			MaxRequests:  1000,
			WindowSize:   time.Hour,
			BlockTime:    time.Hour,
			Description:  "General API rate limit per IP",
			IsActive:     true,
		},
	}
}

// SetConfig overrides or adds the limit for an endpoint type.
func (svc *RateLimitService) SetConfig(cfg model.RateLimitConfig) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.configs[cfg.EndpointType] = &cfg
}

func (svc *RateLimitService) Configs() []model.RateLimitConfig {
	svc.mutex.RLock()
	defer svc.mutex.RUnlock()

	out := make([]model.RateLimitConfig, 0, len(svc.configs))
	for _, cfg := range svc.configs {
		out = append(out, *cfg)
	}
	return out
}

// ==================== CORE RATE LIMITING LOGIC ====================

func countKey(endpointType, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier)
}

func blockKey(endpointType, identifier string) string {
	return fmt.Sprintf("ratelimit:block:%s:%s", endpointType, identifier)
}

func (svc *RateLimitService) IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	config, exists := svc.configs[endpointType]
	svc.mutex.RUnlock()

	if !exists || !config.IsActive {
		return true, &dto.RateLimitInfo{
			Allowed:   true,
			Remaining: -1,
		}, nil
	}

	now := svc.now()

	blockedFor, err := svc.redisSvc.TTL(ctx, blockKey(endpointType, identifier))
	if err != nil {
		return false, nil, err
	}
	if blockedFor > 0 {
		blockedUntil := now.Add(blockedFor)
		return false, &dto.RateLimitInfo{
			Allowed:      false,
			Limit:        config.MaxRequests,
			Remaining:    0,
			ResetTime:    &blockedUntil,
			BlockedUntil: &blockedUntil,
		}, nil
	}

	count, ttl, err := svc.redisSvc.IncrementWindow(ctx, countKey(endpointType, identifier), config.WindowSize)
	if err != nil {
		return false, nil, err
	}

	if int(count) > config.MaxRequests {
		blockedUntil := now.Add(config.BlockTime)
		if err := svc.redisSvc.Set(ctx, blockKey(endpointType, identifier), "1", config.BlockTime); err != nil {
			return false, nil, err
		}
		_ = svc.redisSvc.Delete(ctx, countKey(endpointType, identifier))

		log.WithFields(log.Fields{
			"identifier":    identifier,
			"endpoint_type": endpointType,
			"blocked_until": blockedUntil,
		}).Warn("Rate limit exceeded, identifier blocked")

		return false, &dto.RateLimitInfo{
			Allowed:      false,
			Limit:        config.MaxRequests,
			Remaining:    0,
			ResetTime:    &blockedUntil,
			BlockedUntil: &blockedUntil,
		}, nil
	}

	resetTime := now.Add(ttl)
	return true, &dto.RateLimitInfo{
		Allowed:   true,
		Limit:     config.MaxRequests,
		Remaining: config.MaxRequests - int(count),
		ResetTime: &resetTime,
	}, nil
}

// Reset clears the counters and any block for an identifier.
func (svc *RateLimitService) Reset(ctx context.Context, identifier, endpointType string) error {
	return svc.redisSvc.Delete(ctx, countKey(endpointType, identifier), blockKey(endpointType, identifier))
}

// ==================== MIDDLEWARE FUNCTIONS ====================

// RateLimit limits an endpoint type by the identifier best suited to it.
func (svc *RateLimitService) RateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return svc.check(c, endpointType, svc.getIdentifier(c, endpointType))
	}
}

// IPRateLimit applies general rate limiting by IP address
func (svc *RateLimitService) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return svc.check(c, RateLimitAPIGeneral, getClientIP(c))
	}
}

// UserBasedRateLimit applies rate limiting based on authenticated user
func (svc *RateLimitService) UserBasedRateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(shared.UserID).(string)
		if userID == "" {
			userID = getClientIP(c)
		}
		return svc.check(c, endpointType, userID)
	}
}

func (svc *RateLimitService) check(c *fiber.Ctx, endpointType, identifier string) error {
	allowed, info, err := svc.IsAllowed(c.UserContext(), identifier, endpointType)
	if err != nil {
		// fail open
		log.WithError(err).WithFields(log.Fields{
			"identifier":    identifier,
			"endpoint_type": endpointType,
		}).Error("Rate limit check failed")
		return c.Next()
	}

	svc.addRateLimitHeaders(c, info)

	if !allowed {
		return svc.handleRateLimitExceeded(c, endpointType, info)
	}
	return c.Next()
}

// ==================== HELPER FUNCTIONS ====================

func (svc *RateLimitService) getIdentifier(c *fiber.Ctx, endpointType string) string {
	switch endpointType {
	case RateLimitLogin, RateLimitRegister, RateLimitForgotPassword:
		email := getEmailFromRequest(c)
		if email != "" {
			return fmt.Sprintf("%s:%s", getClientIP(c), strings.ToLower(email))
		}
		return getClientIP(c)
	case RateLimitStoryComplete, RateLimitReport, RateLimitProfileUpdate:
		if userID, ok := c.Locals(shared.UserID).(string); ok && userID != "" {
			return userID
		}
		return getClientIP(c)
	default:
		return getClientIP(c)
	}
}

func getEmailFromRequest(c *fiber.Ctx) string {
	if len(c.Body()) == 0 {
		return ""
	}
	var reqBody struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&reqBody); err != nil {
		return ""
	}
	return reqBody.Email
}

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	if info.Limit > 0 {
		c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	}
	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}

	if info.BlockedUntil != nil {
		retryAfter := int(info.BlockedUntil.Sub(svc.now()).Seconds())
		if retryAfter > 0 {
			c.Set("Retry-After", strconv.Itoa(retryAfter))
		}
	}
}

func (svc *RateLimitService) handleRateLimitExceeded(c *fiber.Ctx, endpointType string, info *dto.RateLimitInfo) error {
	message := getRateLimitMessage(endpointType)

	response := dto.RateLimitExceeded{EndpointType: endpointType}
	if info.BlockedUntil != nil {
		response.BlockedUntil = info.BlockedUntil.Unix()
		response.RetryAfter = int(info.BlockedUntil.Sub(svc.now()).Seconds())
	}

	return shared.ResponseJSON(c, http.StatusTooManyRequests, message, response)
}

func getRateLimitMessage(endpointType string) string {
	messages := map[string]string{
		RateLimitLogin:          "Too many login attempts. Please try again later.",
		RateLimitRegister:       "Too many registration attempts. Please try again later.",
		RateLimitForgotPassword: "Too many password reset requests. Please try again later.",
		RateLimitStoryComplete:  "Too many story actions. Please take a break.",
		RateLimitReport:         "Too many reports submitted. Please try again later.",
		RateLimitContact:        "Too many messages sent. Please try again later.",
		RateLimitProfileUpdate:  "Too many profile updates. Please try again later.",
		RateLimitAPIGeneral:     "Too many requests. Please slow down.",
	}

	if message, exists := messages[endpointType]; exists {
		return message
	}
	return "Too many requests. Please try again later."
}

// ==================== UTILITY FUNCTIONS ====================

func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}
	return ip
}
