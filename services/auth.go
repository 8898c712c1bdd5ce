package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/achievement"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const AUTH_SVC = "auth_svc"

const blacklistPrefix = "blacklist:"

// AccountMailer sends the account lifecycle emails.
type AccountMailer interface {
	SendWelcomeEmail(email, displayName string) error
	SendPasswordResetEmail(email, displayName, resetURL string) error
}

// AchievementGranter evaluates and grants achievements after account events.
type AchievementGranter interface {
	AchievementChecker
	UnlockEvent(ctx context.Context, uid, id string) ([]string, error)
}

type AuthService struct {
	appContext.DefaultService

	identity     IdentityProvider
	users        *repositories.UserRepository
	system       *repositories.SystemRepository
	jwtSvc       *JWTService
	redis        *redis.Client
	mailer       AccountMailer
	achievements AchievementGranter
	audit        *repositories.AuditRepository
	locator      Locator
}

func NewAuthService(identity IdentityProvider, store *StoreService, jwtSvc *JWTService, client *redis.Client, mailer AccountMailer, achievements AchievementGranter) *AuthService {
	return &AuthService{
		identity:     identity,
		users:        store.Users(),
		system:       store.System(),
		jwtSvc:       jwtSvc,
		redis:        client,
		mailer:       mailer,
		achievements: achievements,
		audit:        repositories.NewAuditRepository(nil),
	}
}

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	storeSvc := svc.Service(STORE_SVC).(*StoreService)
	firebaseSvc := svc.Service(FIREBASE_SVC).(*FirebaseService)
	emailSvc := svc.Service(EMAIL_SVC).(*EmailService)

	svc.users = storeSvc.Users()
	svc.system = storeSvc.System()
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.redis = svc.Service(REDIS_SVC).(*RedisService).GetClient()
	svc.mailer = emailSvc
	svc.achievements = svc.Service(ACHIEVEMENT_SVC).(*AchievementService)
	svc.audit = svc.Service(POSTGRES_SVC).(*PostgresService).Audit()
	svc.locator = svc.Service(GEOLOCATION_SVC).(*GeolocationService)

	if firebaseSvc.Enabled() && firebaseSvc.Auth() != nil {
		identity, err := NewFirebaseIdentity(context.Background(), firebaseSvc.Auth(), firebaseSvc.APIKey())
		if err != nil {
			return err
		}
		svc.identity = identity
		return nil
	}

	log.Warn("Firebase Auth not configured, using local identity provider")
	svc.identity = NewLocalIdentity(emailSvc.BaseURL())
	return nil
}

// Identity exposes the credential provider to the profile and admin services.
func (svc *AuthService) Identity() IdentityProvider {
	return svc.identity
}

// SetAudit replaces the audit log sink.
func (svc *AuthService) SetAudit(audit *repositories.AuditRepository) {
	svc.audit = audit
}

// SetLocator enables location lookups for successful sign-ins.
func (svc *AuthService) SetLocator(locator Locator) {
	svc.locator = locator
}

// identityError converts a provider failure into a response error.
func identityError(err error) error {
	msg := IdentityMessage(err)
	switch IdentityCode(err) {
	case IdentityInvalidEmail, IdentityWeakPassword:
		return shared.NewBadRequestError(err, msg)
	case IdentityEmailInUse:
		return shared.NewConflictError(err, msg)
	case IdentityWrongPassword, IdentityUserNotFound:
		return shared.NewUnauthorizedError(err, msg)
	case IdentityTooMany:
		return shared.NewAppError(http.StatusTooManyRequests, err, msg)
	default:
		return shared.NewInternalError(err, msg)
	}
}

func (svc *AuthService) record(ctx context.Context, entry model.AuditLog) {
	if svc.locator != nil && entry.Success && entry.IP != "" &&
		(entry.Action == model.AuditLogin || entry.Action == model.AuditRegister) {
		entry.Location = svc.locator.Locate(ctx, entry.IP)
	}
	if err := svc.audit.Create(ctx, &entry); err != nil {
		log.WithError(err).WithField("action", entry.Action).Error("Failed to write audit log")
	}
}

// ==================== REGISTRATION ====================

func (svc *AuthService) Register(ctx context.Context, req dto.RegisterRequest, clientIP, userAgent string) (*dto.RegisterResponse, error) {
	settings, err := svc.system.Get(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load system settings")
	}
	if settings.Maintenance {
		return nil, shared.NewServiceUnavailableError(nil, "Registration is closed during maintenance")
	}

	count, err := svc.users.Count(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to check registration capacity")
	}
	if count >= settings.MaxUsers {
		return nil, shared.NewForbiddenError(nil, "Registration is closed: the user limit has been reached")
	}

	email := strings.TrimSpace(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)

	uid, err := svc.identity.SignUp(ctx, email, req.Password, displayName)
	if err != nil {
		svc.record(ctx, model.AuditLog{Action: model.AuditRegister, Target: email, IP: clientIP, UserAgent: userAgent, Details: IdentityCode(err)})
		return nil, identityError(err)
	}

	profile, err := svc.users.Create(ctx, uid, email, displayName)
	if err != nil {
		if delErr := svc.identity.Delete(ctx, uid); delErr != nil {
			log.WithError(delErr).WithField("uid", uid).Error("Failed to roll back identity after profile error")
		}
		return nil, shared.NewInternalError(err, "Failed to create user profile")
	}

	if _, err := svc.achievements.UnlockEvent(ctx, uid, achievement.Newcomer); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to unlock newcomer achievement")
	}

	svc.record(ctx, model.AuditLog{UserID: uid, Action: model.AuditRegister, Target: email, IP: clientIP, UserAgent: userAgent, Success: true})

	go func() {
		if err := svc.mailer.SendWelcomeEmail(profile.Email, profile.DisplayName); err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Failed to send welcome email")
		}
	}()

	log.WithField("uid", uid).Info("User registered")

	return &dto.RegisterResponse{
		UserID:  uid,
		Message: "Registration successful",
	}, nil
}

// ==================== SESSIONS ====================

func (svc *AuthService) Login(ctx context.Context, req dto.LoginRequest, clientIP, userAgent string) (*dto.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)

	uid, err := svc.identity.SignIn(ctx, email, req.Password)
	if err != nil {
		svc.record(ctx, model.AuditLog{Action: model.AuditLoginFailed, Target: email, IP: clientIP, UserAgent: userAgent, Details: IdentityCode(err)})
		return nil, identityError(err)
	}

	profile, err := svc.users.Get(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		// account without a profile document, e.g. created in the Firebase console
		name := email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
		profile, err = svc.users.Create(ctx, uid, email, name)
	}
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load user profile")
	}

	streak, err := svc.users.RecordLogin(ctx, uid)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to record login streak")
	} else {
		profile.LoginStreak = streak
	}

	unlocked, err := svc.achievements.Check(ctx, uid)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("Achievement check after login failed")
	}

	role := profile.Role
	if role == "" {
		role = shared.RoleUser
	}
	tokens, err := svc.jwtSvc.GenerateTokenPair(uid, role)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to issue access token")
	}

	svc.record(ctx, model.AuditLog{UserID: uid, Action: model.AuditLogin, IP: clientIP, UserAgent: userAgent, Success: true})

	return &dto.LoginResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.ExpiresIn,
		User: dto.UserInfo{
			ID:          uid,
			DisplayName: profile.DisplayName,
			Email:       profile.Email,
			Role:        role,
			LoginStreak: profile.LoginStreak,
		},
		Unlocked: unlocked,
	}, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (svc *AuthService) Logout(ctx context.Context, claims *dto.TokenClaims, clientIP, userAgent string) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl > 0 && claims.TokenID != "" && svc.redis != nil {
		if err := svc.redis.Set(ctx, blacklistPrefix+claims.TokenID, claims.UserID, ttl).Err(); err != nil {
			return shared.NewInternalError(err, "Failed to log out")
		}
	}

	svc.record(ctx, model.AuditLog{UserID: claims.UserID, Action: model.AuditLogout, IP: clientIP, UserAgent: userAgent, Success: true})
	return nil
}

func (svc *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if svc.redis == nil || tokenID == "" {
		return false, nil
	}
	n, err := svc.redis.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForgotPassword mails a reset link. Unknown emails succeed silently.
func (svc *AuthService) ForgotPassword(ctx context.Context, email, clientIP string) error {
	email = strings.TrimSpace(email)

	link, err := svc.identity.PasswordResetLink(ctx, email)
	if err != nil {
		svc.record(ctx, model.AuditLog{Action: model.AuditPasswordReset, Target: email, IP: clientIP, Details: IdentityCode(err)})
		if IdentityCode(err) == IdentityUserNotFound {
			return nil
		}
		return identityError(err)
	}

	if err := svc.mailer.SendPasswordResetEmail(email, "", link); err != nil {
		return shared.NewInternalError(err, "Failed to send password reset email")
	}

	svc.record(ctx, model.AuditLog{Action: model.AuditPasswordReset, Target: email, IP: clientIP, Success: true})
	return nil
}

func (svc *AuthService) CurrentUser(ctx context.Context, uid string) (*dto.UserInfo, error) {
	profile, err := svc.users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, shared.NewInternalError(err, "Failed to load user profile")
	}
	return &dto.UserInfo{
		ID:          uid,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Role:        profile.Role,
		LoginStreak: profile.LoginStreak,
	}, nil
}

// ==================== MIDDLEWARE ====================

func (svc *AuthService) authenticate(c *fiber.Ctx) (*dto.TokenClaims, error) {
	token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		// EventSource cannot send headers
		if token = c.Query("access_token"); token == "" {
			return nil, err
		}
	}

	claims, err := svc.jwtSvc.VerifyJWTToken(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("invalid user ID in token")
	}

	revoked, err := svc.IsRevoked(c.Context(), claims.TokenID)
	if err != nil {
		log.WithError(err).Warn("Token blacklist lookup failed")
	}
	if revoked {
		return nil, errors.New("token has been revoked")
	}
	return claims, nil
}

func setClaims(c *fiber.Ctx, claims *dto.TokenClaims) {
	c.Locals(shared.UserID, claims.UserID)
	c.Locals(shared.UserRole, claims.Role)
	c.Locals(shared.TokenID, claims.TokenID)
	c.Locals(shared.TokenExp, claims.ExpiresAt)
}

func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := svc.authenticate(c)
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		}
		setClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present.
func (svc *AuthService) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := svc.authenticate(c); err == nil {
			setClaims(c, claims)
		}
		return c.Next()
	}
}

// RequireAdmin checks the stored role, so demotions apply to live tokens.
func (svc *AuthService) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals(shared.UserID).(string)
		if uid == "" {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", nil)
		}

		profile, err := svc.users.Get(c.Context(), uid)
		if err != nil || !profile.IsAdmin() {
			return shared.ResponseJSON(c, http.StatusForbidden, "Forbidden", nil)
		}
		c.Locals(shared.UserRole, shared.RoleAdmin)
		return c.Next()
	}
}
