package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Identity error codes, mapped to user-facing messages by IdentityMessage.
const (
	IdentityInvalidEmail  = "invalid_email"
	IdentityWrongPassword = "wrong_password"
	IdentityEmailInUse    = "email_in_use"
	IdentityWeakPassword  = "weak_password"
	IdentityUserNotFound  = "user_not_found"
	IdentityTooMany       = "too_many_attempts"
	IdentityUnknown       = "unknown"
)

type IdentityError struct {
	Code string
	Err  error
}

func (e *IdentityError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

func identityErr(code string, err error) error {
	return &IdentityError{Code: code, Err: err}
}

// IdentityCode extracts the code of an identity failure, IdentityUnknown otherwise.
func IdentityCode(err error) string {
	var ie *IdentityError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return IdentityUnknown
}

// IdentityMessage is the message shown to users for an identity failure.
func IdentityMessage(err error) string {
	switch IdentityCode(err) {
	case IdentityInvalidEmail:
		return "The email address is not valid."
	case IdentityWrongPassword, IdentityUserNotFound:
		return "Incorrect email or password."
	case IdentityEmailInUse:
		return "This email is already registered."
	case IdentityWeakPassword:
		return "The password is too weak."
	case IdentityTooMany:
		return "Too many attempts. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// IdentityProvider manages credentials. Profiles live in the document store.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (uid string, err error)
	SignIn(ctx context.Context, email, password string) (uid string, err error)
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
	Delete(ctx context.Context, uid string) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
	RevokeSessions(ctx context.Context, uid string) error
}

// ==================== FIREBASE AUTH ====================

type FirebaseIdentity struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
}

func NewFirebaseIdentity(ctx context.Context, client *auth.Client, apiKey string) (*FirebaseIdentity, error) {
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &FirebaseIdentity{client: client, toolkit: toolkit}, nil
}

func (f *FirebaseIdentity) SignUp(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	record, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return "", mapFirebaseAuthError(err)
	}
	return record.UID, nil
}

func (f *FirebaseIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	resp, err := f.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return "", mapToolkitError(err)
	}
	return resp.LocalId, nil
}

func (f *FirebaseIdentity) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	_, err := f.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).DisplayName(displayName))
	return mapFirebaseAuthError(err)
}

func (f *FirebaseIdentity) Delete(ctx context.Context, uid string) error {
	err := f.client.DeleteUser(ctx, uid)
	if auth.IsUserNotFound(err) {
		return nil
	}
	return mapFirebaseAuthError(err)
}

func (f *FirebaseIdentity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := f.client.PasswordResetLink(ctx, email)
	if err != nil {
		return "", mapFirebaseAuthError(err)
	}
	return link, nil
}

func (f *FirebaseIdentity) RevokeSessions(ctx context.Context, uid string) error {
	return mapFirebaseAuthError(f.client.RevokeRefreshTokens(ctx, uid))
}

func mapFirebaseAuthError(err error) error {
	switch {
	case err == nil:
		return nil
	case auth.IsEmailAlreadyExists(err):
		return identityErr(IdentityEmailInUse, err)
	case auth.IsUserNotFound(err), auth.IsEmailNotFound(err):
		return identityErr(IdentityUserNotFound, err)
	case strings.Contains(err.Error(), "email must be a non-empty string"),
		strings.Contains(err.Error(), "malformed email"):
		return identityErr(IdentityInvalidEmail, err)
	case strings.Contains(err.Error(), "password must be"):
		return identityErr(IdentityWeakPassword, err)
	default:
		return identityErr(IdentityUnknown, err)
	}
}

// mapToolkitError maps the REST error codes returned by the sign-in endpoint.
func mapToolkitError(err error) error {
	msg := err.Error()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch {
	case strings.Contains(msg, "INVALID_EMAIL"):
		return identityErr(IdentityInvalidEmail, err)
	case strings.Contains(msg, "EMAIL_NOT_FOUND"):
		return identityErr(IdentityUserNotFound, err)
	case strings.Contains(msg, "INVALID_PASSWORD"), strings.Contains(msg, "INVALID_LOGIN_CREDENTIALS"):
		return identityErr(IdentityWrongPassword, err)
	case strings.Contains(msg, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return identityErr(IdentityTooMany, err)
	case strings.Contains(msg, "USER_DISABLED"):
		return identityErr(IdentityUserNotFound, err)
	default:
		return identityErr(IdentityUnknown, err)
	}
}

// ==================== LOCAL (DEVELOPMENT) ====================

type localAccount struct {
	uid         string
	email       string
	displayName string
	hash        []byte
}

// LocalIdentity keeps bcrypt-hashed credentials in process. It is used when
// Firebase is not configured.
type LocalIdentity struct {
	mu      sync.RWMutex
	byEmail map[string]*localAccount
	byUID   map[string]*localAccount
	baseURL string
	cost    int
}

func NewLocalIdentity(baseURL string) *LocalIdentity {
	return &LocalIdentity{
		byEmail: map[string]*localAccount{},
		byUID:   map[string]*localAccount{},
		baseURL: baseURL,
		cost:    bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *LocalIdentity) SignUp(ctx context.Context, email, password, displayName string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", identityErr(IdentityInvalidEmail, nil)
	}
	if len(password) < 6 {
		return "", identityErr(IdentityWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return "", identityErr(IdentityUnknown, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", identityErr(IdentityUnknown, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byEmail[email]; exists {
		return "", identityErr(IdentityEmailInUse, nil)
	}
	acct := &localAccount{uid: id.String(), email: email, displayName: displayName, hash: hash}
	l.byEmail[email] = acct
	l.byUID[acct.uid] = acct
	return acct.uid, nil
}

func (l *LocalIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	l.mu.RLock()
	acct, ok := l.byEmail[normalizeEmail(email)]
	l.mu.RUnlock()

	if !ok {
		return "", identityErr(IdentityUserNotFound, nil)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return "", identityErr(IdentityWrongPassword, err)
	}
	return acct.uid, nil
}

func (l *LocalIdentity) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.byUID[uid]
	if !ok {
		return identityErr(IdentityUserNotFound, nil)
	}
	acct.displayName = displayName
	return nil
}

func (l *LocalIdentity) Delete(ctx context.Context, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if acct, ok := l.byUID[uid]; ok {
		delete(l.byEmail, acct.email)
		delete(l.byUID, uid)
	}
	return nil
}

func (l *LocalIdentity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	l.mu.RLock()
	_, ok := l.byEmail[normalizeEmail(email)]
	l.mu.RUnlock()

	if !ok {
		return "", identityErr(IdentityUserNotFound, nil)
	}
	return fmt.Sprintf("%s/reset-password?email=%s", l.baseURL, url.QueryEscape(normalizeEmail(email))), nil
}

func (l *LocalIdentity) RevokeSessions(ctx context.Context, uid string) error {
	return nil
}
