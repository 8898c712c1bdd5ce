package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/googleapi"
)

func TestMapToolkitError(t *testing.T) {
	cases := map[string]string{
		"INVALID_EMAIL":                              IdentityInvalidEmail,
		"EMAIL_NOT_FOUND":                            IdentityUserNotFound,
		"INVALID_PASSWORD":                           IdentityWrongPassword,
		"INVALID_LOGIN_CREDENTIALS":                  IdentityWrongPassword,
		"TOO_MANY_ATTEMPTS_TRY_LATER : Access block": IdentityTooMany,
		"USER_DISABLED":                              IdentityUserNotFound,
		"SOMETHING_ELSE":                             IdentityUnknown,
	}

	for msg, want := range cases {
		err := mapToolkitError(&googleapi.Error{Code: 400, Message: msg})
		assert.Equal(t, want, IdentityCode(err), msg)
	}

	assert.Equal(t, IdentityWrongPassword, IdentityCode(mapToolkitError(errors.New("googleapi: INVALID_PASSWORD"))))
}

func TestIdentityErrorStatus(t *testing.T) {
	cases := map[string]int{
		IdentityInvalidEmail:  400,
		IdentityWeakPassword:  400,
		IdentityEmailInUse:    409,
		IdentityWrongPassword: 401,
		IdentityUserNotFound:  401,
		IdentityTooMany:       429,
		IdentityUnknown:       500,
	}
	for code, status := range cases {
		assertStatus(t, identityError(identityErr(code, nil)), status)
	}

	assert.Equal(t, "Incorrect email or password.", IdentityMessage(identityErr(IdentityUserNotFound, nil)))
	assert.Equal(t, IdentityUnknown, IdentityCode(errors.New("boom")))
}

func TestLocalIdentity(t *testing.T) {
	ctx := context.Background()
	l := NewLocalIdentity("http://app.test")
	l.cost = bcrypt.MinCost

	_, err := l.SignUp(ctx, "not-an-email", "Secret123", "x")
	assert.Equal(t, IdentityInvalidEmail, IdentityCode(err))
	_, err = l.SignUp(ctx, "a@example.com", "123", "x")
	assert.Equal(t, IdentityWeakPassword, IdentityCode(err))

	uid, err := l.SignUp(ctx, "A@Example.com", "Secret123", "Ana")
	require.NoError(t, err)
	_, err = l.SignUp(ctx, "a@example.com", "Secret123", "Ana")
	assert.Equal(t, IdentityEmailInUse, IdentityCode(err))

	got, err := l.SignIn(ctx, "a@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, uid, got)
	_, err = l.SignIn(ctx, "a@example.com", "nope")
	assert.Equal(t, IdentityWrongPassword, IdentityCode(err))

	link, err := l.PasswordResetLink(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://app.test/reset-password?email=a%40example.com", link)

	require.NoError(t, l.Delete(ctx, uid))
	_, err = l.SignIn(ctx, "a@example.com", "Secret123")
	assert.Equal(t, IdentityUserNotFound, IdentityCode(err))
}
