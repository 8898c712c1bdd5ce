package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAdmin(t *testing.T) (*AdminService, *testEnv, *LocalIdentity) {
	t.Helper()
	env := newTestEnv(t)
	identity := NewLocalIdentity("")
	identity.cost = bcrypt.MinCost
	system := NewSystemService(env.store.System(), env.store.Users())
	return NewAdminService(env.store, system, env.board, identity), env, identity
}

func TestAdminCannotDemoteOrDeleteSelf(t *testing.T) {
	svc, env, _ := newTestAdmin(t)
	env.createUser(t, "root", "Root")
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, "root", "root", shared.RoleUser, "")
	assertStatus(t, err, http.StatusBadRequest)

	assertStatus(t, svc.DeleteUser(ctx, "root", "root", ""), http.StatusBadRequest)

	_, err = svc.UpdateRole(ctx, "root", "ghost", shared.RoleAdmin, "")
	assertStatus(t, err, http.StatusNotFound)
}

func TestAdminUpdateRole(t *testing.T) {
	svc, env, _ := newTestAdmin(t)
	env.createUser(t, "u1", "Ana")

	info, err := svc.UpdateRole(context.Background(), "root", "u1", shared.RoleAdmin, "")
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, info.Role)
}

func TestAdminDeleteUserRemovesEverything(t *testing.T) {
	svc, env, identity := newTestAdmin(t)
	ctx := context.Background()

	uid, err := identity.SignUp(ctx, "ana@example.com", "Secret123", "Ana")
	require.NoError(t, err)
	env.createUser(t, uid, "Ana")
	require.NoError(t, env.board.Update(ctx, uid, 40))

	require.NoError(t, svc.DeleteUser(ctx, "root", uid, ""))

	_, err = env.store.Users().Get(ctx, uid)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, ok, err := env.board.Rank(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = identity.SignIn(ctx, "ana@example.com", "Secret123")
	assert.Equal(t, IdentityUserNotFound, IdentityCode(err))

	assertStatus(t, svc.DeleteUser(ctx, "root", uid, ""), http.StatusNotFound)
}

func TestAdminListUsersAndStats(t *testing.T) {
	svc, env, _ := newTestAdmin(t)
	ctx := context.Background()

	env.createUser(t, "u1", "Ana Nguyen")
	env.createUser(t, "u2", "Binh Tran")
	env.createUser(t, "u3", "Chi Le")
	require.NoError(t, env.store.Users().SetRole(ctx, "u3", shared.RoleAdmin))
	_, err := env.store.Users().RecordCompletion(ctx, "u1", "quiz", model.CompletedStory{Score: 10})
	require.NoError(t, err)

	page, err := svc.ListUsers(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Users, 2)

	page, err = svc.ListUsers(ctx, 2, 2, "")
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)

	found, err := svc.ListUsers(ctx, 1, 20, "binh")
	require.NoError(t, err)
	require.Len(t, found.Users, 1)
	assert.Equal(t, "u2", found.Users[0].ID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Users)
	assert.Equal(t, 1, stats.Admins)
	assert.Equal(t, 1, stats.Completions)
	assert.Equal(t, 10, stats.TotalScore)
	assert.Equal(t, 1, stats.StoryCompletions["quiz"])
}

func TestAdminAuditLogsWithoutDatabase(t *testing.T) {
	svc, _, _ := newTestAdmin(t)

	logs, err := svc.AuditLogs(context.Background(), repositories.AuditFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, logs.Logs)
	assert.Zero(t, logs.Total)
}
