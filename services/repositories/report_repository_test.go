package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(NewMemoryStore())

	rep, err := repo.Create(ctx, &model.Report{AuthorID: "u1", Category: "bug", Subject: "Crash", Description: "It crashed on scene 3", Status: "done"})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "pending", rep.Status, "new reports always start pending")

	got, err := repo.Get(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crash", got.Subject)

	_, err = repo.UpdateStatus(ctx, rep.ID, "process", "admin1")
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, rep.ID, "pending", "admin1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := repo.UpdateStatus(ctx, rep.ID, "done", "admin1")
	require.NoError(t, err)
	assert.Equal(t, "admin1", done.HandledBy)

	_, err = repo.UpdateStatus(ctx, rep.ID, "process", "admin1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, repo.Delete(ctx, rep.ID))
	_, err = repo.Get(ctx, rep.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, rep.ID), ErrNotFound)
}

func TestReportRepositoryListing(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(NewMemoryStore())

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })

	first, err := repo.Create(ctx, &model.Report{AuthorID: "u1", Category: "bug", Subject: "a"})
	require.NoError(t, err)
	now = now.Add(time.Minute)
	second, err := repo.Create(ctx, &model.Report{AuthorID: "u2", Category: "content", Subject: "b"})
	require.NoError(t, err)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	mine, err := repo.ListByAuthor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	_, err = repo.UpdateStatus(ctx, first.ID, "done", "admin")
	require.NoError(t, err)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["pending"])
	assert.Equal(t, 1, counts["done"])
	assert.Equal(t, 0, counts["process"])
}

func TestSystemRepositoryDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewSystemRepository(NewMemoryStore())

	settings, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxUsers, settings.MaxUsers)
	assert.False(t, settings.Maintenance)

	saved, err := repo.Save(ctx, model.SystemSettings{MaxUsers: 5, Maintenance: true, Message: "upgrade"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", saved.UpdatedBy)

	settings, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, settings.MaxUsers)
	assert.True(t, settings.Maintenance)
}
