package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "u1", "Ana")
	mailer := newFakeMailer()
	svc := NewReportService(env.store.Reports(), env.store.Users(), mailer)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", dto.CreateReportRequest{
		Category:    "bug",
		Subject:     "  Narration stops  ",
		Description: "Audio stops after the second scene.",
	})
	require.NoError(t, err)
	assert.Equal(t, shared.ReportStatusPending, created.Status)
	assert.Equal(t, "Narration stops", created.Subject)

	mine, err := svc.ListMine(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)

	err = svc.Delete(ctx, "admin", created.ID, "")
	assertStatus(t, err, http.StatusConflict)

	updated, err := svc.UpdateStatus(ctx, "admin", created.ID, "PROCESS", "")
	require.NoError(t, err)
	assert.Equal(t, shared.ReportStatusProcess, updated.Status)
	assert.Equal(t, "Ana", updated.AuthorName)

	_, err = svc.UpdateStatus(ctx, "admin", created.ID, shared.ReportStatusPending, "")
	assertStatus(t, err, http.StatusConflict)

	_, err = svc.UpdateStatus(ctx, "admin", created.ID, "archived", "")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.UpdateStatus(ctx, "admin", created.ID, shared.ReportStatusDone, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return len(mailer.resolved) == 1
	}, time.Second, 10*time.Millisecond)

	queue, err := svc.List(ctx, shared.ReportStatusDone)
	require.NoError(t, err)
	require.Equal(t, 1, queue.Total)
	assert.Equal(t, "Ana", queue.Reports[0].AuthorName)

	require.NoError(t, svc.Delete(ctx, "admin", created.ID, ""))
	assertStatus(t, svc.Delete(ctx, "admin", created.ID, ""), http.StatusNotFound)

	_, err = svc.UpdateStatus(ctx, "admin", "missing", shared.ReportStatusDone, "")
	assertStatus(t, err, http.StatusNotFound)
}

func TestReportListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReportService(env.store.Reports(), env.store.Users(), nil)

	_, err := svc.List(context.Background(), "closed")
	assertStatus(t, err, http.StatusBadRequest)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, all.Total)
}
