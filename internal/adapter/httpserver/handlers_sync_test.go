package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahrourr/job-tracker/internal/app"
	"github.com/ashahrourr/job-tracker/internal/ingest"
)

func TestHandleTriggerFetch_StartsSweepInBackground(t *testing.T) {
	started := make(chan context.Context, 1)
	appSvc := &mockAppService{
		syncAllUsersFn: func(ctx context.Context) (app.SyncSummary, error) {
			started <- ctx
			return app.SyncSummary{Users: 3, Succeeded: 2, Failed: 1, Inserted: 5}, nil
		},
	}
	srv := newTestServer(t, appSvc)

	req := httptest.NewRequest(http.MethodGet, "/trigger-email-fetch", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email fetch started")

	select {
	case ctx := <-started:
		// The sweep context must survive the already-completed request.
		assert.NoError(t, ctx.Err())
	case <-time.After(time.Second):
		t.Fatal("sweep never started")
	}
}

func TestHandleTriggerFetch_SweepFailureDoesNotChangeResponse(t *testing.T) {
	ran := make(chan struct{})
	appSvc := &mockAppService{
		syncAllUsersFn: func(_ context.Context) (app.SyncSummary, error) {
			close(ran)
			return app.SyncSummary{}, errors.New("db down")
		},
	}
	srv := newTestServer(t, appSvc)

	req := httptest.NewRequest(http.MethodGet, "/trigger-email-fetch", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("sweep never ran")
	}
}

func TestHandleMyFetch(t *testing.T) {
	var gotEmail string
	appSvc := &mockAppService{
		syncUserFn: func(_ context.Context, userEmail string) (ingest.Result, error) {
			gotEmail = userEmail
			return ingest.Result{Examined: 10, Inserted: 2}, nil
		},
	}
	srv := newTestServer(t, appSvc)

	req := authedRequest(t, srv, http.MethodGet, "/my-email-fetch", "user@example.com")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", gotEmail)
	assert.Contains(t, rec.Body.String(), `"inserted":2`)
}

func TestHandleMyFetch_AlreadyRunning(t *testing.T) {
	appSvc := &mockAppService{
		syncUserFn: func(_ context.Context, _ string) (ingest.Result, error) {
			return ingest.Result{}, app.ErrSyncInProgress
		},
	}
	srv := newTestServer(t, appSvc)

	req := authedRequest(t, srv, http.MethodGet, "/my-email-fetch", "user@example.com")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleMyFetch_Unauthenticated(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	req := httptest.NewRequest(http.MethodGet, "/my-email-fetch", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
