package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/imagerelay/internal/domain"
)

type fakeSync struct {
	result   domain.SyncResult
	err      error
	gotImage string
	ctxErr   error
}

func (f *fakeSync) Sync(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	f.gotImage = req.Image
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

type fakeImages struct {
	report domain.PruneReport
	err    error
	calls  int
}

func (f *fakeImages) Prune(context.Context) (domain.PruneReport, error) {
	f.calls++
	return f.report, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ready(context.Context) error { return f.err }

func newTestEcho(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler()
	h.Register(e)
	return e
}

func do(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_Health(t *testing.T) {
	e := newTestEcho(NewHandler(&fakeSync{}, &fakeImages{}, fakeHealth{}))

	rec := do(e, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandler_Ready(t *testing.T) {
	e := newTestEcho(NewHandler(&fakeSync{}, &fakeImages{}, fakeHealth{}))
	assert.Equal(t, http.StatusOK, do(e, "/ready").Code)

	e = newTestEcho(NewHandler(&fakeSync{}, &fakeImages{}, fakeHealth{err: errors.New("down")}))
	assert.Equal(t, http.StatusServiceUnavailable, do(e, "/ready").Code)
}

func TestHandler_ImageSync_Success(t *testing.T) {
	syncSvc := &fakeSync{result: domain.SyncResult{SourceImage: "alpine:3.18", DestImage: "alpine_3.18"}}
	e := newTestEcho(NewHandler(syncSvc, &fakeImages{}, fakeHealth{}))

	rec := do(e, "/imagesync?image=alpine:3.18")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alpine:3.18", syncSvc.gotImage)
	assert.NoError(t, syncSvc.ctxErr)
	assert.JSONEq(t, `{"source_image":"alpine:3.18","dest_image":"alpine_3.18"}`, rec.Body.String())
}

func TestHandler_ImageSync_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"malformed", fmt.Errorf("%w: a:b:c", domain.ErrMalformedReference), http.StatusBadRequest, "malformed_reference"},
		{"in progress", fmt.Errorf("%w: alpine_3.18", domain.ErrSyncInProgress), http.StatusConflict, "sync_in_progress"},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"cleanup", fmt.Errorf("%w: alpine:3.18: in use", domain.ErrCleanupFailed), http.StatusInternalServerError, "cleanup_failed"},
		{"engine", fmt.Errorf("%w: push: denied", domain.ErrEngineOperationFailed), http.StatusBadGateway, "engine_operation_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(NewHandler(&fakeSync{err: tt.err}, &fakeImages{}, fakeHealth{}))

			rec := do(e, "/imagesync?image=x")

			assert.Equal(t, tt.wantCode, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}

func TestHandler_ImageSync_MissingParameterReachesService(t *testing.T) {
	syncSvc := &fakeSync{err: domain.ErrMalformedReference}
	e := newTestEcho(NewHandler(syncSvc, &fakeImages{}, fakeHealth{}))

	rec := do(e, "/imagesync")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "", syncSvc.gotImage)
}

func TestHandler_UnknownErrorIsRouteNotFound(t *testing.T) {
	e := newTestEcho(NewHandler(&fakeSync{err: errors.New("surprise")}, &fakeImages{}, fakeHealth{}))

	rec := do(e, "/imagesync?image=alpine")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, RouteNotFound, rec.Body.String())
}

func TestHandler_PruneImages(t *testing.T) {
	images := &fakeImages{report: domain.PruneReport{
		ImagesDeleted:  []domain.DeletedImage{{Untagged: "dierbei/csi_demo:alpine_3.18"}, {Deleted: "sha256:abc"}},
		SpaceReclaimed: 7340032,
	}}
	e := newTestEcho(NewHandler(&fakeSync{}, images, fakeHealth{}))

	rec := do(e, "/prune_images")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, images.calls)
	assert.JSONEq(t, `{"ImagesDeleted":[{"Untagged":"dierbei/csi_demo:alpine_3.18"},{"Deleted":"sha256:abc"}],"SpaceReclaimed":7340032}`, rec.Body.String())
}

func TestHandler_PruneImages_EngineFailure(t *testing.T) {
	images := &fakeImages{err: fmt.Errorf("%w: daemon down", domain.ErrEngineOperationFailed)}
	e := newTestEcho(NewHandler(&fakeSync{}, images, fakeHealth{}))

	rec := do(e, "/prune_images")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_UnknownRoute(t *testing.T) {
	e := newTestEcho(NewHandler(&fakeSync{}, &fakeImages{}, fakeHealth{}))

	for _, target := range []string{"/nope", "/imagesync/extra", "/"} {
		rec := do(e, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, RouteNotFound, rec.Body.String(), target)
	}
}

func TestHandler_WrongMethodIsRouteNotFound(t *testing.T) {
	e := newTestEcho(NewHandler(&fakeSync{}, &fakeImages{}, fakeHealth{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/imagesync?image=alpine", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, RouteNotFound, rec.Body.String())
}
