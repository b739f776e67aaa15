package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnrichment struct {
	statuses map[string]int
	events   []domain.StorageEvent
}

func (s *stubEnrichment) Process(_ context.Context, event domain.StorageEvent) usecase.Result {
	s.events = append(s.events, event)
	if status, ok := s.statuses[event.ObjectKey]; ok {
		return usecase.NewResult(status, http.StatusText(status), "")
	}
	return usecase.NewResult(http.StatusOK, "Success", "id")
}

type stubSearch struct {
	req *usecase.SearchReq
	res *usecase.SearchRes
	err error
}

func (s *stubSearch) Search(_ context.Context, req *usecase.SearchReq) (*usecase.SearchRes, error) {
	s.req = req
	return s.res, s.err
}

func newProcessorServer(uc usecase.EnrichmentUC) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNopLogger()).InitProcessor(uc)
	return mux
}

func newSearchServer(uc usecase.SearchUC) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNopLogger()).InitSearch(uc, &cfg.SearchCfg{DefaultNumResults: 10, DefaultThreshold: 0.5})
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestToHTTPResponse(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{e.Wrap("x", e.ErrMissingQuery), http.StatusBadRequest},
		{e.Wrap("x", e.ErrMalformedEvent), http.StatusBadRequest},
		{e.Wrap(e.ErrMissingBucket.Error(), e.ErrBadRequest), http.StatusBadRequest},
		{errors.New("qdrant down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := ToHTTPResponse(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestHealth(t *testing.T) {
	rec, body := do(t, newSearchServer(&stubSearch{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestEventHandler_Success(t *testing.T) {
	uc := &stubEnrichment{}
	rec, body := do(t, newProcessorServer(uc), http.MethodPost, "/api/v1/events",
		`{"bucket":"raw","name":"Tokyo/temple.jpg","metadata":{"location":"Tokyo"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 200, body["code"])
	assert.Equal(t, "Success", body["message"])
	require.Len(t, uc.events, 1)
	assert.Equal(t, "Tokyo", uc.events[0].Metadata["location"])
}

func TestEventHandler_WorstStatusWins(t *testing.T) {
	uc := &stubEnrichment{statuses: map[string]int{"b.jpg": http.StatusInternalServerError, "c.jpg": http.StatusBadRequest}}
	body := `{"Records":[
		{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":"raw"},"object":{"key":"a.jpg"}}},
		{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":"raw"},"object":{"key":"b.jpg"}}},
		{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":"raw"},"object":{"key":"c.jpg"}}}
	]}`
	rec, _ := do(t, newProcessorServer(uc), http.MethodPost, "/api/v1/events", body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, uc.events, 3)
}

func TestEventHandler_Malformed(t *testing.T) {
	uc := &stubEnrichment{}
	rec, body := do(t, newProcessorServer(uc), http.MethodPost, "/api/v1/events", `[1,2`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrMalformedEvent.Error(), body["message"])
	assert.Empty(t, uc.events)
}

func TestSearchHandler_Defaults(t *testing.T) {
	uc := &stubSearch{res: usecase.NewSearchRes("temple", []domain.SearchHit{
		{ID: "a", SimilarityScore: 0.9, Metadata: map[string]any{"file_name": "temple.jpg"}},
	})}
	rec, body := do(t, newSearchServer(uc), http.MethodPost, "/search", `{"query":"temple"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, uc.req.NumResults)
	assert.InDelta(t, 0.5, uc.req.Threshold, 1e-9)
	assert.Equal(t, "temple", body["query"])

	results := body["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "a", hit["id"])
	assert.InDelta(t, 0.9, hit["similarity_score"], 1e-6)
}

func TestSearchHandler_ExplicitZeroes(t *testing.T) {
	uc := &stubSearch{res: usecase.NewSearchRes("q", nil)}
	rec, body := do(t, newSearchServer(uc), http.MethodPost, "/search", `{"query":"q","num_results":0,"threshold":0}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, uc.req.NumResults)
	assert.Zero(t, uc.req.Threshold)
	assert.Equal(t, []any{}, body["results"])
}

func TestSearchHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{name: "bad json", body: `{`, code: http.StatusBadRequest},
		{name: "missing query", body: `{}`, err: e.Wrap("SearchUseCase.Search", e.ErrMissingQuery), code: http.StatusBadRequest},
		{name: "backend failure", body: `{"query":"q"}`, err: errors.New("index unavailable"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &stubSearch{err: tt.err}
			rec, body := do(t, newSearchServer(uc), http.MethodPost, "/search", tt.body)

			assert.Equal(t, tt.code, rec.Code)
			assert.EqualValues(t, tt.code, body["code"])
		})
	}
}
