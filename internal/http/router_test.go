package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"litcite/internal/cache"
	"litcite/internal/citation"
	"litcite/internal/handlers"
	"litcite/internal/lexicon"
	storagemocks "litcite/internal/storage/mocks"
	vectormocks "litcite/internal/vectorstore/mocks"
)

type stubCiter struct{}

func (stubCiter) Run(context.Context, string, string, []string) (citation.Result, error) {
	return citation.Result{
		AnnotatedAnswer: "ok",
		Locations:       map[string][]citation.Location{},
	}, nil
}

func newTestRouter(t *testing.T, ctrl *gomock.Controller) http.Handler {
	t.Helper()

	index := vectormocks.NewMockIndex(ctrl)
	index.EXPECT().CollectionExists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	runs := storagemocks.NewMockRunStore(ctrl)
	runs.EXPECT().ListRecent(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	lex, err := lexicon.Load("", "")
	if err != nil {
		t.Fatalf("lexicon.Load() error = %v", err)
	}

	return NewRouter(&Deps{
		CiteHandler:   handlers.NewCiteHandler(stubCiter{}),
		HealthHandler: handlers.NewHealthHandler(index, "paragraphs", "sentences"),
		RunsHandler:   handlers.NewRunsHandler(runs),
		StatsHandler:  handlers.NewStatsHandler(map[string]*cache.Store{"embeddings": cache.New(time.Minute, time.Minute)}, lex),
	})
}

func TestNewRouter_Routes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := newTestRouter(t, ctrl)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"cite", http.MethodPost, "/api/cite", `{"question":"q","answer":"a"}`, http.StatusOK},
		{"health", http.MethodGet, "/api/health", "", http.StatusOK},
		{"stats", http.MethodGet, "/api/stats", "", http.StatusOK},
		{"runs list", http.MethodGet, "/api/runs", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
