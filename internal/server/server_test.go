package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/assemble"
	"github.com/jonathan/nfa-builder/internal/classify"
	"github.com/jonathan/nfa-builder/internal/config"
	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/generation"
	"github.com/jonathan/nfa-builder/internal/llm"
	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/reconcile"
	"github.com/jonathan/nfa-builder/internal/server/ratelimit"
	"github.com/jonathan/nfa-builder/internal/signatures"
	"github.com/jonathan/nfa-builder/internal/storage"
	"github.com/jonathan/nfa-builder/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const generatePayload = `{
	"subject": "Chess Tournament",
	"summary": "Annual inter-college chess tournament",
	"nfa_type": "Reimbursement",
	"need_bullets": true,
	"table_data": [["Item", "Amount"], ["Trophies", 5000]]
}`

// mockHistory is an in-memory HistoryStore.
type mockHistory struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*db.Run
	err  error
}

func newMockHistory(runs ...db.Run) *mockHistory {
	h := &mockHistory{runs: map[uuid.UUID]*db.Run{}}
	for i := range runs {
		h.runs[runs[i].ID] = &runs[i]
	}
	return h
}

func (m *mockHistory) ListRuns(_ context.Context, filters db.RunFilters) ([]db.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []db.Run
	for _, run := range m.runs {
		if filters.ApprovalStatus != "" && run.ApprovalStatus != filters.ApprovalStatus {
			continue
		}
		out = append(out, *run)
	}
	return out, nil
}

func (m *mockHistory) GetRun(_ context.Context, runID uuid.UUID) (*db.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (m *mockHistory) UpdateApprovalStatus(_ context.Context, runID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, db.ErrNotFound)
	}
	run.ApprovalStatus = status
	return nil
}

type testOptions struct {
	client    llm.Client
	history   HistoryStore
	cfg       Config
	sigStore  signatures.Store
	outputDir string
}

func newTestServer(t *testing.T, opts testOptions) *Server {
	t.Helper()
	logger := zap.NewNop()
	classifier := classify.New(classify.DefaultOptions())
	if opts.outputDir == "" {
		opts.outputDir = t.TempDir()
	}
	store := storage.New(opts.outputDir)

	builder, err := pipeline.NewBuilder(pipeline.Options{
		Generator:  generation.New(opts.client, generation.DefaultOptions(), logger),
		Reconciler: reconcile.New(opts.client, classifier, reconcile.DefaultOptions(), logger),
		Classifier: classifier,
		Assembler:  assemble.New(assemble.Options{Defaults: signatures.Defaults()}, logger),
		Store:      store,
		Signatures: opts.sigStore,
		Logger:     logger,
	})
	require.NoError(t, err)

	s, err := New(opts.cfg, Deps{
		Builder:    builder,
		Store:      store,
		History:    opts.history,
		Signatures: opts.sigStore,
		Logger:     logger,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:5000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := do(t, s, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["history"])
}

func TestNew_RequiresBuilder(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestNew_AuthNeedsSecrets(t *testing.T) {
	logger := zap.NewNop()
	classifier := classify.New(classify.DefaultOptions())
	builder, err := pipeline.NewBuilder(pipeline.Options{
		Generator:  generation.New(nil, generation.DefaultOptions(), logger),
		Reconciler: reconcile.New(nil, classifier, reconcile.DefaultOptions(), logger),
		Classifier: classifier,
		Assembler:  assemble.New(assemble.Options{}, logger),
		Store:      storage.New(t.TempDir()),
	})
	require.NoError(t, err)

	_, err = New(Config{Auth: config.AuthConfig{Username: "admin", PasswordHash: "x"}}, Deps{Builder: builder, Store: storage.New(t.TempDir())})
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testOptions{cfg: Config{AllowedOrigins: []string{"https://nfa.example.edu"}}})

	w := do(t, s, http.MethodOptions, "/api/generate-nfa", "", "Origin", "https://nfa.example.edu")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://nfa.example.edu", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	w = do(t, s, http.MethodOptions, "/api/generate-nfa", "", "Origin", "https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGenerateEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := do(t, s, http.MethodPost, "/api/generate-nfa", generatePayload)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[types.BuildResult](t, w)
	assert.True(t, result.Success)
	assert.Equal(t, "NFA_reimbursement_Chess_Tournament.docx", result.FileName)
	assert.True(t, strings.HasPrefix(result.PreviewText, "Subject: Chess Tournament"))
	assert.Contains(t, result.PreviewHTML, "<table>")
	assert.Contains(t, result.PreviewHTML, "5000")

	file := do(t, s, http.MethodGet, "/api/files/"+result.FileName, "")
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, docxContentType, file.Header().Get("Content-Type"))
	assert.Contains(t, file.Header().Get("Content-Disposition"), result.FileName)
	assert.True(t, bytes.HasPrefix(file.Body.Bytes(), []byte("PK")))
}

func TestGenerateEndpoint_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "missing summary", body: `{"subject":"A","nfa_type":"advance"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown type", body: `{"subject":"A","summary":"B","nfa_type":"loan"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{"subject":`, wantStatus: http.StatusBadRequest},
		{name: "table cell object", body: `{"subject":"A","summary":"B","nfa_type":"advance","table_data":[[{"x":1}]]}`, wantStatus: http.StatusBadRequest},
		{name: "oversized body", body: `{"subject":"` + strings.Repeat("a", 2<<20) + `"}`, wantStatus: http.StatusBadRequest},
	}

	s := newTestServer(t, testOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/generate-nfa", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			result := decode[types.BuildResult](t, w)
			assert.False(t, result.Success)
			assert.Equal(t, pipeline.KindValidation, result.ErrorType)
			assert.NotEmpty(t, result.Error)
		})
	}
}

func TestGenerateEndpoint_PersistenceFailure(t *testing.T) {
	blocker := t.TempDir() + "/file"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	s := newTestServer(t, testOptions{outputDir: blocker})

	w := do(t, s, http.MethodPost, "/api/generate-nfa", generatePayload)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	result := decode[types.BuildResult](t, w)
	assert.Equal(t, pipeline.KindPersistence, result.ErrorType)
}

func TestGenerateStreamEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := do(t, s, http.MethodPost, "/api/generate-nfa/stream", generatePayload)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: step\n")
	assert.Contains(t, body, "event: result\n")
	assert.Contains(t, body, `"success":true`)
	assert.Less(t, strings.Index(body, "event: step"), strings.Index(body, "event: result"))
}

func TestEditEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := do(t, s, http.MethodPost, "/api/edit-nfa", `{"text":"Subject: A\n\nBody.","prompt":"shorten"}`)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.EditResult](t, w)
	assert.True(t, result.Success)
	assert.False(t, result.Applied)
	assert.Contains(t, result.EditedText, "[Edit not applied: shorten]")

	w = do(t, s, http.MethodPost, "/api/edit-nfa", `{"text":"Subject: A"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/edit-nfa", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditEndpoint_WithModel(t *testing.T) {
	client := &llm.MockClient{Text: "Subject: Other\n\nBody in Hall B.\n\nThe above proposal is submitted for approval."}
	s := newTestServer(t, testOptions{client: client})

	w := do(t, s, http.MethodPost, "/api/edit-nfa",
		`{"text":"Subject: A\n\nBody.\n\nThe above proposal is submitted for approval.","prompt":"move to Hall B"}`)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.EditResult](t, w)
	assert.True(t, result.Applied)
	assert.True(t, strings.HasPrefix(result.EditedText, "Subject: A"))
	assert.Contains(t, result.EditedText, "Hall B")
}

func TestDownloadEditedEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	payload := `{"subject":"Chess Tournament","summary":"Chess","nfa_type":"advance","need_bullets":false,` +
		`"edited_text":"Subject: Chess Tournament\n\nThe event moves to Hall B."}`
	w := do(t, s, http.MethodPost, "/api/download-edited-nfa", payload)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, docxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "NFA_advance_Chess_Tournament_edited.docx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	missing := `{"subject":"Chess Tournament","summary":"Chess","nfa_type":"advance"}`
	w = do(t, s, http.MethodPost, "/api/download-edited-nfa", missing)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileEndpoint_Rejections(t *testing.T) {
	s := newTestServer(t, testOptions{})

	for _, path := range []string{"/api/files/missing.docx", "/api/files/notes.txt", "/api/files/.nfa-123.tmp"} {
		w := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestSignaturesEndpoint(t *testing.T) {
	store := signatures.StaticStore{Records: signatures.Records{
		signatures.RolePreparedBy:    {{Name: "A. Rao", Designation: "Secretary"}},
		signatures.RoleRecommendedBy: {{Name: "B. Iyer", Designation: "Dean"}},
		signatures.RoleApprovedBy:    {{Name: "C. Das", Designation: "Registrar", Order: 1}, {Name: "D. Sen", Designation: "VC", Order: 2}},
	}}
	s := newTestServer(t, testOptions{sigStore: store})

	w := do(t, s, http.MethodGet, "/api/signatures", "")

	require.Equal(t, http.StatusOK, w.Code)
	layout := decode[types.SignatureLayout](t, w)
	assert.Equal(t, "C. Das", layout.TopRight.Name)
	assert.Equal(t, "D. Sen", layout.BottomRight.Name)
}

func TestSignaturesEndpoint_Defaults(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := do(t, s, http.MethodGet, "/api/signatures", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, signatures.Defaults(), decode[types.SignatureLayout](t, w))
}

func TestHistoryEndpoints_NoDatabase(t *testing.T) {
	s := newTestServer(t, testOptions{})

	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/history", ""},
		{http.MethodGet, "/api/history/" + uuid.NewString(), ""},
		{http.MethodPatch, "/api/history/" + uuid.NewString() + "/status", `{"status":"approved"}`},
	} {
		w := do(t, s, req.method, req.path, req.body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, req.path)
		assert.Equal(t, "unavailable", decode[map[string]any](t, w)["error_type"])
	}
}

func TestHistoryEndpoints(t *testing.T) {
	run := db.Run{
		ID:             uuid.New(),
		Subject:        "Chess Tournament",
		Status:         db.RunStatusCompleted,
		ApprovalStatus: db.ApprovalPending,
		CreatedAt:      time.Now(),
	}
	history := newMockHistory(run)
	s := newTestServer(t, testOptions{history: history})

	w := do(t, s, http.MethodGet, "/api/history?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Runs  []db.Run `json:"runs"`
		Count int      `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = do(t, s, http.MethodGet, "/api/history/"+run.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chess Tournament", decode[db.Run](t, w).Subject)

	w = do(t, s, http.MethodPatch, "/api/history/"+run.ID.String()+"/status", `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/history?approval_status=approved", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["count"])
}

func TestHistoryEndpoints_Errors(t *testing.T) {
	s := newTestServer(t, testOptions{history: newMockHistory()})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"bad limit", http.MethodGet, "/api/history?limit=-1", "", http.StatusBadRequest},
		{"bad approval filter", http.MethodGet, "/api/history?approval_status=archived", "", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/history/not-a-uuid", "", http.StatusBadRequest},
		{"unknown run", http.MethodGet, "/api/history/" + uuid.NewString(), "", http.StatusNotFound},
		{"bad status", http.MethodPatch, "/api/history/" + uuid.NewString() + "/status", `{"status":"archived"}`, http.StatusBadRequest},
		{"unknown run status", http.MethodPatch, "/api/history/" + uuid.NewString() + "/status", `{"status":"approved"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, testOptions{cfg: Config{RateLimit: &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/api/edit-nfa", Method: "POST", Limit: 1, Window: time.Hour}},
	}}})
	body := `{"text":"Subject: A","prompt":"x"}`

	first := do(t, s, http.MethodPost, "/api/edit-nfa", body)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := do(t, s, http.MethodPost, "/api/edit-nfa", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, second)["error_type"])
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, testOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
