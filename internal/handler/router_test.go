package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/export"
	"github.com/boddenberg/yield-assistant-go/internal/handler"
	"github.com/boddenberg/yield-assistant-go/internal/infra/cache"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/infra/ocr"
	"github.com/boddenberg/yield-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/yield-assistant-go/internal/infra/statestore"
	"github.com/boddenberg/yield-assistant-go/internal/service"
	"github.com/boddenberg/yield-assistant-go/internal/syncer"
	"github.com/boddenberg/yield-assistant-go/internal/upload"
)

// fakeBackend emulates the document store and the OCR service well enough to
// run the whole stack through the router.
type fakeBackend struct {
	mu       sync.Mutex
	registry json.RawMessage
	accounts map[string]json.RawMessage
	scan     string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		registry: json.RawMessage(`{"accounts":[{"id":"a1","name":"主号"}],"account":"a1"}`),
		accounts: map[string]json.RawMessage{},
		scan:     `{"values":{"现金":1000000,"获得经验":50000000}}`,
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := r.URL.Query().Get("account")
		switch {
		case r.Method == http.MethodGet && id == "":
			w.Write(b.registry)
		case r.Method == http.MethodGet:
			if doc, ok := b.accounts[id]; ok {
				w.Write(doc)
			} else {
				w.Write([]byte(`{}`))
			}
		case r.Method == http.MethodPost && id == "":
			body := new(bytes.Buffer)
			body.ReadFrom(r.Body)
			b.registry = body.Bytes()
		default:
			body := new(bytes.Buffer)
			body.ReadFrom(r.Body)
			b.accounts[id] = body.Bytes()
		}
	})
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		w.Write([]byte(b.scan))
	})
	return mux
}

func newTestStack(t *testing.T, backendURL string) (http.Handler, *service.Tracker) {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	httpClient := &http.Client{Timeout: 2 * time.Second}
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}

	store := statestore.NewClient(httpClient, backendURL,
		resilience.NewCircuitBreaker("statestore-test"), cfg, logger, metrics)
	scanner := ocr.NewClient(httpClient, backendURL,
		resilience.NewCircuitBreaker("ocr-test"), cfg, logger, metrics)

	syn := syncer.New(logger, store, metrics, 10*time.Millisecond, time.Second)
	if err := syn.Init(context.Background()); err != nil {
		t.Fatalf("syncer init: %v", err)
	}
	t.Cleanup(syn.Close)

	workflow := upload.NewWorkflow(logger, scanner, syn, upload.NewPreviewStore(), metrics)
	t.Cleanup(workflow.Close)

	exporter := export.NewService(logger, store, syn,
		cache.New[domain.AccountState](time.Minute), metrics, 4)

	trk := service.NewTracker(logger, syn, workflow, exporter, metrics)
	return handler.NewRouter(trk, metrics, logger), trk
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOperationalEndpoints(t *testing.T) {
	backend := httptest.NewServer(newFakeBackend().handler())
	defer backend.Close()
	router, _ := newTestStack(t, backend.URL)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping", "/v1/metrics/summary"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestSessionFlow(t *testing.T) {
	backend := httptest.NewServer(newFakeBackend().handler())
	defer backend.Close()
	router, _ := newTestStack(t, backend.URL)

	// Calculating before any data entry is a validation error.
	if rec := doJSON(t, router, http.MethodPost, "/v1/session/calculate", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("premature calculate: status %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPut, "/v1/session/init", map[string]any{
		"time": "10:00:00", "cash": "1000000", "exp": "50000000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update init: status %d body %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, router, http.MethodPut, "/v1/session/final", map[string]any{
		"time": "15:00:00", "cash": "1500000", "exp": "70000000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update final: status %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/session/calculate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate: status %d body %s", rec.Code, rec.Body)
	}
	var result domain.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if float64(result.Cash) != 500000 || float64(result.Duration) != 5.0 || float64(result.HourlyCash) != 100000 {
		t.Errorf("result = %+v", result)
	}

	// The session view now carries the result.
	rec = doJSON(t, router, http.MethodGet, "/v1/session", nil)
	var view service.SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if view.Result == nil || float64(view.Result.Cash) != 500000 {
		t.Errorf("session view = %+v", view)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/report/weekly", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("weekly report: status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "50.0w") {
		t.Errorf("report missing formatted net cash: %s", rec.Body)
	}
}

func TestAccountLifecycle(t *testing.T) {
	backend := httptest.NewServer(newFakeBackend().handler())
	defer backend.Close()
	router, _ := newTestStack(t, backend.URL)

	rec := doJSON(t, router, http.MethodPost, "/v1/accounts", map[string]string{"name": "小号"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add account: status %d", rec.Code)
	}
	var acct domain.Account
	json.Unmarshal(rec.Body.Bytes(), &acct)

	rec = doJSON(t, router, http.MethodGet, "/v1/accounts", nil)
	var reg domain.Registry
	json.Unmarshal(rec.Body.Bytes(), &reg)
	if len(reg.Accounts) != 2 || reg.Account != acct.ID {
		t.Fatalf("registry = %+v", reg)
	}

	rec = doJSON(t, router, http.MethodPut, "/v1/accounts/"+acct.ID, map[string]string{"name": "改名"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: status %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/accounts/a1/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: status %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/v1/accounts/"+acct.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	// Deleting the only remaining account is refused.
	rec = doJSON(t, router, http.MethodDelete, "/v1/accounts/a1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete last: status %d, want 409", rec.Code)
	}
}

func TestUploadFlow(t *testing.T) {
	backend := httptest.NewServer(newFakeBackend().handler())
	defer backend.Close()
	router, _ := newTestStack(t, backend.URL)

	// File before target is rejected.
	req, rec := multipartUpload(t, "/v1/upload/file", "file", "shot.png", "image/png", []byte("png"))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("file without target: status %d", rec.Code)
	}

	r := doJSON(t, router, http.MethodPost, "/v1/upload/target", map[string]string{
		"dataType": "init", "scanType": "cash_exp",
	})
	if r.Code != http.StatusOK {
		t.Fatalf("set target: status %d body %s", r.Code, r.Body)
	}

	req, rec = multipartUpload(t, "/v1/upload/file", "file", "shot.png", "image/png", []byte("png"))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload file: status %d body %s", rec.Code, rec.Body)
	}
	var staged struct {
		PreviewID string `json:"previewId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &staged)
	if staged.PreviewID == "" {
		t.Fatal("no preview id returned")
	}

	prev := doJSON(t, router, http.MethodGet, "/v1/upload/preview?id="+staged.PreviewID, nil)
	if prev.Code != http.StatusOK || prev.Body.String() != "png" {
		t.Fatalf("preview: status %d body %q", prev.Code, prev.Body)
	}

	r = doJSON(t, router, http.MethodPost, "/v1/upload/confirm", nil)
	if r.Code != http.StatusOK {
		t.Fatalf("confirm: status %d body %s", r.Code, r.Body)
	}

	// Recognised values landed in the init snapshot.
	r = doJSON(t, router, http.MethodGet, "/v1/session", nil)
	var view service.SessionView
	json.Unmarshal(r.Body.Bytes(), &view)
	if view.InitData.Cash != "1000000" || view.InitData.Exp != "50000000" {
		t.Errorf("init snapshot after scan = %+v", view.InitData)
	}

	// Confirming again with nothing staged is rejected.
	if r := doJSON(t, router, http.MethodPost, "/v1/upload/confirm", nil); r.Code != http.StatusBadRequest {
		t.Errorf("confirm with nothing pending: status %d", r.Code)
	}
}

func TestUploadPaste(t *testing.T) {
	backend := httptest.NewServer(newFakeBackend().handler())
	defer backend.Close()
	router, _ := newTestStack(t, backend.URL)

	// Text-only paste is a no-op even without a target.
	req, rec := multipartUpload(t, "/v1/upload/paste", "item", "clip.txt", "text/plain", []byte("hello"))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"handled":false`) {
		t.Fatalf("text paste: status %d body %s", rec.Code, rec.Body)
	}

	// Image paste without a target is rejected.
	req, rec = multipartUpload(t, "/v1/upload/paste", "item", "clip.png", "image/png", []byte("png"))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("image paste without target: status %d", rec.Code)
	}

	doJSON(t, router, http.MethodPost, "/v1/upload/target", map[string]string{
		"dataType": "final", "scanType": "reserve",
	})
	req, rec = multipartUpload(t, "/v1/upload/paste", "item", "clip.png", "image/png", []byte("png"))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"handled":true`) {
		t.Fatalf("image paste: status %d body %s", rec.Code, rec.Body)
	}
}

func TestExportEndpoints(t *testing.T) {
	backend := newFakeBackend()
	backend.accounts["a1"] = json.RawMessage(
		`{"weeklyData":{"2025-03-10":{"netCash":500000,"duration":5}}}`)
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	router, _ := newTestStack(t, srv.URL)

	rec := doJSON(t, router, http.MethodGet, "/v1/export/csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export csv: status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "weekly_report_all_accounts.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), `"账号","日期"`) {
		t.Errorf("csv header = %s", rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"2025-03-10"`) {
		t.Errorf("csv missing data row: %s", rec.Body)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/export/xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export xlsx: status %d", rec.Code)
	}
	if body := rec.Body.Bytes(); len(body) < 4 || body[0] != 'P' || body[1] != 'K' {
		t.Error("xlsx body does not look like a workbook")
	}
}

func multipartUpload(t *testing.T, path, field, filename, contentType string, data []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, httptest.NewRecorder()
}
