package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/infra/resilience"
)

func newTestClient(serverURL string) *Client {
	return NewClient(
		&http.Client{Timeout: 2 * time.Second},
		serverURL,
		resilience.NewCircuitBreaker("ocr-test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond},
		zap.NewNop(),
		observability.NewMetrics(),
	)
}

func TestScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("account"); got != "a1" {
			t.Errorf("account query = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "shot.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "png-bytes" {
			t.Errorf("image payload = %q", data)
		}
		w.Write([]byte(`{"values": {"现金": 1000000, "获得经验": "20000000"}}`))
	}))
	defer srv.Close()

	values, err := newTestClient(srv.URL).Scan(context.Background(), "a1", "shot.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if values[domain.LabelCash] != "1000000" {
		t.Errorf("cash = %q", values[domain.LabelCash])
	}
	if values[domain.LabelExp] != "20000000" {
		t.Errorf("exp = %q", values[domain.LabelExp])
	}
	if _, ok := values[domain.LabelReserve]; ok {
		t.Error("reserve present despite being absent from reply")
	}
}

func TestScan_EmptyValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	values, err := newTestClient(srv.URL).Scan(context.Background(), "a1", "shot.png", []byte("x"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if values == nil || len(values) != 0 {
		t.Errorf("values = %v, want empty map", values)
	}
}

func TestScan_ServerErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unreadable image", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Scan(context.Background(), "a1", "shot.png", []byte("x"))
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
}
