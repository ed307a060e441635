package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(nil, Func("devices", func() error { return errors.New("adc: nack") }))
	rec := serve(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	var fault error
	h := New(nil,
		Func("devices", func() error { return fault }),
		Checker{Name: "ctx", Check: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		}},
	)

	rec := serve(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	fault = errors.New("adc: i2c nack")
	rec = serve(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" || !strings.Contains(body.Checks["devices"], "i2c nack") || body.Checks["ctx"] != "ok" {
		t.Fatalf("body = %+v", body)
	}
}

func TestStatusz(t *testing.T) {
	t.Parallel()

	h := New(func() any { return map[string]string{"program": "delay"} })
	rec := serve(t, h, "/statusz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"program":"delay"`) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}

	if rec := serve(t, New(nil), "/statusz"); rec.Code != http.StatusNotFound {
		t.Fatalf("status without source = %d, want 404", rec.Code)
	}
}
