package formoptions

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_Get(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/form-options", nil), rec)
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var cfg Config
	json.Unmarshal(rec.Body.Bytes(), &cfg)
	if len(cfg.Treatments) == 0 || len(cfg.DelayReasons) == 0 {
		t.Errorf("expected populated config, got %+v", cfg)
	}
}

func TestHandler_Save(t *testing.T) {
	svc, repo := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"treatments":[{"value":"laser","label":"Laser","enabled":true,"category":"periodontal","default_duration":30}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/form-options", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Save(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.doc == nil || len(repo.doc.Treatments) != 1 {
		t.Error("expected document persisted")
	}
}

func TestHandler_Save_Invalid(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"treatments":[{"value":"laser","label":"Laser","category":"magic","default_duration":30}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/form-options", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Save(e.NewContext(req, httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
