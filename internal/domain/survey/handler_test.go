package survey

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_ValidatePhase(t *testing.T) {
	h := NewHandler()
	e := echo.New()
	body := `{"airway":{"responsiveness":"unresponsive","airway_patency":"patent"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("phase")
	c.SetParamValues("airway")

	if err := h.ValidatePhase(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.IsComplete || res.CanAdvance {
		t.Errorf("expected complete but blocked, got %+v", res)
	}
}

func TestHandler_ValidatePhase_UnknownPhase(t *testing.T) {
	h := NewHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("phase")
	c.SetParamValues("history")

	err := h.ValidatePhase(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ValidatePhase_MalformedEnum(t *testing.T) {
	h := NewHandler()
	e := echo.New()
	body := `{"exposure":{"temperature":37,"rash":true,"rash_type":"spotty"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("phase")
	c.SetParamValues("exposure")

	err := h.ValidatePhase(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
