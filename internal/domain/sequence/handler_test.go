package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/scherkao31/dentseq-data-sub000/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func withUser(req *http.Request, uid string) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, uid)
	return req.WithContext(ctx)
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, strings.NewReader(string(b)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func assertHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError %d, got %v", code, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
	return he
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()

	req := withUser(jsonRequest(http.MethodPost, "/api/v1/sequences", buildSequence(t)), "clinician-7")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var seq Sequence
	json.Unmarshal(rec.Body.Bytes(), &seq)
	if strVal(seq.CreatedBy) != "clinician-7" {
		t.Errorf("expected created_by stamped, got %q", strVal(seq.CreatedBy))
	}
	if len(seq.Appointments) != 2 || seq.Status != StatusDraft {
		t.Errorf("unexpected response: %+v", seq)
	}
}

func TestHandler_Create_ValidationError(t *testing.T) {
	h, _, e := newTestHandler()
	seq := buildSequence(t)
	seq.Appointments[0].Treatments[0].Teeth = []string{"99"}

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/sequences", seq), httptest.NewRecorder())
	he := assertHTTPError(t, h.Create(c), http.StatusBadRequest)
	if !strings.Contains(he.Message.(string), "99") {
		t.Errorf("expected specific message, got %v", he.Message)
	}
}

func TestHandler_Create_StoreErrorIsGeneric(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.failOn = "insert_group"

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/sequences", buildSequence(t)), httptest.NewRecorder())
	he := assertHTTPError(t, h.Create(c), http.StatusInternalServerError)
	if he.Message != "failed to save sequence" {
		t.Errorf("expected generic message, got %v", he.Message)
	}
	if he.Internal == nil || !strings.Contains(he.Internal.Error(), "connection reset") {
		t.Errorf("expected detail kept as internal error, got %v", he.Internal)
	}
}

func TestHandler_Get(t *testing.T) {
	h, _, e := newTestHandler()
	seq := buildSequence(t)
	h.svc.Create(context.Background(), seq)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(seq.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Sequence
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Appointments) != 2 || len(got.Appointments[0].Treatments) != 2 {
		t.Errorf("expected loaded tree, got %+v", got)
	}
}

func TestHandler_Get_NotFoundAndInvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	assertHTTPError(t, h.Get(c), http.StatusNotFound)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	assertHTTPError(t, h.Get(c), http.StatusBadRequest)
}

func TestHandler_List(t *testing.T) {
	h, _, e := newTestHandler()
	seq := buildSequence(t)
	h.svc.Create(context.Background(), seq)
	h.svc.Create(context.Background(), buildSequence(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sequences?plan_id="+seq.PlanID.String(), nil)
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("expected 1 sequence for plan, got %d", resp.Total)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, _, e := newTestHandler()
	seq := buildSequence(t)
	h.svc.Create(context.Background(), seq)

	req := withUser(jsonRequest(http.MethodPatch, "/", map[string]string{"status": "approved", "review_notes": "ok"}), "reviewer-2")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(seq.ID.String())

	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Sequence
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusApproved || strVal(got.ReviewedBy) != "reviewer-2" || strVal(got.ReviewNotes) != "ok" {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestHandler_Update(t *testing.T) {
	h, _, e := newTestHandler()
	seq := buildSequence(t)
	h.svc.Create(context.Background(), seq)
	seq.Appointments = seq.Appointments[:1]

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", seq), rec)
	c.SetParamNames("id")
	c.SetParamValues(seq.ID.String())
	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, _ := h.svc.Load(context.Background(), seq.ID)
	if len(loaded.Appointments) != 1 {
		t.Errorf("expected tree replaced with 1 appointment, got %d", len(loaded.Appointments))
	}
}

func TestHandler_Delete(t *testing.T) {
	h, _, e := newTestHandler()
	seq := buildSequence(t)
	h.svc.Create(context.Background(), seq)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(seq.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(seq.ID.String())
	assertHTTPError(t, h.Delete(c), http.StatusNotFound)
}

func TestHandler_EditorNewAndApply(t *testing.T) {
	h, _, e := newTestHandler()

	rec := httptest.NewRecorder()
	if err := h.NewDraft(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var draft applyRequest
	json.Unmarshal(rec.Body.Bytes(), &draft)
	if len(draft.Appointments) != 1 {
		t.Fatalf("expected fresh 1x1 tree, got %d appointments", len(draft.Appointments))
	}

	a := draft.Appointments[0]
	body := applyRequest{
		Appointments: draft.Appointments,
		Operation: Operation{
			Kind:          OpUpdateTreatment,
			AppointmentID: a.ID,
			TreatmentID:   a.Treatments[0].ID,
			Treatment:     &TreatmentPatch{TreatmentType: strPtr("endo_molar")},
		},
	}
	rec = httptest.NewRecorder()
	if err := h.Apply(e.NewContext(jsonRequest(http.MethodPost, "/", body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var next applyRequest
	json.Unmarshal(rec.Body.Bytes(), &next)
	got := next.Appointments[0]
	if got.EstimatedDurationMinutes != 90 || got.Treatments[0].TreatmentCategory != "endodontic" {
		t.Errorf("expected catalog derivation, got %d / %s", got.EstimatedDurationMinutes, got.Treatments[0].TreatmentCategory)
	}

	body.Operation = Operation{Kind: OpMoveAppointment, AppointmentID: a.ID, Direction: "left"}
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), httptest.NewRecorder())
	assertHTTPError(t, h.Apply(c), http.StatusBadRequest)
}

func TestHandler_NullEntriesAreBadRequest(t *testing.T) {
	h, repo, e := newTestHandler()

	body := `{"appointments":[null],"operation":{"kind":"add_appointment"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sequence-editor/apply", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assertHTTPError(t, h.Apply(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)

	body = `{"plan_id":"` + uuid.New().String() + `","appointments":[{"position":0,"treatments":[null]}]}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sequences", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assertHTTPError(t, h.Create(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)

	if len(repo.calls) != 0 {
		t.Errorf("expected no store calls, got %v", repo.calls)
	}
}
