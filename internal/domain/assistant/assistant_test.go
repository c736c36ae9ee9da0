package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/parsing"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/plan"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/llm"
)

// fakeLLM streams fixed deltas and can fail before or after them.
type fakeLLM struct {
	deltas    []string
	errBefore error
	errAfter  error
	block     bool
	system    string
	deadline  time.Duration
}

func (f *fakeLLM) GenerateJSON(context.Context, llm.JSONRequest) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeLLM) StreamText(ctx context.Context, system string, _ []llm.Message, onDelta func(string) error) (string, error) {
	f.system = system
	if dl, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(dl)
	}
	if f.errBefore != nil {
		return "", f.errBefore
	}
	var out strings.Builder
	for _, d := range f.deltas {
		out.WriteString(d)
		if err := onDelta(d); err != nil {
			return out.String(), err
		}
	}
	if f.block {
		<-ctx.Done()
		return out.String(), llm.ErrTimeout
	}
	return out.String(), f.errAfter
}

func (f *fakeLLM) Model() string { return "fake" }

type planStore map[uuid.UUID]*plan.Plan

func (s planStore) Get(_ context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, ok := s[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return p, nil
}

func strPtr(s string) *string { return &s }

func userMessages(content string) []llm.Message {
	return []llm.Message{{Role: "user", Content: content}}
}

func TestValidate(t *testing.T) {
	tests := map[string][]llm.Message{
		"empty":          nil,
		"bad role":       {{Role: "system", Content: "x"}},
		"blank content":  {{Role: "user", Content: "  "}},
		"ends assistant": {{Role: "user", Content: "x"}, {Role: "assistant", Content: "y"}},
		"too long":       {{Role: "user", Content: strings.Repeat("a", maxMessageLength+1)}},
	}
	for name, msgs := range tests {
		t.Run(name, func(t *testing.T) {
			if err := Validate(&ChatRequest{Messages: msgs}); !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if err := Validate(&ChatRequest{Messages: userMessages("Par quoi commencer ?")}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestService_ChatWithPlanSummary(t *testing.T) {
	id := uuid.New()
	plans := planStore{id: {
		ID:       id,
		RawInput: "46 démonter CC + prov, 36 impl",
		Items: []parsing.PlanItem{
			{Teeth: []string{"46"}, Description: "Dépose couronne", Category: "prosthetic", TaxonomyCode: strPtr("crown_removal")},
			{Teeth: []string{"36"}, Description: "Implant", Category: "implant"},
		},
	}}
	f := &fakeLLM{deltas: []string{"Commencez ", "par la 46."}}
	svc := NewService(f, plans, 10*time.Second, zerolog.Nop())

	var got strings.Builder
	text, err := svc.Chat(context.Background(), &ChatRequest{Messages: userMessages("Ordre ?"), PlanID: &id}, func(d string) error {
		got.WriteString(d)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Commencez par la 46." || got.String() != text {
		t.Errorf("unexpected text %q / %q", text, got.String())
	}
	for _, want := range []string{"[prosthetic] Dépose couronne (dents 46) code=crown_removal", "[implant] Implant (dents 36)"} {
		if !strings.Contains(f.system, want) {
			t.Errorf("system prompt missing %q:\n%s", want, f.system)
		}
	}
	if f.deadline <= 0 || f.deadline > 10*time.Second {
		t.Errorf("expected the maximum duration as deadline, got %s", f.deadline)
	}
}

func TestService_UnknownPlan(t *testing.T) {
	id := uuid.New()
	svc := NewService(&fakeLLM{}, planStore{}, 0, zerolog.Nop())
	_, err := svc.Chat(context.Background(), &ChatRequest{Messages: userMessages("x"), PlanID: &id}, nil)
	if !errors.Is(err, plan.ErrNotFound) {
		t.Errorf("expected plan.ErrNotFound, got %v", err)
	}
}

func postChat(t *testing.T, svc *Service, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, NewHandler(svc).Chat(echo.New().NewContext(req, rec))
}

func TestHandler_StreamsDeltasThenDone(t *testing.T) {
	svc := NewService(&fakeLLM{deltas: []string{"Bon", "jour"}}, nil, time.Second, zerolog.Nop())
	rec, err := postChat(t, svc, `{"messages":[{"role":"user","content":"Salut"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected event stream, got %q", ct)
	}
	want := "data: {\"delta\":\"Bon\"}\n\ndata: {\"delta\":\"jour\"}\n\nevent: done\ndata: {}\n\n"
	if rec.Body.String() != want {
		t.Errorf("unexpected stream:\n%q\nwant:\n%q", rec.Body.String(), want)
	}
}

func TestHandler_ErrorsBeforeStream(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeLLM
		body string
		code int
	}{
		{"invalid", &fakeLLM{}, `{"messages":[]}`, http.StatusBadRequest},
		{"not configured", &fakeLLM{errBefore: llm.ErrNotConfigured}, `{"messages":[{"role":"user","content":"x"}]}`, http.StatusServiceUnavailable},
		{"provider", &fakeLLM{errBefore: &llm.APIError{StatusCode: 500, Body: "oops"}}, `{"messages":[{"role":"user","content":"x"}]}`, http.StatusBadGateway},
		{"unknown plan", &fakeLLM{}, `{"messages":[{"role":"user","content":"x"}],"plan_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.f, planStore{}, time.Second, zerolog.Nop())
			rec, err := postChat(t, svc, tt.body)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != tt.code {
				t.Fatalf("expected HTTP %d, got %v", tt.code, err)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("nothing should be streamed, got %q", rec.Body.String())
			}
		})
	}
}

func TestHandler_ErrorAfterFirstDelta(t *testing.T) {
	svc := NewService(&fakeLLM{deltas: []string{"Dé"}, errAfter: errors.New("connection reset")}, nil, time.Second, zerolog.Nop())
	rec, err := postChat(t, svc, `{"messages":[{"role":"user","content":"x"}]}`)
	if err != nil {
		t.Fatalf("stream errors are reported in-band, got %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: error\n") || strings.Contains(body, "connection reset") {
		t.Errorf("expected generic in-band error, got %q", body)
	}
	if strings.Contains(body, "event: done") {
		t.Error("done must not follow an error")
	}
}

func TestHandler_MaximumDuration(t *testing.T) {
	svc := NewService(&fakeLLM{deltas: []string{"a"}, block: true}, nil, 30*time.Millisecond, zerolog.Nop())
	start := time.Now()
	rec, err := postChat(t, svc, `{"messages":[{"role":"user","content":"x"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("stream outlived the maximum duration")
	}
	if !strings.Contains(rec.Body.String(), "maximum chat duration reached") {
		t.Errorf("expected duration error event, got %q", rec.Body.String())
	}
}
