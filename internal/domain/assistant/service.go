package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/plan"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/llm"
)

const (
	DefaultMaxDuration = 30 * time.Second
	maxMessages        = 40
	maxMessageLength   = 8000
)

var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PlanSource loads the plan a conversation is about.
type PlanSource interface {
	Get(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
	PlanID   *uuid.UUID    `json:"plan_id,omitempty"`
}

type Service struct {
	client      llm.Client
	plans       PlanSource
	maxDuration time.Duration
	log         zerolog.Logger
}

func NewService(client llm.Client, plans PlanSource, maxDuration time.Duration, log zerolog.Logger) *Service {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Service{client: client, plans: plans, maxDuration: maxDuration, log: log.With().Str("component", "assistant").Logger()}
}

// Validate checks a chat request before anything is streamed.
func Validate(req *ChatRequest) error {
	if len(req.Messages) == 0 {
		return invalid("messages is required")
	}
	if len(req.Messages) > maxMessages {
		return invalid("at most %d messages are accepted", maxMessages)
	}
	for i, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return invalid("message %d: role must be user or assistant", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return invalid("message %d: content is empty", i)
		}
		if len(m.Content) > maxMessageLength {
			return invalid("message %d: content exceeds %d characters", i, maxMessageLength)
		}
	}
	if req.Messages[len(req.Messages)-1].Role != "user" {
		return invalid("the last message must come from the user")
	}
	return nil
}

// Chat streams the assistant reply through onDelta and returns the full
// text. The call is cut off after the configured maximum duration.
func (s *Service) Chat(ctx context.Context, req *ChatRequest, onDelta func(string) error) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}
	system := systemPrompt
	if req.PlanID != nil && s.plans != nil {
		p, err := s.plans.Get(ctx, *req.PlanID)
		if err != nil {
			return "", err
		}
		system += "\n\n" + summarizePlan(p)
	}

	ctx, cancel := context.WithTimeout(ctx, s.maxDuration)
	defer cancel()

	start := time.Now()
	text, err := s.client.StreamText(ctx, system, req.Messages, onDelta)
	evt := s.log.Info()
	if err != nil {
		evt = s.log.Error().Err(err)
	}
	evt.Str("model", s.client.Model()).
		Int("messages", len(req.Messages)).
		Int("chars", len(text)).
		Dur("latency", time.Since(start)).
		Msg("chat completed")
	return text, err
}

const systemPrompt = `Tu es un assistant pour chirurgiens-dentistes qui construisent des séquences de traitement.
Une séquence est une liste ordonnée de séances; chaque séance contient des actes ordonnés.
Réponds en français, de façon concise. Explique l'ordre clinique des actes (urgence, assainissement,
endodontie, parodontie, chirurgie, prothèse), les délais de cicatrisation usuels et les contraintes
d'ordre. Ne pose pas de diagnostic et rappelle que la décision appartient au praticien.`

// summarizePlan renders the plan items as context for the model.
func summarizePlan(p *plan.Plan) string {
	var b strings.Builder
	b.WriteString("Plan de traitement du patient:\n")
	if p.RawInput != "" {
		fmt.Fprintf(&b, "Texte saisi: %s\n", p.RawInput)
	}
	for i, it := range p.Items {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, it.Category, it.Description)
		if len(it.Teeth) > 0 {
			fmt.Fprintf(&b, " (dents %s)", strings.Join(it.Teeth, ", "))
		}
		if it.TaxonomyCode != nil {
			fmt.Fprintf(&b, " code=%s", *it.TaxonomyCode)
		}
		b.WriteString("\n")
	}
	return b.String()
}
