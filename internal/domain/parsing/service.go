package parsing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/llm"
)

// ErrEmptyInput is returned for a blank plan.
var ErrEmptyInput = errors.New("rawInput is required")

// Parser turns free-text plans into structured items through a single
// schema-constrained model call. Output is trusted as returned once it
// matches the schema: teeth and taxonomy codes are not checked.
type Parser struct {
	client llm.Client
	prompt string
	log    zerolog.Logger
}

// NewParser builds a parser whose prompt lists the given catalog entries.
func NewParser(client llm.Client, entries []taxonomy.Entry, log zerolog.Logger) *Parser {
	return &Parser{
		client: client,
		prompt: systemPrompt(entries),
		log:    log.With().Str("component", "parsing").Logger(),
	}
}

// Parse runs the extraction. There is no retry and no partial result.
func (p *Parser) Parse(ctx context.Context, rawInput string) (*Result, error) {
	rawInput = strings.TrimSpace(rawInput)
	if rawInput == "" {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	raw, err := p.client.GenerateJSON(ctx, llm.JSONRequest{
		Task:       llm.TaskParsePlan,
		System:     p.prompt,
		User:       rawInput,
		SchemaName: schemaName,
		Schema:     planSchema(),
	})
	if err != nil {
		p.log.Error().Err(err).Str("model", p.client.Model()).Dur("latency", time.Since(start)).Msg("plan parsing failed")
		return nil, err
	}

	res, err := decodeResult(raw)
	if err != nil {
		p.log.Error().Err(err).Str("model", p.client.Model()).Bytes("output", truncate(raw, 2048)).Msg("plan parsing output rejected")
		return nil, err
	}
	for i := range res.Items {
		res.Items[i].ID = uuid.NewString()
	}
	p.log.Info().
		Str("model", p.client.Model()).
		Int("items", len(res.Items)).
		Float64("confidence", res.Confidence).
		Dur("latency", time.Since(start)).
		Msg("plan parsed")
	return res, nil
}

// decodeResult decodes and checks the model output against the schema.
func decodeResult(raw []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var res Result
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrInvalidOutput, err)
	}
	if res.Items == nil {
		return nil, fmt.Errorf("%w: items missing", llm.ErrInvalidOutput)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", llm.ErrInvalidOutput, res.Confidence)
	}
	for i, it := range res.Items {
		if !taxonomy.ValidCategory(it.Category) {
			return nil, fmt.Errorf("%w: items[%d]: unknown category %q", llm.ErrInvalidOutput, i, it.Category)
		}
		if it.Teeth == nil {
			res.Items[i].Teeth = []string{}
		}
	}
	return &res, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
