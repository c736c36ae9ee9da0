package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/parsing"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

var (
	ErrValidation = errors.New("validation failed")
	// ErrImmutable is returned when raw input or items of a referenced,
	// confirmed plan would change.
	ErrImmutable = errors.New("treatment plan is referenced by sequences and no longer editable")
	// ErrInUse is returned when deleting a plan that sequences still reference.
	ErrInUse = errors.New("treatment plan is referenced by sequences")
)

// ParseError carries a parser failure so handlers can report it the way
// the parse endpoint does.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse treatment plan: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Parser structures free text into plan items.
type Parser interface {
	Parse(ctx context.Context, rawInput string) (*parsing.Result, error)
}

type Service struct {
	repo   Repository
	parser Parser
	log    zerolog.Logger
}

func NewService(repo Repository, parser Parser, log zerolog.Logger) *Service {
	return &Service{repo: repo, parser: parser, log: log.With().Str("component", "plan").Logger()}
}

// Create stores a plan. With autoParse the items come from the parser and
// the plan starts as parsed; otherwise the caller's items are validated.
func (s *Service) Create(ctx context.Context, p *Plan, autoParse bool) error {
	p.RawInput = strings.TrimSpace(p.RawInput)
	if autoParse {
		if err := s.applyParse(ctx, p); err != nil {
			return err
		}
	} else {
		if p.Status == "" {
			p.Status = StatusDraft
		}
		if err := prepare(p); err != nil {
			return err
		}
	}
	p.Derive()
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces title, raw input and items. Content changes on a plan past
// the parsed stage are refused while sequences reference it.
func (s *Service) Update(ctx context.Context, p *Plan) error {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.RawInput = strings.TrimSpace(p.RawInput)
	if p.Status == "" {
		p.Status = existing.Status
	}
	if err := prepare(p); err != nil {
		return err
	}
	if contentChanged(existing, p) {
		if err := s.checkEditable(ctx, existing); err != nil {
			return err
		}
	}
	p.Confidence = existing.Confidence
	p.ParsingNotes = existing.ParsingNotes
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	p.Derive()
	return s.repo.Update(ctx, p)
}

// Reparse runs the parser again on the stored raw input and replaces the items.
func (s *Service) Reparse(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkEditable(ctx, p); err != nil {
		return nil, err
	}
	if err := s.applyParse(ctx, p); err != nil {
		return nil, err
	}
	p.Derive()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetStatus moves the plan to another status. Confirming requires at least
// one item.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*Plan, error) {
	if !ValidStatus(status) {
		return nil, invalid("status %q is not one of draft, parsed, confirmed, archived", status)
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == StatusConfirmed && len(p.Items) == 0 {
		return nil, invalid("a plan needs at least one item to be confirmed")
	}
	p.Status = status
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountSequences(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d sequences)", ErrInUse, n)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Plan, int, error) {
	if st, ok := params["status"]; ok && !ValidStatus(st) {
		return nil, 0, invalid("unknown status filter %q", st)
	}
	if c, ok := params["category"]; ok && !taxonomy.ValidCategory(c) {
		return nil, 0, invalid("unknown category filter %q", c)
	}
	if t, ok := params["tooth"]; ok && !taxonomy.ValidToothCode(t) {
		return nil, 0, invalid("invalid tooth filter %q", t)
	}
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) applyParse(ctx context.Context, p *Plan) error {
	if s.parser == nil {
		return &ParseError{Err: errors.New("plan parser not configured")}
	}
	res, err := s.parser.Parse(ctx, p.RawInput)
	if err != nil {
		s.log.Error().Err(err).Str("plan_id", p.ID.String()).Msg("plan parsing failed")
		return &ParseError{Err: err}
	}
	p.Items = res.Items
	p.Confidence = &res.Confidence
	p.ParsingNotes = res.Notes
	p.Status = StatusParsed
	return nil
}

func (s *Service) checkEditable(ctx context.Context, p *Plan) error {
	if p.Editable() {
		return nil
	}
	n, err := s.repo.CountSequences(ctx, p.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrImmutable
	}
	return nil
}

// prepare validates manually entered items and assigns missing ids.
func prepare(p *Plan) error {
	if p.RawInput == "" && len(p.Items) == 0 {
		return invalid("raw_input or treatment_items is required")
	}
	if !ValidStatus(p.Status) {
		return invalid("status %q is not one of draft, parsed, confirmed, archived", p.Status)
	}
	if p.Items == nil {
		p.Items = []parsing.PlanItem{}
	}
	seen := map[string]bool{}
	for i := range p.Items {
		it := &p.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if seen[it.ID] {
			return invalid("item %d: duplicate id %q", i, it.ID)
		}
		seen[it.ID] = true
		if it.Category == "" {
			it.Category = string(taxonomy.CategoryOther)
		}
		if !taxonomy.ValidCategory(it.Category) {
			return invalid("item %d: unknown category %q", i, it.Category)
		}
		if it.Teeth == nil {
			it.Teeth = []string{}
		}
		for _, t := range it.Teeth {
			if !taxonomy.ValidToothCode(t) && !taxonomy.IsWildcard(t) {
				return invalid("item %d: invalid tooth %q", i, t)
			}
		}
	}
	return nil
}

func contentChanged(a, b *Plan) bool {
	if a.RawInput != b.RawInput || len(a.Items) != len(b.Items) {
		return true
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.ID != y.ID || x.OriginalText != y.OriginalText || x.Description != y.Description ||
			x.Category != y.Category || strings.Join(x.Teeth, ",") != strings.Join(y.Teeth, ",") ||
			ptrStr(x.TaxonomyCode) != ptrStr(y.TaxonomyCode) {
			return true
		}
	}
	return false
}

func ptrStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
