package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

// ErrValidation wraps every input error detected before the store is touched.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CatalogSource provides the treatment catalog used to derive categories and
// default durations.
type CatalogSource interface {
	Catalog(ctx context.Context) (taxonomy.Lookup, error)
}

type Service struct {
	repo    Repository
	catalog CatalogSource
	log     zerolog.Logger
}

func NewService(repo Repository, catalog CatalogSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, log: log.With().Str("component", "sequence").Logger()}
}

// lookup returns the configured catalog, falling back to the builtin one when
// the provider is unavailable.
func (s *Service) lookup(ctx context.Context) taxonomy.Lookup {
	if s.catalog == nil {
		return taxonomy.Default()
	}
	c, err := s.catalog.Catalog(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("form options unavailable, using builtin catalog")
		return taxonomy.Default()
	}
	return c
}

// -- Editing --

// NewDraft returns a fresh one-appointment, one-treatment tree.
func (s *Service) NewDraft(ctx context.Context) *Draft {
	return NewDraft(s.lookup(ctx))
}

// ApplyOperation runs one editing operation against a client-held tree.
func (s *Service) ApplyOperation(ctx context.Context, appointments []*AppointmentGroup, op Operation) (*Draft, error) {
	if err := checkTree(appointments); err != nil {
		return nil, err
	}
	d := EditDraft(appointments, s.lookup(ctx))
	if err := d.Apply(op); err != nil {
		return nil, invalid("%v", err)
	}
	return d, nil
}

// -- Persistence --

// Create inserts the sequence row and then its tree.
func (s *Service) Create(ctx context.Context, seq *Sequence) error {
	if seq.Status == "" {
		seq.Status = StatusDraft
	}
	if err := s.prepare(ctx, seq); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, seq); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return err
		}
		s.log.Error().Err(err).Str("plan_id", seq.PlanID.String()).Str("step", "insert_sequence").Msg("sequence create failed")
		return fmt.Errorf("insert sequence: %w", err)
	}
	return s.insertTree(ctx, seq)
}

// Update rewrites the patient context and, when appointments are supplied,
// replaces the whole tree. Last writer wins.
func (s *Service) Update(ctx context.Context, seq *Sequence) error {
	existing, err := s.repo.GetByID(ctx, seq.ID)
	if err != nil {
		return err
	}
	if seq.PlanID == uuid.Nil {
		seq.PlanID = existing.PlanID
	}
	seq.Status = existing.Status
	seq.CreatedBy = existing.CreatedBy
	seq.CreatedAt = existing.CreatedAt
	seq.ReviewedBy, seq.ReviewNotes, seq.ReviewedAt = existing.ReviewedBy, existing.ReviewNotes, existing.ReviewedAt

	replaceTree := seq.Appointments != nil
	if replaceTree {
		if err := s.prepare(ctx, seq); err != nil {
			return err
		}
	} else if err := validateContext(seq); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, seq); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPlanNotFound) {
			return err
		}
		s.log.Error().Err(err).Str("sequence_id", seq.ID.String()).Str("step", "update_sequence").Msg("sequence save failed")
		return fmt.Errorf("update sequence: %w", err)
	}
	if !replaceTree {
		return nil
	}
	return s.SaveTree(ctx, seq)
}

// SaveTree replaces the stored tree with seq.Appointments: treatments are
// deleted, then groups, then groups are re-inserted in position order each
// followed by a batch of its treatments. Steps run strictly in order with no
// enclosing transaction; the first failure aborts and is returned.
func (s *Service) SaveTree(ctx context.Context, seq *Sequence) error {
	log := s.log.With().Str("sequence_id", seq.ID.String()).Logger()
	if err := s.repo.DeleteTreatments(ctx, seq.ID); err != nil {
		log.Error().Err(err).Str("step", "delete_treatments").Msg("sequence save failed")
		return fmt.Errorf("delete treatments: %w", err)
	}
	if err := s.repo.DeleteAppointmentGroups(ctx, seq.ID); err != nil {
		log.Error().Err(err).Str("step", "delete_appointment_groups").Msg("sequence save failed")
		return fmt.Errorf("delete appointment groups: %w", err)
	}
	return s.insertTree(ctx, seq)
}

func (s *Service) insertTree(ctx context.Context, seq *Sequence) error {
	log := s.log.With().Str("sequence_id", seq.ID.String()).Logger()
	start := time.Now()
	for _, g := range seq.Appointments {
		g.SequenceID = seq.ID
		if err := s.repo.InsertAppointmentGroup(ctx, g); err != nil {
			log.Error().Err(err).Str("step", "insert_appointment_group").Int("position", g.Position).Msg("sequence save failed")
			return fmt.Errorf("insert appointment %d: %w", g.Position, err)
		}
		if err := s.repo.InsertTreatments(ctx, g.ID, g.Treatments); err != nil {
			log.Error().Err(err).Str("step", "insert_treatments").Int("position", g.Position).Msg("sequence save failed")
			return fmt.Errorf("insert treatments of appointment %d: %w", g.Position, err)
		}
	}
	log.Debug().
		Int("appointments", len(seq.Appointments)).
		Int("treatments", seq.TreatmentCount()).
		Dur("latency", time.Since(start)).
		Msg("sequence tree saved")
	return nil
}

// Load reads the sequence row, its groups by position and each group's
// treatments by position.
func (s *Service) Load(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	seq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.ListAppointmentGroups(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("sequence_id", id.String()).Str("step", "load_appointment_groups").Msg("sequence load failed")
		return nil, fmt.Errorf("load appointment groups: %w", err)
	}
	for _, g := range groups {
		ts, err := s.repo.ListTreatments(ctx, g.ID)
		if err != nil {
			s.log.Error().Err(err).Str("sequence_id", id.String()).Str("step", "load_treatments").Msg("sequence load failed")
			return nil, fmt.Errorf("load treatments: %w", err)
		}
		for _, t := range ts {
			t.Teeth = nonNil(t.Teeth)
			t.PlanItemIDs = nonNil(t.PlanItemIDs)
		}
		g.Treatments = ts
		if g.Treatments == nil {
			g.Treatments = []*Treatment{}
		}
	}
	if groups == nil {
		groups = []*AppointmentGroup{}
	}
	seq.Appointments = groups
	return seq, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus sets the review status. Any status may follow any other.
// Review outcomes stamp the reviewer and time.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status, reviewer string, notes *string) (*Sequence, error) {
	if !ValidStatus(status) {
		return nil, invalid("invalid status: %s", status)
	}
	seq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	seq.Status = status
	if notes != nil {
		seq.ReviewNotes = notes
	}
	if status == StatusApproved || status == StatusNeedsRevision || status == StatusUnderReview {
		now := time.Now().UTC()
		seq.ReviewedAt = &now
		if reviewer != "" {
			seq.ReviewedBy = &reviewer
		}
	}
	if err := s.repo.UpdateStatus(ctx, seq); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.Error().Err(err).Str("sequence_id", id.String()).Str("status", status).Msg("status update failed")
		return nil, fmt.Errorf("update status: %w", err)
	}
	return seq, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Sequence, int, error) {
	if st, ok := params["status"]; ok && !ValidStatus(st) {
		return nil, 0, invalid("invalid status: %s", st)
	}
	if pid, ok := params["plan_id"]; ok {
		if _, err := uuid.Parse(pid); err != nil {
			return nil, 0, invalid("invalid plan_id")
		}
	}
	return s.repo.Search(ctx, params, limit, offset)
}

// -- Validation --

// prepare normalizes the tree, denormalizes categories from the catalog and
// validates everything that is checked before a save.
func (s *Service) prepare(ctx context.Context, seq *Sequence) error {
	if seq.PlanID == uuid.Nil {
		return invalid("plan_id is required")
	}
	if err := validateContext(seq); err != nil {
		return err
	}
	if len(seq.Appointments) == 0 {
		return invalid("a sequence needs at least one appointment")
	}
	if err := checkTree(seq.Appointments); err != nil {
		return err
	}
	Normalize(seq.Appointments)

	cat := s.lookup(ctx)
	for _, g := range seq.Appointments {
		if err := validateAppointment(g); err != nil {
			return err
		}
		for _, t := range g.Treatments {
			if e, ok := cat.Lookup(t.TreatmentType); ok && t.TreatmentCategory == "" {
				t.TreatmentCategory = string(e.Category)
			}
			if t.TreatmentCategory == "" {
				t.TreatmentCategory = DefaultCategory
			}
			if t.OrderConstraint == "" {
				t.OrderConstraint = ConstraintFlexible
			}
			if err := validateTreatment(g.Position, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkTree rejects null appointments or treatments in a client tree.
func checkTree(appointments []*AppointmentGroup) error {
	for i, g := range appointments {
		if g == nil {
			return invalid("appointment %d is null", i)
		}
		for j, t := range g.Treatments {
			if t == nil {
				return invalid("appointment %d: treatment %d is null", i, j)
			}
		}
	}
	return nil
}

func validateContext(seq *Sequence) error {
	if seq.PatientAgeRange != nil && !validAgeRanges[*seq.PatientAgeRange] {
		return invalid("invalid patient_age_range: %s", *seq.PatientAgeRange)
	}
	if seq.PatientSex != nil && !validSexes[*seq.PatientSex] {
		return invalid("invalid patient_sex: %s", *seq.PatientSex)
	}
	for field, v := range map[string]*string{
		"budget_constraint": seq.BudgetConstraint,
		"time_constraint":   seq.TimeConstraint,
		"anxiety_level":     seq.AnxietyLevel,
	} {
		if v != nil && !validLevels[*v] {
			return invalid("invalid %s: %s", field, *v)
		}
	}
	for _, p := range seq.Priorities {
		if !validPriorities[p] {
			return invalid("invalid priority: %s", p)
		}
	}
	return nil
}

func validateAppointment(g *AppointmentGroup) error {
	if len(g.Treatments) == 0 {
		return invalid("appointment %d has no treatments", g.Position+1)
	}
	if g.DelayUnit != nil && !validDelayUnits[*g.DelayUnit] {
		return invalid("appointment %d: invalid delay_unit: %s", g.Position+1, *g.DelayUnit)
	}
	if g.DelayValue != nil && *g.DelayValue < 0 {
		return invalid("appointment %d: delay_value must be >= 0", g.Position+1)
	}
	return nil
}

func validateTreatment(groupPos int, t *Treatment) error {
	where := fmt.Sprintf("appointment %d treatment %d", groupPos+1, t.Position+1)
	if t.TreatmentType == "" {
		return invalid("%s: treatment_type is required", where)
	}
	if !taxonomy.ValidCategory(t.TreatmentCategory) {
		return invalid("%s: invalid treatment_category: %s", where, t.TreatmentCategory)
	}
	if t.EstimatedDurationMinutes < 0 {
		return invalid("%s: estimated_duration_minutes must be >= 0", where)
	}
	if !validConstraints[t.OrderConstraint] {
		return invalid("%s: invalid order_constraint: %s", where, t.OrderConstraint)
	}
	if bad := taxonomy.ValidateTeeth(t.Teeth); bad != nil {
		return invalid("%s: invalid FDI tooth codes: %v", where, bad)
	}
	return nil
}
