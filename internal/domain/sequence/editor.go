package sequence

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

// Defaults applied to a freshly added treatment.
const (
	DefaultTreatmentDuration = 15
	DefaultCategory          = string(taxonomy.CategoryOther)
)

// Direction is the direction of a move operation.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// AppointmentTitle is the label generated for the appointment at position.
func AppointmentTitle(position int) string {
	return fmt.Sprintf("Séance %d", position+1)
}

// Draft is the in-memory appointment/treatment tree of one editing session.
// Every operation is total: unknown ids, boundary moves and removals that
// would empty a collection are no-ops. After any operation positions are
// dense and zero-based and each appointment's duration equals the sum of
// its treatments.
type Draft struct {
	Appointments []*AppointmentGroup `json:"appointments"`

	catalog taxonomy.Lookup
}

// NewDraft returns a tree holding one appointment with one default treatment.
func NewDraft(catalog taxonomy.Lookup) *Draft {
	d := &Draft{catalog: catalog}
	d.AddAppointment()
	return d
}

// EditDraft wraps an existing tree (typically a loaded sequence) for editing.
// The tree is normalized first; an empty tree gets one default appointment.
func EditDraft(appointments []*AppointmentGroup, catalog taxonomy.Lookup) *Draft {
	d := &Draft{Appointments: appointments, catalog: catalog}
	Normalize(d.Appointments)
	if len(d.Appointments) == 0 {
		d.AddAppointment()
	}
	return d
}

// AddAppointment appends an appointment with one default treatment.
func (d *Draft) AddAppointment() *AppointmentGroup {
	pos := len(d.Appointments)
	a := &AppointmentGroup{
		ID:         uuid.New(),
		Position:   pos,
		Title:      AppointmentTitle(pos),
		Treatments: []*Treatment{newTreatment(0)},
	}
	recompute(a)
	d.Appointments = append(d.Appointments, a)
	return a
}

// RemoveAppointment removes the appointment unless it is the last one.
func (d *Draft) RemoveAppointment(id uuid.UUID) {
	if len(d.Appointments) <= 1 {
		return
	}
	i := d.appointmentIndex(id)
	if i < 0 {
		return
	}
	d.Appointments = append(d.Appointments[:i], d.Appointments[i+1:]...)
	d.renumberAppointments()
}

// MoveAppointment swaps the appointment with its neighbour in dir.
func (d *Draft) MoveAppointment(id uuid.UUID, dir Direction) {
	i := d.appointmentIndex(id)
	if i < 0 {
		return
	}
	j, ok := neighbour(i, len(d.Appointments), dir)
	if !ok {
		return
	}
	d.Appointments[i], d.Appointments[j] = d.Appointments[j], d.Appointments[i]
	d.renumberAppointments()
}

// AppointmentPatch is a partial update of an appointment's own fields.
// Title and position are derived and cannot be patched.
type AppointmentPatch struct {
	AppointmentType *string `json:"appointment_type,omitempty"`
	Objectives      *string `json:"objectives,omitempty"`
	DelayValue      *int    `json:"delay_value,omitempty"`
	DelayUnit       *string `json:"delay_unit,omitempty"`
	DelayReason     *string `json:"delay_reason,omitempty"`
	DelayRationale  *string `json:"delay_rationale,omitempty"`
}

// UpdateAppointment merges p into the appointment.
func (d *Draft) UpdateAppointment(id uuid.UUID, p AppointmentPatch) {
	a := d.appointment(id)
	if a == nil {
		return
	}
	if p.AppointmentType != nil {
		a.AppointmentType = p.AppointmentType
	}
	if p.Objectives != nil {
		a.Objectives = p.Objectives
	}
	if p.DelayValue != nil {
		a.DelayValue = p.DelayValue
	}
	if p.DelayUnit != nil {
		a.DelayUnit = p.DelayUnit
	}
	if p.DelayReason != nil {
		a.DelayReason = p.DelayReason
	}
	if p.DelayRationale != nil {
		a.DelayRationale = p.DelayRationale
	}
}

// AddTreatment appends a default treatment to the appointment.
func (d *Draft) AddTreatment(appointmentID uuid.UUID) *Treatment {
	a := d.appointment(appointmentID)
	if a == nil {
		return nil
	}
	t := newTreatment(len(a.Treatments))
	a.Treatments = append(a.Treatments, t)
	recompute(a)
	return t
}

// RemoveTreatment removes the treatment unless it is the appointment's last.
func (d *Draft) RemoveTreatment(appointmentID, treatmentID uuid.UUID) {
	a := d.appointment(appointmentID)
	if a == nil || len(a.Treatments) <= 1 {
		return
	}
	i := treatmentIndex(a, treatmentID)
	if i < 0 {
		return
	}
	a.Treatments = append(a.Treatments[:i], a.Treatments[i+1:]...)
	recompute(a)
}

// MoveTreatment swaps the treatment with its neighbour in dir.
func (d *Draft) MoveTreatment(appointmentID, treatmentID uuid.UUID, dir Direction) {
	a := d.appointment(appointmentID)
	if a == nil {
		return
	}
	i := treatmentIndex(a, treatmentID)
	if i < 0 {
		return
	}
	j, ok := neighbour(i, len(a.Treatments), dir)
	if !ok {
		return
	}
	a.Treatments[i], a.Treatments[j] = a.Treatments[j], a.Treatments[i]
	recompute(a)
}

// TreatmentPatch is a partial update of a treatment. Nil fields are left
// untouched.
type TreatmentPatch struct {
	TreatmentType            *string   `json:"treatment_type,omitempty"`
	Teeth                    *[]string `json:"teeth,omitempty"`
	Rationale                *string   `json:"rationale,omitempty"`
	EstimatedDurationMinutes *int      `json:"estimated_duration_minutes,omitempty"`
	OrderConstraint          *string   `json:"order_constraint,omitempty"`
	OrderRationale           *string   `json:"order_rationale,omitempty"`
	PlanItemIDs              *[]string `json:"plan_item_ids,omitempty"`
}

// UpdateTreatment merges p into the treatment. A new treatment type re-derives
// category and default duration from the catalog; an unknown code is kept as
// free text and leaves both untouched. An explicit duration in the same patch
// wins over the catalog default.
func (d *Draft) UpdateTreatment(appointmentID, treatmentID uuid.UUID, p TreatmentPatch) {
	a := d.appointment(appointmentID)
	if a == nil {
		return
	}
	i := treatmentIndex(a, treatmentID)
	if i < 0 {
		return
	}
	t := a.Treatments[i]

	if p.TreatmentType != nil {
		t.TreatmentType = *p.TreatmentType
		if d.catalog != nil {
			if e, ok := d.catalog.Lookup(t.TreatmentType); ok {
				t.TreatmentCategory = string(e.Category)
				t.EstimatedDurationMinutes = e.DefaultDuration
			}
		}
	}
	if p.Teeth != nil {
		t.Teeth = append([]string{}, (*p.Teeth)...)
	}
	if p.Rationale != nil {
		t.Rationale = p.Rationale
	}
	if p.EstimatedDurationMinutes != nil {
		t.EstimatedDurationMinutes = max(*p.EstimatedDurationMinutes, 0)
	}
	if p.OrderConstraint != nil {
		t.OrderConstraint = *p.OrderConstraint
	}
	if p.OrderRationale != nil {
		t.OrderRationale = p.OrderRationale
	}
	if p.PlanItemIDs != nil {
		t.PlanItemIDs = append([]string{}, (*p.PlanItemIDs)...)
	}
	recompute(a)
}

// Operation kinds accepted by Apply.
const (
	OpAddAppointment    = "add_appointment"
	OpRemoveAppointment = "remove_appointment"
	OpMoveAppointment   = "move_appointment"
	OpUpdateAppointment = "update_appointment"
	OpAddTreatment      = "add_treatment"
	OpRemoveTreatment   = "remove_treatment"
	OpMoveTreatment     = "move_treatment"
	OpUpdateTreatment   = "update_treatment"
)

// Operation is one editing step, as sent by a client driving a Draft.
type Operation struct {
	Kind          string            `json:"kind"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	TreatmentID   uuid.UUID         `json:"treatment_id"`
	Direction     Direction         `json:"direction"`
	Appointment   *AppointmentPatch `json:"appointment,omitempty"`
	Treatment     *TreatmentPatch   `json:"treatment,omitempty"`
}

// Apply dispatches op. It only fails for an unknown kind or direction; the
// operations themselves are total.
func (d *Draft) Apply(op Operation) error {
	if op.Kind == OpMoveAppointment || op.Kind == OpMoveTreatment {
		if op.Direction != Up && op.Direction != Down {
			return fmt.Errorf("invalid direction: %q", op.Direction)
		}
	}
	switch op.Kind {
	case OpAddAppointment:
		d.AddAppointment()
	case OpRemoveAppointment:
		d.RemoveAppointment(op.AppointmentID)
	case OpMoveAppointment:
		d.MoveAppointment(op.AppointmentID, op.Direction)
	case OpUpdateAppointment:
		if op.Appointment != nil {
			d.UpdateAppointment(op.AppointmentID, *op.Appointment)
		}
	case OpAddTreatment:
		d.AddTreatment(op.AppointmentID)
	case OpRemoveTreatment:
		d.RemoveTreatment(op.AppointmentID, op.TreatmentID)
	case OpMoveTreatment:
		d.MoveTreatment(op.AppointmentID, op.TreatmentID, op.Direction)
	case OpUpdateTreatment:
		if op.Treatment != nil {
			d.UpdateTreatment(op.AppointmentID, op.TreatmentID, *op.Treatment)
		}
	default:
		return fmt.Errorf("unknown operation: %q", op.Kind)
	}
	return nil
}

// Normalize orders appointments and treatments by their position, then
// rewrites positions densely from zero, regenerates titles and recomputes
// appointment durations. Nil teeth and plan item slices become empty.
// The tree must not hold nil entries; see checkTree.
func Normalize(appointments []*AppointmentGroup) {
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].Position < appointments[j].Position
	})
	for i, a := range appointments {
		a.Position = i
		a.Title = AppointmentTitle(i)
		sort.SliceStable(a.Treatments, func(x, y int) bool {
			return a.Treatments[x].Position < a.Treatments[y].Position
		})
		for _, t := range a.Treatments {
			if t.Teeth == nil {
				t.Teeth = []string{}
			}
			if t.PlanItemIDs == nil {
				t.PlanItemIDs = []string{}
			}
		}
		recompute(a)
	}
}

func (d *Draft) renumberAppointments() {
	for i, a := range d.Appointments {
		a.Position = i
		a.Title = AppointmentTitle(i)
	}
}

func (d *Draft) appointmentIndex(id uuid.UUID) int {
	for i, a := range d.Appointments {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (d *Draft) appointment(id uuid.UUID) *AppointmentGroup {
	if i := d.appointmentIndex(id); i >= 0 {
		return d.Appointments[i]
	}
	return nil
}

func treatmentIndex(a *AppointmentGroup, id uuid.UUID) int {
	for i, t := range a.Treatments {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// recompute renumbers the appointment's treatments and re-derives its duration.
func recompute(a *AppointmentGroup) {
	total := 0
	for i, t := range a.Treatments {
		t.Position = i
		total += t.EstimatedDurationMinutes
	}
	a.EstimatedDurationMinutes = total
}

func neighbour(i, n int, dir Direction) (int, bool) {
	switch dir {
	case Up:
		return i - 1, i > 0
	case Down:
		return i + 1, i < n-1
	}
	return 0, false
}

func newTreatment(position int) *Treatment {
	return &Treatment{
		ID:                       uuid.New(),
		Position:                 position,
		TreatmentCategory:        DefaultCategory,
		Teeth:                    []string{},
		EstimatedDurationMinutes: DefaultTreatmentDuration,
		OrderConstraint:          ConstraintFlexible,
		PlanItemIDs:              []string{},
	}
}
