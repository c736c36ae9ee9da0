package stats

// Overview summarizes the collected dataset.
type Overview struct {
	PlansByStatus               map[string]int `json:"plans_by_status"`
	SequencesByStatus           map[string]int `json:"sequences_by_status"`
	TotalPlans                  int            `json:"total_plans"`
	TotalSequences              int            `json:"total_sequences"`
	AvgAppointmentsPerSequence  float64        `json:"avg_appointments_per_sequence"`
	AvgTreatmentsPerAppointment float64        `json:"avg_treatments_per_appointment"`
	TreatmentsByCategory        map[string]int `json:"treatments_by_category"`
	MeanParsingConfidence       *float64       `json:"mean_parsing_confidence"`
}

// Counts are the raw aggregates the overview is computed from.
type Counts struct {
	PlansByStatus         map[string]int
	SequencesByStatus     map[string]int
	Appointments          int
	Treatments            int
	TreatmentsByCategory  map[string]int
	MeanParsingConfidence *float64
}

// Build derives the overview. Averages are zero when there is nothing to
// divide by.
func Build(c Counts) *Overview {
	o := &Overview{
		PlansByStatus:         nonNil(c.PlansByStatus),
		SequencesByStatus:     nonNil(c.SequencesByStatus),
		TreatmentsByCategory:  nonNil(c.TreatmentsByCategory),
		MeanParsingConfidence: c.MeanParsingConfidence,
	}
	for _, n := range o.PlansByStatus {
		o.TotalPlans += n
	}
	for _, n := range o.SequencesByStatus {
		o.TotalSequences += n
	}
	if o.TotalSequences > 0 {
		o.AvgAppointmentsPerSequence = round2(float64(c.Appointments) / float64(o.TotalSequences))
	}
	if c.Appointments > 0 {
		o.AvgTreatmentsPerAppointment = round2(float64(c.Treatments) / float64(c.Appointments))
	}
	return o
}

func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
