package formoptions

import (
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

// Option is one selectable value in a form.
type Option struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Custom  bool   `json:"custom"`
}

// TreatmentOption is a treatment catalog entry as exposed to forms.
type TreatmentOption struct {
	Option
	Category        string `json:"category"`
	DefaultDuration int    `json:"default_duration"`
}

// Config is the merged form options document.
type Config struct {
	Treatments       []TreatmentOption `json:"treatments"`
	AppointmentTypes []Option          `json:"appointment_types"`
	DelayReasons     []Option          `json:"delay_reasons"`
}

// SettingsKey is the app_settings row holding the customization document.
const SettingsKey = "form_options"

var builtinAppointmentTypes = []Option{
	{Value: "consultation", Label: "Consultation"},
	{Value: "diagnostic", Label: "Bilan / diagnostic"},
	{Value: "hygiene", Label: "Hygiène / maintenance"},
	{Value: "treatment", Label: "Soins"},
	{Value: "surgery", Label: "Chirurgie"},
	{Value: "prosthetic", Label: "Prothèse (empreintes / pose)"},
	{Value: "follow_up", Label: "Contrôle"},
	{Value: "emergency", Label: "Urgence"},
}

var builtinDelayReasons = []Option{
	{Value: "healing", Label: "Cicatrisation"},
	{Value: "osseointegration", Label: "Ostéo-intégration"},
	{Value: "tissue_maturation", Label: "Maturation tissulaire"},
	{Value: "lab_work", Label: "Délai laboratoire"},
	{Value: "evaluation", Label: "Réévaluation"},
	{Value: "patient_availability", Label: "Disponibilité du patient"},
	{Value: "financial", Label: "Raisons financières"},
}

// Defaults returns the builtin options, all enabled.
func Defaults() *Config {
	cfg := &Config{}
	for _, e := range taxonomy.Builtin {
		cfg.Treatments = append(cfg.Treatments, TreatmentOption{
			Option:          Option{Value: e.Code, Label: e.Label, Enabled: true},
			Category:        string(e.Category),
			DefaultDuration: e.DefaultDuration,
		})
	}
	for _, o := range builtinAppointmentTypes {
		o.Enabled = true
		cfg.AppointmentTypes = append(cfg.AppointmentTypes, o)
	}
	for _, o := range builtinDelayReasons {
		o.Enabled = true
		cfg.DelayReasons = append(cfg.DelayReasons, o)
	}
	return cfg
}

// Merge overlays a stored customization document onto the defaults. Builtin
// values keep their position and take the stored label and enabled flag;
// values unknown to the defaults are appended as custom options. Builtins
// missing from the document stay as defined. Treatment values match
// case-insensitively, the way the catalog looks codes up.
func Merge(defaults, stored *Config) *Config {
	if stored == nil {
		return defaults
	}
	out := &Config{
		Treatments:       mergeTreatments(defaults.Treatments, stored.Treatments),
		AppointmentTypes: mergeOptions(defaults.AppointmentTypes, stored.AppointmentTypes),
		DelayReasons:     mergeOptions(defaults.DelayReasons, stored.DelayReasons),
	}
	return out
}

func mergeOptions(base, stored []Option) []Option {
	idx := make(map[string]int, len(base))
	out := make([]Option, len(base))
	for i, o := range base {
		out[i] = o
		idx[o.Value] = i
	}
	for _, o := range stored {
		if i, ok := idx[o.Value]; ok {
			if o.Label != "" {
				out[i].Label = o.Label
			}
			out[i].Enabled = o.Enabled
			continue
		}
		o.Custom = true
		idx[o.Value] = len(out)
		out = append(out, o)
	}
	return out
}

func mergeTreatments(base, stored []TreatmentOption) []TreatmentOption {
	idx := make(map[string]int, len(base))
	out := make([]TreatmentOption, len(base))
	for i, o := range base {
		out[i] = o
		idx[taxonomy.NormalizeCode(o.Value)] = i
	}
	for _, o := range stored {
		key := taxonomy.NormalizeCode(o.Value)
		if i, ok := idx[key]; ok {
			if o.Label != "" {
				out[i].Label = o.Label
			}
			out[i].Enabled = o.Enabled
			if o.DefaultDuration > 0 {
				out[i].DefaultDuration = o.DefaultDuration
			}
			continue
		}
		o.Value = key
		o.Custom = true
		idx[key] = len(out)
		out = append(out, o)
	}
	return out
}

// Catalog builds the treatment lookup from the enabled treatments.
func (c *Config) Catalog() *taxonomy.Catalog {
	var entries []taxonomy.Entry
	for _, t := range c.Treatments {
		if !t.Enabled {
			continue
		}
		entries = append(entries, taxonomy.Entry{
			Code:            t.Value,
			Label:           t.Label,
			Category:        taxonomy.Category(t.Category),
			DefaultDuration: t.DefaultDuration,
		})
	}
	return taxonomy.NewCatalog(entries)
}
