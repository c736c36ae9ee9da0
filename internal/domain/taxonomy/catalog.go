package taxonomy

import "strings"

// Lookup resolves a treatment code to its catalog entry.
type Lookup interface {
	Lookup(code string) (Entry, bool)
}

// Catalog is an ordered, code-indexed set of entries. The zero value is empty
// and usable.
type Catalog struct {
	entries []Entry
	byCode  map[string]int
}

// NewCatalog builds a catalog. Later entries with a duplicate code replace
// earlier ones in place.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{byCode: make(map[string]int, len(entries))}
	for _, e := range entries {
		c.Add(e)
	}
	return c
}

// Add inserts or replaces an entry.
func (c *Catalog) Add(e Entry) {
	if c.byCode == nil {
		c.byCode = make(map[string]int)
	}
	key := NormalizeCode(e.Code)
	if i, ok := c.byCode[key]; ok {
		c.entries[i] = e
		return
	}
	c.byCode[key] = len(c.entries)
	c.entries = append(c.entries, e)
}

// Lookup implements Lookup. Codes are matched case-insensitively.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	if c == nil || c.byCode == nil {
		return Entry{}, false
	}
	i, ok := c.byCode[NormalizeCode(code)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns the entries in insertion order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// NormalizeCode is the form under which treatment codes are compared.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Builtin is the default dental treatment catalog.
var Builtin = []Entry{
	{Code: "exam", Label: "Examen clinique", Category: CategoryDiagnostic, DefaultDuration: 30, Aliases: []string{"exam", "bilan"}},
	{Code: "radiograph_pano", Label: "Radiographie panoramique", Category: CategoryDiagnostic, DefaultDuration: 15, Aliases: []string{"pano", "opt"}},
	{Code: "radiograph_retro", Label: "Radiographie rétro-alvéolaire", Category: CategoryDiagnostic, DefaultDuration: 10, Aliases: []string{"retro", "rx"}},
	{Code: "cbct", Label: "Cone beam (CBCT)", Category: CategoryDiagnostic, DefaultDuration: 20, Aliases: []string{"cbct", "3d"}},
	{Code: "prophylaxis", Label: "Prophylaxie / polissage", Category: CategoryPreventive, DefaultDuration: 30, Aliases: []string{"prophy"}},
	{Code: "sealant", Label: "Scellement de sillons", Category: CategoryPreventive, DefaultDuration: 15, Aliases: []string{"sds"}},
	{Code: "fluoride", Label: "Application de fluor", Category: CategoryPreventive, DefaultDuration: 10, Aliases: []string{"fluor"}},
	{Code: "composite", Label: "Obturation composite", Category: CategoryRestorative, DefaultDuration: 30, Aliases: []string{"comp", "cpst", "o", "mo", "do", "mod"}},
	{Code: "amalgam", Label: "Obturation amalgame", Category: CategoryRestorative, DefaultDuration: 30, Aliases: []string{"amal"}},
	{Code: "inlay_onlay", Label: "Inlay / onlay", Category: CategoryRestorative, DefaultDuration: 60, Aliases: []string{"inlay", "onlay", "io"}},
	{Code: "endo_anterior", Label: "Traitement endodontique antérieure", Category: CategoryEndodontic, DefaultDuration: 60, Aliases: []string{"tr", "endo"}},
	{Code: "endo_premolar", Label: "Traitement endodontique prémolaire", Category: CategoryEndodontic, DefaultDuration: 75},
	{Code: "endo_molar", Label: "Traitement endodontique molaire", Category: CategoryEndodontic, DefaultDuration: 90},
	{Code: "endo_retreatment", Label: "Retraitement endodontique", Category: CategoryEndodontic, DefaultDuration: 90, Aliases: []string{"retraitement", "rte"}},
	{Code: "scaling", Label: "Détartrage", Category: CategoryPeriodontal, DefaultDuration: 45, Aliases: []string{"detartrage", "det"}},
	{Code: "root_planing", Label: "Surfaçage radiculaire (quadrant)", Category: CategoryPeriodontal, DefaultDuration: 60, Aliases: []string{"surfacage", "srp"}},
	{Code: "perio_surgery", Label: "Chirurgie parodontale", Category: CategoryPeriodontal, DefaultDuration: 90},
	{Code: "crown_ceramic", Label: "Couronne céramique", Category: CategoryProsthetic, DefaultDuration: 60, Aliases: []string{"cc", "ccm", "couronne"}},
	{Code: "crown_removal", Label: "Dépose de couronne", Category: CategoryProsthetic, DefaultDuration: 30, Aliases: []string{"demonter", "dépose", "depose"}},
	{Code: "temporary_crown", Label: "Couronne provisoire", Category: CategoryProsthetic, DefaultDuration: 30, Aliases: []string{"prov", "provisoire"}},
	{Code: "post_core", Label: "Inlay-core / reconstitution corono-radiculaire", Category: CategoryProsthetic, DefaultDuration: 45, Aliases: []string{"ic", "inlay-core", "rcr"}},
	{Code: "bridge", Label: "Bridge", Category: CategoryProsthetic, DefaultDuration: 90, Aliases: []string{"bridge"}},
	{Code: "denture_partial", Label: "Prothèse amovible partielle", Category: CategoryProsthetic, DefaultDuration: 45, Aliases: []string{"pap", "stellite"}},
	{Code: "denture_complete", Label: "Prothèse amovible complète", Category: CategoryProsthetic, DefaultDuration: 45, Aliases: []string{"pac"}},
	{Code: "extraction_simple", Label: "Extraction simple", Category: CategorySurgical, DefaultDuration: 30, Aliases: []string{"ext", "avulsion"}},
	{Code: "extraction_surgical", Label: "Extraction chirurgicale", Category: CategorySurgical, DefaultDuration: 60, Aliases: []string{"dds", "extraction chir"}},
	{Code: "bone_graft", Label: "Greffe osseuse", Category: CategorySurgical, DefaultDuration: 60, Aliases: []string{"roa", "greffe"}},
	{Code: "sinus_lift", Label: "Sinus lift", Category: CategorySurgical, DefaultDuration: 90, Aliases: []string{"sinus"}},
	{Code: "implant_placement", Label: "Pose d'implant", Category: CategoryImplant, DefaultDuration: 60, Aliases: []string{"impl", "implant"}},
	{Code: "implant_crown", Label: "Couronne sur implant", Category: CategoryImplant, DefaultDuration: 45, Aliases: []string{"csi", "ccsi"}},
	{Code: "healing_abutment", Label: "Pose de vis de cicatrisation", Category: CategoryImplant, DefaultDuration: 20, Aliases: []string{"vis cicat"}},
	{Code: "ortho_consult", Label: "Consultation orthodontique", Category: CategoryOrthodontic, DefaultDuration: 30, Aliases: []string{"odf"}},
	{Code: "aligners", Label: "Aligneurs", Category: CategoryOrthodontic, DefaultDuration: 30, Aliases: []string{"gouttieres"}},
	{Code: "night_guard", Label: "Gouttière occlusale", Category: CategoryOther, DefaultDuration: 30, Aliases: []string{"gouttiere"}},
	{Code: "whitening", Label: "Blanchiment", Category: CategoryOther, DefaultDuration: 60, Aliases: []string{"blanchiment"}},
}

// Default returns a fresh catalog populated with Builtin.
func Default() *Catalog {
	return NewCatalog(Builtin)
}
