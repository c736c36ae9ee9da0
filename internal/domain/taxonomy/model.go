package taxonomy

// Category is one of the ten fixed treatment categories shared by plan items,
// treatments and the parsing schema.
type Category string

const (
	CategoryDiagnostic  Category = "diagnostic"
	CategoryPreventive  Category = "preventive"
	CategoryRestorative Category = "restorative"
	CategoryEndodontic  Category = "endodontic"
	CategoryPeriodontal Category = "periodontal"
	CategoryProsthetic  Category = "prosthetic"
	CategorySurgical    Category = "surgical"
	CategoryImplant     Category = "implant"
	CategoryOrthodontic Category = "orthodontic"
	CategoryOther       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDiagnostic, CategoryPreventive, CategoryRestorative,
	CategoryEndodontic, CategoryPeriodontal, CategoryProsthetic,
	CategorySurgical, CategoryImplant, CategoryOrthodontic, CategoryOther,
}

var validCategories = map[Category]bool{
	CategoryDiagnostic: true, CategoryPreventive: true, CategoryRestorative: true,
	CategoryEndodontic: true, CategoryPeriodontal: true, CategoryProsthetic: true,
	CategorySurgical: true, CategoryImplant: true, CategoryOrthodontic: true,
	CategoryOther: true,
}

// ValidCategory reports whether c is one of the ten fixed categories.
func ValidCategory(c string) bool {
	return validCategories[Category(c)]
}

// CategoryStrings returns the category enum as plain strings, in order.
func CategoryStrings() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}

// Entry is a single treatment in the catalog.
type Entry struct {
	Code            string   `json:"code"`
	Label           string   `json:"label"`
	Category        Category `json:"category"`
	DefaultDuration int      `json:"default_duration"`
	// Aliases are the clinical abbreviations the entry is usually written as.
	Aliases []string `json:"aliases,omitempty"`
}
