package taxonomy

import "strings"

// Wildcards accepted in plan items in place of individual FDI codes.
const (
	WildcardAll = "all"
)

var quadrantWildcards = map[string]int{"Q1": 1, "Q2": 2, "Q3": 3, "Q4": 4}

// ValidToothCode reports whether code is a permanent-dentition FDI code:
// two digits, quadrant 1-4, position 1-8.
func ValidToothCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	q, p := code[0], code[1]
	return q >= '1' && q <= '4' && p >= '1' && p <= '8'
}

// ValidateTeeth returns the codes in teeth that are not valid FDI codes, in
// input order. A nil result means every code is valid.
func ValidateTeeth(teeth []string) []string {
	var bad []string
	for _, t := range teeth {
		if !ValidToothCode(t) {
			bad = append(bad, t)
		}
	}
	return bad
}

// Quadrant returns the quadrant (1-4) of a valid FDI code, or 0.
func Quadrant(code string) int {
	if !ValidToothCode(code) {
		return 0
	}
	return int(code[0] - '0')
}

// IsWildcard reports whether s is a quadrant ("Q1".."Q4") or "all" wildcard.
func IsWildcard(s string) bool {
	if strings.EqualFold(s, WildcardAll) {
		return true
	}
	_, ok := quadrantWildcards[strings.ToUpper(s)]
	return ok
}

// ExpandTeeth replaces wildcards with the FDI codes they cover. Plain codes
// are kept as given, duplicates included.
func ExpandTeeth(teeth []string) []string {
	var out []string
	for _, t := range teeth {
		switch {
		case strings.EqualFold(t, WildcardAll):
			for q := 1; q <= 4; q++ {
				out = append(out, quadrantTeeth(q)...)
			}
		default:
			if q, ok := quadrantWildcards[strings.ToUpper(t)]; ok {
				out = append(out, quadrantTeeth(q)...)
				continue
			}
			out = append(out, t)
		}
	}
	return out
}

func quadrantTeeth(q int) []string {
	out := make([]string, 0, 8)
	for p := 1; p <= 8; p++ {
		out = append(out, string(rune('0'+q))+string(rune('0'+p)))
	}
	return out
}
