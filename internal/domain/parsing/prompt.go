package parsing

import (
	"fmt"
	"strings"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

const systemPromptHeader = `You structure dental treatment plans written by French-speaking dentists.

Input is terse clinical shorthand, for example "46 démonter CC + prov, 36 impl".
Split it into one item per treatment act, in the order written.

For each item:
- original_text: the exact span of the input the item comes from.
- teeth: FDI two-digit codes (quadrant 1-4, position 1-8) the act applies to.
  A tooth number written once applies to every act that follows it until another
  tooth is named. Use "Q1".."Q4" for a whole quadrant and "all" for the full mouth.
- taxonomy_code: the matching code from the catalog below, or null if none fits.
- description: a short French description of the act.
- category: one of %s.

Set confidence between 0 and 1 for the whole extraction. Use notes for
ambiguities worth flagging to the dentist, or null.

Catalog (code: label [category] aliases):
`

// systemPrompt renders the instructions with the treatment catalog.
func systemPrompt(entries []taxonomy.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, systemPromptHeader, strings.Join(taxonomy.CategoryStrings(), ", "))
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s [%s]", e.Code, e.Label, e.Category)
		if len(e.Aliases) > 0 {
			fmt.Fprintf(&b, " %s", strings.Join(e.Aliases, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
