package docx

import "strings"

// ExtractText joins the text of top-level paragraphs whose role is in roles,
// separated by blank lines. Tables and images are skipped.
func ExtractText(d *Document, roles ...Role) string {
	want := make(map[Role]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}

	var parts []string
	for _, b := range d.Blocks {
		p, ok := b.(*Paragraph)
		if !ok || !want[p.Role] {
			continue
		}
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
