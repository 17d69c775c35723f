package docx

// Normalize applies single-page spacing: zero space before and after and
// single line spacing on every paragraph, including table cells. The page
// height is never measured, so tight uniform spacing is the only lever.
func Normalize(d *Document) {
	for _, p := range d.Paragraphs() {
		p.Spacing = SingleSpacing
	}
}
