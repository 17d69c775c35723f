package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nfa-builder/internal/types"
)

func testMemo() Memo {
	return Memo{
		Sections: types.ParsedSections{
			SubjectLine:    "Subject: Chess Tournament",
			BodyParagraphs: []string{"Request for approval regarding the tournament."},
			Bullets:        []string{"Venue booked", "Trophies ordered"},
		},
		Conclusion:  "The expenses may be reimbursed.",
		Table:       types.TableData{{"Item", "Amount"}, {"Trophies", "5000", "extra"}, {"Total"}},
		WantBullets: true,
	}
}

func TestHTML(t *testing.T) {
	html, err := New().HTML(testMemo())
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>Subject:</strong> Chess Tournament")
	assert.Contains(t, html, "<p>Request for approval regarding the tournament.</p>")
	assert.Contains(t, html, "<li>Venue booked</li>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<th>Item</th>")
	assert.Contains(t, html, "<td>Trophies</td>")
	assert.NotContains(t, html, "extra")
	assert.Contains(t, html, "<p>The expenses may be reimbursed.</p>")
}

func TestHTML_NoBulletsWhenNotWanted(t *testing.T) {
	memo := testMemo()
	memo.WantBullets = false

	html, err := New().HTML(memo)
	require.NoError(t, err)
	assert.NotContains(t, html, "<li>")
}

func TestHTML_EscapesMarkup(t *testing.T) {
	memo := testMemo()
	memo.Sections.BodyParagraphs = []string{`<script>alert("x")</script> **not bold** 1. not a list`}
	memo.Table = nil

	html, err := New().HTML(memo)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "**not bold**")
	assert.NotContains(t, html, "<ol>")
}

func TestMarkdown_TableAlignsRaggedRows(t *testing.T) {
	md := Markdown(testMemo())

	lines := strings.Split(md, "\n")
	var tableLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "|") {
			tableLines = append(tableLines, l)
		}
	}
	require.Len(t, tableLines, 4)
	for _, l := range tableLines {
		assert.Equal(t, 3, strings.Count(l, "|"), l)
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\*b\_c`, Escape("a*b_c"))
	assert.Equal(t, "plain text", Escape("plain\x00 text"))
}
