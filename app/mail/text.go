package mail

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/nyczoning/notifier/app/agenda"
)

var tableColumns = []struct {
	title string
	width int
}{
	{title: "Case", width: 14},
	{title: "Name and description", width: 48},
	{title: "Location", width: 36},
	{title: "Councilmember", width: 28},
}

// ProjectTable renders projects as a fixed-width plain text table. Cells
// longer than their column are truncated.
func ProjectTable(projects []agenda.Project) string {
	var b strings.Builder

	header := make([]string, len(tableColumns))
	rule := make([]string, len(tableColumns))
	for i, col := range tableColumns {
		header[i] = col.title
		rule[i] = strings.Repeat("-", col.width)
	}
	writeTableRow(&b, header)
	writeTableRow(&b, rule)

	if len(projects) == 0 {
		b.WriteString(agenda.NoneFound)
		b.WriteString("\n")
		return b.String()
	}

	for _, p := range projects {
		writeTableRow(&b, []string{
			p.CaseID,
			oneLine(p.Description),
			p.Location.String(),
			p.Location.CouncilmemberLabel(),
		})
	}

	return b.String()
}

func writeTableRow(b *strings.Builder, cells []string) {
	for i, col := range tableColumns {
		cell := runewidth.Truncate(cells[i], col.width, "…")
		if i == len(tableColumns)-1 {
			b.WriteString(strings.TrimRight(cell, " "))
			break
		}
		b.WriteString(runewidth.FillRight(cell, col.width))
		b.WriteString("  ")
	}
	b.WriteString("\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
