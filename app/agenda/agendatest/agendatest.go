// Package agendatest builds agenda documents for tests, both as in-memory
// agenda.Document values and as real PDF bytes laid out like the published
// City Planning Commission agenda.
package agendatest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/nyczoning/notifier/app/agenda"
)

// Page geometry: US letter, 10pt text advancing a fixed half em per glyph.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
	FontSize   = 10.0
	CharWidth  = FontSize * 500 / 1000
	LineHeight = 12.0

	calendarX    = 40.0
	caseIDX      = 120.0
	descriptionX = 230.0
	locationX    = 470.0

	descriptionChars = 46
	locationChars    = 28
)

type text struct {
	x, y float64
	s    string
}

type Page struct {
	texts []text
	rects []agenda.Rect
}

func NewPage() *Page {
	return &Page{}
}

func (p *Page) Text(x, y float64, s string) *Page {
	p.texts = append(p.texts, text{x: x, y: y, s: s})
	return p
}

// Rule draws a thin full-width horizontal line centred on y.
func (p *Page) Rule(y float64) *Page {
	p.rects = append(p.rects, agenda.Rect{MinX: 36, MinY: y - 0.25, MaxX: 576, MaxY: y + 0.25})
	return p
}

// Cells writes one table row without ruling lines, wrapping description and
// location inside their columns, and returns the y of the row's bottom edge.
func (p *Page) Cells(top float64, calendarNo string, row agenda.Row) float64 {
	descLines := wrap(row.Description, descriptionChars)
	locLines := wrap(row.Location, locationChars)
	n := max(len(descLines), len(locLines), 1)

	baseline := top - LineHeight
	if calendarNo != "" {
		p.Text(calendarX, baseline, calendarNo)
	}
	if row.CaseID != "" {
		p.Text(caseIDX, baseline, row.CaseID)
	}
	for i, line := range descLines {
		p.Text(descriptionX, baseline-float64(i)*LineHeight, line)
	}
	for i, line := range locLines {
		p.Text(locationX, baseline-float64(i)*LineHeight, line)
	}

	return top - float64(n)*LineHeight - LineHeight/2
}

// Table writes ruled rows starting at top and returns the y of the last rule.
func (p *Page) Table(top float64, rows ...agenda.Row) float64 {
	p.Rule(top)
	y := top
	for i, row := range rows {
		y = p.Cells(y, fmt.Sprint(i+1), row)
		p.Rule(y)
	}
	return y
}

// Agenda lays out a three page agenda: commission votes, public hearings and
// the meeting rules boilerplate.
func Agenda(votes, hearings []agenda.Row) []*Page {
	votesPage := NewPage().Text(72, 720, "COMMISSION VOTES TODAY ON:")
	votesPage.Table(700, votes...)

	hearingsPage := NewPage().Text(72, 720, "PUBLIC HEARINGS TODAY ON:")
	hearingsPage.Table(700, hearings...)

	rulesPage := NewPage().
		Text(72, 720, "Meeting Rules").
		Text(72, 700, "Speakers must register before the hearing begins.")

	return []*Page{votesPage, hearingsPage, rulesPage}
}

// AgendaPDF is Agenda encoded as PDF bytes.
func AgendaPDF(votes, hearings []agenda.Row) []byte {
	return PDF(Agenda(votes, hearings)...)
}

// Content renders the page the way the PDF reader reports it: one glyph per
// non-space character.
func (p *Page) Content() agenda.PageContent {
	content := agenda.PageContent{Width: PageWidth, Height: PageHeight}
	for _, t := range p.texts {
		x := t.x
		for _, r := range t.s {
			if r != ' ' {
				content.Glyphs = append(content.Glyphs, agenda.Glyph{
					X: x, Y: t.y, W: CharWidth, Size: FontSize, S: string(r),
				})
			}
			x += CharWidth
		}
	}
	content.Rects = append(content.Rects, p.rects...)
	return content
}

// Document is an in-memory agenda.Document.
type Document struct {
	pages  []agenda.PageContent
	failed map[int]error
}

func NewDocument(pages ...*Page) *Document {
	d := &Document{failed: make(map[int]error)}
	for _, p := range pages {
		d.pages = append(d.pages, p.Content())
	}
	return d
}

// Fail makes page num (1-based) return err.
func (d *Document) Fail(num int, err error) *Document {
	d.failed[num] = err
	return d
}

func (d *Document) NumPages() int {
	return len(d.pages)
}

func (d *Document) Page(num int) (agenda.PageContent, error) {
	if err, ok := d.failed[num]; ok {
		return agenda.PageContent{}, err
	}
	if num < 1 || num > len(d.pages) {
		return agenda.PageContent{}, fmt.Errorf("page %d not found", num)
	}
	return d.pages[num-1], nil
}

// PDF renders the pages with the Helvetica core font. Core fonts carry no
// width table, so every glyph is placed on its own at the fixed advance the
// in-memory Content reports.
func PDF(pages ...*Page) []byte {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	doc.SetCompression(false)
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont("Helvetica", "", FontSize)

	for _, p := range pages {
		doc.AddPage()
		for _, r := range p.rects {
			// fpdf measures y from the top edge
			doc.Rect(r.MinX, PageHeight-r.MaxY, r.MaxX-r.MinX, r.MaxY-r.MinY, "F")
		}
		for _, t := range p.texts {
			x := t.x
			for _, r := range t.s {
				if r != ' ' {
					doc.Text(x, PageHeight-t.y, string(r))
				}
				x += CharWidth
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		panic(fmt.Sprintf("agendatest: failed to render PDF: %v", err))
	}
	return buf.Bytes()
}

func wrap(s string, width int) []string {
	var lines []string
	var current string
	for _, word := range strings.Fields(s) {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
