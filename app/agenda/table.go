package agenda

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Column boundaries as fractions of page width, measured on the published
// letter-size agenda (1.6", 3.1" and 6.46" from the left edge). Column 0 holds
// the calendar number and is not kept.
var defaultColumnBounds = []float64{1.6 / 8.5, 3.1 / 8.5, 6.46 / 8.5}

const (
	caseIDColumn      = 1
	descriptionColumn = 2
	locationColumn    = 3
)

// MeetingRulesMarker starts the boilerplate that follows the agenda body.
const MeetingRulesMarker = "Meeting rules"

const (
	ruleMaxThickness  = 2.0  // points
	ruleMinWidth      = 0.25 // fraction of page width
	frameMinHeight    = 0.5  // fraction of page height; taller rects are page frames
	ruleMergeDistance = 1.0  // points
	lineTolerance     = 0.3  // fraction of font size
	spaceGapRatio     = 0.15 // fraction of font size
)

type TableExtractor struct {
	columnBounds []float64
}

func NewTableExtractor() *TableExtractor {
	return &TableExtractor{columnBounds: defaultColumnBounds}
}

// Run returns the complete rows found on the pages from the one containing
// start up to, but excluding, the first later page containing end or the
// meeting rules boilerplate. An empty start begins at page 1, an empty end
// only stops at the boilerplate. Unreadable pages are skipped.
func (e *TableExtractor) Run(doc Document, start, end string) []Row {
	rows := make([]Row, 0)

	foundStart := start == ""
	startKey := normalizeMarker(start)
	endKey := normalizeMarker(end)
	rulesKey := normalizeMarker(MeetingRulesMarker)

	for num := 1; num <= doc.NumPages(); num++ {
		page, err := doc.Page(num)
		if err != nil {
			slog.Warn("Skipping unreadable agenda page", "page", num, "error", err)
			continue
		}

		text := normalizeMarker(page.Text())
		if !foundStart {
			if !strings.Contains(text, startKey) {
				continue
			}
			foundStart = true
		} else if endKey != "" && strings.Contains(text, endKey) {
			break
		} else if strings.Contains(text, rulesKey) {
			break
		}

		pageRows := e.extractPage(page)
		slog.Debug("Agenda page extracted", "page", num, "start", start, "rows", len(pageRows))
		rows = append(rows, pageRows...)
	}

	return rows
}

func (e *TableExtractor) extractPage(page PageContent) []Row {
	width := page.Width
	if width <= 0 {
		width = letterWidth
	}
	height := page.Height
	if height <= 0 {
		height = letterHeight
	}

	lines := page.lines()
	if rules := horizontalRules(page.Rects, width, height); len(rules) >= 2 {
		return e.latticeRows(lines, rules, width)
	}
	return e.streamRows(lines, width)
}

// latticeRows treats every gap between two consecutive ruling lines as one
// table row; text outside the ruled area is ignored.
func (e *TableExtractor) latticeRows(lines []textLine, rules []float64, width float64) []Row {
	var rows []Row
	for i := 0; i+1 < len(rules); i++ {
		top, bottom := rules[i], rules[i+1]

		var cells []string
		for _, line := range lines {
			if line.y >= top || line.y <= bottom {
				continue
			}
			cells = mergeCells(cells, e.lineCells(line, width))
		}
		if cells == nil {
			continue
		}

		if row := rowFromCells(cells); row.complete() {
			rows = append(rows, row)
		}
	}
	return rows
}

// streamRows is used for pages without ruling lines: a row starts at every
// line with text in the case id column and absorbs the lines below it.
func (e *TableExtractor) streamRows(lines []textLine, width float64) []Row {
	var rows []Row
	var current []string

	flush := func() {
		if current == nil {
			return
		}
		if row := rowFromCells(current); row.complete() {
			rows = append(rows, row)
		}
	}

	for _, line := range lines {
		cells := e.lineCells(line, width)
		if cells[caseIDColumn] != "" {
			flush()
			current = cells
			continue
		}
		if current != nil {
			current = mergeCells(current, cells)
		}
	}
	flush()

	return rows
}

func (e *TableExtractor) lineCells(line textLine, width float64) []string {
	byColumn := make([][]Glyph, len(e.columnBounds)+1)
	for _, g := range line.glyphs {
		col := e.column(g, width)
		byColumn[col] = append(byColumn[col], g)
	}

	cells := make([]string, len(byColumn))
	for i, glyphs := range byColumn {
		cells[i] = joinGlyphs(glyphs)
	}
	return cells
}

func (e *TableExtractor) column(g Glyph, width float64) int {
	center := (g.X + g.W/2) / width
	col := 0
	for _, bound := range e.columnBounds {
		if center >= bound {
			col++
		}
	}
	return col
}

func rowFromCells(cells []string) Row {
	return Row{
		CaseID:      strings.TrimSpace(cells[caseIDColumn]),
		Description: strings.TrimSpace(cells[descriptionColumn]),
		Location:    strings.TrimSpace(cells[locationColumn]),
	}
}

func mergeCells(dst, src []string) []string {
	if dst == nil {
		return append([]string(nil), src...)
	}
	for i, s := range src {
		if s == "" {
			continue
		}
		if dst[i] != "" {
			dst[i] += " "
		}
		dst[i] += s
	}
	return dst
}

// horizontalRules returns the y positions of ruling lines, top first. Thin
// rects count once; wider boxes contribute both their top and bottom edges.
func horizontalRules(rects []Rect, width, height float64) []float64 {
	var ys []float64
	for _, r := range rects {
		minY, maxY := math.Min(r.MinY, r.MaxY), math.Max(r.MinY, r.MaxY)
		if math.Abs(r.MaxX-r.MinX) < ruleMinWidth*width {
			continue
		}
		thickness := maxY - minY
		switch {
		case thickness <= ruleMaxThickness:
			ys = append(ys, (minY+maxY)/2)
		case thickness >= frameMinHeight*height:
			continue
		default:
			ys = append(ys, minY, maxY)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	merged := make([]float64, 0, len(ys))
	for _, y := range ys {
		if n := len(merged); n > 0 && merged[n-1]-y <= ruleMergeDistance {
			continue
		}
		merged = append(merged, y)
	}
	return merged
}

type textLine struct {
	y      float64
	glyphs []Glyph
}

// lines groups glyphs sharing a baseline, top of the page first, each line
// ordered left to right.
func (p PageContent) lines() []textLine {
	glyphs := make([]Glyph, 0, len(p.Glyphs))
	for _, g := range p.Glyphs {
		if strings.TrimSpace(g.S) != "" {
			glyphs = append(glyphs, g)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		return glyphs[i].Y > glyphs[j].Y
	})

	var lines []textLine
	for _, g := range glyphs {
		if n := len(lines); n > 0 && math.Abs(lines[n-1].y-g.Y) <= math.Max(1, lineTolerance*g.Size) {
			lines[n-1].glyphs = append(lines[n-1].glyphs, g)
			continue
		}
		lines = append(lines, textLine{y: g.Y, glyphs: []Glyph{g}})
	}

	for i := range lines {
		line := lines[i].glyphs
		sort.SliceStable(line, func(a, b int) bool {
			return line[a].X < line[b].X
		})
	}
	return lines
}

// Text is the page text, one line per baseline.
func (p PageContent) Text() string {
	lines := p.lines()
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, joinGlyphs(line.glyphs))
	}
	return strings.Join(parts, "\n")
}

func joinGlyphs(glyphs []Glyph) string {
	var b strings.Builder
	for i, g := range glyphs {
		if i > 0 && startsWord(glyphs[i-1], g) {
			b.WriteByte(' ')
		}
		b.WriteString(g.S)
	}
	return b.String()
}

func startsWord(prev, next Glyph) bool {
	w := prev.W
	if w <= 0 {
		w = 0.5 * prev.Size
	}
	return next.X-(prev.X+w) > spaceGapRatio*math.Max(prev.Size, next.Size)
}

// normalizeMarker case-folds and drops all whitespace so that markers match
// regardless of capitalisation or how the PDF spaced the words.
func normalizeMarker(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cases.Fold().String(s))
}
