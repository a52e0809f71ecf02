package agenda

// Row is one complete line of an agenda table.
type Row struct {
	CaseID      string
	Description string
	Location    string
}

func (r Row) complete() bool {
	return r.CaseID != "" && r.Description != "" && r.Location != ""
}

// Project is an agenda item tagged with the section it was found in.
type Project struct {
	CaseID          string
	Description     string
	IsPublicHearing bool
	Location        Location
}

// NewProject builds a Project from a row, parsing its location cell.
func NewProject(row Row, isPublicHearing bool) Project {
	return Project{
		CaseID:          row.CaseID,
		Description:     row.Description,
		IsPublicHearing: isPublicHearing,
		Location:        ParseLocation(row.Location),
	}
}

// Glyph is a single positioned character in PDF user space (origin bottom-left).
type Glyph struct {
	X    float64
	Y    float64
	W    float64
	Size float64
	S    string
}

type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// PageContent is the drawing content of one page that the extractor needs.
type PageContent struct {
	Width  float64
	Height float64
	Glyphs []Glyph
	Rects  []Rect
}

// Document is a paged source of PageContent. Pages are numbered from 1.
type Document interface {
	NumPages() int
	Page(num int) (PageContent, error)
}
