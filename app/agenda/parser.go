package agenda

import (
	"fmt"
	"log/slog"
)

// Section headings of the City Planning Commission agenda.
const (
	CommissionVotesMarker = "commission votes today on:"
	PublicHearingsMarker  = "public hearings today on:"
)

type Parser struct {
	extractor *TableExtractor
}

func NewParser() *Parser {
	return &Parser{
		extractor: NewTableExtractor(),
	}
}

// Run extracts the commission votes and the public hearings from agenda PDF
// bytes. Missing sections produce no projects; only an unreadable document is
// an error.
func (p *Parser) Run(data []byte) ([]Project, error) {
	doc, err := OpenDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open agenda: %w", err)
	}

	return p.RunDocument(doc), nil
}

func (p *Parser) RunDocument(doc Document) []Project {
	votes := p.extractor.Run(doc, CommissionVotesMarker, PublicHearingsMarker)
	hearings := p.extractor.Run(doc, PublicHearingsMarker, "")

	projects := make([]Project, 0, len(votes)+len(hearings))
	for _, row := range votes {
		projects = append(projects, NewProject(row, false))
	}
	for _, row := range hearings {
		projects = append(projects, NewProject(row, true))
	}

	slog.Debug("Agenda parsed",
		"pages", doc.NumPages(),
		"commission_votes", len(votes),
		"public_hearings", len(hearings))

	return projects
}
