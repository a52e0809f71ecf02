package agenda_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nyczoning/notifier/app/agenda"
	"github.com/nyczoning/notifier/app/agenda/agendatest"
)

const parkSlope = "Community District 6 Park Slope, Brooklyn Councilmember Shahana Hanif, District 39"

func sampleRow(n int) agenda.Row {
	return agenda.Row{
		CaseID:      fmt.Sprintf("C %06d ZMK", 240000+n),
		Description: fmt.Sprintf("PROJECT %d zoning map amendment to rezone a block", n),
		Location:    parkSlope,
	}
}

func sampleRows(from, count int) []agenda.Row {
	rows := make([]agenda.Row, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, sampleRow(from+i))
	}
	return rows
}

// julyAgenda mirrors an agenda with 9 commission votes spread over two pages
// and 7 public hearings followed by the meeting rules.
func julyAgenda() []*agendatest.Page {
	cover := agendatest.NewPage().
		Text(72, 720, "CITY PLANNING COMMISSION").
		Text(72, 700, "Public Meeting Agenda")

	votes := agendatest.NewPage().Text(72, 720, "COMMISSION VOTES TODAY ON:")
	votes.Table(700, sampleRows(1, 5)...)

	votesContinued := agendatest.NewPage()
	votesContinued.Table(720, sampleRows(6, 4)...)

	hearings := agendatest.NewPage().Text(72, 720, "PUBLIC  HEARINGS  TODAY  ON:")
	hearings.Table(700, sampleRows(10, 4)...)

	hearingsContinued := agendatest.NewPage()
	hearingsContinued.Table(720, sampleRows(14, 3)...)

	rules := agendatest.NewPage().Text(72, 720, "MEETING RULES")
	rules.Table(700, sampleRows(90, 2)...)

	return []*agendatest.Page{cover, votes, votesContinued, hearings, hearingsContinued, rules}
}

// specialMeetingAgenda has a single complete commission vote and no public hearings.
func specialMeetingAgenda() []*agendatest.Page {
	votes := agendatest.NewPage().Text(72, 720, "Commission Votes Today On:")
	votes.Table(700,
		sampleRow(1),
		agenda.Row{CaseID: "N 240002 ZRY", Description: "Text amendment without a location"},
	)

	rules := agendatest.NewPage().Text(72, 720, "Meeting rules")

	return []*agendatest.Page{votes, rules}
}

func TestTableExtractorSectionCounts(t *testing.T) {
	tests := []struct {
		name               string
		pages              []*agendatest.Page
		wantVotes          int
		wantPublicHearings int
	}{
		{name: "regular meeting", pages: julyAgenda(), wantVotes: 9, wantPublicHearings: 7},
		{name: "special meeting", pages: specialMeetingAgenda(), wantVotes: 1, wantPublicHearings: 0},
	}

	extractor := agenda.NewTableExtractor()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := agendatest.NewDocument(tt.pages...)

			votes := extractor.Run(doc, agenda.CommissionVotesMarker, agenda.PublicHearingsMarker)
			hearings := extractor.Run(doc, agenda.PublicHearingsMarker, "")

			if len(votes) != tt.wantVotes {
				t.Errorf("Expected %d commission votes, got %d", tt.wantVotes, len(votes))
			}
			if len(hearings) != tt.wantPublicHearings {
				t.Errorf("Expected %d public hearings, got %d", tt.wantPublicHearings, len(hearings))
			}
		})
	}
}

func TestTableExtractorRowContent(t *testing.T) {
	doc := agendatest.NewDocument(julyAgenda()...)

	rows := agenda.NewTableExtractor().Run(doc, agenda.CommissionVotesMarker, agenda.PublicHearingsMarker)
	if len(rows) != 9 {
		t.Fatalf("Expected 9 rows, got %d", len(rows))
	}

	for i, row := range rows {
		want := sampleRow(i + 1)
		if row != want {
			t.Errorf("Row %d: expected %+v, got %+v", i, want, row)
		}
	}
}

func TestTableExtractorMissingStartMarker(t *testing.T) {
	page := agendatest.NewPage().Text(72, 720, "SOMETHING ELSE ENTIRELY")
	page.Table(700, sampleRows(1, 3)...)

	rows := agenda.NewTableExtractor().Run(agendatest.NewDocument(page), agenda.PublicHearingsMarker, "")

	if rows == nil {
		t.Error("Expected an empty, non-nil result")
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}

func TestTableExtractorNoStartMarkerReadsFromFirstPage(t *testing.T) {
	first := agendatest.NewPage()
	first.Table(720, sampleRows(1, 2)...)
	second := agendatest.NewPage().Text(72, 720, "Meeting Rules")
	second.Table(700, sampleRows(3, 2)...)

	rows := agenda.NewTableExtractor().Run(agendatest.NewDocument(first, second), "", "")

	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
}

func TestTableExtractorEmptyDocument(t *testing.T) {
	rows := agenda.NewTableExtractor().Run(agendatest.NewDocument(), agenda.CommissionVotesMarker, agenda.PublicHearingsMarker)

	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}

func TestTableExtractorSkipsUnreadablePages(t *testing.T) {
	votes := agendatest.NewPage().Text(72, 720, "COMMISSION VOTES TODAY ON:")
	votes.Table(700, sampleRows(1, 2)...)
	broken := agendatest.NewPage()
	broken.Table(720, sampleRows(3, 2)...)
	more := agendatest.NewPage()
	more.Table(720, sampleRows(5, 3)...)

	doc := agendatest.NewDocument(votes, broken, more).Fail(2, errors.New("bad content stream"))

	rows := agenda.NewTableExtractor().Run(doc, agenda.CommissionVotesMarker, agenda.PublicHearingsMarker)

	if len(rows) != 5 {
		t.Errorf("Expected 5 rows from the readable pages, got %d", len(rows))
	}
}

func TestTableExtractorStreamFallback(t *testing.T) {
	page := agendatest.NewPage().Text(72, 740, "PUBLIC HEARINGS TODAY ON:")
	y := page.Cells(720, "1", sampleRow(1))
	y = page.Cells(y, "2", agenda.Row{CaseID: "N 240099 ZRY", Description: "Citywide text amendment"})
	page.Cells(y, "3", sampleRow(3))

	rows := agenda.NewTableExtractor().Run(agendatest.NewDocument(page), agenda.PublicHearingsMarker, "")

	if len(rows) != 2 {
		t.Fatalf("Expected 2 complete rows, got %d: %+v", len(rows), rows)
	}
	if rows[0] != sampleRow(1) {
		t.Errorf("Expected %+v, got %+v", sampleRow(1), rows[0])
	}
	if rows[1] != sampleRow(3) {
		t.Errorf("Expected %+v, got %+v", sampleRow(3), rows[1])
	}
}

func TestTableExtractorFromPDFBytes(t *testing.T) {
	doc, err := agenda.OpenDocument(agendatest.PDF(julyAgenda()...))
	if err != nil {
		t.Fatalf("Expected PDF to open, got: %v", err)
	}

	if doc.NumPages() != 6 {
		t.Fatalf("Expected 6 pages, got %d", doc.NumPages())
	}

	extractor := agenda.NewTableExtractor()
	votes := extractor.Run(doc, agenda.CommissionVotesMarker, agenda.PublicHearingsMarker)
	hearings := extractor.Run(doc, agenda.PublicHearingsMarker, "")

	if len(votes) != 9 {
		t.Errorf("Expected 9 commission votes, got %d", len(votes))
	}
	if len(hearings) != 7 {
		t.Errorf("Expected 7 public hearings, got %d", len(hearings))
	}
	if len(votes) > 0 && votes[0] != sampleRow(1) {
		t.Errorf("Expected first row %+v, got %+v", sampleRow(1), votes[0])
	}
}

func TestOpenDocumentRejectsGarbage(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("not a pdf"),
		[]byte("%PDF-1.4\ntruncated"),
	}

	for _, input := range inputs {
		if _, err := agenda.OpenDocument(input); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}
