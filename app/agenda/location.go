package agenda

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NoneFound is shown wherever an agenda field could not be recovered.
const NoneFound = "None found"

var boroughs = []string{"Brooklyn", "Manhattan", "Queens", "Staten Island", "The Bronx"}

var locationPattern = regexp.MustCompile(`(?i)^Community District (\d+) (.*[^,]),? (` +
	strings.Join(boroughs, "|") +
	`) Councilmember (.+[^,]),? District (\d+)$`)

// Location is the "location" cell of an agenda row. When the cell follows the
// usual "Community District ... Councilmember ..." wording the typed fields are
// populated; otherwise only Raw is kept.
type Location struct {
	Raw               string
	Parsed            bool
	Borough           string
	Neighborhood      string
	CommunityDistrict int
	Councilmember     string
	CouncilDistrict   int
}

// ParseLocation never fails: text that does not match the expected wording is
// passed through with Councilmember set to NoneFound.
func ParseLocation(raw string) Location {
	collapsed := strings.Join(strings.Fields(raw), " ")

	m := locationPattern.FindStringSubmatch(collapsed)
	if m == nil {
		return Location{Raw: raw, Councilmember: NoneFound}
	}

	communityDistrict, err := strconv.Atoi(m[1])
	if err != nil {
		return Location{Raw: raw, Councilmember: NoneFound}
	}
	councilDistrict, err := strconv.Atoi(m[5])
	if err != nil {
		return Location{Raw: raw, Councilmember: NoneFound}
	}

	return Location{
		Raw:               raw,
		Parsed:            true,
		Borough:           m[3],
		Neighborhood:      m[2],
		CommunityDistrict: communityDistrict,
		Councilmember:     m[4],
		CouncilDistrict:   councilDistrict,
	}
}

func (l Location) String() string {
	if !l.Parsed {
		return l.Raw
	}
	return fmt.Sprintf("%s - %s (Community District %d)", l.Borough, l.Neighborhood, l.CommunityDistrict)
}

// CouncilmemberLabel returns "Name (District N)", or NoneFound for unparsed locations.
func (l Location) CouncilmemberLabel() string {
	if !l.Parsed {
		return NoneFound
	}
	return fmt.Sprintf("%s (District %d)", l.Councilmember, l.CouncilDistrict)
}
