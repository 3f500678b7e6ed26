package lead

// Urgency is the coarse priority classification for a lead.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyHigh      Urgency = "high"
	UrgencyMedium    Urgency = "medium"
	UrgencyLow       Urgency = "low"
)

// urgencyTiers are checked in priority order; the first tier with any
// keyword present wins regardless of how many keywords match elsewhere.
var urgencyTiers = []struct {
	level    Urgency
	keywords []string
}{
	{UrgencyEmergency, []string{
		"arrested", "jail", "detained", "custody", "court tomorrow",
		"emergency", "restraining order", "deportation",
	}},
	{UrgencyHigh, []string{
		"court date", "deadline", "eviction", "accident today",
		"hospital", "injured",
	}},
	{UrgencyMedium, []string{
		"charged", "citation", "ticket", "summons", "hearing",
	}},
}

// CaseTypeUnknown is returned when no category keyword matches.
const CaseTypeUnknown = "Unknown"

// caseTypes is an ordered slice, not a map: ties between categories
// resolve to the first-declared one, so iteration order must be stable.
var caseTypes = []struct {
	name     string
	keywords []string
}{
	{"Criminal Defense", []string{
		"arrested", "criminal", "felony", "misdemeanor", "charges",
		"indicted", "assault", "theft", "robbery", "murder",
		"manslaughter", "drug", "weapons",
	}},
	{"DUI/DWI", []string{
		"dui", "dwi", "drunk driving", "breathalyzer", "bac",
		"blood alcohol", "impaired", "field sobriety", "license suspended",
	}},
	{"Personal Injury", []string{
		"accident", "injured", "injury", "hurt", "car crash",
		"slip and fall", "medical malpractice", "negligence", "pain",
		"suffering", "hospital",
	}},
	{"Family Law", []string{
		"divorce", "custody", "child support", "alimony", "visitation",
		"separation", "domestic", "restraining order", "adoption",
	}},
	{"Immigration", []string{
		"immigration", "visa", "deportation", "green card", "asylum",
		"citizenship", "undocumented", "ice",
	}},
}

var stateNames = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado",
	"connecticut", "delaware", "florida", "georgia", "hawaii", "idaho",
	"illinois", "indiana", "iowa", "kansas", "kentucky", "louisiana",
	"maine", "maryland", "massachusetts", "michigan", "minnesota",
	"mississippi", "missouri", "montana", "nebraska", "nevada",
	"new hampshire", "new jersey", "new mexico", "new york",
	"north carolina", "north dakota", "ohio", "oklahoma", "oregon",
	"pennsylvania", "rhode island", "south carolina", "south dakota",
	"tennessee", "texas", "utah", "vermont", "virginia", "washington",
	"west virginia", "wisconsin", "wyoming",
}
