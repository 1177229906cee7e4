package acmi

import (
	"strings"
	"time"
)

// GlobalKey names a global (object 0) property. Keys not listed here are
// carried verbatim.
type GlobalKey string

const (
	Title              GlobalKey = "Title"
	Category           GlobalKey = "Category"
	Author             GlobalKey = "Author"
	ReferenceTime      GlobalKey = "ReferenceTime"
	RecordingTime      GlobalKey = "RecordingTime"
	Briefing           GlobalKey = "Briefing"
	Debriefing         GlobalKey = "Debriefing"
	Comments           GlobalKey = "Comments"
	DataSource         GlobalKey = "DataSource"
	DataRecorder       GlobalKey = "DataRecorder"
	ReferenceLongitude GlobalKey = "ReferenceLongitude"
	ReferenceLatitude  GlobalKey = "ReferenceLatitude"
)

// eventKey is the global property name under which events are written.
const eventKey = "Event"

// Metadata is the mission description a host supplies once per session.
// Zero times render as empty values.
type Metadata struct {
	Title         string
	Category      string
	Author        string
	ReferenceTime time.Time
	RecordingTime time.Time
	Briefing      string
	Debriefing    string
	Comments      string
	DataSource    string
	DataRecorder  string
}

// FormatTime renders t the way ACMI expects time properties: RFC3339 in
// UTC with seconds precision. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Records returns the metadata block in its canonical order. Every field is
// present even when empty. Carriage returns in free text are folded into
// newlines.
func (m Metadata) Records() []Record {
	return []Record{
		GlobalProperty{Key: Title, Value: freeText(m.Title)},
		GlobalProperty{Key: Category, Value: freeText(m.Category)},
		GlobalProperty{Key: Author, Value: freeText(m.Author)},
		GlobalProperty{Key: ReferenceTime, Value: FormatTime(m.ReferenceTime)},
		GlobalProperty{Key: RecordingTime, Value: FormatTime(m.RecordingTime)},
		GlobalProperty{Key: Briefing, Value: freeText(m.Briefing)},
		GlobalProperty{Key: Debriefing, Value: freeText(m.Debriefing)},
		GlobalProperty{Key: Comments, Value: freeText(m.Comments)},
		GlobalProperty{Key: DataSource, Value: freeText(m.DataSource)},
		GlobalProperty{Key: DataRecorder, Value: freeText(m.DataRecorder)},
	}
}

var crlf = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func freeText(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return crlf.Replace(s)
}
