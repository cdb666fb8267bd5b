package extract

import (
	"time"
	_ "time/tzdata" // Europe/London must resolve on hosts without zoneinfo

	"junctionflow/models"
)

// DefaultTimezone is the civil timezone captures are recorded in.
const DefaultTimezone = "Europe/London"

const (
	timeLayout = "15:04:05"
	dateLayout = "2006-01-02"
)

// Stamp is the time, date and weekday triple shared by every record of a run.
type Stamp struct {
	Time    string
	Date    string
	Weekday string
}

// StampAt renders instant in loc. A nil loc means UTC.
func StampAt(instant time.Time, loc *time.Location) Stamp {
	if loc == nil {
		loc = time.UTC
	}
	local := instant.In(loc)
	return Stamp{
		Time:    local.Format(timeLayout),
		Date:    local.Format(dateLayout),
		Weekday: local.Weekday().String(),
	}
}

// Annotate returns copies of records all stamped with the same capture instant.
func Annotate(records []models.JunctionRecord, instant time.Time, loc *time.Location) []models.JunctionRecord {
	stamp := StampAt(instant, loc)
	out := make([]models.JunctionRecord, len(records))
	for i, r := range records {
		r.RecordTime = stamp.Time
		r.RecordDate = stamp.Date
		r.DayOfWeek = stamp.Weekday
		out[i] = r
	}
	return out
}

// LoadLocation resolves a timezone name, falling back to DefaultTimezone when
// name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}
