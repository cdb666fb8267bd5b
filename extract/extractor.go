// Package extract turns a feed response into junction records and stamps them
// with the capture instant. It performs no I/O.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"junctionflow/feed"
	"junctionflow/models"
)

// Reason names why a catalog junction produced no record.
type Reason string

const (
	ReasonAbsent     Reason = "absent"
	ReasonMalformed  Reason = "malformed"
	ReasonIncomplete Reason = "incomplete"
)

// MissingJunctionError describes a catalog junction that was skipped. It is
// recovered locally and never aborts a run.
type MissingJunctionError struct {
	ID     string
	Reason Reason
	Field  string
	Err    error
}

func (e *MissingJunctionError) Error() string {
	return fmt.Sprintf("junction %s %s", e.ID, e.Detail())
}

// Detail describes the skip without naming the junction.
func (e *MissingJunctionError) Detail() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Reason, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: missing %s", e.Reason, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	default:
		return string(e.Reason)
	}
}

func (e *MissingJunctionError) Unwrap() error { return e.Err }

// Result is the outcome for one catalog junction: exactly one of Record and
// Skip is set.
type Result struct {
	ID     string
	Record *models.JunctionRecord
	Skip   *MissingJunctionError
}

func (r Result) OK() bool { return r.Record != nil }

// Extract maps every catalog id to a Result, in catalog order. Records carry
// no timestamp yet; see Annotate.
func Extract(ids []string, resp feed.Response) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		results = append(results, extractOne(id, resp))
	}
	return results
}

func extractOne(id string, resp feed.Response) Result {
	raw, ok := resp[id]
	if !ok {
		return skip(id, ReasonAbsent, "", nil)
	}

	var detail JunctionDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return skip(id, ReasonMalformed, "", err)
	}
	if detail.JunctionName == nil {
		return skip(id, ReasonIncomplete, "junctionName", nil)
	}

	primary, field, err := detail.PrimaryDownstream.reading()
	if err != nil {
		return sectionSkip(id, "primaryDownstreamJunctionSection", field, err)
	}
	secondary, field, err := detail.SecondaryUpstream.reading()
	if err != nil {
		return sectionSkip(id, "secondaryUpstreamJunctionSection", field, err)
	}

	return Result{
		ID: id,
		Record: &models.JunctionRecord{
			JunctionName:        *detail.JunctionName,
			PrimaryDirection:    primary.direction,
			PrimarySpeedLimit:   primary.speedLimit,
			PrimaryAvgSpeed:     primary.avgSpeed,
			SecondaryDirection:  secondary.direction,
			SecondarySpeedLimit: secondary.speedLimit,
			SecondaryAvgSpeed:   secondary.avgSpeed,
		},
	}
}

func fieldPath(section, field string) string {
	if field == "" {
		return section
	}
	return section + "." + field
}

func sectionSkip(id, section, field string, err error) Result {
	if errors.Is(err, errMissing) {
		return skip(id, ReasonIncomplete, fieldPath(section, field), nil)
	}
	return skip(id, ReasonMalformed, fieldPath(section, field), err)
}

func skip(id string, reason Reason, field string, err error) Result {
	return Result{ID: id, Skip: &MissingJunctionError{ID: id, Reason: reason, Field: field, Err: err}}
}

// Records keeps the successful results and logs one line per skipped junction.
func Records(results []Result, logger *log.Logger) []models.JunctionRecord {
	if logger == nil {
		logger = log.Default()
	}
	records := make([]models.JunctionRecord, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			logger.Printf("data for junction %s is missing: %s", r.ID, r.Skip.Detail())
			continue
		}
		records = append(records, *r.Record)
	}
	return records
}

// Skipped returns the skip errors among results.
func Skipped(results []Result) []*MissingJunctionError {
	var out []*MissingJunctionError
	for _, r := range results {
		if r.Skip != nil {
			out = append(out, r.Skip)
		}
	}
	return out
}
