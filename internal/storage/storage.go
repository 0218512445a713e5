// Package storage archives cutover reports to object storage.
package storage

import (
	"alcyxob/exercise-tracker/internal/domain"
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ReportStore keeps a durable copy of every cutover report.
type ReportStore interface {
	// PutReport uploads report and returns the object key it was stored under.
	PutReport(ctx context.Context, report *domain.CutoverReport) (string, error)
}

// ReportKey builds the object key of a report: <prefix><closed date>/<run id>.json.
// Reports without a run id get a random one so uploads never overwrite each other.
func ReportKey(prefix string, report *domain.CutoverReport) string {
	runID := report.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	date := report.Day.Format(domain.DateLayout)
	key := path.Join(date, runID+".json")
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
