package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/pkordes/shiftsim/internal/domain"
)

// csvHeaders defines the column names written as the first row of a timeline export.
var csvHeaders = []string{
	"kind", "start", "end", "from_zone", "to_zone", "trip_id", "earnings", "minutes",
}

// writeTimelineCSV encodes the timeline as CSV, one event per line.
func writeTimelineCSV(w http.ResponseWriter, runID string, timeline []domain.TimelineEvent) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// bytes.Buffer.Write never returns an error.
	_ = cw.Write(csvHeaders)
	for _, ev := range timeline {
		_ = cw.Write(eventToCSVRecord(ev))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="timeline-`+runID+`.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// eventToCSVRecord flattens one event. Earnings is empty for idle and rest.
func eventToCSVRecord(ev domain.TimelineEvent) []string {
	return []string{
		string(ev.Kind),
		ev.Start.UTC().Format(time.RFC3339),
		ev.End.UTC().Format(time.RFC3339),
		ev.FromZone,
		ev.ToZone,
		ev.TripID,
		formatOptionalFloat(ev.Earnings),
		strconv.FormatFloat(ev.Minutes, 'f', -1, 64),
	}
}

// formatOptionalFloat returns the shortest representation of f, or "" if f is nil.
func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
