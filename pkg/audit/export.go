package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader returns the column names for CSV exports
func csvHeader() []string {
	return []string{
		"ID",
		"CreatedAt",
		"Action",
		"Severity",
		"PerformedBy",
		"PerformedByRole",
		"TargetModel",
		"TargetID",
		"Description",
		"RequestID",
		"IPAddress",
		"Method",
		"Endpoint",
	}
}

// csvRow flattens one entry for CSV export. Before/after snapshots are
// omitted; consumers needing them should export NDJSON.
func csvRow(e *Entry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.CreatedAt.Format(time.RFC3339),
		e.Action,
		string(e.Severity),
		formatInt64Ptr(e.ActorID),
		e.ActorRole,
		e.TargetModel,
		e.TargetID,
		e.Description,
		e.RequestID,
		e.IPAddress,
		e.Method,
		e.Endpoint,
	}
}

func formatInt64Ptr(val *int64) string {
	if val == nil {
		return ""
	}
	return strconv.FormatInt(*val, 10)
}

// WriteCSV writes entries to w as CSV with a header row
func WriteCSV(w io.Writer, entries []*Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(csvRow(e)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// WriteNDJSON writes entries to w as newline-delimited JSON, one entry per
// line. This is the archive format.
func WriteNDJSON(w io.Writer, entries []*Entry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}
	return nil
}
