// Package export renders alert lists and risk assessments as JSON, CSV or
// XLSX for the CLI and the HTTP API.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/outagewatch/core/alerts"
	"github.com/kilianp07/outagewatch/core/history"
	"github.com/kilianp07/outagewatch/core/model"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, csv and xlsx in any case. The empty string is JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Table is the tabular form shared by the CSV and XLSX writers.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]any
}

// HistoryTable flattens alert scans to one row per alert. A scan without
// alerts keeps a single row with empty alert columns.
func HistoryTable(recs []history.Record) Table {
	t := Table{Sheet: "History", Header: []string{
		"scanned_at", "batch_id", "published", "total", "overflow", "skipped",
		"facility_id", "stage", "start", "end",
	}}
	for _, r := range recs {
		scan := []any{r.Timestamp, r.BatchID, r.Published, r.Total, r.Overflow, r.Skipped}
		if len(r.Alerts) == 0 {
			t.Rows = append(t.Rows, append(scan, nil, nil, nil, nil))
			continue
		}
		for _, a := range r.Alerts {
			row := append(append([]any(nil), scan...), a.FacilityID, int(a.Stage), a.Start, a.End)
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// AlertsTable flattens an alert list, one row per alert.
func AlertsTable(list alerts.AlertList) Table {
	t := Table{Sheet: "Alerts", Header: []string{"facility_id", "facility_name", "stage", "start", "end", "backup"}}
	for _, a := range list.Alerts {
		t.Rows = append(t.Rows, []any{a.FacilityID, a.FacilityName, int(a.Stage), a.Start, a.End, a.Backup.String()})
	}
	return t
}

// AssessmentsTable flattens risk assessments, one row per facility.
func AssessmentsTable(list []model.PowerRiskAssessment) Table {
	t := Table{Sheet: "Assessments", Header: []string{
		"facility_id", "risk", "stage", "backup", "backup_ready", "next_start", "next_end",
		"margin_minutes", "confidence", "stale", "recommendations",
	}}
	for _, r := range list {
		var nextStart, nextEnd, margin any
		if r.Next != nil {
			nextStart, nextEnd = r.Next.Start, r.Next.End
		}
		if r.MarginMinutes != nil {
			margin = *r.MarginMinutes
		}
		t.Rows = append(t.Rows, []any{
			r.FacilityID, r.Risk.String(), int(r.Stage), r.Backup.String(), r.BackupReady,
			nextStart, nextEnd, margin, string(r.Confidence), r.Stale, strings.Join(r.Recommendations, "; "),
		})
	}
	return t
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes the table to w with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellString(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write encodes v (JSON) or its table form (CSV, XLSX) in the given format.
func Write(w io.Writer, f Format, v any, t Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return WriteJSON(w, v)
	}
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
