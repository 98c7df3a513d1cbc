// Package csvio reads and writes the document CSV exchange format.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"doctrack/internal/domain/document"
)

// DateLayout is how timestamps are written, in the caller's location.
const DateLayout = "2006-01-02 15:04:05"

var Header = []string{"controlNumber", "title", "notes", "owner", "status", "winsStatus", "createdAt", "updatedAt"}

var ErrMissingHeader = errors.New("csv header must include controlNumber")

var templateRow = []string{"ECOM-20XX-0001", "Example Document", "Example notes", "Alice", "Revision", "Pending for Approve", "", ""}

// FormatDate renders epoch milliseconds; zero is an empty cell.
func FormatDate(ms int64, loc *time.Location) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).In(loc).Format(DateLayout)
}

// ParseDate accepts "yyyy-mm-dd hh:mm:ss", "dd/mm/yyyy hh:mm:ss", RFC3339
// and epoch milliseconds. Anything else yields 0.
func ParseDate(s string, loc *time.Location) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli()
	}
	for _, layout := range []string{DateLayout, "02/01/2006 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func Write(w io.Writer, docs []document.Document, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, d := range docs {
		row := []string{
			d.ControlNumber, d.Title, d.Notes, d.Owner,
			string(d.Status), string(d.WinsStatus),
			FormatDate(d.CreatedAt, loc), FormatDate(d.UpdatedAt, loc),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplate writes the header and one example row.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.Write(templateRow); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Parsed is the outcome of Read: the usable rows, plus the control numbers
// of rows rejected for a malformed key. Rows with no key are dropped silently.
type Parsed struct {
	Docs    []document.Document
	Invalid []string
}

// Read parses a CSV by header name, so column order is free. Missing status
// columns fall back to the document defaults.
func Read(r io.Reader, loc *time.Location) (Parsed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Parsed{}, nil
	}
	if err != nil {
		return Parsed{}, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	if _, ok := col["controlNumber"]; !ok {
		return Parsed{}, ErrMissingHeader
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out Parsed
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read row: %w", err)
		}
		cn := field(row, "controlNumber")
		if cn == "" {
			continue
		}
		if !document.ValidControlNumber(cn) {
			out.Invalid = append(out.Invalid, cn)
			continue
		}
		d := document.Document{
			ControlNumber: cn,
			Title:         field(row, "title"),
			Notes:         field(row, "notes"),
			Owner:         field(row, "owner"),
			Status:        document.Status(field(row, "status")),
			WinsStatus:    document.WinsStatus(field(row, "winsStatus")),
			CreatedAt:     ParseDate(field(row, "createdAt"), loc),
			UpdatedAt:     ParseDate(field(row, "updatedAt"), loc),
		}
		out.Docs = append(out.Docs, d.WithDefaults())
	}
	return out, nil
}
