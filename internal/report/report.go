// Package report renders sweep records as CSV, JSON or an SVG or PNG chart.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

// Format is an output artifact type.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DefaultPrecision is the number of decimal places written for percentages.
const DefaultPrecision = 6

var (
	ErrUnknownFormat = errors.New("unknown report format")
	ErrNoRecords     = errors.New("no records to render")
)

// ParseFormat accepts svg, png, csv or json in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename returns monty_hall_{doors}_{iterations}.{ext}.
func Filename(doors, iterations int, f Format) string {
	return fmt.Sprintf("monty_hall_%d_%d.%s", doors, iterations, f)
}

// FormatPercentage rounds a win fraction to precision places.
func FormatPercentage(p float64, precision int32) string {
	return decimal.NewFromFloat(p).StringFixed(precision)
}

// Write renders records in the given format.
func Write(w io.Writer, f Format, records []sweep.Record, opts ChartOptions) error {
	switch f {
	case FormatSVG:
		return WriteSVG(w, records, opts)
	case FormatPNG:
		return WritePNG(w, records, opts)
	case FormatCSV:
		return WriteCSV(w, records, opts.Precision)
	case FormatJSON:
		return WriteJSON(w, records, opts.Precision)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []sweep.Record, precision int32) error {
	if precision <= 0 {
		precision = DefaultPrecision
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iterations", "percentage", "doors", "switched"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Iterations),
			FormatPercentage(rec.Percentage, precision),
			strconv.Itoa(rec.Doors),
			strconv.FormatBool(rec.Switched),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonRecord keeps the rounded percentage as a JSON number.
type jsonRecord struct {
	Iterations int         `json:"iterations"`
	Percentage json.Number `json:"percentage"`
	Doors      int         `json:"doors"`
	Switched   bool        `json:"switched"`
}

// WriteJSON writes the records as an indented JSON array.
func WriteJSON(w io.Writer, records []sweep.Record, precision int32) error {
	if precision <= 0 {
		precision = DefaultPrecision
	}

	out := make([]jsonRecord, len(records))
	for i, rec := range records {
		out[i] = jsonRecord{
			Iterations: rec.Iterations,
			Percentage: json.Number(decimal.NewFromFloat(rec.Percentage).Round(precision).String()),
			Doors:      rec.Doors,
			Switched:   rec.Switched,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
