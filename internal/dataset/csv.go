// Package dataset parses and validates weekly sleep datasets.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/tuisleep/internal/model"
)

// DefaultSource labels the bundled dataset.
const DefaultSource = "default"

// Columns lists the required columns in canonical order.
var Columns = []string{
	"date",
	"total_sleep_hrs",
	"light_sleep_hrs",
	"deep_sleep_hrs",
	"rem_sleep_hrs",
	"awake_hrs",
	"latency_mins",
	"interruptions",
	"consistency_score",
}

//go:embed fake_weekly_input.csv
var defaultCSV []byte

// DefaultCSV returns the bundled dataset as raw CSV.
func DefaultCSV() []byte {
	return append([]byte(nil), defaultCSV...)
}

// Default parses the bundled dataset.
func Default() (model.WeeklyDataset, error) {
	return Parse(bytes.NewReader(defaultCSV), DefaultSource)
}

// Load reads the dataset at path, or the bundled dataset when path is empty.
func Load(path string) (model.WeeklyDataset, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	file, err := os.Open(path)
	if err != nil {
		return model.WeeklyDataset{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only dataset.
			_ = cerr
		}
	}()
	return Parse(file, filepath.Base(path))
}

// Parse reads a delimited dataset, validates its schema and row count.
func Parse(r io.Reader, source string) (model.WeeklyDataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.WeeklyDataset{}, rowCountError(0)
	}
	if err != nil {
		return model.WeeklyDataset{}, &SchemaError{Kind: KindInvalidRow, Line: 1, Err: err}
	}
	index, err := columnIndex(header)
	if err != nil {
		return model.WeeklyDataset{}, err
	}

	var records []model.DailyRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
				err = parseErr.Err
			}
			return model.WeeklyDataset{}, &SchemaError{Kind: KindInvalidRow, Line: line, Err: err}
		}
		line, _ := reader.FieldPos(0)
		rec, err := parseRecord(row, index, line)
		if err != nil {
			return model.WeeklyDataset{}, err
		}
		records = append(records, rec)
	}
	if err := Validate(records); err != nil {
		return model.WeeklyDataset{}, err
	}
	return model.WeeklyDataset{Source: source, Records: records}, nil
}

// Validate checks that exactly one week of records is present.
func Validate(records []model.DailyRecord) error {
	if len(records) != model.DaysPerWeek {
		return rowCountError(len(records))
	}
	return nil
}

func rowCountError(got int) error {
	return fmt.Errorf("%w: please provide exactly %d days of sleep data (got %d rows)", ErrMalformedDataset, model.DaysPerWeek, got)
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, &SchemaError{Kind: KindMissingColumn, Column: col, Line: 1}
		}
	}
	return index, nil
}

type fieldReader struct {
	row   []string
	index map[string]int
	line  int
	err   error
}

func (f *fieldReader) raw(col string) string {
	return strings.TrimSpace(f.row[f.index[col]])
}

func (f *fieldReader) fail(kind Kind, col, value string, err error) {
	if f.err == nil {
		f.err = &SchemaError{Kind: kind, Column: col, Line: f.line, Value: value, Err: err}
	}
}

func (f *fieldReader) date(col string) time.Time {
	value := f.raw(col)
	parsed, err := time.Parse(model.DateLayout, value)
	if err != nil {
		f.fail(KindInvalidValue, col, value, fmt.Errorf("expected YYYY-MM-DD"))
		return time.Time{}
	}
	return parsed
}

func (f *fieldReader) float(col string, minVal, maxVal float64) float64 {
	value := f.raw(col)
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		f.fail(KindInvalidValue, col, value, fmt.Errorf("expected a number"))
		return 0
	}
	if parsed < minVal || parsed > maxVal {
		f.fail(KindOutOfRange, col, value, rangeErr(minVal, maxVal))
		return 0
	}
	return parsed
}

func (f *fieldReader) count(col string) int {
	value := f.raw(col)
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed != math.Trunc(parsed) {
		f.fail(KindInvalidValue, col, value, fmt.Errorf("expected a whole number"))
		return 0
	}
	if parsed < 0 || parsed > math.MaxInt32 {
		f.fail(KindOutOfRange, col, value, rangeErr(0, math.MaxInt32))
		return 0
	}
	return int(parsed)
}

func rangeErr(minVal, maxVal float64) error {
	if math.IsInf(maxVal, 1) {
		return fmt.Errorf("must be >= %g", minVal)
	}
	return fmt.Errorf("must be between %g and %g", minVal, maxVal)
}

func parseRecord(row []string, index map[string]int, line int) (model.DailyRecord, error) {
	f := &fieldReader{row: row, index: index, line: line}
	noMax := math.Inf(1)
	rec := model.DailyRecord{
		Date:             f.date("date"),
		TotalSleepHrs:    f.float("total_sleep_hrs", 0, noMax),
		LightSleepHrs:    f.float("light_sleep_hrs", 0, noMax),
		DeepSleepHrs:     f.float("deep_sleep_hrs", 0, noMax),
		RemSleepHrs:      f.float("rem_sleep_hrs", 0, noMax),
		AwakeHrs:         f.float("awake_hrs", 0, noMax),
		LatencyMins:      f.float("latency_mins", 0, noMax),
		Interruptions:    f.count("interruptions"),
		ConsistencyScore: f.float("consistency_score", 0, 100),
	}
	if f.err != nil {
		return model.DailyRecord{}, f.err
	}
	return rec, nil
}

// Write encodes ds as CSV with the canonical header.
func Write(w io.Writer, ds model.WeeklyDataset) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, rec := range ds.Records {
		row := []string{
			rec.Date.Format(model.DateLayout),
			formatFloat(rec.TotalSleepHrs),
			formatFloat(rec.LightSleepHrs),
			formatFloat(rec.DeepSleepHrs),
			formatFloat(rec.RemSleepHrs),
			formatFloat(rec.AwakeHrs),
			formatFloat(rec.LatencyMins),
			strconv.Itoa(rec.Interruptions),
			formatFloat(rec.ConsistencyScore),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
