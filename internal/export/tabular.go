// Package export renders filtered detections as CSV, JSON and
// annotation-tool prediction tasks.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

var csvHeader = []string{"entity_type", "start", "end", "score"}

// ToTabular flattens detections over text into export records, one per
// detection. Offsets count code points, as in the annotation export.
func ToTabular(text string, detections []models.Detection) []models.DetectionRecord {
	records := make([]models.DetectionRecord, 0, len(detections))
	for _, d := range detections {
		records = append(records, record(text, d))
	}
	return records
}

func record(text string, d models.Detection) models.DetectionRecord {
	rec := d.Record()
	rec.Start = charOffset(text, d.Start)
	rec.End = charOffset(text, d.End)
	return rec
}

// charOffset converts byte offset i of text to a code point offset.
func charOffset(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i > len(text) {
		i = len(text)
	}
	return utf8.RuneCountInString(text[:i])
}

// ToTabularRows flattens per-row detections. Offsets are relative to the
// row's own text and each record carries its original row index.
func ToTabularRows(rows []AnnotationRow) []models.DetectionRecord {
	var records []models.DetectionRecord
	for _, row := range rows {
		for _, d := range row.Detections {
			rec := record(row.Text, d)
			if row.RowIndex != nil {
				idx := *row.RowIndex
				rec.RowIndex = &idx
			}
			records = append(records, rec)
		}
	}
	if records == nil {
		records = []models.DetectionRecord{}
	}
	return records
}

// WriteCSV writes records with a header row. The row_index column is added
// only when at least one record carries a row index; a missing score is an
// empty cell.
func WriteCSV(w io.Writer, records []models.DetectionRecord) error {
	withRows := false
	for _, r := range records {
		if r.RowIndex != nil {
			withRows = true
			break
		}
	}

	header := csvHeader
	if withRows {
		header = append([]string{"row_index"}, csvHeader...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		score := ""
		if r.Score != nil {
			score = strconv.FormatFloat(*r.Score, 'f', -1, 64)
		}
		row := []string{string(r.EntityType), strconv.Itoa(r.Start), strconv.Itoa(r.End), score}
		if withRows {
			idx := ""
			if r.RowIndex != nil {
				idx = strconv.Itoa(*r.RowIndex)
			}
			row = append([]string{idx}, row...)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV is WriteCSV into a byte slice.
func CSV(records []models.DetectionRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON renders records as a pretty-printed array.
func JSON(records []models.DetectionRecord) ([]byte, error) {
	if records == nil {
		records = []models.DetectionRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal detections: %w", err)
	}
	return data, nil
}
