package export

import (
	"encoding/json"
	"fmt"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// Task is one labeling-tool task: the source text plus pre-annotations.
type Task struct {
	Data        TaskData     `json:"data"`
	Predictions []Prediction `json:"predictions"`
}

type TaskData struct {
	Text        string `json:"text"`
	SourceFile  string `json:"source_file,omitempty"`
	SheetColumn string `json:"sheet_column,omitempty"`
	RowIndex    *int   `json:"row_index,omitempty"`
}

type Prediction struct {
	ModelVersion string   `json:"model_version"`
	Result       []Region `json:"result"`
}

// Region is one labeled span. Offsets count Unicode code points, as the
// labeling tool indexes text by character.
type Region struct {
	ID       string      `json:"id"`
	FromName string      `json:"from_name"`
	ToName   string      `json:"to_name"`
	Type     string      `json:"type"`
	Value    RegionValue `json:"value"`
	Score    *float64    `json:"score"`
}

type RegionValue struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// AnnotationRow is the text of one task with detections relative to it.
// RowIndex is nil for plain-text documents.
type AnnotationRow struct {
	Text       string
	RowIndex   *int
	Detections []models.Detection
}

// Meta is copied into every task.
type Meta struct {
	SourceFile   string
	SheetColumn  string
	ModelVersion string
	FromName     string
	ToName       string
}

func (m Meta) withDefaults() Meta {
	if m.FromName == "" {
		m.FromName = "label"
	}
	if m.ToName == "" {
		m.ToName = "text"
	}
	if m.ModelVersion == "" {
		m.ModelVersion = "transcript-redactor"
	}
	return m
}

// ToAnnotationFormat builds one task per row. Detections must lie inside
// their row's text.
func ToAnnotationFormat(rows []AnnotationRow, meta Meta) ([]Task, error) {
	meta = meta.withDefaults()
	tasks := make([]Task, 0, len(rows))
	for n, row := range rows {
		regions := make([]Region, 0, len(row.Detections))
		for i, d := range row.Detections {
			if !d.InBounds(len(row.Text)) {
				return nil, fmt.Errorf("task %d: detection [%d:%d] outside text of length %d", n, d.Start, d.End, len(row.Text))
			}
			rec := d.Record()
			regions = append(regions, Region{
				ID:       fmt.Sprintf("t%d-r%d", n, i),
				FromName: meta.FromName,
				ToName:   meta.ToName,
				Type:     "labels",
				Value: RegionValue{
					Start:  charOffset(row.Text, d.Start),
					End:    charOffset(row.Text, d.End),
					Text:   row.Text[d.Start:d.End],
					Labels: []string{string(d.EntityType)},
				},
				Score: rec.Score,
			})
		}

		data := TaskData{
			Text:        row.Text,
			SourceFile:  meta.SourceFile,
			SheetColumn: meta.SheetColumn,
		}
		if row.RowIndex != nil {
			idx := *row.RowIndex
			data.RowIndex = &idx
		}
		tasks = append(tasks, Task{
			Data: data,
			Predictions: []Prediction{{
				ModelVersion: meta.ModelVersion,
				Result:       regions,
			}},
		})
	}
	return tasks, nil
}

// Annotations renders tasks as a pretty-printed JSON document.
func Annotations(rows []AnnotationRow, meta Meta) ([]byte, error) {
	tasks, err := ToAnnotationFormat(rows, meta)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal annotations: %w", err)
	}
	return data, nil
}
