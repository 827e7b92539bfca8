// Package alignment joins the text cells of one table column into a single
// document for detection and distributes the redacted document back to the
// original rows.
//
// Join records both the row index and the byte range of every segment, so
// detections can be attributed to rows by offset. Split still relies on the
// newline separator; a cell that itself contains a newline shifts every
// following row, which Split reports as a MismatchError instead of failing.
package alignment

import (
	"fmt"
	"strings"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// Separator joins segments in the analyzed document.
const Separator = "\n"

// Span is a half-open byte range in the joined text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RowAlignment maps joined segment i to its original row Rows[i] and to the
// byte range Offsets[i] it occupies in the joined text.
type RowAlignment struct {
	Rows    []int
	Offsets []Span
}

func (a RowAlignment) Len() int {
	return len(a.Rows)
}

// MismatchError reports that the redacted document did not split back into
// the expected number of rows. It is a warning: Split still returns a
// best-effort result alongside it.
type MismatchError struct {
	Expected int
	Got      int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("row alignment mismatch: expected %d rows, split produced %d", e.Expected, e.Got)
}

// IsBlank reports whether a cell counts as empty.
func IsBlank(cell string) bool {
	return strings.TrimSpace(cell) == ""
}

// Join concatenates the non-blank cells in order, separated by Separator.
func Join(cells []string) (string, RowAlignment) {
	var (
		b     strings.Builder
		align RowAlignment
	)
	for i, cell := range cells {
		if IsBlank(cell) {
			continue
		}
		if align.Len() > 0 {
			b.WriteString(Separator)
		}
		start := b.Len()
		b.WriteString(cell)
		align.Rows = append(align.Rows, i)
		align.Offsets = append(align.Offsets, Span{Start: start, End: b.Len()})
	}
	return b.String(), align
}

// Split breaks the redacted document on Separator and places segment i at
// row Rows[i] of a totalRows-long result. Rows that contributed nothing stay
// empty. When the segment count differs from the alignment, rows are matched
// positionally: surplus segments are dropped, missing ones leave their rows
// empty, and a *MismatchError is returned with the result.
func Split(joined string, align RowAlignment, totalRows int) ([]string, error) {
	out := make([]string, totalRows)
	if align.Len() == 0 {
		if joined != "" {
			return out, &MismatchError{Expected: 0, Got: len(strings.Split(joined, Separator))}
		}
		return out, nil
	}

	parts := strings.Split(joined, Separator)
	var err error
	if len(parts) != align.Len() {
		err = &MismatchError{Expected: align.Len(), Got: len(parts)}
	}

	for i, row := range align.Rows {
		if i >= len(parts) {
			break
		}
		if row < 0 || row >= totalRows {
			if err == nil {
				err = &MismatchError{Expected: align.Len(), Got: len(parts)}
			}
			continue
		}
		out[row] = parts[i]
	}
	return out, err
}

// Clip cuts every detection at segment boundaries and keeps joined-text
// offsets. Redacting the clipped set leaves each separator in place, so a
// detection that runs across two rows cannot merge them.
func (a RowAlignment) Clip(detections []models.Detection) []models.Detection {
	out := make([]models.Detection, 0, len(detections))
	for i, row := range a.Partition(detections) {
		for _, d := range row {
			out = append(out, d.Shift(a.Offsets[i].Start))
		}
	}
	return out
}

// Partition attributes joined-text detections to segments, rebasing their
// offsets onto the segment's own text. A detection spanning a separator is
// clipped into every segment it touches.
func (a RowAlignment) Partition(detections []models.Detection) [][]models.Detection {
	out := make([][]models.Detection, a.Len())
	for _, d := range detections {
		for i, span := range a.Offsets {
			if span.End <= d.Start {
				continue
			}
			if span.Start >= d.End {
				break
			}
			clipped := d
			if clipped.Start < span.Start {
				clipped.Start = span.Start
			}
			if clipped.End > span.End {
				clipped.End = span.End
			}
			if clipped.Start >= clipped.End {
				continue
			}
			out[i] = append(out[i], clipped.Shift(-span.Start))
		}
	}
	return out
}
