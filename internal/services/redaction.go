package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BerylCAtieno/transcript-redactor/internal/alignment"
	"github.com/BerylCAtieno/transcript-redactor/internal/detector"
	"github.com/BerylCAtieno/transcript-redactor/internal/export"
	"github.com/BerylCAtieno/transcript-redactor/internal/extractor"
	"github.com/BerylCAtieno/transcript-redactor/internal/filter"
	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/redactor"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

func (s *redactionService) RedactText(ctx context.Context, req *models.RedactRequest) (*models.RedactionResult, error) {
	policy, err := s.ResolvePolicy(ctx, req.Overrides)
	if err != nil {
		return nil, err
	}

	format := extractor.DetectFormat(req.Filename, req.ContentType)
	if format.IsTable() {
		return nil, utils.NewInputError("Tabular files must be redacted through the table endpoint with a column selection", nil)
	}
	if format == extractor.FormatUnknown {
		s.logger.Warn("Unsupported content type", "content_type", req.ContentType, "filename", req.Filename)
		return nil, utils.NewInputError(fmt.Sprintf("Unsupported file type %q. Allowed: txt, pdf, docx", req.ContentType), nil)
	}

	text, err := extractor.ExtractText(format, req.File)
	if err != nil {
		s.logger.Warn("Failed to extract text", "error", err, "format", format, "filename", req.Filename)
		return nil, utils.NewInputError("Could not read text from the uploaded file", err)
	}

	id := utils.GenerateID()
	logger := s.logger.With("id", id, "filename", req.Filename, "policy", policy.Name)

	kept, raw, err := s.detect(ctx, logger, text, policy)
	if err != nil {
		return nil, err
	}

	redacted, err := redactor.RedactWithOptions(text, kept, redactor.OptionsFor(policy, s.opts.Overlap))
	if err != nil {
		return nil, s.malformed(logger, err)
	}

	rows := []export.AnnotationRow{{Text: text, Detections: kept}}
	records := export.ToTabular(text, kept)

	result := &models.RedactionResult{
		ID:             id,
		Filename:       req.Filename,
		InputKind:      models.InputKindText,
		Policy:         policy.Name,
		EntityTypes:    policy.EntityTypes,
		RedactedText:   redacted,
		RawCount:       raw,
		DetectionCount: len(kept),
		Detections:     records,
		Warnings:       []string{},
		ProcessedAt:    time.Now().UTC(),
	}

	artifacts, err := buildArtifacts(records, rows, export.Meta{SourceFile: req.Filename})
	if err != nil {
		logger.Error("Failed to build exports", "error", err)
		return nil, utils.NewInternalError("Failed to build detection exports")
	}
	result.Artifacts = append([]models.Artifact{{
		Name:        models.ArtifactRedactedText,
		ContentType: contentTypeFor(models.ArtifactRedactedText),
		Size:        len(redacted),
		Data:        []byte(redacted),
	}}, artifacts...)

	s.archive(ctx, logger, result)

	logger.Info("Text redacted",
		"format", format,
		"text_length", len(text),
		"raw_detections", raw,
		"redacted", len(kept))

	return result, nil
}

func (s *redactionService) RedactTable(ctx context.Context, req *models.RedactRequest) (*models.RedactionResult, error) {
	policy, err := s.ResolvePolicy(ctx, req.Overrides)
	if err != nil {
		return nil, err
	}

	table, err := s.readTable(&req.UploadRequest, req.Sheet)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Column) == "" {
		return nil, utils.NewInputError("A column must be selected for tabular files", nil)
	}
	idx, err := table.ColumnIndex(req.Column)
	if err != nil {
		return nil, utils.NewInputError(fmt.Sprintf("Column %q not found", req.Column), err)
	}
	column := table.Header[idx]
	cells, err := table.Column(column)
	if err != nil {
		return nil, utils.NewInputError(fmt.Sprintf("Column %q not found", req.Column), err)
	}

	id := utils.GenerateID()
	logger := s.logger.With("id", id, "filename", req.Filename, "policy", policy.Name, "column", column)

	joined, align := alignment.Join(cells)
	warnings := []string{}

	var (
		kept     = []models.Detection{}
		raw      int
		redacted string
	)
	if align.Len() == 0 {
		warnings = append(warnings, fmt.Sprintf("column %q has no text to redact", column))
	} else {
		kept, raw, err = s.detect(ctx, logger, joined, policy)
		if err != nil {
			return nil, err
		}
		redacted, err = redactor.RedactWithOptions(joined, align.Clip(kept), redactor.OptionsFor(policy, s.opts.Overlap))
		if err != nil {
			return nil, s.malformed(logger, err)
		}
	}

	redactedRows, err := alignment.Split(redacted, align, len(cells))
	if err != nil {
		var mismatch *alignment.MismatchError
		if !errors.As(err, &mismatch) {
			logger.Error("Failed to split redacted column", "error", err)
			return nil, utils.NewInternalError("Failed to rebuild redacted rows")
		}
		logger.Warn("Row alignment mismatch", "expected", mismatch.Expected, "got", mismatch.Got)
		warnings = append(warnings, mismatch.Error()+"; rows were matched by position and may be misaligned")
	}

	perRow := align.Partition(kept)
	rows := make([]export.AnnotationRow, align.Len())
	for i, rowIdx := range align.Rows {
		span := align.Offsets[i]
		idx := rowIdx
		rows[i] = export.AnnotationRow{
			Text:       joined[span.Start:span.End],
			RowIndex:   &idx,
			Detections: perRow[i],
		}
	}
	records := export.ToTabularRows(rows)

	redactedColumn := column + extractor.RedactedSuffix
	out, err := table.WithColumn(redactedColumn, redactedRows)
	if err != nil {
		logger.Error("Failed to add redacted column", "error", err)
		return nil, utils.NewInternalError("Failed to build redacted table")
	}
	encoded, err := out.Encode()
	if err != nil {
		logger.Error("Failed to encode redacted table", "error", err)
		return nil, utils.NewInternalError("Failed to build redacted table")
	}

	result := &models.RedactionResult{
		ID:             id,
		Filename:       req.Filename,
		InputKind:      models.InputKindTable,
		Policy:         policy.Name,
		EntityTypes:    policy.EntityTypes,
		Column:         column,
		RedactedColumn: redactedColumn,
		RedactedRows:   redactedRows,
		TotalRows:      len(cells),
		TextRows:       align.Len(),
		RawCount:       raw,
		DetectionCount: len(kept),
		Detections:     records,
		Warnings:       warnings,
		ProcessedAt:    time.Now().UTC(),
	}

	artifacts, err := buildArtifacts(records, rows, export.Meta{SourceFile: req.Filename, SheetColumn: column})
	if err != nil {
		logger.Error("Failed to build exports", "error", err)
		return nil, utils.NewInternalError("Failed to build detection exports")
	}
	tableName := redactedTableName(req.Filename, table.Format)
	result.Artifacts = append([]models.Artifact{{
		Name:        tableName,
		ContentType: table.Format.ContentType(),
		Size:        len(encoded),
		Data:        encoded,
	}}, artifacts...)

	s.archive(ctx, logger, result)

	logger.Info("Table redacted",
		"rows", len(cells),
		"text_rows", align.Len(),
		"raw_detections", raw,
		"redacted", len(kept),
		"warnings", len(warnings))

	return result, nil
}

func (s *redactionService) InspectTable(ctx context.Context, req *models.UploadRequest, sheet string) (*models.TableColumns, error) {
	table, err := s.readTable(req, sheet)
	if err != nil {
		return nil, err
	}

	return &models.TableColumns{
		Filename:    req.Filename,
		Sheet:       table.Sheet,
		Sheets:      table.Sheets,
		Columns:     table.Header,
		TextColumns: table.TextColumns(),
		Rows:        len(table.Rows),
	}, nil
}

func (s *redactionService) readTable(req *models.UploadRequest, sheet string) (*extractor.Table, error) {
	format := extractor.DetectFormat(req.Filename, req.ContentType)
	if !format.IsTable() {
		return nil, utils.NewInputError(fmt.Sprintf("Unsupported table type %q. Allowed: csv, xlsx", req.ContentType), nil)
	}

	table, err := extractor.ReadTable(format, req.File, sheet)
	if err != nil {
		s.logger.Warn("Failed to read table", "error", err, "filename", req.Filename)
		if errors.Is(err, extractor.ErrSheetNotFound) {
			return nil, utils.NewInputError(fmt.Sprintf("Sheet %q not found", sheet), err)
		}
		return nil, utils.NewInputError("Could not read the uploaded table", err)
	}
	return table, nil
}

// detect runs the detector and the filter. Raw detections are validated
// against the text before filtering so a broken detector fails the request
// instead of being filtered into silence.
func (s *redactionService) detect(ctx context.Context, logger *utils.Logger, text string, policy models.RedactionPolicy) ([]models.Detection, int, error) {
	raw, err := s.detector.Analyze(ctx, detector.Request{
		Text:           text,
		Language:       policy.Language,
		EntityTypes:    policy.EntityTypes,
		ScoreThreshold: policy.DetectorThreshold(),
	})
	if err != nil {
		logger.Error("Detector failed", "error", err, "detector", s.detector.Name())
		var unavailable *detector.UnavailableError
		if !errors.As(err, &unavailable) {
			err = &detector.UnavailableError{Backend: s.detector.Name(), Err: err}
		}
		return nil, 0, utils.NewDetectorUnavailableError(err)
	}

	if err := redactor.Validate(text, raw); err != nil {
		return nil, len(raw), s.malformed(logger, err)
	}

	kept, stats := filter.Explain(raw, text, policy)
	logger.Debug("Detections filtered",
		"input", stats.Input,
		"kept", stats.Kept,
		"unselected", stats.Unselected,
		"below_floor", stats.BelowFloor,
		"excluded", stats.Excluded)

	if s.opts.Overlap == redactor.KeepFirst {
		kept, err = redactor.Resolve(kept, redactor.KeepFirst)
		if err != nil {
			return nil, len(raw), s.malformed(logger, err)
		}
	}

	return kept, len(raw), nil
}

func (s *redactionService) malformed(logger *utils.Logger, err error) error {
	var malformed *redactor.MalformedDetectionError
	if errors.As(err, &malformed) {
		logger.Error("Malformed detections", "error", err)
		return utils.NewMalformedDetectionError(err)
	}
	logger.Error("Redaction failed", "error", err)
	return utils.NewInternalError("Failed to redact text")
}

// redactedTableName keeps the upload's base name: calls.xlsx becomes
// calls_redacted.xlsx.
func redactedTableName(filename string, format extractor.Format) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "table"
	}
	return base + "_redacted." + string(format)
}
