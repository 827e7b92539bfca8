package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/transcript-redactor/internal/export"
	"github.com/BerylCAtieno/transcript-redactor/internal/extractor"
	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/storage"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

// buildArtifacts renders the three detection exports.
func buildArtifacts(records []models.DetectionRecord, rows []export.AnnotationRow, meta export.Meta) ([]models.Artifact, error) {
	csvData, err := export.CSV(records)
	if err != nil {
		return nil, fmt.Errorf("csv export: %w", err)
	}
	jsonData, err := export.JSON(records)
	if err != nil {
		return nil, fmt.Errorf("json export: %w", err)
	}
	annotations, err := export.Annotations(rows, meta)
	if err != nil {
		return nil, fmt.Errorf("annotation export: %w", err)
	}

	return []models.Artifact{
		newArtifact(models.ArtifactDetectionsCSV, csvData),
		newArtifact(models.ArtifactDetectionsJSON, jsonData),
		newArtifact(models.ArtifactAnnotations, annotations),
	}, nil
}

func newArtifact(name string, data []byte) models.Artifact {
	return models.Artifact{
		Name:        name,
		ContentType: contentTypeFor(name),
		Size:        len(data),
		Data:        data,
	}
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return extractor.FormatTXT.ContentType()
	case ".csv":
		return extractor.FormatCSV.ContentType()
	case ".xlsx":
		return extractor.FormatXLSX.ContentType()
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}

// archive uploads the artifacts when the archive is enabled. A failed upload
// removes what this request already wrote and becomes a warning; the
// redaction itself still succeeds.
func (s *redactionService) archive(ctx context.Context, logger *utils.Logger, result *models.RedactionResult) {
	if s.storage == nil {
		return
	}

	var written []string
	for i := range result.Artifacts {
		a := &result.Artifacts[i]
		key := storage.ArtifactKey(result.ID, a.Name)
		if err := s.storage.Upload(ctx, key, a.Data, a.ContentType); err != nil {
			logger.Error("Failed to archive artifact", "error", err, "key", key)
			for _, k := range written {
				if err := s.storage.Delete(ctx, k); err != nil {
					logger.Warn("Failed to clean up archived artifact", "error", err, "key", k)
				}
			}
			for j := range result.Artifacts {
				result.Artifacts[j].StorageKey = ""
			}
			result.Warnings = append(result.Warnings, "artifacts could not be archived; download them from this response")
			return
		}
		written = append(written, key)
		a.StorageKey = key
	}
}

func (s *redactionService) GetArtifact(ctx context.Context, id, name string) (*models.Artifact, error) {
	if s.storage == nil {
		return nil, utils.NewNotFoundError("Artifact archive is disabled")
	}
	if !storage.ValidKeyPart(id) || !storage.ValidKeyPart(name) {
		return nil, utils.NewNotFoundError("Artifact not found")
	}

	key := storage.ArtifactKey(id, name)
	data, err := s.storage.Download(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, utils.NewNotFoundError("Artifact not found")
	}
	if err != nil {
		s.logger.Error("Failed to download artifact", "error", err, "key", key)
		return nil, utils.NewInternalError("Failed to retrieve artifact")
	}

	return &models.Artifact{
		Name:        name,
		ContentType: contentTypeFor(name),
		Size:        len(data),
		StorageKey:  key,
		Data:        data,
	}, nil
}
