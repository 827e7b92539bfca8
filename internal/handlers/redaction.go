package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/services"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

// Response formats selected with ?format=.
const (
	FormatJSON        = "json"
	FormatTXT         = "txt"
	FormatCSV         = "csv"
	FormatDetections  = "detections"
	FormatAnnotations = "annotations"
	FormatTable       = "table"
)

type RedactionHandler struct {
	base
	service     services.RedactionService
	maxFileSize int64
}

func NewRedactionHandler(service services.RedactionService, maxFileSize int64, logger *utils.Logger) *RedactionHandler {
	return &RedactionHandler{
		base:        base{logger: logger},
		service:     service,
		maxFileSize: maxFileSize,
	}
}

func (h *RedactionHandler) RedactText(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}

	upload, err := readUpload(w, r, h.maxFileSize)
	if err != nil {
		h.respondError(w, err)
		return
	}
	overrides, err := parseOverrides(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.service.RedactText(r.Context(), &models.RedactRequest{
		UploadRequest: *upload,
		Overrides:     overrides,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondResult(w, result, format)
}

func (h *RedactionHandler) RedactTable(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}

	upload, err := readUpload(w, r, h.maxFileSize)
	if err != nil {
		h.respondError(w, err)
		return
	}
	overrides, err := parseOverrides(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.service.RedactTable(r.Context(), &models.RedactRequest{
		UploadRequest: *upload,
		Column:        r.PostFormValue("column"),
		Sheet:         strings.TrimSpace(r.PostFormValue("sheet")),
		Overrides:     overrides,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondResult(w, result, format)
}

func (h *RedactionHandler) InspectTable(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r, h.maxFileSize)
	if err != nil {
		h.respondError(w, err)
		return
	}

	columns, err := h.service.InspectTable(r.Context(), upload, strings.TrimSpace(r.PostFormValue("sheet")))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, columns)
}

func (h *RedactionHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	artifact, err := h.service.GetArtifact(r.Context(), vars["id"], vars["name"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondArtifact(w, artifact)
}

func (h *RedactionHandler) respondResult(w http.ResponseWriter, result *models.RedactionResult, format string) {
	if format == FormatJSON {
		h.respondJSON(w, http.StatusOK, result)
		return
	}

	artifact, ok := h.artifactFor(result, format)
	if !ok {
		h.respondError(w, utils.NewInternalError("Requested output was not produced"))
		return
	}

	w.Header().Set("X-Redaction-Id", result.ID)
	w.Header().Set("X-Redaction-Warnings", strconv.Itoa(len(result.Warnings)))
	h.respondArtifact(w, artifact)
}

func (h *RedactionHandler) artifactFor(result *models.RedactionResult, format string) (*models.Artifact, bool) {
	switch format {
	case FormatTXT:
		return result.Artifact(models.ArtifactRedactedText)
	case FormatCSV:
		return result.Artifact(models.ArtifactDetectionsCSV)
	case FormatDetections:
		return result.Artifact(models.ArtifactDetectionsJSON)
	case FormatAnnotations:
		return result.Artifact(models.ArtifactAnnotations)
	case FormatTable:
		// the redacted table is the first artifact of a table result
		if result.InputKind == models.InputKindTable && len(result.Artifacts) > 0 {
			return &result.Artifacts[0], true
		}
	}
	return nil, false
}

func parseFormat(r *http.Request, table bool) (string, error) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch format {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatDetections, FormatAnnotations:
		return format, nil
	case FormatTXT:
		if !table {
			return format, nil
		}
	case FormatTable:
		if table {
			return format, nil
		}
	}
	return "", utils.NewBadRequestError(fmt.Sprintf("Unsupported format %q", format))
}
