package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

type base struct {
	logger *utils.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *base) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"
	kind := utils.KindInternal

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
		message = appErr.Message
		kind = appErr.Kind
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", status, "kind", kind, "error", err)
	} else {
		h.logger.Warn("Request error", "status", status, "kind", kind, "error", err)
	}

	h.respondJSON(w, status, errorResponse{Error: message, Kind: string(kind)})
}

// respondArtifact sends an artifact as a file download.
func (h *base) respondArtifact(w http.ResponseWriter, a *models.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(a.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Data); err != nil {
		h.logger.Error("Failed to write artifact", "error", err, "artifact", a.Name)
	}
}
