package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
	"github.com/dustin/go-humanize"
)

// multipart parts beyond the file itself
const formOverhead = 1 << 20

// readUpload parses the multipart form and returns the uploaded file.
func readUpload(w http.ResponseWriter, r *http.Request, maxFileSize int64) (*models.UploadRequest, error) {
	limitMsg := fmt.Sprintf("File size exceeds %s limit", humanize.IBytes(uint64(maxFileSize)))

	// Check Content-Length header first to reject oversized requests early
	if r.ContentLength > maxFileSize+formOverhead {
		return nil, utils.NewBadRequestError(limitMsg)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+formOverhead)

	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, utils.NewBadRequestError(limitMsg)
		}
		return nil, utils.NewInputError("Invalid form data", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, utils.NewBadRequestError("No file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFileSize+1))
	if err != nil {
		return nil, utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > maxFileSize {
		return nil, utils.NewBadRequestError(limitMsg)
	}
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("Uploaded file is empty")
	}

	return &models.UploadRequest{
		File:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// parseOverrides reads the policy fields of a parsed form. A present but
// empty entities field selects nothing, which is different from leaving the
// preset's selection alone.
func parseOverrides(r *http.Request) (models.PolicyOverrides, error) {
	o := models.PolicyOverrides{
		Preset:      strings.TrimSpace(r.PostFormValue("preset")),
		Replacement: r.PostFormValue("replacement"),
		Language:    strings.TrimSpace(r.PostFormValue("language")),
		Exclusions:  parseList(r.PostForm["exclusions"]),
	}

	if values, ok := r.PostForm["entities"]; ok {
		o.EntityTypes = []models.EntityType{}
		for _, v := range parseList(values) {
			o.EntityTypes = append(o.EntityTypes, models.ParseEntityType(v))
		}
	}

	if raw := strings.TrimSpace(r.PostFormValue("score_threshold")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return o, utils.NewInputError("score_threshold must be a number", err)
		}
		o.ScoreThreshold = &f
	}

	return o, nil
}

// parseList splits repeated or comma/newline separated form values.
func parseList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

