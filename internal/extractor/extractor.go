package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the kind of an uploaded file.
type Format string

const (
	FormatUnknown Format = ""
	FormatTXT     Format = "txt"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// IsTable reports whether the format holds rows and columns.
func (f Format) IsTable() bool {
	return f == FormatCSV || f == FormatXLSX
}

func (f Format) ContentType() string {
	switch f {
	case FormatTXT:
		return "text/plain; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// DetectFormat determines the format from the filename extension with
// fallback to the reported content type.
func DetectFormat(filename, contentType string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".vtt", ".srt":
		return FormatTXT
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "text/plain", "text/txt", "application/txt", "application/x-txt":
		return FormatTXT
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.wordprocessingml",
		"application/docx",
		"application/x-docx":
		return FormatDOCX
	case "text/csv", "application/csv":
		return FormatCSV
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX
	}
	return FormatUnknown
}

// ExtractText returns the analyzable text of a document upload.
func ExtractText(format Format, data []byte) (string, error) {
	switch format {
	case FormatTXT:
		return ExtractTXT(data)
	case FormatPDF:
		return ExtractPDF(data)
	case FormatDOCX:
		return ExtractDOCX(data)
	}
	return "", fmt.Errorf("%w: %q is not a text document", ErrUnsupportedFormat, format)
}
