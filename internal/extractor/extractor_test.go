package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Format
	}{
		{"call.txt", "", FormatTXT},
		{"CALL.TXT", "application/octet-stream", FormatTXT},
		{"report.pdf", "", FormatPDF},
		{"notes.docx", "", FormatDOCX},
		{"survey.csv", "", FormatCSV},
		{"survey.xlsx", "", FormatXLSX},
		{"upload", "text/plain; charset=utf-8", FormatTXT},
		{"upload", "text/csv", FormatCSV},
		{"image.png", "image/png", FormatUnknown},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("DetectFormat(%q, %q) = %q, want %q", tt.filename, tt.contentType, got, tt.want)
		}
	}
}

func TestExtractTXTVerbatim(t *testing.T) {
	input := "  Speaker 1: hello John\r\n\r\n\tSpeaker 2: hi  \n"
	text, err := ExtractTXT([]byte(input))
	if err != nil {
		t.Fatalf("ExtractTXT returned error: %v", err)
	}
	if text != input {
		t.Errorf("ExtractTXT altered content: got %q, want %q", text, input)
	}
}

func TestExtractTXTEncodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8 bom", []byte("\xEF\xBB\xBFhello"), "hello"},
		{"utf16 le", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16 be", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
		{"windows-1252", []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"utf8", []byte("Zoë in Zürich"), "Zoë in Zürich"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTXT(tt.data)
			if err != nil {
				t.Fatalf("ExtractTXT returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTXTRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"whitespace only", []byte(" \n\t ")},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractTXT(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("failed to create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("failed to write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Interviewer: where do you live?</w:t></w:r></w:p>
<w:p><w:r><w:t>Maria: near </w:t></w:r><w:r><w:t>Lisbon</w:t></w:r></w:p>
</w:body>
</w:document>`

	text, err := ExtractDOCX(buildDOCX(t, doc))
	if err != nil {
		t.Fatalf("ExtractDOCX returned error: %v", err)
	}

	want := "Interviewer: where do you live?\nMaria: near Lisbon"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	if _, err := ExtractDOCX(buf.Bytes()); err == nil {
		t.Error("expected error for archive without document.xml")
	}
}

func TestExtractPDFInvalid(t *testing.T) {
	if _, err := ExtractPDF([]byte("not a pdf")); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText(FormatCSV, []byte("a,b\n"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadTableCSV(t *testing.T) {
	data := []byte("id,transcript,score\n1,Hello John,0.5\n2,,0.7\n3,Visit Paris\n")

	table, err := ReadTable(FormatCSV, data, "")
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}

	if !reflect.DeepEqual(table.Header, []string{"id", "transcript", "score"}) {
		t.Errorf("unexpected header %v", table.Header)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if len(table.Rows[2]) != 3 {
		t.Errorf("short row not padded: %v", table.Rows[2])
	}

	cells, err := table.Column("transcript")
	if err != nil {
		t.Fatalf("Column returned error: %v", err)
	}
	if !reflect.DeepEqual(cells, []string{"Hello John", "", "Visit Paris"}) {
		t.Errorf("unexpected column %v", cells)
	}

	if got := table.TextColumns(); !reflect.DeepEqual(got, []string{"transcript"}) {
		t.Errorf("TextColumns() = %v", got)
	}

	if _, err := table.Column("missing"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestReadTableEmpty(t *testing.T) {
	if _, err := ReadTable(FormatCSV, []byte(""), ""); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("expected ErrEmptyTable, got %v", err)
	}
}

func TestWithColumnAndEncodeCSV(t *testing.T) {
	table := &Table{
		Format: FormatCSV,
		Header: []string{"id", "text"},
		Rows:   [][]string{{"1", "Hello John"}, {"2", ""}},
	}

	out, err := table.WithColumn("text"+RedactedSuffix, []string{"Hello [NAME]", ""})
	if err != nil {
		t.Fatalf("WithColumn returned error: %v", err)
	}
	if len(table.Header) != 2 {
		t.Error("WithColumn mutated the source table")
	}

	data, err := out.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	want := "id,text,text_REDACTED\n1,Hello John,Hello [NAME]\n2,,\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}

	if _, err := table.WithColumn("x", []string{"only one"}); err == nil {
		t.Error("expected error for row count mismatch")
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Calls")
	f.SetSheetRow("Calls", "A1", &[]interface{}{"id", "transcript"})
	f.SetSheetRow("Calls", "A2", &[]interface{}{"1", "Call Anna tomorrow"})
	f.SetSheetRow("Calls", "A3", &[]interface{}{"2", "No names here"})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}
	f.Close()

	table, err := ReadTable(FormatXLSX, buf.Bytes(), "")
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	if table.Sheet != "Calls" {
		t.Errorf("expected first sheet Calls, got %q", table.Sheet)
	}

	out, err := table.WithColumn("transcript"+RedactedSuffix, []string{"Call [NAME] tomorrow", "No names here"})
	if err != nil {
		t.Fatalf("WithColumn returned error: %v", err)
	}
	encoded, err := out.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	reread, err := ReadTable(FormatXLSX, encoded, "Calls")
	if err != nil {
		t.Fatalf("ReadTable of encoded workbook returned error: %v", err)
	}
	if !reflect.DeepEqual(reread.Header, []string{"id", "transcript", "transcript_REDACTED"}) {
		t.Errorf("unexpected header %v", reread.Header)
	}
	if reread.Rows[0][2] != "Call [NAME] tomorrow" {
		t.Errorf("unexpected redacted cell %q", reread.Rows[0][2])
	}

	if _, err := ReadTable(FormatXLSX, buf.Bytes(), "Missing"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestXLSXEncodeKeepsWorkbook(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Calls")
	f.SetSheetRow("Calls", "A1", &[]interface{}{"duration", "transcript"})
	f.SetSheetRow("Calls", "A2", &[]interface{}{42, "Call Anna"})
	f.NewSheet("Notes")
	f.SetCellValue("Notes", "A1", "internal only")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}
	f.Close()

	table, err := ReadTable(FormatXLSX, buf.Bytes(), "Calls")
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	out, err := table.WithColumn("transcript"+RedactedSuffix, []string{"Call [NAME]"})
	if err != nil {
		t.Fatalf("WithColumn returned error: %v", err)
	}
	encoded, err := out.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	got, err := excelize.OpenReader(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("failed to open encoded workbook: %v", err)
	}
	defer got.Close()

	if !reflect.DeepEqual(got.GetSheetList(), []string{"Calls", "Notes"}) {
		t.Errorf("sheets = %v", got.GetSheetList())
	}
	if v, _ := got.GetCellValue("Notes", "A1"); v != "internal only" {
		t.Errorf("other sheet lost its content: %q", v)
	}
	typ, err := got.GetCellType("Calls", "A2")
	if err != nil {
		t.Fatalf("GetCellType returned error: %v", err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("numeric cell became text (type %v)", typ)
	}
	if v, _ := got.GetCellValue("Calls", "C1"); v != "transcript_REDACTED" {
		t.Errorf("header cell = %q", v)
	}
	if v, _ := got.GetCellValue("Calls", "C2"); v != "Call [NAME]" {
		t.Errorf("redacted cell = %q", v)
	}
}
