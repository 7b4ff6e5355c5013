// Package e2e provides end-to-end tests; this file builds minimal binary corpus files.
package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the list of corpus file extensions generated here.
// PDF is not generated (no minimal PDF with extractable text); .odt/.rtf go through lu4p/cat.
var SupportedFileExtensions = []string{".txt", ".md", ".docx", ".xlsx"}

// WriteMinimalFile returns the bytes of a minimal file of the given extension
// holding one document per line. For plain types the content is the raw text.
func WriteMinimalFile(ext string, lines []string) ([]byte, error) {
	switch ext {
	case ".txt", ".md", "":
		return []byte(strings.Join(lines, "\n") + "\n"), nil
	case ".docx":
		return minimalDocx(lines)
	case ".xlsx":
		return minimalXlsx(lines)
	default:
		return nil, fmt.Errorf("no fixture for %s", ext)
	}
}

// minimalDocx writes one paragraph per line, splitting each line over two runs
// the way Word does.
func minimalDocx(lines []string) ([]byte, error) {
	var body strings.Builder
	for _, line := range lines {
		half := len(line) / 2
		body.WriteString(`<w:p><w:pPr/><w:r><w:t>` + html.EscapeString(line[:half]) + `</w:t></w:r>`)
		body.WriteString(`<w:r><w:t xml:space="preserve">` + html.EscapeString(line[half:]) + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalXlsx(lines []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue("Sheet1", cell, line); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
