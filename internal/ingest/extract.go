package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"docassist/internal/domain"
)

// SupportedExtensions lists the file types Extract understands.
var SupportedExtensions = []string{".txt", ".pdf", ".docx", ".doc", ".md"}

// Ext normalizes a file name or bare extension ("pdf", ".PDF", "a.pdf") to ".pdf".
func Ext(nameOrExt string) string {
	if ext := filepath.Ext(nameOrExt); ext != "" {
		return strings.ToLower(ext)
	}
	if nameOrExt == "" {
		return ""
	}
	return "." + strings.ToLower(nameOrExt)
}

// Extract returns the plain text of a file's bytes given its declared extension.
func Extract(data []byte, ext string) (string, error) {
	switch Ext(ext) {
	case ".txt", ".md":
		return decodeText(data), nil
	case ".pdf":
		return extractPDF(data)
	case ".docx", ".doc":
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", domain.ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
	}
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(out)
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: reading PDF: %v", domain.ErrExtraction, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: reading PDF: %v", domain.ErrExtraction, err)
	}
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extracting PDF text: %v", domain.ErrExtraction, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("%w: reading PDF text: %v", domain.ErrExtraction, err)
	}
	return buf.String(), nil
}

// extractDOCX walks word/document.xml and emits one line per paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: reading DOCX: %v", domain.ErrExtraction, err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: reading DOCX: word/document.xml not found", domain.ErrExtraction)
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: reading DOCX: %v", domain.ErrExtraction, err)
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parsing DOCX: %v", domain.ErrExtraction, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
