package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxDocumentChars caps extracted text passed to the reasoning loop.
const MaxDocumentChars = 8000

// FromUpload extracts plain text from an uploaded document. PDF, CSV, TXT and
// Markdown are supported; anything else is rejected so the caller can attach
// an inline note instead of blocking the turn.
func FromUpload(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var text string
	var err error

	switch ext {
	case ".pdf":
		text, err = fromPDF(data)
	case ".txt", ".csv", ".md":
		text = string(data)
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no extractable text in %s", filename)
	}

	if len(text) > MaxDocumentChars {
		text = text[:MaxDocumentChars] + "\n\n[Note: Text was truncated for processing]"
	}
	return text, nil
}

func fromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", fmt.Errorf("failed to copy pdf text: %w", err)
	}
	return buf.String(), nil
}
