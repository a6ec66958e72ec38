// Package extract turns exported messenger chats into plain dialogue text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Recognized export types.
const (
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText     = "text/plain"
	mimeHTML     = "text/html"
	mimeTelegram = "application/json"
)

// MaxRunes caps the text kept from one file; longer exports are cut at a
// line boundary.
const MaxRunes = 60000

// ErrUnsupported is returned for file types that carry no extractable text.
var ErrUnsupported = errors.New("unsupported file type")

type extractor func(data []byte) (string, error)

var extractors = map[string]extractor{
	mimePDF:      extractPDF,
	mimeDOCX:     extractDOCX,
	mimeText:     extractText,
	mimeHTML:     extractHTML,
	mimeTelegram: extractTelegram,
}

var extByType = map[string]string{
	".txt":  mimeText,
	".pdf":  mimePDF,
	".docx": mimeDOCX,
	".html": mimeHTML,
	".htm":  mimeHTML,
	".json": mimeTelegram,
}

// Supported reports whether a file with this name and declared type can be extracted.
func Supported(fileName, mimeType string) bool {
	_, ok := extractors[detect(mimeType, fileName, nil)]
	return ok
}

// ExtractTextFromBytes extracts dialogue text from an in-memory export.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind := detect(mimeType, fileName, data)
	fn, ok := extractors[kind]
	if !ok {
		return "", fmt.Errorf("%w: unsupported mime type: %s", ErrUnsupported, kind)
	}
	text, err := fn(data)
	if err != nil {
		return "", err
	}
	return truncate(strings.TrimSpace(text), MaxRunes), nil
}

func extractText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// detect resolves the export type. A declared type wins unless it is generic,
// in which case zip contents and then the extension decide.
func detect(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case "", "application/octet-stream", "application/zip":
		if isDOCX(data) {
			return mimeDOCX
		}
		if byExt, ok := extByType[strings.ToLower(filepath.Ext(fileName))]; ok && clean != "application/zip" {
			return byExt
		}
		if clean == "" {
			return "application/octet-stream"
		}
		return clean
	case "application/xhtml+xml":
		return mimeHTML
	default:
		return clean
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, '\n'); i > len(cut)/2 {
		cut = cut[:i]
	}
	return cut
}
