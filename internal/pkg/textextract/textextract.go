// Package textextract turns uploaded bytes into plain text by file extension.
package textextract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned for anything other than .txt, .csv or .pdf.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrUnreadable is returned when a supported file cannot be decoded.
var ErrUnreadable = errors.New("unreadable document")

var supported = map[string]bool{
	".txt": true,
	".csv": true,
	".pdf": true,
}

// Supported reports whether filename has an extension Extract understands.
func Supported(filename string) bool {
	return supported[strings.ToLower(filepath.Ext(filename))]
}

// Extract dispatches on the lower-cased extension of filename.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return decodeUTF8(data)
	case ".csv":
		text, err := decodeUTF8(data)
		if err != nil {
			return "", err
		}
		return CSVToTable(text)
	case ".pdf":
		return PDFText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid utf-8", ErrUnreadable)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
