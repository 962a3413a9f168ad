package textextract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of every page and joins pages with a
// newline. Pages without extractable text are skipped. An empty PDF yields
// an empty string and nil error.
func PDFText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", nil
	}
	// The pdf package panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf parse panic: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf failed: %v", ErrUnreadable, err)
	}

	var out strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w: extract pdf page %d failed: %v", ErrUnreadable, i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		out.WriteString(pageText)
		out.WriteString("\n")
	}
	return out.String(), nil
}
