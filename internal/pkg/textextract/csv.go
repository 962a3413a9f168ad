package textextract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// CSVToTable renders CSV as an aligned text table: a header row followed by
// one row per record, each prefixed with its zero-based row number. Short
// rows are padded with NaN; a row wider than the header is unreadable.
func CSVToTable(text string) (string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read csv header failed: %v", ErrUnreadable, err)
	}

	var out strings.Builder
	tw := tabwriter.NewWriter(&out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(header, "\t"))

	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read csv row %d failed: %v", ErrUnreadable, row, err)
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return "", fmt.Errorf("%w: expected %d fields in line %d, saw %d",
				ErrUnreadable, len(header), line, len(record))
		}
		cells := make([]string, len(header))
		for i := range cells {
			if i < len(record) {
				cells[i] = record[i]
			} else {
				cells[i] = "NaN"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", strconv.Itoa(row), strings.Join(cells, "\t"))
		row++
	}
	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("render csv table failed: %w", err)
	}
	return out.String(), nil
}
