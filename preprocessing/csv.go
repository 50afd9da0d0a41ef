package preprocessing

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/plantops/forgeml/pkg/errors"
)

// ReadCSV reads a header row followed by records into Rows. Cells are kept
// as strings; Clean parses them. Duplicate or empty header names are
// rejected.
func ReadCSV(r io.Reader) ([]Row, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.NewModelError("ReadCSV", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "read csv header")
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" || seen[h] {
			return nil, nil, errors.NewValidationError("header", "empty or duplicate column name", h)
		}
		seen[h] = true
		header[i] = h
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read csv line %d", len(rows)+2)
		}
		row := make(Row, len(header))
		for i, v := range record {
			row[header[i]] = v
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}
