package rowparse

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// ReadCSV reads an uploaded CSV payload: first row is the header, remaining
// rows are data. Ragged rows are tolerated here and rejected per-row by the
// parser so one short row cannot sink the batch.
func ReadCSV(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, &model.ValidationError{Field: "file", Row: -1, Reason: "empty CSV payload"}
	}
	return all[0], all[1:], nil
}
