// Package tablefile reads uploaded test-case tables.
package tablefile

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// ErrUnsupportedFormat is returned for file extensions Read does not know.
var ErrUnsupportedFormat = errors.New("unsupported table file format")

// Read parses a table from r, picking the format from name's extension.
// Blank cells read as nil.
func Read(name string, r io.Reader) (domain.Table, error) {
	var (
		table domain.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(r)
	case ".csv":
		table, err = readCSV(r)
	case ".json":
		table, err = readJSON(r)
	default:
		return nil, errs.Load("%s: %v", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, errs.Load("failed to read %s: %v", name, err)
	}
	return table, nil
}

func readXLSX(r io.Reader) (domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return fromStrings(rows), nil
}

func readCSV(r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return fromStrings(rows), nil
}

// readJSON accepts a bare array of rows or an object with a "table" key.
func readJSON(r io.Reader) (domain.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var table domain.Table
	if err := json.Unmarshal(raw, &table); err == nil {
		return table, nil
	}
	var wrapped struct {
		Table domain.Table `json:"table"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("expected an array of rows or {\"table\": [...]}: %w", err)
	}
	if wrapped.Table == nil {
		return nil, errors.New(`missing "table"`)
	}
	return wrapped.Table, nil
}

func fromStrings(rows [][]string) domain.Table {
	table := make(domain.Table, len(rows))
	for i, row := range rows {
		table[i] = make([]any, len(row))
		for j, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			table[i][j] = cell
		}
	}
	return table
}
