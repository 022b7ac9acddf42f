// Package loader normalizes a raw test-case table into typed records.
package loader

import (
	"fmt"
	"math"
	"strings"

	"gitlab.com/plantguard-2025.net/internal/domain"
	"gitlab.com/plantguard-2025.net/internal/static/errs"
)

// Header labels of the reserved columns. Each column accepts the localized
// label and its English equivalent.
const (
	ColumnID          = "ID"
	ColumnExpected    = "期望结果"
	ColumnMethod      = "测试方法"
	ColumnName        = "测试名称"
	ColumnDescription = "测试描述"
)

type column int

const (
	colField column = iota
	colID
	colExpected
	colMethod
	colName
	colDescription
)

var reserved = map[string]column{
	strings.ToLower(ColumnID): colID,
	ColumnExpected:            colExpected,
	"expected result":         colExpected,
	ColumnMethod:              colMethod,
	"test method":             colMethod,
	ColumnName:                colName,
	"test name":               colName,
	ColumnDescription:         colDescription,
	"test description":        colDescription,
}

func classify(header string) column {
	if c, ok := reserved[strings.ToLower(header)]; ok {
		return c
	}
	return colField
}

// Load reads the header and type rows and turns every data row with a
// non-empty id into a TestRecord.
func Load(table domain.Table) (*domain.CaseBatch, error) {
	if len(table) < 3 {
		return nil, errs.Load("test table needs a header row, a type row and at least one data row, got %d rows", len(table))
	}

	headers := make([]string, len(table[0]))
	kinds := make([]column, len(table[0]))
	index := map[column]int{}
	for i, cell := range table[0] {
		headers[i] = strings.TrimSpace(Cell(cell))
		kinds[i] = classify(headers[i])
		if kinds[i] != colField {
			if _, seen := index[kinds[i]]; !seen {
				index[kinds[i]] = i
			}
		}
	}
	if _, ok := index[colID]; !ok {
		return nil, errs.Load("missing required column %q", ColumnID)
	}
	if _, ok := index[colExpected]; !ok {
		return nil, errs.Load("missing required column %q", ColumnExpected)
	}

	batch := &domain.CaseBatch{
		FieldTypes: make(map[string]string),
	}
	typeRow := table[1]
	for i, h := range headers {
		if kinds[i] != colField || h == "" {
			continue
		}
		batch.FieldOrder = append(batch.FieldOrder, h)
		if desc := strings.TrimSpace(Cell(at(typeRow, i))); desc != "" {
			batch.FieldTypes[h] = desc
		}
	}
	batch.ExpectedType = strings.TrimSpace(Cell(at(typeRow, index[colExpected])))

	for r, row := range table[2:] {
		id := strings.TrimSpace(Cell(at(row, index[colID])))
		if id == "" {
			continue
		}
		rec := domain.TestRecord{
			ID:       id,
			Expected: at(row, index[colExpected]),
			Fields:   make(map[string]any, len(batch.FieldOrder)),
			Row:      r + 3,
		}
		for i, h := range headers {
			if kinds[i] != colField || h == "" {
				continue
			}
			rec.Fields[h] = at(row, i)
		}
		if len(batch.Records) == 0 {
			batch.Meta = domain.CaseMeta{
				Method:      metaCell(row, index, colMethod),
				Name:        metaCell(row, index, colName),
				Description: metaCell(row, index, colDescription),
			}
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func at(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func metaCell(row []any, index map[column]int, c column) string {
	i, ok := index[c]
	if !ok {
		return ""
	}
	return strings.TrimSpace(Cell(at(row, i)))
}

// Cell renders a cell as text. Whole floats print without a fraction so that
// spreadsheet ids like 1.0 read as "1".
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// outside the int64 range the conversion is undefined
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(x)
	}
}
