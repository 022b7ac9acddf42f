package domain

// Table is a raw test-case table: row 0 holds column headers, row 1 the type
// descriptor of each column and every further row one test case.
type Table [][]any

// TestRecord represents one data row of a test-case table
type TestRecord struct {
	ID       string
	Expected any
	Fields   map[string]any
	Row      int
}

// CaseMeta is the free-text description read from the first retained row
type CaseMeta struct {
	Method      string `json:"method"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CaseBatch is a loaded table ready for execution
type CaseBatch struct {
	Records []TestRecord
	// FieldTypes maps a column to its type descriptor; untyped columns are absent
	FieldTypes map[string]string
	// FieldOrder lists the non-reserved columns in header order
	FieldOrder   []string
	ExpectedType string
	Meta         CaseMeta
}
