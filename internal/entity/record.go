package entity

import "github.com/joseph-ayodele/invoice-extractor/constants"

// FieldRecord is the extracted field set for one document.
// Fields only holds keys the model actually returned; absent fields stay absent.
type FieldRecord struct {
	Fields  map[string]string `json:"fields"`
	PDFFile string            `json:"pdf_file"`
}

// Value returns the cell value for an export column and whether it is present.
func (r FieldRecord) Value(column string) (string, bool) {
	if column == constants.ColumnPDFFile {
		return r.PDFFile, true
	}
	v, ok := r.Fields[column]
	return v, ok
}

// Row reindexes the record onto columns; missing fields become empty cells.
func (r FieldRecord) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i], _ = r.Value(c)
	}
	return row
}
