package constants

// Canonical invoice fields, in export column order.
const (
	FieldInvoiceDate    = "INVOICE_DATE"
	FieldInvoiceNumber  = "INVOICE_NUMBER"
	FieldCustomerPO     = "CUSTOMER_PO"
	FieldSubTotal       = "SUB_TOTAL"
	FieldFreight        = "FREIGHT"
	FieldTotal          = "TOTAL"
	FieldTrackingNumber = "TRACKING_NUMBER"

	// ColumnPDFFile carries the source document name in every record.
	ColumnPDFFile = "pdf_file"
)

// NoTrackingNumber is written to TRACKING_NUMBER when the raw response has no 1Z identifier.
const NoTrackingNumber = "No Tracking Number Found"

var canonicalFields = []string{
	FieldInvoiceDate,
	FieldInvoiceNumber,
	FieldCustomerPO,
	FieldSubTotal,
	FieldFreight,
	FieldTotal,
	FieldTrackingNumber,
}

// FieldAliases maps labels printed on the data-label invoices (uppercased, trimmed)
// to canonical names.
var FieldAliases = map[string]string{
	"INVOICE DATE":        FieldInvoiceDate,
	"INVOICE NUMBER":      FieldInvoiceNumber,
	"CUST. PO#":           FieldCustomerPO,
	"SUB-TOTAL:":          FieldSubTotal,
	"FREIGHT:":            FieldFreight,
	"TOTAL:":              FieldTotal,
	"TRACKING/PRO NUMBER": FieldTrackingNumber,
}

// CanonicalFields returns a copy of the canonical field names.
func CanonicalFields() []string {
	out := make([]string, len(canonicalFields))
	copy(out, canonicalFields)
	return out
}

// ExportColumns returns the canonical fields followed by the document-name column.
func ExportColumns() []string {
	return append(CanonicalFields(), ColumnPDFFile)
}

// IsCanonical reports whether name is one of the canonical fields.
func IsCanonical(name string) bool {
	for _, f := range canonicalFields {
		if f == name {
			return true
		}
	}
	return false
}
