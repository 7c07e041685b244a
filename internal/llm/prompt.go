package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// InvoiceInstruction is the fixed extraction prompt sent with every page image.
var InvoiceInstruction = strings.Join([]string{
	"Please extract the following fields from the invoice image and provide the data in JSON format, " +
		"using the exact field names provided, and without any code blocks or additional formatting:",
	"- INVOICE_DATE",
	"- INVOICE_NUMBER",
	"- CUSTOMER_PO (look for 'Cust. PO#')",
	"- SUB_TOTAL (look for 'Sub-total:')",
	"- FREIGHT",
	"- TOTAL",
	"- TRACKING_NUMBER (look for a number starting with '1Z' followed by alphanumeric characters)",
	"",
	"Please include the full text content of the invoice in your response as well.",
}, "\n")

// BuildRequest pairs the fixed instruction with one encoded page image.
func BuildRequest(img entity.EncodedImage) entity.ExtractionRequest {
	return entity.ExtractionRequest{
		Instruction: InvoiceInstruction,
		Image:       img,
	}
}
