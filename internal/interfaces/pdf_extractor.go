package interfaces

import "context"

// PDFExtractor extracts text content from PDF documents
type PDFExtractor interface {
	// ExtractText extracts all text content from the PDF bytes
	ExtractText(ctx context.Context, data []byte) (string, error)
}
