package entity

// Document is one uploaded invoice. Data is never modified after ingestion.
type Document struct {
	Name string
	Data []byte
}

// RasterImage is the page-1 bitmap rendered for a single extraction attempt.
// The file at Path is owned by the attempt that created it.
type RasterImage struct {
	Path     string
	MIMEType string
}

// EncodedImage is a RasterImage as an inline data URL ("data:image/png;base64,...").
type EncodedImage struct {
	MIMEType string
	DataURL  string
}

// ExtractionRequest is rebuilt on every attempt.
type ExtractionRequest struct {
	Instruction string
	Image       EncodedImage
}
