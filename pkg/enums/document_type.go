package enums

import "fmt"

// DocumentType maps to the document_type enum in Postgres.
type DocumentType string

const (
	DocumentTypeDrawing   DocumentType = "drawing"
	DocumentTypeBlueprint DocumentType = "blueprint"
	DocumentTypeContract  DocumentType = "contract"
	DocumentTypePermit    DocumentType = "permit"
	DocumentTypeReport    DocumentType = "report"
	DocumentTypeOther     DocumentType = "other"
)

var validDocumentTypes = []DocumentType{
	DocumentTypeDrawing,
	DocumentTypeBlueprint,
	DocumentTypeContract,
	DocumentTypePermit,
	DocumentTypeReport,
	DocumentTypeOther,
}

// String implements fmt.Stringer.
func (t DocumentType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known DocumentType.
func (t DocumentType) IsValid() bool {
	for _, candidate := range validDocumentTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseDocumentType converts raw input into a DocumentType.
func ParseDocumentType(value string) (DocumentType, error) {
	for _, candidate := range validDocumentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", value)
}
