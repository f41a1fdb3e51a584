package s3

type Document struct {
	ID   string       `json:"id"`
	Data []byte       `json:"data"`
	Kind DocumentKind `json:"kind"`
	Type DocumentType `json:"type"`
}

type DocumentKind string

const (
	DocumentKindPdf DocumentKind = "pdf"
)

type DocumentType string

const (
	DocumentTypeReceipt DocumentType = "receipt"
)

func NewPdfDocument(id string, data []byte, docType DocumentType) *Document {
	return &Document{
		ID:   id,
		Data: data,
		Kind: DocumentKindPdf,
		Type: docType,
	}
}

// ObjectKey is the storage key of a document: [prefix/]type/id.pdf
func ObjectKey(prefix, id string, docType DocumentType) string {
	key := string(docType) + "/" + id + ".pdf"
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func ContentType(kind DocumentKind) string {
	switch kind {
	case DocumentKindPdf:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
