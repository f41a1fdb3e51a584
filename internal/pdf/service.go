package pdf

import (
	"context"
	"encoding/json"
	"fmt"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/typst"
)

const receiptTemplate = "receipt.typ"

// Generator renders billing documents to PDF
type Generator interface {
	RenderReceiptPdf(ctx context.Context, data *ReceiptData) ([]byte, error)
}

type service struct {
	typst typst.Compiler
}

func NewGenerator(compiler typst.Compiler) Generator {
	return &service{typst: compiler}
}

func (s *service) RenderReceiptPdf(ctx context.Context, data *ReceiptData) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to marshal receipt data").
			Mark(ierr.ErrSystem)
	}

	out, err := s.typst.CompileTemplate(ctx,
		receiptTemplate,
		jsonData,
		typst.WithOutputFile(fmt.Sprintf("receipt-%s.pdf", data.ReceiptNumber)),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to compile receipt template").
			Mark(ierr.ErrSystem)
	}

	return out, nil
}
