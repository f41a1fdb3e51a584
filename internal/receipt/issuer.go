package receipt

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/netbill/netbill/internal/config"
	domainReceipt "github.com/netbill/netbill/internal/domain/receipt"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/pdf"
	"github.com/netbill/netbill/internal/s3"
	"github.com/netbill/netbill/internal/types"
	"go.uber.org/fx"
)

var _ domainReceipt.Issuer = (*Issuer)(nil)

// Issuer renders a receipt PDF and stores it, returning the stored document key
type Issuer struct {
	generator    pdf.Generator
	store        s3.Service
	config       *config.Configuration
	logger       *logger.Logger
	metrics      *metrics.Metrics
	buildBackoff func() backoff.BackOff
}

type IssuerParams struct {
	fx.In

	Generator pdf.Generator
	Store     s3.Service
	Config    *config.Configuration
	Logger    *logger.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

func NewIssuer(p IssuerParams) *Issuer {
	return &Issuer{
		generator:    p.Generator,
		store:        p.Store,
		config:       p.Config,
		logger:       p.Logger,
		metrics:      p.Metrics,
		buildBackoff: defaultBackoff,
	}
}

// NewReceiptIssuer exposes the issuer through the domain interface for fx
func NewReceiptIssuer(i *Issuer) domainReceipt.Issuer {
	return i
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// WithBackoff replaces the retry policy used for uploads
func (i *Issuer) WithBackoff(factory func() backoff.BackOff) *Issuer {
	i.buildBackoff = factory
	return i
}

func (i *Issuer) Issue(ctx context.Context, req *domainReceipt.Request) (string, error) {
	if req == nil || req.Invoice == nil || req.Payment == nil || req.Customer == nil {
		return "", ierr.NewError("incomplete receipt request").
			WithHint("Receipt needs customer, invoice and payment").
			Mark(ierr.ErrValidation)
	}

	data := i.buildData(req)

	pdfBytes, err := i.generator.RenderReceiptPdf(ctx, data)
	if err != nil {
		i.metrics.RecordReceipt("render_failed")
		return "", err
	}

	doc := s3.NewPdfDocument(documentID(req), pdfBytes, s3.DocumentTypeReceipt)

	var key string
	upload := func() error {
		var uploadErr error
		key, uploadErr = i.store.UploadDocument(ctx, doc)
		if uploadErr != nil && ctx.Err() != nil {
			return backoff.Permanent(uploadErr)
		}
		return uploadErr
	}
	notify := func(err error, wait time.Duration) {
		i.logger.Warnw("retrying receipt upload",
			"receipt_number", req.ReceiptNumber,
			"wait", wait,
			"error", err)
	}

	if err := backoff.RetryNotify(upload, backoff.WithContext(i.buildBackoff(), ctx), notify); err != nil {
		i.metrics.RecordReceipt("upload_failed")
		return "", err
	}

	i.metrics.RecordReceipt("issued")
	i.logger.Infow("issued receipt",
		"receipt_number", req.ReceiptNumber,
		"invoice_id", req.Invoice.ID,
		"payment_id", req.Payment.ID,
		"receipt_ref", key)

	return key, nil
}

func documentID(req *domainReceipt.Request) string {
	return fmt.Sprintf("%d/%s", req.Payment.PaidAt.Year(), req.ReceiptNumber)
}

func (i *Issuer) buildData(req *domainReceipt.Request) *pdf.ReceiptData {
	loc, err := i.config.Billing.Location()
	if err != nil {
		loc = time.UTC
	}

	c, inv, p := req.Customer, req.Invoice, req.Payment
	return &pdf.ReceiptData{
		CompanyName:     i.config.Receipt.CompanyName,
		ReceiptNumber:   req.ReceiptNumber,
		CustomerName:    c.FullName(),
		CustomerDNI:     c.DNI,
		CustomerAddress: c.Address,
		InvoiceID:       inv.ID,
		BillingPeriod:   inv.BillingPeriod.String(),
		IssueDate:       inv.IssueDate.Format(types.DateLayout),
		DueDate:         inv.DueDate.Format(types.DateLayout),
		PaidAt:          p.PaidAt.In(loc).Format("2006-01-02 15:04"),
		PaymentMethod:   string(p.Method),
		BaseAmount:      inv.BaseAmount.StringFixed(2),
		LateFee:         inv.LateFee.StringFixed(2),
		TotalAmount:     p.Amount.StringFixed(2),
	}
}
