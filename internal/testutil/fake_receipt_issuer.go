package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/netbill/netbill/internal/domain/receipt"
	ierr "github.com/netbill/netbill/internal/errors"
)

var _ receipt.Issuer = (*FakeReceiptIssuer)(nil)

// FakeReceiptIssuer records issued receipts and can be told to fail
type FakeReceiptIssuer struct {
	mu       sync.Mutex
	requests []*receipt.Request
	err      error
}

func NewFakeReceiptIssuer() *FakeReceiptIssuer {
	return &FakeReceiptIssuer{}
}

// FailWith makes every following Issue call return err
func (f *FakeReceiptIssuer) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeReceiptIssuer) Issue(ctx context.Context, req *receipt.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if req == nil || req.Payment == nil {
		return "", ierr.NewError("incomplete receipt request").Mark(ierr.ErrValidation)
	}

	f.requests = append(f.requests, req)
	return fmt.Sprintf("receipt/%d/%s.pdf", req.Payment.PaidAt.Year(), req.ReceiptNumber), nil
}

// Requests returns the successfully issued receipt requests
func (f *FakeReceiptIssuer) Requests() []*receipt.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*receipt.Request(nil), f.requests...)
}
