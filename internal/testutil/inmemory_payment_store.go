package testutil

import (
	"context"

	"github.com/netbill/netbill/internal/domain/payment"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.InvoiceID == p.InvoiceID {
			return ierr.NewError("invoice already has a payment").
				WithHint("This invoice already has a payment").
				Mark(ierr.ErrAlreadyPaid)
		}
	}
	cp := *p
	s.items[p.ID] = &cp
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Payment %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	items, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, p *payment.Payment, _ interface{}) bool {
			return p.InvoiceID == invoiceID
		},
		func(a, b *payment.Payment) bool {
			return a.PaidAt.Before(b.PaidAt)
		})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment {
		cp := *p
		return &cp
	}), nil
}

func (s *InMemoryPaymentStore) SetReceiptRef(ctx context.Context, id string, receiptRef string) error {
	_, err := s.InMemoryStore.Mutate(id, func(p *payment.Payment) (*payment.Payment, bool) {
		cp := *p
		cp.ReceiptRef = lo.ToPtr(receiptRef)
		return &cp, true
	})
	return err
}
