package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	sequence atomic.Int64
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	cp := *inv
	return &cp
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.Status == types.InvoiceStatusCancelled {
			continue
		}
		samePeriod := existing.SubscriptionID == inv.SubscriptionID && existing.BillingPeriod == inv.BillingPeriod
		sameKey := inv.IdempotencyKey != nil && lo.FromPtr(existing.IdempotencyKey) == *inv.IdempotencyKey
		if samePeriod || sameKey {
			return ierr.NewError("invoice already exists").
				WithHint("An invoice for this subscription and period already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	if _, exists := s.items[inv.ID]; exists {
		return ierr.NewError("invoice already exists").Mark(ierr.ErrAlreadyExists)
	}

	inv.Sequence = s.sequence.Add(1)
	s.items[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, invoice.NewNotFoundError(id)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.Get(ctx, id)
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}
	if f.SubscriptionID != "" && inv.SubscriptionID != f.SubscriptionID {
		return false
	}
	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}
	if f.BillingPeriod != "" && inv.BillingPeriod != f.BillingPeriod {
		return false
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, inv.Status) {
		return false
	}
	if f.DueBefore != nil && !inv.DueDate.Before(types.NormalizeDay(*f.DueBefore)) {
		return false
	}
	return true
}

func invoiceSortFn(a, b *invoice.Invoice) bool {
	if !a.IssueDate.Equal(b.IssueDate) {
		return a.IssueDate.Before(b.IssueDate)
	}
	return a.Sequence < b.Sequence
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) ExistsForPeriod(ctx context.Context, subscriptionID string, period types.BillingPeriod) (bool, error) {
	items, err := s.List(ctx, &types.InvoiceFilter{
		SubscriptionID: subscriptionID,
		BillingPeriod:  period,
		Statuses: []types.InvoiceStatus{
			types.InvoiceStatusPending,
			types.InvoiceStatusInReview,
			types.InvoiceStatusPaid,
		},
	})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

func (s *InMemoryInvoiceStore) ListPendingDueBefore(ctx context.Context, day time.Time) ([]*invoice.Invoice, error) {
	return s.List(ctx, &types.InvoiceFilter{
		Statuses:  []types.InvoiceStatus{types.InvoiceStatusPending},
		DueBefore: &day,
	})
}

func (s *InMemoryInvoiceStore) GetOldestPendingForUpdate(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	items, err := s.List(ctx, &types.InvoiceFilter{
		SubscriptionID: subscriptionID,
		Statuses:       []types.InvoiceStatus{types.InvoiceStatusPending},
		Limit:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, invoice.NewNoPendingInvoiceError(subscriptionID)
	}
	return items[0], nil
}

func (s *InMemoryInvoiceStore) ApplyLateFee(ctx context.Context, id string, fee decimal.Decimal) (bool, error) {
	return s.conditional(ctx, id, func(inv *invoice.Invoice) bool {
		if inv.Status != types.InvoiceStatusPending || inv.HasLateFee() {
			return false
		}
		inv.LateFee = fee
		inv.TotalAmount = inv.BaseAmount.Add(fee)
		return true
	})
}

func (s *InMemoryInvoiceStore) TransitionStatus(ctx context.Context, id string, from, to types.InvoiceStatus) (bool, error) {
	return s.conditional(ctx, id, func(inv *invoice.Invoice) bool {
		if inv.Status != from {
			return false
		}
		inv.Status = to
		return true
	})
}

func (s *InMemoryInvoiceStore) MarkPaid(ctx context.Context, id string, from types.InvoiceStatus, paidAt time.Time) (bool, error) {
	return s.conditional(ctx, id, func(inv *invoice.Invoice) bool {
		if inv.Status != from {
			return false
		}
		inv.Status = types.InvoiceStatusPaid
		inv.PaidAt = lo.ToPtr(paidAt)
		return true
	})
}

func (s *InMemoryInvoiceStore) SetReceiptRef(ctx context.Context, id string, receiptRef string) error {
	_, err := s.mutate(ctx, id, func(inv *invoice.Invoice) bool {
		inv.ReceiptRef = lo.ToPtr(receiptRef)
		return true
	})
	return err
}

func (s *InMemoryInvoiceStore) SetProofRef(ctx context.Context, id string, proofRef string) error {
	_, err := s.mutate(ctx, id, func(inv *invoice.Invoice) bool {
		inv.ProofRef = lo.ToPtr(proofRef)
		return true
	})
	return err
}

// mutate applies fn to a copy of the invoice and stores the copy when fn reports a change
func (s *InMemoryInvoiceStore) mutate(ctx context.Context, id string, fn func(inv *invoice.Invoice) bool) (bool, error) {
	changed, err := s.InMemoryStore.Mutate(id, func(inv *invoice.Invoice) (*invoice.Invoice, bool) {
		cp := copyInvoice(inv)
		if !fn(cp) {
			return inv, false
		}
		cp.UpdatedAt = time.Now().UTC()
		cp.UpdatedBy = types.GetUserID(ctx)
		return cp, true
	})
	if ierr.IsNotFound(err) {
		return false, invoice.NewNotFoundError(id)
	}
	return changed, err
}

// conditional behaves like a guarded UPDATE: a missing row is simply not changed
func (s *InMemoryInvoiceStore) conditional(ctx context.Context, id string, fn func(inv *invoice.Invoice) bool) (bool, error) {
	changed, err := s.mutate(ctx, id, fn)
	if ierr.IsNotFound(err) {
		return false, nil
	}
	return changed, err
}

// ForceStatus overwrites an invoice status, bypassing the state machine. Test setup only.
func (s *InMemoryInvoiceStore) ForceStatus(id string, status types.InvoiceStatus) {
	_, _ = s.InMemoryStore.Mutate(id, func(inv *invoice.Invoice) (*invoice.Invoice, bool) {
		cp := copyInvoice(inv)
		cp.Status = status
		return cp, true
	})
}
