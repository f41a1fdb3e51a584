package postgres

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/subscription"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, customer_id, plan_id, status, start_date, suspended_at,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :plan_id, :status, :start_date, :suspended_at,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, query, sub); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub, `SELECT * FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Subscription %s was not found", id).
				WithReportableDetails(map[string]any{"subscription_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	sub.StartDate = day(sub.StartDate)
	return &sub, nil
}

func (r *subscriptionRepository) ListActiveWithPlan(ctx context.Context) ([]*subscription.WithPlan, error) {
	query := `
		SELECT s.*, p.price AS plan_price
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.status = $1
		ORDER BY s.start_date, s.id`

	var subs []*subscription.WithPlan
	if err := r.db.Querier(ctx).SelectContext(ctx, &subs, query, types.SubscriptionStatusActive); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list active subscriptions").
			Mark(ierr.ErrDatabase)
	}
	for _, s := range subs {
		s.StartDate = day(s.StartDate)
	}
	return subs, nil
}

func (r *subscriptionRepository) GetByCustomerAndPlan(ctx context.Context, customerID, planID string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE customer_id = $1 AND plan_id = $2
		ORDER BY
			CASE WHEN status = $3 THEN 1 ELSE 0 END,
			start_date DESC,
			created_at DESC
		LIMIT 1`

	var sub subscription.Subscription
	err := r.db.Querier(ctx).GetContext(ctx, &sub, query, customerID, planID, types.SubscriptionStatusCancelled)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHint("No subscription found for this customer and plan").
				WithReportableDetails(map[string]any{
					"customer_id": customerID,
					"plan_id":     planID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to resolve subscription").
			Mark(ierr.ErrDatabase)
	}
	sub.StartDate = day(sub.StartDate)
	return &sub, nil
}

func (r *subscriptionRepository) Suspend(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $2, suspended_at = $3, updated_at = $4, updated_by = $5
		WHERE id = $1 AND status = $6`

	res, err := r.db.Querier(ctx).ExecContext(ctx, query,
		id,
		types.SubscriptionStatusSuspended,
		at,
		time.Now().UTC(),
		types.GetUserID(ctx),
		types.SubscriptionStatusActive,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to suspend subscription").
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}
