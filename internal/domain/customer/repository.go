package customer

import "context"

// Repository defines read access to customers. Customer CRUD lives outside the billing core.
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
}
