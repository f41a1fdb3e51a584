package settings

import (
	"context"

	"github.com/netbill/netbill/internal/types"
)

type Repository interface {
	Get(ctx context.Context, key types.SettingKey) (*Setting, error)
	List(ctx context.Context) ([]*Setting, error)

	// Upsert inserts the setting or replaces the value and description of an existing key
	Upsert(ctx context.Context, setting *Setting) error
}
