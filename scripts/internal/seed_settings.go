package internal

import (
	"context"
	"log"

	"github.com/netbill/netbill/internal/domain/settings"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
)

var defaultSettingValues = map[types.SettingKey]string{
	types.SettingKeyPaymentWindowDays:    "15",
	types.SettingKeyLateFeeAmount:        "500",
	types.SettingKeyDaysForSuspension:    "30",
	types.SettingKeyAutoInvoicingEnabled: "true",
}

// SeedSettings stores the default business settings. Existing values are left alone.
func SeedSettings() error {
	deps, err := newScriptDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := types.SetUserID(context.Background(), "seed-script")
	repo := deps.params.SettingsRepo

	for _, key := range types.KnownSettingKeys {
		existing, err := repo.Get(ctx, key)
		if err == nil {
			log.Printf("keeping %s = %s\n", key, existing.Value)
			continue
		}
		if !ierr.IsNotFound(err) {
			return err
		}

		s := &settings.Setting{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SETTING),
			Key:         key,
			Value:       defaultSettingValues[key],
			Description: types.DefaultSettingDescriptions[key],
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
		if err := repo.Upsert(ctx, s); err != nil {
			return err
		}
		log.Printf("stored %s = %s\n", key, s.Value)
	}

	// parse what is stored now so a bad manual edit shows up here and not in the monthly run
	if _, err := settings.FromValues(storedValues(ctx, repo), settings.GenerationKeys...); err != nil {
		return err
	}
	return nil
}

func storedValues(ctx context.Context, repo settings.Repository) map[types.SettingKey]string {
	items, err := repo.List(ctx)
	if err != nil {
		return nil
	}
	values := make(map[types.SettingKey]string, len(items))
	for _, s := range items {
		values[s.Key] = s.Value
	}
	return values
}
