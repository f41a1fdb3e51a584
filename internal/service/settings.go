package service

import (
	"context"
	"strings"

	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/domain/settings"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
)

// SettingsService reads and maintains the business settings the billing jobs run with
type SettingsService interface {
	// LoadBusinessSettings parses the stored settings, failing with a configuration
	// error when any of required is missing or any stored value is invalid
	LoadBusinessSettings(ctx context.Context, required ...types.SettingKey) (*settings.BusinessSettings, error)
	GetSetting(ctx context.Context, key types.SettingKey) (*settings.Setting, error)
	ListSettings(ctx context.Context) ([]*settings.Setting, error)
	SetSetting(ctx context.Context, key types.SettingKey, value, description string) (*settings.Setting, error)
}

type settingsService struct {
	ServiceParams
}

func NewSettingsService(params ServiceParams) SettingsService {
	return &settingsService{ServiceParams: params}
}

var settingsCacheKey = cache.GenerateKey(cache.PrefixSettings, "values")

func (s *settingsService) LoadBusinessSettings(ctx context.Context, required ...types.SettingKey) (*settings.BusinessSettings, error) {
	values, err := s.loadValues(ctx)
	if err != nil {
		return nil, err
	}
	return settings.FromValues(values, required...)
}

func (s *settingsService) loadValues(ctx context.Context) (map[types.SettingKey]string, error) {
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, settingsCacheKey); ok {
			if values, ok := cached.(map[types.SettingKey]string); ok {
				return lo.Assign(values), nil
			}
		}
	}

	stored, err := s.SettingsRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	values := make(map[types.SettingKey]string, len(stored))
	for _, st := range stored {
		values[st.Key] = st.Value
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, settingsCacheKey, lo.Assign(values), s.Config.Billing.SettingsCacheTTL)
	}
	return values, nil
}

func (s *settingsService) GetSetting(ctx context.Context, key types.SettingKey) (*settings.Setting, error) {
	return s.SettingsRepo.Get(ctx, key)
}

func (s *settingsService) ListSettings(ctx context.Context) ([]*settings.Setting, error) {
	return s.SettingsRepo.List(ctx)
}

func (s *settingsService) SetSetting(ctx context.Context, key types.SettingKey, value, description string) (*settings.Setting, error) {
	if !lo.Contains(types.KnownSettingKeys, key) {
		return nil, ierr.NewErrorf("unknown setting %s", key).
			WithHintf("Setting must be one of %v", types.KnownSettingKeys).
			Mark(ierr.ErrValidation)
	}

	value = strings.TrimSpace(value)
	if err := settings.ValidateValue(key, value); err != nil {
		return nil, ierr.NewErrorf("invalid value for setting %s: %v", key, err).
			WithHintf("Value %q is not valid for %s", value, key).
			Mark(ierr.ErrValidation)
	}

	if description == "" {
		description = types.DefaultSettingDescriptions[key]
	}

	setting := &settings.Setting{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SETTING),
		Key:         key,
		Value:       value,
		Description: description,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}

	if err := s.SettingsRepo.Upsert(ctx, setting); err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixSettings)
	}

	s.Logger.Infow("updated business setting",
		"key", key,
		"value", value,
		"user_id", types.GetUserID(ctx))

	return s.SettingsRepo.Get(ctx, key)
}
