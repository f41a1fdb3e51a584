package dto

import (
	"time"

	"github.com/netbill/netbill/internal/domain/settings"
	"github.com/netbill/netbill/internal/validator"
	"github.com/samber/lo"
)

type SetSettingRequest struct {
	Value       string `json:"value" validate:"required"`
	Description string `json:"description,omitempty" validate:"omitempty,max=255"`
}

func (r *SetSettingRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type SettingResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func NewSettingResponse(s *settings.Setting) *SettingResponse {
	resp := &SettingResponse{
		Key:         s.Key.String(),
		Value:       s.Value,
		Description: s.Description,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type ListSettingsResponse struct {
	Items []*SettingResponse `json:"items"`
}

func NewListSettingsResponse(items []*settings.Setting) *ListSettingsResponse {
	return &ListSettingsResponse{
		Items: lo.Map(items, func(s *settings.Setting, _ int) *SettingResponse {
			return NewSettingResponse(s)
		}),
	}
}
