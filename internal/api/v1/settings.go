package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/types"
)

type SettingsHandler struct {
	settingsService service.SettingsService
	logger          *logger.Logger
}

func NewSettingsHandler(settingsService service.SettingsService, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// ListSettings godoc
// @Summary List business settings
// @Tags Settings
// @Produce json
// @Success 200 {object} dto.ListSettingsResponse
// @Router /settings [get]
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	items, err := h.settingsService.ListSettings(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListSettingsResponse(items))
}

// GetSetting godoc
// @Summary Get a business setting
// @Tags Settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} dto.SettingResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /settings/{key} [get]
func (h *SettingsHandler) GetSetting(c *gin.Context) {
	s, err := h.settingsService.GetSetting(c.Request.Context(), types.SettingKey(c.Param("key")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettingResponse(s))
}

// SetSetting godoc
// @Summary Create or update a business setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param setting body dto.SetSettingRequest true "Value"
// @Success 200 {object} dto.SettingResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /settings/{key} [put]
func (h *SettingsHandler) SetSetting(c *gin.Context) {
	var req dto.SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	key := types.SettingKey(c.Param("key"))
	s, err := h.settingsService.SetSetting(c.Request.Context(), key, req.Value, req.Description)
	if err != nil {
		h.logger.Errorw("failed to update setting", "key", key, "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettingResponse(s))
}
