package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"coursedesk/internal/common"
	"coursedesk/internal/models"
	"coursedesk/internal/services"
)

// AdminHandlers serves the admin-keyed subscription endpoints. Route
// authentication (the X-Admin-Key header) happens in the authorizer
// before these run.
type AdminHandlers struct {
	subscriptionService services.SubscriptionService
	logger              zerolog.Logger
}

func NewAdminHandlers(subscriptionService services.SubscriptionService, logger zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

func tenantIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("tenantID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ValidationError("Invalid tenant id")
	}
	return id, nil
}

// GetSubscription handles GET /admin/subscriptions/:tenantID.
func (h *AdminHandlers) GetSubscription(c echo.Context) error {
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return common.Respond(c, err)
	}

	rec, err := h.subscriptionService.AdminGet(c.Request().Context(), tenantID)
	if err != nil {
		return common.Respond(c, err)
	}

	return c.JSON(http.StatusOK, rec)
}

// UpdateSubscriptionRequest is the admin overwrite payload.
type UpdateSubscriptionRequest struct {
	Status    string  `json:"status"`
	Plan      string  `json:"plan"`
	ExpiresAt string  `json:"expiresAt"`
	Notes     *string `json:"notes"`
}

// UpdateSubscription handles PUT /admin/subscriptions/:tenantID. This
// is the only path allowed to improve a tenant's status.
func (h *AdminHandlers) UpdateSubscription(c echo.Context) error {
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return common.Respond(c, err)
	}

	var req UpdateSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return common.Respond(c, common.ValidationError("Invalid request body"))
	}
	if !models.ValidSubscriptionStatus(req.Status) {
		return common.Respond(c, common.ValidationError("status must be one of: trial, active, suspended, expired"))
	}
	if req.Plan == "" {
		return common.Respond(c, common.ValidationError("plan is required"))
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		return common.Respond(c, common.ValidationError("expiresAt must be an RFC 3339 timestamp"))
	}

	rec, err := h.subscriptionService.AdminUpdate(c.Request().Context(), tenantID, services.AdminSubscriptionUpdate{
		Status:    req.Status,
		Plan:      req.Plan,
		ExpiresAt: expiresAt.UTC(),
		Notes:     req.Notes,
	})
	if err != nil {
		return common.Respond(c, err)
	}

	return c.JSON(http.StatusOK, rec)
}

// DeleteSubscription handles DELETE /admin/subscriptions/:tenantID by
// clearing the cached record; the next read rehydrates from the
// account row.
func (h *AdminHandlers) DeleteSubscription(c echo.Context) error {
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return common.Respond(c, err)
	}

	if err := h.subscriptionService.AdminDelete(c.Request().Context(), tenantID); err != nil {
		return common.Respond(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
