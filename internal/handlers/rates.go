package handlers

import (
	"envpermit/internal/models"
	"envpermit/internal/repositories"
	"envpermit/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type RateHandler struct {
	rates repositories.RateScheduleRepository
}

func NewRateHandler(rates repositories.RateScheduleRepository) *RateHandler {
	return &RateHandler{rates: rates}
}

func (h *RateHandler) List(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 50)
	entries, total, err := h.rates.List(c.Context(), p.Offset, p.Limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list rate schedule")
	}
	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(entries, p))
}

// Upsert creates or replaces one official rate row. Admin only.
func (h *RateHandler) Upsert(c *fiber.Ctx) error {
	var input struct {
		ActivityType         string               `json:"activityType"`
		ActivityLevel        models.ActivityLevel `json:"activityLevel"`
		PermitType           string               `json:"permitType"`
		PrescribedActivityID string               `json:"prescribedActivityId"`
		AdminFee             float64              `json:"adminFee"`
		TechnicalFee         float64              `json:"technicalFee"`
		ProcessingDays       int                  `json:"processingDays"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.ActivityType == "" || input.PermitType == "" || input.PrescribedActivityID == "" {
		return utils.BadRequest(c, "activityType, permitType and prescribedActivityId are required")
	}
	if !input.ActivityLevel.Valid() {
		return utils.BadRequest(c, "activityLevel must be one of Level 1, Level 2, Level 3")
	}
	if input.AdminFee < 0 || input.TechnicalFee < 0 {
		return utils.BadRequest(c, "fees must not be negative")
	}

	entry := &models.RateEntry{
		ActivityType:         input.ActivityType,
		ActivityLevel:        input.ActivityLevel,
		PermitType:           input.PermitType,
		PrescribedActivityID: input.PrescribedActivityID,
		AdminFee:             input.AdminFee,
		TechnicalFee:         input.TechnicalFee,
		ProcessingDays:       input.ProcessingDays,
	}
	if err := h.rates.Upsert(c.Context(), entry); err != nil {
		return utils.InternalError(c, "Failed to save rate entry")
	}
	return utils.Success(c, entry)
}
