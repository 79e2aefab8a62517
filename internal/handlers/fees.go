package handlers

import (
	"errors"

	"envpermit/internal/models"
	"envpermit/internal/services/fees"
	"envpermit/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type FeeHandler struct {
	feeService fees.Service
}

func NewFeeHandler(feeService fees.Service) *FeeHandler {
	return &FeeHandler{
		feeService: feeService,
	}
}

// Calculate computes an itemized fee quote for a classification. No
// state is touched; callers may discard the result.
func (h *FeeHandler) Calculate(c *fiber.Ctx) error {
	var req models.FeeCalculationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	result, err := h.feeService.Calculate(c.Context(), &req)
	if err != nil {
		return feeError(c, err)
	}

	return utils.Success(c, result)
}

// feeError maps fee service failures onto HTTP responses; validation
// failures carry their per-field messages.
func feeError(c *fiber.Ctx, err error) error {
	var validationErr *fees.RequestValidationError
	if errors.As(err, &validationErr) {
		return utils.ValidationFailed(c, validationErr.Fields)
	}
	if errors.Is(err, fees.ErrClassificationNotFound) {
		return utils.BadRequest(c, err.Error())
	}
	if errors.Is(err, fees.ErrInvalidParameter) {
		return utils.BadRequest(c, err.Error())
	}
	return utils.InternalError(c, "Failed to calculate fee")
}
