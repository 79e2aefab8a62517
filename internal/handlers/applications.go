package handlers

import (
	"strconv"

	"envpermit/internal/models"
	"envpermit/internal/repositories"
	"envpermit/internal/services/fees"
	"envpermit/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ApplicationHandler struct {
	appRepo    repositories.ApplicationRepository
	feeService fees.Service
}

func NewApplicationHandler(appRepo repositories.ApplicationRepository, feeService fees.Service) *ApplicationHandler {
	return &ApplicationHandler{
		appRepo:    appRepo,
		feeService: feeService,
	}
}

func (h *ApplicationHandler) Create(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ActivityType         string               `json:"activityType"`
		ActivitySubCategory  string               `json:"activitySubCategory"`
		PermitType           string               `json:"permitType"`
		ActivityLevel        models.ActivityLevel `json:"activityLevel"`
		PrescribedActivityID string               `json:"prescribedActivityId"`
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

	app := &models.PermitApplication{
		Reference:            "EPA-" + uuid.NewString()[:8],
		ApplicantID:          claims.UserID,
		ActivityType:         input.ActivityType,
		ActivitySubCategory:  input.ActivitySubCategory,
		PermitType:           input.PermitType,
		ActivityLevel:        input.ActivityLevel,
		PrescribedActivityID: input.PrescribedActivityID,
		Status:               models.ApplicationStatusSubmitted,
	}
	if err := h.appRepo.Create(c.Context(), app); err != nil {
		return utils.InternalError(c, "Failed to create application")
	}

	return utils.Created(c, app)
}

func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid application id")
	}

	app, err := h.appRepo.GetByID(c.Context(), id)
	if err != nil {
		if err == repositories.ErrApplicationNotFound {
			return utils.NotFound(c, "Application not found")
		}
		return utils.InternalError(c, "Failed to load application")
	}
	return utils.Success(c, app)
}

func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	p := utils.GetPagination(c, 1, 20)
	apps, total, err := h.appRepo.ListByApplicant(c.Context(), claims.UserID, p.Offset, p.Limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list applications")
	}
	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(apps, p))
}

// AttachFee computes a fee quote from the application's classification
// plus the supplied quantitative inputs and persists it as a new fee
// record. Earlier records are kept untouched.
func (h *ApplicationHandler) AttachFee(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid application id")
	}

	app, err := h.appRepo.GetByID(c.Context(), id)
	if err != nil {
		if err == repositories.ErrApplicationNotFound {
			return utils.NotFound(c, "Application not found")
		}
		return utils.InternalError(c, "Failed to load application")
	}

	var input struct {
		ProjectCost            *float64 `json:"projectCost"`
		LandAreaSqm            *float64 `json:"landAreaSqm"`
		DurationYears          *int     `json:"durationYears"`
		HazardousSubstanceType string   `json:"hazardousSubstanceType"`
		WasteType              string   `json:"wasteType"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	req := &models.FeeCalculationRequest{
		ActivityType:           app.ActivityType,
		ActivitySubCategory:    app.ActivitySubCategory,
		PermitType:             app.PermitType,
		ActivityLevel:          app.ActivityLevel,
		PrescribedActivityID:   app.PrescribedActivityID,
		ProjectCost:            input.ProjectCost,
		LandAreaSqm:            input.LandAreaSqm,
		DurationYears:          input.DurationYears,
		HazardousSubstanceType: input.HazardousSubstanceType,
		WasteType:              input.WasteType,
	}

	result, err := h.feeService.Calculate(c.Context(), req)
	if err != nil {
		return feeError(c, err)
	}

	record := &models.FeeRecord{
		ApplicationID:  app.ID,
		Components:     result.Components,
		TotalFee:       result.TotalFee,
		Source:         result.Source,
		ProcessingDays: result.ProcessingDays,
		RequestInputs:  quoteInputs(req),
	}
	if err := h.appRepo.AttachFeeRecord(c.Context(), record); err != nil {
		return utils.InternalError(c, "Failed to save fee record")
	}

	return utils.Created(c, record)
}

func (h *ApplicationHandler) FeeRecords(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid application id")
	}

	records, err := h.appRepo.FeeRecords(c.Context(), id)
	if err != nil {
		return utils.InternalError(c, "Failed to list fee records")
	}
	return utils.Success(c, fiber.Map{"records": records})
}

// quoteInputs captures the quantitative inputs a quote was computed
// from. Only supplied inputs are recorded.
func quoteInputs(req *models.FeeCalculationRequest) models.JSON {
	inputs := models.JSON{}
	if req.ProjectCost != nil {
		inputs["projectCost"] = *req.ProjectCost
	}
	if req.LandAreaSqm != nil {
		inputs["landAreaSqm"] = *req.LandAreaSqm
	}
	if req.DurationYears != nil {
		inputs["durationYears"] = *req.DurationYears
	}
	if req.HazardousSubstanceType != "" {
		inputs["hazardousSubstanceType"] = req.HazardousSubstanceType
	}
	if req.WasteType != "" {
		inputs["wasteType"] = req.WasteType
	}
	return inputs
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
