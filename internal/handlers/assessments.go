package handlers

import (
	"errors"

	"envpermit/internal/models"
	"envpermit/internal/services/assessment"
	"envpermit/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AssessmentHandler struct {
	assessmentService assessment.Service
}

func NewAssessmentHandler(assessmentService assessment.Service) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
	}
}

// StartReview opens the internal review chain for an application.
func (h *AssessmentHandler) StartReview(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	applicationID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid application id")
	}

	a, err := h.assessmentService.StartReview(c.Context(), applicationID, claims.Role)
	if err != nil {
		return assessmentError(c, err)
	}
	return utils.Created(c, a)
}

func (h *AssessmentHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid assessment id")
	}

	a, err := h.assessmentService.Get(c.Context(), id)
	if err != nil {
		return assessmentError(c, err)
	}
	return utils.Success(c, a)
}

// Queue lists open assessments waiting at a given stage.
func (h *AssessmentHandler) Queue(c *fiber.Ctx) error {
	stage := models.Stage(c.Query("stage"))
	if stage == "" {
		return utils.BadRequest(c, "stage query parameter is required")
	}

	p := utils.GetPagination(c, 1, 20)
	assessments, total, err := h.assessmentService.Queue(c.Context(), stage, p.Offset, p.Limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list assessments")
	}
	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(assessments, p))
}

func (h *AssessmentHandler) OpenStage(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid assessment id")
	}

	var input struct {
		Stage models.Stage `json:"stage"`
	}
	if err := c.BodyParser(&input); err != nil || input.Stage == "" {
		return utils.BadRequest(c, "stage is required")
	}

	a, err := h.assessmentService.OpenStage(c.Context(), id, input.Stage, claims.UserID, claims.Role)
	if err != nil {
		return assessmentError(c, err)
	}
	return utils.Success(c, a)
}

func (h *AssessmentHandler) SubmitDecision(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid assessment id")
	}

	var input struct {
		Stage     models.Stage               `json:"stage"`
		Decision  models.Decision            `json:"decision"`
		Checklist []assessment.ChecklistTick `json:"checklist"`
		Notes     string                     `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	a, err := h.assessmentService.SubmitDecision(c.Context(), assessment.DecisionInput{
		AssessmentID: id,
		Stage:        input.Stage,
		Decision:     input.Decision,
		Checklist:    input.Checklist,
		Notes:        input.Notes,
		ReviewerID:   claims.UserID,
		Role:         claims.Role,
	})
	if err != nil {
		return assessmentError(c, err)
	}
	return utils.Success(c, a)
}

// Resubmit re-opens a stage awaiting applicant clarification.
func (h *AssessmentHandler) Resubmit(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid assessment id")
	}

	a, err := h.assessmentService.Resubmit(c.Context(), id)
	if err != nil {
		return assessmentError(c, err)
	}
	return utils.Success(c, a)
}

// AttachDocument records a storage path from the document collaborator
// on a stage record.
func (h *AssessmentHandler) AttachDocument(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid assessment id")
	}

	var input struct {
		Stage models.Stage `json:"stage"`
		Name  string       `json:"name"`
		Path  string       `json:"path"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	att := models.Attachment{Name: input.Name, Path: input.Path}
	if err := h.assessmentService.AttachDocument(c.Context(), id, input.Stage, att, claims.Role); err != nil {
		return assessmentError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Attachment recorded"})
}

// assessmentError maps stage engine failures onto HTTP responses.
// Incomplete submissions name every unmet precondition.
func assessmentError(c *fiber.Ctx, err error) error {
	var incomplete *assessment.IncompleteSubmissionError
	switch {
	case errors.Is(err, assessment.ErrUnauthorized):
		return utils.Forbidden(c, err.Error())
	case errors.As(err, &incomplete):
		return utils.Respond(c, fiber.StatusUnprocessableEntity, fiber.Map{
			"error":   "incomplete submission",
			"missing": incomplete.Missing,
		})
	case errors.Is(err, assessment.ErrInvalidTransition):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, assessment.ErrAssessmentNotFound):
		return utils.NotFound(c, "Assessment not found")
	default:
		return utils.InternalError(c, "Assessment operation failed")
	}
}
