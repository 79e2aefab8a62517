package assessment

import (
	"context"
	"time"

	"envpermit/internal/models"
)

// Service is the assessment stage engine. All mutating operations take
// the caller's role explicitly; nothing is read from ambient state.
type Service interface {
	// StartReview creates the assessment for an application and parks it
	// at the registry stage.
	StartReview(ctx context.Context, applicationID uint, role string) (*models.ApplicationAssessment, error)

	// OpenStage moves the current stage from pending to under review.
	// Opening the invoice stage raises the fee invoice with the billing
	// collaborator.
	OpenStage(ctx context.Context, assessmentID uint, stage models.Stage, reviewerID uint, role string) (*models.ApplicationAssessment, error)

	// SubmitDecision validates role and completeness, commits the stage
	// outcome and emits exactly one decision event.
	SubmitDecision(ctx context.Context, input DecisionInput) (*models.ApplicationAssessment, error)

	// Resubmit re-opens a stage parked at requires_clarification once the
	// applicant has responded. The single backward transition.
	Resubmit(ctx context.Context, assessmentID uint) (*models.ApplicationAssessment, error)

	// AttachDocument records a storage reference on the current stage.
	AttachDocument(ctx context.Context, assessmentID uint, stage models.Stage, att models.Attachment, role string) error

	Get(ctx context.Context, assessmentID uint) (*models.ApplicationAssessment, error)
	GetByApplication(ctx context.Context, applicationID uint) (*models.ApplicationAssessment, error)
	Queue(ctx context.Context, stage models.Stage, offset, limit int) ([]*models.ApplicationAssessment, int64, error)
}

// DecisionInput is one stage decision submission. Role and ReviewerID
// come from the authenticated caller, never from the request body.
type DecisionInput struct {
	AssessmentID uint
	Stage        models.Stage
	Decision     models.Decision
	Checklist    []ChecklistTick
	Notes        string
	ReviewerID   uint
	Role         string
}

// ChecklistTick is the caller's confirmation of one checklist item.
type ChecklistTick struct {
	ID      string `json:"id"`
	Checked bool   `json:"checked"`
}

// Event is the decision notification published once per committed
// transition. Consumers dedupe on (ApplicationID, Stage, DecidedAt);
// delivery is at-least-once.
type Event struct {
	EventID       string        `json:"eventId"`
	ApplicationID uint          `json:"applicationId"`
	Stage         models.Stage  `json:"stage"`
	NewStatus     string        `json:"newStatus"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	DecidedAt     time.Time     `json:"decidedAt"`
}

// Notifier delivers decision events. Failures are logged, never rolled
// back into the committed transition.
type Notifier interface {
	PublishDecision(ctx context.Context, event Event) error
}

// Biller raises a fee invoice with the payment collaborator when the
// invoice stage opens. A billing outage must not block the stage.
type Biller interface {
	CreateInvoice(ctx context.Context, applicationID uint, amount float64) (string, error)
}
