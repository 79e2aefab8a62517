// Package assessment implements the sequential unit-review workflow: a
// finite state machine that walks one application through registry,
// compliance, invoice/payments and managing-director review, each stage
// gated by role and checklist completeness.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"envpermit/internal/models"
	"envpermit/internal/repositories"

	"github.com/google/uuid"
)

type service struct {
	repo     repositories.AssessmentRepository
	appRepo  repositories.ApplicationRepository
	notifier Notifier
	biller   Biller
}

// NewService creates the stage engine. The biller is optional; without
// one the invoice stage simply carries no payment reference.
func NewService(
	repo repositories.AssessmentRepository,
	appRepo repositories.ApplicationRepository,
	notifier Notifier,
	biller Biller,
) Service {
	if repo == nil {
		panic("assessment repository is required")
	}
	if appRepo == nil {
		panic("application repository is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	return &service{
		repo:     repo,
		appRepo:  appRepo,
		notifier: notifier,
		biller:   biller,
	}
}

func (s *service) StartReview(ctx context.Context, applicationID uint, role string) (*models.ApplicationAssessment, error) {
	if !roleAuthorized(models.StageRegistry, role) {
		return nil, fmt.Errorf("%w: %q cannot open a review", ErrUnauthorized, role)
	}

	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	assessment := &models.ApplicationAssessment{
		ApplicationID: app.ID,
		CurrentStage:  models.StageRegistry,
		OverallStatus: models.OverallPending,
		StageRecords: models.StageRecordMap{
			models.StageRegistry: newStageRecord(models.StageRegistry),
		},
		Version: 1,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, err
	}

	app.Status = models.ApplicationStatusUnderReview
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *service) OpenStage(ctx context.Context, assessmentID uint, stage models.Stage, reviewerID uint, role string) (*models.ApplicationAssessment, error) {
	assessment, err := s.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if !roleAuthorized(stage, role) {
		return nil, fmt.Errorf("%w: stage %s requires one of %v", ErrUnauthorized, stage, stageRoles[stage])
	}
	if assessment.Terminal() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, ErrApplicationClosed)
	}
	if assessment.CurrentStage != stage {
		return nil, fmt.Errorf("%w: assessment is at stage %s, not %s", ErrInvalidTransition, assessment.CurrentStage, stage)
	}

	record := assessment.Record(stage)
	if record == nil {
		record = newStageRecord(stage)
		assessment.StageRecords[stage] = record
	}
	if record.Status != models.StageStatusPending {
		return nil, fmt.Errorf("%w: stage %s is %s", ErrInvalidTransition, stage, record.Status)
	}

	record.Status = models.StageStatusUnderReview
	record.ReviewerID = reviewerID
	assessment.OverallStatus = models.OverallUnderReview

	if stage == models.StageInvoicePayments && record.PaymentRef == "" {
		record.PaymentRef = s.raiseInvoice(ctx, assessment.ApplicationID)
	}

	if err := s.commit(ctx, assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *service) SubmitDecision(ctx context.Context, input DecisionInput) (*models.ApplicationAssessment, error) {
	assessment, err := s.load(ctx, input.AssessmentID)
	if err != nil {
		return nil, err
	}

	// Role first: an unauthorized caller learns nothing about stage
	// state and mutates nothing.
	if !roleAuthorized(input.Stage, input.Role) {
		return nil, fmt.Errorf("%w: stage %s requires one of %v", ErrUnauthorized, input.Stage, stageRoles[input.Stage])
	}

	if assessment.Terminal() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, ErrApplicationClosed)
	}
	if assessment.CurrentStage != input.Stage {
		return nil, fmt.Errorf("%w: assessment is at stage %s, not %s", ErrInvalidTransition, assessment.CurrentStage, input.Stage)
	}

	rule, ok := decisionRules[input.Stage][input.Decision]
	if !ok {
		return nil, fmt.Errorf("%w: decision %q is not valid for stage %s", ErrInvalidTransition, input.Decision, input.Stage)
	}

	record := assessment.Record(input.Stage)
	if record == nil {
		record = newStageRecord(input.Stage)
		assessment.StageRecords[input.Stage] = record
	}
	if record.Status == models.StageStatusCompleted {
		return nil, fmt.Errorf("%w: stage %s already decided", ErrInvalidTransition, input.Stage)
	}
	if record.Status == models.StageStatusRequiresClarification {
		return nil, fmt.Errorf("%w: stage %s awaits applicant resubmission", ErrInvalidTransition, input.Stage)
	}

	applyTicks(record, input.Checklist)
	if err := validateCompleteness(record, input); err != nil {
		return nil, err
	}

	// Final approval requires the fee to be settled. Deferral and
	// refusal stay available regardless of payment state.
	if input.Stage == models.StageManagingDir &&
		(input.Decision == models.DecisionApproved || input.Decision == models.DecisionApprovedWithConditions) {
		if !paymentSettled(assessment.Record(models.StageInvoicePayments)) {
			return nil, fmt.Errorf("%w: final approval requires the fee invoice to be paid or waived", ErrInvalidTransition)
		}
	}

	now := time.Now().UTC()
	record.Decision = input.Decision
	record.AssessmentNotes = input.Notes
	record.ReviewerID = input.ReviewerID
	record.DecidedAt = &now

	newStatus := s.applyOutcome(ctx, assessment, input.Stage, record, rule)

	if err := s.commit(ctx, assessment); err != nil {
		return nil, err
	}

	// The transition is durably committed; notification failures are
	// logged and left to the notifier's own retry policy.
	event := Event{
		EventID:       uuid.NewString(),
		ApplicationID: assessment.ApplicationID,
		Stage:         input.Stage,
		NewStatus:     newStatus,
		Title:         rule.Title,
		Message:       rule.Message,
		DecidedAt:     now,
	}
	if err := s.notifier.PublishDecision(ctx, event); err != nil {
		log.Printf("decision notification failed for application %d stage %s: %v",
			assessment.ApplicationID, input.Stage, err)
	}

	return assessment, nil
}

// applyOutcome mutates the assessment per the decision rule and returns
// the status value the notification carries.
func (s *service) applyOutcome(ctx context.Context, assessment *models.ApplicationAssessment, stage models.Stage, record *models.StageRecord, rule decisionRule) string {
	switch rule.Outcome {
	case outcomeAdvance:
		record.Status = models.StageStatusCompleted
		next := models.NextStage(stage)
		if next == "" {
			assessment.OverallStatus = rule.OverallStatus
			return assessment.OverallStatus
		}
		assessment.CurrentStage = next
		assessment.OverallStatus = models.OverallUnderReview
		nextRecord := newStageRecord(next)
		if next == models.StageInvoicePayments {
			nextRecord.PaymentRef = s.raiseInvoice(ctx, assessment.ApplicationID)
		}
		assessment.StageRecords[next] = nextRecord
		return string(record.Decision)

	case outcomeHalt:
		record.Status = models.StageStatusCompleted
		assessment.OverallStatus = rule.OverallStatus
		return assessment.OverallStatus

	case outcomeClarify:
		record.Status = models.StageStatusRequiresClarification
		assessment.OverallStatus = models.OverallRequiresClarification
		return assessment.OverallStatus

	default: // outcomeHold
		record.Status = models.StageStatusUnderReview
		assessment.OverallStatus = models.OverallUnderReview
		return string(record.Decision)
	}
}

func (s *service) Resubmit(ctx context.Context, assessmentID uint) (*models.ApplicationAssessment, error) {
	assessment, err := s.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.Terminal() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, ErrApplicationClosed)
	}

	record := assessment.Record(assessment.CurrentStage)
	if record == nil || record.Status != models.StageStatusRequiresClarification {
		return nil, fmt.Errorf("%w: stage %s is not awaiting clarification", ErrInvalidTransition, assessment.CurrentStage)
	}

	record.Status = models.StageStatusUnderReview
	record.Decision = ""
	record.DecidedAt = nil
	assessment.OverallStatus = models.OverallUnderReview

	if err := s.commit(ctx, assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *service) AttachDocument(ctx context.Context, assessmentID uint, stage models.Stage, att models.Attachment, role string) error {
	if att.Name == "" || att.Path == "" {
		return &IncompleteSubmissionError{Missing: []string{"attachment name and path are required"}}
	}

	assessment, err := s.load(ctx, assessmentID)
	if err != nil {
		return err
	}
	if !roleAuthorized(stage, role) {
		return fmt.Errorf("%w: stage %s requires one of %v", ErrUnauthorized, stage, stageRoles[stage])
	}

	record := assessment.Record(stage)
	if record == nil {
		return fmt.Errorf("%w: stage %s has not been reached", ErrInvalidTransition, stage)
	}

	record.Attachments = append(record.Attachments, att)
	return s.commit(ctx, assessment)
}

func (s *service) Get(ctx context.Context, assessmentID uint) (*models.ApplicationAssessment, error) {
	return s.load(ctx, assessmentID)
}

func (s *service) GetByApplication(ctx context.Context, applicationID uint) (*models.ApplicationAssessment, error) {
	assessment, err := s.repo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssessmentNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	return assessment, nil
}

func (s *service) Queue(ctx context.Context, stage models.Stage, offset, limit int) ([]*models.ApplicationAssessment, int64, error) {
	return s.repo.ListByStage(ctx, stage, offset, limit)
}

func (s *service) load(ctx context.Context, assessmentID uint) (*models.ApplicationAssessment, error) {
	assessment, err := s.repo.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssessmentNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	return assessment, nil
}

// commit writes the assessment under the optimistic version check. A
// conflict means another decision already committed; the caller must
// re-read and sees it as an invalid transition.
func (s *service) commit(ctx context.Context, assessment *models.ApplicationAssessment) error {
	if err := s.repo.UpdateWithVersion(ctx, assessment); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return fmt.Errorf("%w: a concurrent decision was already committed", ErrInvalidTransition)
		}
		return err
	}
	return nil
}

// raiseInvoice asks the billing collaborator for a payment reference
// for the application's latest assessed fee. Billing failures never
// block the stage; the reference stays empty and is retried manually.
func (s *service) raiseInvoice(ctx context.Context, applicationID uint) string {
	if s.biller == nil {
		return ""
	}
	fee, err := s.appRepo.LatestFeeRecord(ctx, applicationID)
	if err != nil {
		log.Printf("no fee record for application %d, invoice not raised: %v", applicationID, err)
		return ""
	}
	ref, err := s.biller.CreateInvoice(ctx, applicationID, fee.TotalFee)
	if err != nil {
		log.Printf("billing failed for application %d: %v", applicationID, err)
		return ""
	}
	return ref
}

// applyTicks copies the caller's confirmations onto the stage checklist.
// Unknown item ids are ignored; the template defines what counts.
func applyTicks(record *models.StageRecord, ticks []ChecklistTick) {
	for i := range record.Checklist {
		for _, tick := range ticks {
			if record.Checklist[i].ID == tick.ID {
				record.Checklist[i].Checked = tick.Checked
			}
		}
	}
}

// validateCompleteness enforces the submission invariant: decision and
// notes present, every required checklist item checked. Every unmet
// precondition is named.
func validateCompleteness(record *models.StageRecord, input DecisionInput) error {
	var missing []string
	if input.Decision == "" {
		missing = append(missing, "decision is required")
	}
	if input.Notes == "" {
		missing = append(missing, "assessment notes are required")
	}
	for _, item := range record.Checklist {
		if !item.Checked {
			missing = append(missing, fmt.Sprintf("checklist item %q must be checked", item.Label))
		}
	}
	if len(missing) > 0 {
		return &IncompleteSubmissionError{Missing: missing}
	}
	return nil
}
