package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"envpermit/internal/models"
	"envpermit/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeAssessmentRepo stores deep copies, like a real database, and
// enforces the optimistic version check.
type fakeAssessmentRepo struct {
	byID         map[uint]*models.ApplicationAssessment
	nextID       uint
	conflictNext bool
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{byID: make(map[uint]*models.ApplicationAssessment), nextID: 1}
}

func deepCopy(a *models.ApplicationAssessment) *models.ApplicationAssessment {
	data, _ := json.Marshal(a)
	var out models.ApplicationAssessment
	_ = json.Unmarshal(data, &out)
	return &out
}

func (f *fakeAssessmentRepo) Create(_ context.Context, a *models.ApplicationAssessment) error {
	for _, existing := range f.byID {
		if existing.ApplicationID == a.ApplicationID {
			return repositories.ErrAssessmentExists
		}
	}
	a.ID = f.nextID
	f.nextID++
	f.byID[a.ID] = deepCopy(a)
	return nil
}

func (f *fakeAssessmentRepo) GetByID(_ context.Context, id uint) (*models.ApplicationAssessment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrAssessmentNotFound
	}
	return deepCopy(a), nil
}

func (f *fakeAssessmentRepo) GetByApplicationID(_ context.Context, applicationID uint) (*models.ApplicationAssessment, error) {
	for _, a := range f.byID {
		if a.ApplicationID == applicationID {
			return deepCopy(a), nil
		}
	}
	return nil, repositories.ErrAssessmentNotFound
}

func (f *fakeAssessmentRepo) UpdateWithVersion(_ context.Context, a *models.ApplicationAssessment) error {
	if f.conflictNext {
		f.conflictNext = false
		return repositories.ErrVersionConflict
	}
	stored, ok := f.byID[a.ID]
	if !ok {
		return repositories.ErrAssessmentNotFound
	}
	if stored.Version != a.Version {
		return repositories.ErrVersionConflict
	}
	a.Version++
	f.byID[a.ID] = deepCopy(a)
	return nil
}

func (f *fakeAssessmentRepo) ListByStage(_ context.Context, stage models.Stage, _, _ int) ([]*models.ApplicationAssessment, int64, error) {
	var out []*models.ApplicationAssessment
	for _, a := range f.byID {
		if a.CurrentStage == stage && !a.Terminal() {
			out = append(out, deepCopy(a))
		}
	}
	return out, int64(len(out)), nil
}

// seed installs an assessment in an arbitrary state, bypassing the
// workflow. Used to exercise guards that normal flow cannot reach.
func (f *fakeAssessmentRepo) seed(a *models.ApplicationAssessment) {
	if a.ID == 0 {
		a.ID = f.nextID
		f.nextID++
	}
	if a.Version == 0 {
		a.Version = 1
	}
	f.byID[a.ID] = deepCopy(a)
}

type fakeAppRepo struct {
	apps map[uint]*models.PermitApplication
	fees map[uint][]*models.FeeRecord
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{
		apps: make(map[uint]*models.PermitApplication),
		fees: make(map[uint][]*models.FeeRecord),
	}
}

func (f *fakeAppRepo) Create(_ context.Context, app *models.PermitApplication) error {
	f.apps[app.ID] = app
	return nil
}

func (f *fakeAppRepo) GetByID(_ context.Context, id uint) (*models.PermitApplication, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, repositories.ErrApplicationNotFound
	}
	return app, nil
}

func (f *fakeAppRepo) Update(_ context.Context, app *models.PermitApplication) error {
	f.apps[app.ID] = app
	return nil
}

func (f *fakeAppRepo) ListByApplicant(_ context.Context, _ uint, _, _ int) ([]*models.PermitApplication, int64, error) {
	return nil, 0, nil
}

func (f *fakeAppRepo) AttachFeeRecord(_ context.Context, record *models.FeeRecord) error {
	f.fees[record.ApplicationID] = append(f.fees[record.ApplicationID], record)
	return nil
}

func (f *fakeAppRepo) FeeRecords(_ context.Context, applicationID uint) ([]*models.FeeRecord, error) {
	return f.fees[applicationID], nil
}

func (f *fakeAppRepo) LatestFeeRecord(_ context.Context, applicationID uint) (*models.FeeRecord, error) {
	records := f.fees[applicationID]
	if len(records) == 0 {
		return nil, repositories.ErrApplicationNotFound
	}
	return records[len(records)-1], nil
}

type recordingNotifier struct {
	events   []Event
	failNext bool
}

func (n *recordingNotifier) PublishDecision(_ context.Context, event Event) error {
	if n.failNext {
		n.failNext = false
		return errors.New("stream unavailable")
	}
	n.events = append(n.events, event)
	return nil
}

type fakeBiller struct {
	calls []float64
	fail  bool
}

func (b *fakeBiller) CreateInvoice(_ context.Context, applicationID uint, amount float64) (string, error) {
	if b.fail {
		return "", errors.New("billing provider down")
	}
	b.calls = append(b.calls, amount)
	return fmt.Sprintf("pi_test_%d", applicationID), nil
}

type harness struct {
	svc      Service
	repo     *fakeAssessmentRepo
	appRepo  *fakeAppRepo
	notifier *recordingNotifier
	biller   *fakeBiller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newFakeAssessmentRepo(),
		appRepo:  newFakeAppRepo(),
		notifier: &recordingNotifier{},
		biller:   &fakeBiller{},
	}
	h.svc = NewService(h.repo, h.appRepo, h.notifier, h.biller)

	app := &models.PermitApplication{
		Model:       gorm.Model{ID: 42},
		Reference:   "EPA-test",
		ApplicantID: 7,
		Status:      models.ApplicationStatusSubmitted,
	}
	require.NoError(t, h.appRepo.Create(context.Background(), app))
	h.appRepo.fees[42] = []*models.FeeRecord{{ApplicationID: 42, TotalFee: 22500}}
	return h
}

func (h *harness) start(t *testing.T) *models.ApplicationAssessment {
	t.Helper()
	a, err := h.svc.StartReview(context.Background(), 42, models.RoleRegistry)
	require.NoError(t, err)
	return a
}

// ticks builds a fully-checked checklist for a stage.
func ticks(stage models.Stage) []ChecklistTick {
	var out []ChecklistTick
	for _, item := range checklistTemplates[stage] {
		out = append(out, ChecklistTick{ID: item.ID, Checked: true})
	}
	return out
}

func decide(stage models.Stage, decision models.Decision, role string, assessmentID uint) DecisionInput {
	return DecisionInput{
		AssessmentID: assessmentID,
		Stage:        stage,
		Decision:     decision,
		Checklist:    ticks(stage),
		Notes:        "reviewed in full",
		ReviewerID:   99,
		Role:         role,
	}
}

func TestStartReview(t *testing.T) {
	h := newHarness(t)

	a := h.start(t)
	assert.Equal(t, models.StageRegistry, a.CurrentStage)
	assert.Equal(t, models.OverallPending, a.OverallStatus)

	record := a.Record(models.StageRegistry)
	require.NotNil(t, record)
	assert.Equal(t, models.StageStatusPending, record.Status)
	assert.Len(t, record.Checklist, len(checklistTemplates[models.StageRegistry]))

	app, _ := h.appRepo.GetByID(context.Background(), 42)
	assert.Equal(t, models.ApplicationStatusUnderReview, app.Status)
}

func TestStartReview_RequiresRegistryRole(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.StartReview(context.Background(), 42, models.RoleCompliance)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.svc.StartReview(context.Background(), 42, models.RoleAdmin)
	assert.NoError(t, err)
}

func TestStartReview_DuplicateFails(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	_, err := h.svc.StartReview(context.Background(), 42, models.RoleRegistry)
	assert.Error(t, err)
}

func TestSubmitDecision_RegistryApproved(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	updated, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)

	assert.Equal(t, models.StageCompliance, updated.CurrentStage)
	assert.Equal(t, models.OverallUnderReview, updated.OverallStatus)

	registry := updated.Record(models.StageRegistry)
	assert.Equal(t, models.StageStatusCompleted, registry.Status)
	assert.Equal(t, models.DecisionApproved, registry.Decision)
	assert.Equal(t, uint(99), registry.ReviewerID)
	require.NotNil(t, registry.DecidedAt)

	compliance := updated.Record(models.StageCompliance)
	require.NotNil(t, compliance)
	assert.Equal(t, models.StageStatusPending, compliance.Status)

	require.Len(t, h.notifier.events, 1)
	event := h.notifier.events[0]
	assert.Equal(t, uint(42), event.ApplicationID)
	assert.Equal(t, models.StageRegistry, event.Stage)
	assert.Equal(t, "Registry review passed", event.Title)
	assert.NotEmpty(t, event.EventID)
}

func TestSubmitDecision_Unauthorized(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	input := decide(models.StageRegistry, models.DecisionApproved, models.RoleCompliance, a.ID)
	_, err := h.svc.SubmitDecision(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// No mutation, no notification.
	stored, _ := h.repo.GetByID(context.Background(), a.ID)
	assert.Equal(t, models.OverallPending, stored.OverallStatus)
	assert.Empty(t, h.notifier.events)
}

func TestSubmitDecision_OutOfOrderStage(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	// Compliance reviewer tries to decide their stage while the
	// assessment is still at registry.
	input := decide(models.StageCompliance, models.DecisionCompliant, models.RoleCompliance, a.ID)
	_, err := h.svc.SubmitDecision(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, h.notifier.events)
}

func TestSubmitDecision_IncompleteChecklist(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	input := decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID)
	input.Checklist = input.Checklist[:1] // leave two items unchecked

	_, err := h.svc.SubmitDecision(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteSubmission)

	var incomplete *IncompleteSubmissionError
	require.ErrorAs(t, err, &incomplete)
	assert.Len(t, incomplete.Missing, 2)
	assert.Contains(t, incomplete.Missing[0], "must be checked")
	assert.Empty(t, h.notifier.events)
}

func TestSubmitDecision_MissingNotes(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	input := decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID)
	input.Notes = ""

	_, err := h.svc.SubmitDecision(context.Background(), input)
	require.Error(t, err)

	var incomplete *IncompleteSubmissionError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Missing, "assessment notes are required")
}

func TestSubmitDecision_DecisionNotValidForStage(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	input := decide(models.StageRegistry, models.DecisionPaid, models.RoleRegistry, a.ID)
	_, err := h.svc.SubmitDecision(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitDecision_RegistryRejectedIsTerminal(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	updated, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionRejected, models.RoleRegistry, a.ID))
	require.NoError(t, err)

	assert.Equal(t, models.OverallRejected, updated.OverallStatus)
	assert.True(t, updated.Terminal())

	// The rejected assessment stays queryable with its final record.
	stored, err := h.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, stored.Record(models.StageRegistry).Decision)

	// And refuses any further decisions.
	_, err = h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClarificationLoop(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	updated, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionRequiresInfo, models.RoleRegistry, a.ID))
	require.NoError(t, err)

	assert.Equal(t, models.OverallRequiresClarification, updated.OverallStatus)
	assert.Equal(t, models.StageRegistry, updated.CurrentStage)
	assert.Equal(t, models.StageStatusRequiresClarification, updated.Record(models.StageRegistry).Status)

	// No decisions while the applicant has the ball.
	_, err = h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Resubmission re-opens the same stage: the only backward edge.
	reopened, err := h.svc.Resubmit(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusUnderReview, reopened.Record(models.StageRegistry).Status)
	assert.Equal(t, models.OverallUnderReview, reopened.OverallStatus)

	// And the stage can now conclude normally.
	final, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StageCompliance, final.CurrentStage)
}

func TestResubmit_OnlyFromClarification(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	_, err := h.svc.Resubmit(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFullWorkflow(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	_, err := h.svc.SubmitDecision(ctx, decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)

	updated, err := h.svc.SubmitDecision(ctx, decide(models.StageCompliance, models.DecisionCompliant, models.RoleCompliance, a.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StageInvoicePayments, updated.CurrentStage)

	// Advancing into the invoice stage raised an invoice for the
	// latest assessed fee.
	require.Len(t, h.biller.calls, 1)
	assert.Equal(t, 22500.0, h.biller.calls[0])
	assert.Equal(t, "pi_test_42", updated.Record(models.StageInvoicePayments).PaymentRef)

	_, err = h.svc.SubmitDecision(ctx, decide(models.StageInvoicePayments, models.DecisionPaid, models.RoleFinance, a.ID))
	require.NoError(t, err)

	final, err := h.svc.SubmitDecision(ctx, decide(models.StageManagingDir, models.DecisionApproved, models.RoleDirector, a.ID))
	require.NoError(t, err)

	assert.Equal(t, models.OverallApproved, final.OverallStatus)
	assert.True(t, final.Terminal())
	assert.Len(t, h.notifier.events, 4)
}

func TestInvoiceHoldDecisions(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	_, err := h.svc.SubmitDecision(ctx, decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)
	_, err = h.svc.SubmitDecision(ctx, decide(models.StageCompliance, models.DecisionConditional, models.RoleCompliance, a.ID))
	require.NoError(t, err)

	// Invoiced is a hold: decision recorded, stage stays open.
	updated, err := h.svc.SubmitDecision(ctx, decide(models.StageInvoicePayments, models.DecisionInvoiced, models.RoleFinance, a.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StageInvoicePayments, updated.CurrentStage)
	assert.Equal(t, models.StageStatusUnderReview, updated.Record(models.StageInvoicePayments).Status)

	// A later "paid" closes the stage.
	final, err := h.svc.SubmitDecision(ctx, decide(models.StageInvoicePayments, models.DecisionPaid, models.RoleFinance, a.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StageManagingDir, final.CurrentStage)
}

func TestMDApprovalRequiresSettledPayment(t *testing.T) {
	h := newHarness(t)

	// An assessment that reached the MD stage while the invoice is
	// still outstanding. Normal flow cannot produce this; the guard
	// exists for exactly that reason.
	h.repo.seed(&models.ApplicationAssessment{
		Model:         gorm.Model{ID: 10},
		ApplicationID: 42,
		CurrentStage:  models.StageManagingDir,
		OverallStatus: models.OverallUnderReview,
		StageRecords: models.StageRecordMap{
			models.StageInvoicePayments: {
				Status:   models.StageStatusUnderReview,
				Decision: models.DecisionInvoiced,
			},
			models.StageManagingDir: newStageRecord(models.StageManagingDir),
		},
	})

	_, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageManagingDir, models.DecisionApproved, models.RoleDirector, 10))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Refusal stays available regardless of payment state.
	updated, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageManagingDir, models.DecisionRejected, models.RoleDirector, 10))
	require.NoError(t, err)
	assert.Equal(t, models.OverallRejected, updated.OverallStatus)
}

func TestMDWaivedFeeAllowsApproval(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	_, err := h.svc.SubmitDecision(ctx, decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)
	_, err = h.svc.SubmitDecision(ctx, decide(models.StageCompliance, models.DecisionCompliant, models.RoleCompliance, a.ID))
	require.NoError(t, err)
	_, err = h.svc.SubmitDecision(ctx, decide(models.StageInvoicePayments, models.DecisionWaived, models.RoleFinance, a.ID))
	require.NoError(t, err)

	final, err := h.svc.SubmitDecision(ctx, decide(models.StageManagingDir, models.DecisionApprovedWithConditions, models.RoleDirector, a.ID))
	require.NoError(t, err)
	assert.Equal(t, models.OverallApproved, final.OverallStatus)
}

func TestVersionConflictMapsToInvalidTransition(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	h.repo.conflictNext = true
	_, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, h.notifier.events)

	// The losing writer can retry against fresh state.
	_, err = h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	assert.NoError(t, err)
}

func TestNotifierFailureDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	h.notifier.failNext = true
	updated, err := h.svc.SubmitDecision(context.Background(),
		decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)
	assert.Equal(t, models.StageCompliance, updated.CurrentStage)

	// The committed transition survives the failed delivery.
	stored, _ := h.svc.Get(context.Background(), a.ID)
	assert.Equal(t, models.StageCompliance, stored.CurrentStage)
}

func TestBillerFailureDoesNotBlockStage(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	h.biller.fail = true
	_, err := h.svc.SubmitDecision(ctx, decide(models.StageRegistry, models.DecisionApproved, models.RoleRegistry, a.ID))
	require.NoError(t, err)

	updated, err := h.svc.SubmitDecision(ctx, decide(models.StageCompliance, models.DecisionCompliant, models.RoleCompliance, a.ID))
	require.NoError(t, err)

	assert.Equal(t, models.StageInvoicePayments, updated.CurrentStage)
	assert.Empty(t, updated.Record(models.StageInvoicePayments).PaymentRef)
}

func TestOpenStage(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	updated, err := h.svc.OpenStage(context.Background(), a.ID, models.StageRegistry, 55, models.RoleRegistry)
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusUnderReview, updated.Record(models.StageRegistry).Status)
	assert.Equal(t, uint(55), updated.Record(models.StageRegistry).ReviewerID)
	assert.Equal(t, models.OverallUnderReview, updated.OverallStatus)

	// Opening twice is a transition error.
	_, err = h.svc.OpenStage(context.Background(), a.ID, models.StageRegistry, 55, models.RoleRegistry)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOpenStage_WrongRole(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	_, err := h.svc.OpenStage(context.Background(), a.ID, models.StageRegistry, 55, models.RoleFinance)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAttachDocument(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	att := models.Attachment{Name: "site-plan.pdf", Path: "uploads/42/site-plan.pdf"}
	err := h.svc.AttachDocument(context.Background(), a.ID, models.StageRegistry, att, models.RoleRegistry)
	require.NoError(t, err)

	stored, _ := h.svc.Get(context.Background(), a.ID)
	require.Len(t, stored.Record(models.StageRegistry).Attachments, 1)
	assert.Equal(t, "site-plan.pdf", stored.Record(models.StageRegistry).Attachments[0].Name)

	// Wrong role cannot attach.
	err = h.svc.AttachDocument(context.Background(), a.ID, models.StageRegistry, att, models.RoleFinance)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Unreached stages have no record to attach to.
	err = h.svc.AttachDocument(context.Background(), a.ID, models.StageManagingDir, att, models.RoleDirector)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestQueue(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	queued, total, err := h.svc.Queue(context.Background(), models.StageRegistry, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, queued, 1)
	assert.Equal(t, uint(42), queued[0].ApplicationID)
}

func TestGet_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}
