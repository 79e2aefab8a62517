package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Stage is one ordered step in the internal review chain.
type Stage string

const (
	StageRegistry        Stage = "registry"
	StageCompliance      Stage = "compliance"
	StageInvoicePayments Stage = "invoice_payments"
	StageManagingDir     Stage = "managing_director"
)

// StageOrder is the fixed workflow sequence. Stage records may only be
// created in this order.
var StageOrder = []Stage{
	StageRegistry,
	StageCompliance,
	StageInvoicePayments,
	StageManagingDir,
}

// NextStage returns the stage after s, or "" when s is the last stage.
func NextStage(s Stage) Stage {
	for i, stage := range StageOrder {
		if stage == s && i+1 < len(StageOrder) {
			return StageOrder[i+1]
		}
	}
	return ""
}

// Decision is a stage-specific outcome value. The set of valid values
// depends on the stage; see the assessment service.
type Decision string

const (
	// Registry stage
	DecisionApproved     Decision = "approved"
	DecisionRequiresInfo Decision = "requires_info"
	DecisionRejected     Decision = "rejected"

	// Compliance stage
	DecisionCompliant          Decision = "compliant"
	DecisionConditional        Decision = "conditional"
	DecisionRequiresInspection Decision = "requires_inspection"
	DecisionNonCompliant       Decision = "non_compliant"

	// Invoice/payments stage
	DecisionPaymentPending Decision = "pending"
	DecisionInvoiced       Decision = "invoiced"
	DecisionPartial        Decision = "partial"
	DecisionPaid           Decision = "paid"
	DecisionWaived         Decision = "waived"

	// Managing director stage
	DecisionApprovedWithConditions Decision = "approved_with_conditions"
	DecisionDeferred               Decision = "deferred"
)

// Stage-local statuses.
const (
	StageStatusPending               = "pending"
	StageStatusUnderReview           = "under_review"
	StageStatusCompleted             = "completed"
	StageStatusRequiresClarification = "requires_clarification"
)

// Overall assessment statuses. Approved, rejected and failed are
// terminal; a terminal assessment stays queryable with its final
// stage records.
const (
	OverallPending               = "pending"
	OverallUnderReview           = "under_review"
	OverallFailed                = "failed"
	OverallRequiresClarification = "requires_clarification"
	OverallApproved              = "approved"
	OverallRejected              = "rejected"
)

// ChecklistItem is a boolean precondition a reviewer confirms before a
// stage decision is submittable.
type ChecklistItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// Attachment references a document held by the external storage
// collaborator. Paths are opaque to this service.
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// StageRecord holds everything one review unit produced for one stage.
// A record is submittable only when every required checklist item is
// checked and both decision and notes are non-empty.
type StageRecord struct {
	Status          string          `json:"status"`
	Checklist       []ChecklistItem `json:"checklist"`
	AssessmentNotes string          `json:"assessmentNotes"`
	Decision        Decision        `json:"decision,omitempty"`
	ReviewerID      uint            `json:"reviewerId,omitempty"`
	DecidedAt       *time.Time      `json:"decidedAt,omitempty"`
	Attachments     []Attachment    `json:"attachments,omitempty"`
	PaymentRef      string          `json:"paymentRef,omitempty"`
}

// StageRecordMap stores stage records keyed by stage name as one JSONB
// column. Records are owned exclusively by their assessment.
type StageRecordMap map[Stage]*StageRecord

func (m StageRecordMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *StageRecordMap) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("cannot scan stage records: not a byte slice")
	}
	return json.Unmarshal(bytes, m)
}

// ApplicationAssessment tracks one application's progress through the
// review chain. Version backs the optimistic concurrency check: two
// concurrent decision submissions for the same application never both
// commit.
type ApplicationAssessment struct {
	gorm.Model
	ApplicationID uint           `gorm:"uniqueIndex;not null"`
	CurrentStage  Stage          `gorm:"not null;default:'registry'"`
	OverallStatus string         `gorm:"not null;default:'pending'"`
	StageRecords  StageRecordMap `gorm:"type:jsonb"`
	Version       int            `gorm:"not null;default:1"`
}

// Terminal reports whether the assessment has reached a final status.
func (a *ApplicationAssessment) Terminal() bool {
	switch a.OverallStatus {
	case OverallApproved, OverallRejected, OverallFailed:
		return true
	}
	return false
}

// Record returns the stage record for s, creating the map on first use.
func (a *ApplicationAssessment) Record(s Stage) *StageRecord {
	if a.StageRecords == nil {
		a.StageRecords = make(StageRecordMap)
	}
	return a.StageRecords[s]
}
