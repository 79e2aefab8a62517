package assessment

import "envpermit/internal/models"

// outcome classifies what a decision does to the workflow.
type outcome int

const (
	// outcomeAdvance completes the stage and moves to the next one.
	outcomeAdvance outcome = iota
	// outcomeHalt completes the stage and terminates the assessment.
	outcomeHalt
	// outcomeClarify returns the application to the applicant. The stage
	// re-opens once resubmission occurs; this is the only backward edge.
	outcomeClarify
	// outcomeHold records the decision but keeps the stage under review.
	outcomeHold
)

// stageRoles maps each stage to the unit roles allowed to decide it.
// Admin is accepted everywhere.
var stageRoles = map[models.Stage][]string{
	models.StageRegistry:        {models.RoleRegistry, models.RoleAdmin},
	models.StageCompliance:      {models.RoleCompliance, models.RoleAdmin},
	models.StageInvoicePayments: {models.RoleFinance, models.RoleAdmin},
	models.StageManagingDir:     {models.RoleDirector, models.RoleAdmin},
}

func roleAuthorized(stage models.Stage, role string) bool {
	for _, r := range stageRoles[stage] {
		if r == role {
			return true
		}
	}
	return false
}

// decisionRule is the transition table entry for one (stage, decision)
// pair. OverallStatus applies only to halting outcomes.
type decisionRule struct {
	Outcome       outcome
	OverallStatus string
	Title         string
	Message       string
}

var decisionRules = map[models.Stage]map[models.Decision]decisionRule{
	models.StageRegistry: {
		models.DecisionApproved: {
			Outcome: outcomeAdvance,
			Title:   "Registry review passed",
			Message: "Your application passed registry review and moves to compliance assessment.",
		},
		models.DecisionRequiresInfo: {
			Outcome: outcomeClarify,
			Title:   "Further information required",
			Message: "The registry unit needs additional information before your application can proceed.",
		},
		models.DecisionRejected: {
			Outcome:       outcomeHalt,
			OverallStatus: models.OverallRejected,
			Title:         "Application rejected",
			Message:       "Your application was rejected at registry review.",
		},
	},
	models.StageCompliance: {
		models.DecisionCompliant: {
			Outcome: outcomeAdvance,
			Title:   "Compliance assessment passed",
			Message: "Your application was found compliant and moves to invoicing.",
		},
		models.DecisionConditional: {
			Outcome: outcomeAdvance,
			Title:   "Conditionally compliant",
			Message: "Your application is compliant subject to conditions and moves to invoicing.",
		},
		models.DecisionRequiresInspection: {
			Outcome: outcomeHold,
			Title:   "Site inspection scheduled",
			Message: "A site inspection is required before the compliance assessment can conclude.",
		},
		models.DecisionNonCompliant: {
			Outcome:       outcomeHalt,
			OverallStatus: models.OverallFailed,
			Title:         "Compliance assessment failed",
			Message:       "Your application did not meet compliance requirements.",
		},
	},
	models.StageInvoicePayments: {
		models.DecisionPaymentPending: {
			Outcome: outcomeHold,
			Title:   "Invoice pending",
			Message: "Your permit fee invoice is being prepared.",
		},
		models.DecisionInvoiced: {
			Outcome: outcomeHold,
			Title:   "Invoice issued",
			Message: "Your permit fee invoice has been issued and awaits payment.",
		},
		models.DecisionPartial: {
			Outcome: outcomeHold,
			Title:   "Partial payment received",
			Message: "A partial payment was received; the balance remains outstanding.",
		},
		models.DecisionPaid: {
			Outcome: outcomeAdvance,
			Title:   "Payment confirmed",
			Message: "Your permit fee payment was confirmed; the application moves to final approval.",
		},
		models.DecisionWaived: {
			Outcome: outcomeAdvance,
			Title:   "Fee waived",
			Message: "Your permit fee was waived; the application moves to final approval.",
		},
	},
	models.StageManagingDir: {
		models.DecisionApproved: {
			Outcome:       outcomeAdvance,
			OverallStatus: models.OverallApproved,
			Title:         "Permit approved",
			Message:       "Your permit application has been approved by the Managing Director.",
		},
		models.DecisionApprovedWithConditions: {
			Outcome:       outcomeAdvance,
			OverallStatus: models.OverallApproved,
			Title:         "Permit approved with conditions",
			Message:       "Your permit application has been approved subject to conditions.",
		},
		models.DecisionDeferred: {
			Outcome: outcomeHold,
			Title:   "Decision deferred",
			Message: "The final decision on your application has been deferred.",
		},
		models.DecisionRejected: {
			Outcome:       outcomeHalt,
			OverallStatus: models.OverallRejected,
			Title:         "Permit refused",
			Message:       "Your permit application was refused by the Managing Director.",
		},
	},
}

// checklistTemplates holds the required checklist items per stage. Every
// item listed here must be checked before the stage is submittable.
var checklistTemplates = map[models.Stage][]models.ChecklistItem{
	models.StageRegistry: {
		{ID: "reg-form-complete", Label: "Application form complete and signed"},
		{ID: "reg-fee-quoted", Label: "Prescribed fee computed and quoted"},
		{ID: "reg-documents", Label: "Required supporting documents attached"},
	},
	models.StageCompliance: {
		{ID: "cmp-history", Label: "Compliance history of applicant reviewed"},
		{ID: "cmp-standards", Label: "Proposal assessed against environmental standards"},
		{ID: "cmp-site-report", Label: "Site assessment report on file"},
	},
	models.StageInvoicePayments: {
		{ID: "inv-raised", Label: "Fee invoice raised for assessed amount"},
		{ID: "inv-reconciled", Label: "Payments reconciled against invoice"},
	},
	models.StageManagingDir: {
		{ID: "md-registry", Label: "Registry stage outcome reviewed"},
		{ID: "md-compliance", Label: "Compliance stage outcome reviewed"},
		{ID: "md-payment", Label: "Fee payment status confirmed"},
	},
}

// newStageRecord builds a pending record with the stage's checklist
// template, all items unchecked.
func newStageRecord(stage models.Stage) *models.StageRecord {
	template := checklistTemplates[stage]
	checklist := make([]models.ChecklistItem, len(template))
	copy(checklist, template)
	return &models.StageRecord{
		Status:    models.StageStatusPending,
		Checklist: checklist,
	}
}

// paymentSettled reports whether the invoice stage closed with a
// decision that clears the fee.
func paymentSettled(record *models.StageRecord) bool {
	if record == nil {
		return false
	}
	return record.Decision == models.DecisionPaid || record.Decision == models.DecisionWaived
}
