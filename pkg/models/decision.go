package models

import (
	"time"
)

// DecisionType identifies the kind of technical decision recorded.
type DecisionType string

const (
	DecisionTypeArchitecture   DecisionType = "architecture"
	DecisionTypeLibrary        DecisionType = "library"
	DecisionTypeFramework      DecisionType = "framework"
	DecisionTypeDatabase       DecisionType = "database"
	DecisionTypeAPIDesign      DecisionType = "api_design"
	DecisionTypeNamingStandard DecisionType = "naming_convention"
	DecisionTypeCodeStyle      DecisionType = "code_style"
	DecisionTypeTesting        DecisionType = "testing"
	DecisionTypeDeployment     DecisionType = "deployment"
	DecisionTypeSecurity       DecisionType = "security"
	DecisionTypePerformance    DecisionType = "performance"
	DecisionTypeUIUX           DecisionType = "ui_ux"
	DecisionTypeDataModel      DecisionType = "data_model"
	DecisionTypeToolChoice     DecisionType = "tool_choice"
	DecisionTypeProcess        DecisionType = "process"
)

// DecisionTypes lists every valid decision type.
var DecisionTypes = []DecisionType{
	DecisionTypeArchitecture,
	DecisionTypeLibrary,
	DecisionTypeFramework,
	DecisionTypeDatabase,
	DecisionTypeAPIDesign,
	DecisionTypeNamingStandard,
	DecisionTypeCodeStyle,
	DecisionTypeTesting,
	DecisionTypeDeployment,
	DecisionTypeSecurity,
	DecisionTypePerformance,
	DecisionTypeUIUX,
	DecisionTypeDataModel,
	DecisionTypeToolChoice,
	DecisionTypeProcess,
}

// ValidDecisionType reports whether t is a member of the closed type set.
func ValidDecisionType(t DecisionType) bool {
	for _, known := range DecisionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ImpactLevel grades how far a decision reaches.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// ValidImpactLevel reports whether l is a known impact level.
func ValidImpactLevel(l ImpactLevel) bool {
	switch l {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
		return true
	}
	return false
}

// OutcomeStatus records how a decision worked out.
type OutcomeStatus string

const (
	OutcomeUnknown    OutcomeStatus = "unknown"
	OutcomeSuccessful OutcomeStatus = "successful"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeMixed      OutcomeStatus = "mixed"
	OutcomeTooEarly   OutcomeStatus = "too_early"
)

// ValidOutcomeStatus reports whether s is a known outcome status.
func ValidOutcomeStatus(s OutcomeStatus) bool {
	switch s {
	case OutcomeUnknown, OutcomeSuccessful, OutcomeFailed, OutcomeMixed, OutcomeTooEarly:
		return true
	}
	return false
}

// Alternative is one rejected option considered for a decision.
type Alternative struct {
	Name           string   `json:"name"`
	Pros           []string `json:"pros,omitempty"`
	Cons           []string `json:"cons,omitempty"`
	ReasonRejected string   `json:"reasonRejected,omitempty"`
}

// Decision is a recorded technical choice. Once created, only the outcome
// fields (OutcomeStatus, OutcomeNotes, LessonsLearned) may change.
type Decision struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	Type        DecisionType `json:"decision_type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Rationale   string       `json:"rationale"`
	ImpactLevel ImpactLevel  `json:"impact_level"`

	// AlternativesConsidered lists the options that were rejected.
	AlternativesConsidered []Alternative `json:"alternatives_considered,omitempty"`

	// ProblemStatement is the problem the decision addresses.
	ProblemStatement string `json:"problem_statement,omitempty"`

	// AffectedComponents lists the components touched by the decision.
	AffectedComponents []string `json:"affected_components,omitempty"`

	Tags []string `json:"tags,omitempty"`

	// Outcome fields, appendable via decision_update.
	OutcomeStatus  OutcomeStatus `json:"outcome_status"`
	OutcomeNotes   string        `json:"outcome_notes,omitempty"`
	LessonsLearned string        `json:"lessons_learned,omitempty"`

	DecisionDate time.Time `json:"decision_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DecisionStats summarizes the decisions of one project.
type DecisionStats struct {
	TotalDecisions int                   `json:"total_decisions"`
	ByType         map[DecisionType]int  `json:"by_type"`
	ByStatus       map[OutcomeStatus]int `json:"by_status"`
	ByImpact       map[ImpactLevel]int   `json:"by_impact"`

	// SuccessRate is successful / (successful + failed + mixed) as a
	// percentage. Decisions with unknown or too_early outcomes are excluded.
	SuccessRate float64 `json:"success_rate"`
}
