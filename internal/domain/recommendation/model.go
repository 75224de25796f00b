package recommendation

// Priority of a ClinicalRecommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ClinicalRecommendation is one step of an ordered recommendation list.
// GuidelineReference is free text used for gap reporting and training needs.
type ClinicalRecommendation struct {
	Action             string   `json:"action" validate:"required"`
	Dosage             string   `json:"dosage,omitempty"`
	Rationale          string   `json:"rationale"`
	Priority           Priority `json:"priority" validate:"required,oneof=critical high medium low"`
	GuidelineReference string   `json:"guideline_reference"`
}

// ComplianceReport is the result of comparing recommendations with the
// actions a team performed.
type ComplianceReport struct {
	Score         float64                  `json:"score"`
	CriticalCount int                      `json:"critical_count"`
	HighCount     int                      `json:"high_count"`
	Matched       int                      `json:"matched"`
	Gaps          []ClinicalRecommendation `json:"gaps"`
	TrainingNeeds []string                 `json:"training_needs"`
}
