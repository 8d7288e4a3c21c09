package dto

import (
	"time"

	"github.com/praxislab/praxis-api/internal/models"
)

// RubricLevelRequest is one achievable score inside a criterion.
type RubricLevelRequest struct {
	Score       float64 `json:"score" validate:"gte=0"`
	Description string  `json:"description" validate:"required,max=512"`
}

// RubricCriterionRequest is a weighted grading dimension.
type RubricCriterionRequest struct {
	Description string               `json:"description" validate:"required,max=512"`
	Weight      float64              `json:"weight" validate:"gt=0"`
	Levels      []RubricLevelRequest `json:"levels" validate:"required,min=1,dive"`
}

// RubricRequest creates or replaces a rubric definition.
type RubricRequest struct {
	Name        string                   `json:"name" validate:"required,max=255"`
	Description string                   `json:"description" validate:"omitempty,max=1024"`
	Criteria    []RubricCriterionRequest `json:"criteria" validate:"required,min=1,dive"`
}

// RubricResponse is the serialized rubric definition.
type RubricResponse struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Criteria    []RubricCriterionRequest `json:"criteria"`
	CreatedAt   time.Time                `json:"created_at,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at,omitempty"`
}

// ApproveQuestionRequest records a faculty decision on a question set.
type ApproveQuestionRequest struct {
	Approve   bool   `json:"approve"`
	Remarks   string `json:"remarks" validate:"omitempty,max=2000"`
	FacultyID string `json:"faculty_id" validate:"required,max=64"`
}

// ApprovalResponse is the review outcome for a question set.
type ApprovalResponse struct {
	ID             string `json:"id"`
	ApprovalStatus string `json:"approval_status"`
	Remarks        string `json:"remarks,omitempty"`
}

// EvaluateSubmissionRequest records a faculty rubric evaluation.
type EvaluateSubmissionRequest struct {
	CriteriaScores map[string]float64 `json:"criteria_scores" validate:"required,min=1"`
	Feedback       string             `json:"feedback" validate:"omitempty,max=4000"`
	FacultyID      string             `json:"faculty_id" validate:"required,max=64"`
}

// NewRubricResponse converts a rubric model into a DTO.
func NewRubricResponse(rubric models.Rubric) RubricResponse {
	response := RubricResponse{
		ID:          rubric.ID,
		Name:        rubric.Name,
		Description: rubric.Description,
		Criteria:    make([]RubricCriterionRequest, 0, len(rubric.Criteria)),
		CreatedAt:   rubric.CreatedAt,
		UpdatedAt:   rubric.UpdatedAt,
	}

	for _, criterion := range rubric.Criteria {
		levels := make([]RubricLevelRequest, 0, len(criterion.Levels))
		for _, level := range criterion.Levels {
			levels = append(levels, RubricLevelRequest{Score: level.Score, Description: level.Description})
		}
		response.Criteria = append(response.Criteria, RubricCriterionRequest{
			Description: criterion.Description,
			Weight:      criterion.Weight,
			Levels:      levels,
		})
	}

	return response
}

// NewRubricResponseSlice converts rubric models into DTOs.
func NewRubricResponseSlice(rubrics []models.Rubric) []RubricResponse {
	out := make([]RubricResponse, 0, len(rubrics))
	for _, rubric := range rubrics {
		out = append(out, NewRubricResponse(rubric))
	}
	return out
}
