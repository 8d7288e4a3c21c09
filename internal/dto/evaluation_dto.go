package dto

import (
	"time"

	"github.com/praxislab/praxis-api/internal/models"
)

// AnalyzeRequest asks for a SWOT review of a draft submission.
type AnalyzeRequest struct {
	StudentID    string `json:"student_id" validate:"required,max=64"`
	AssignmentID string `json:"assignment_id" validate:"required,max=64"`
	Content      string `json:"content" validate:"required"`
	SubmissionID string `json:"submission_id" validate:"omitempty,max=64"`
}

// AnalyzeResponse is the SWOT result with the tracked submission id.
type AnalyzeResponse struct {
	SubmissionID  string   `json:"submission_id"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// SubmitToFacultyRequest hands a draft submission over for review.
type SubmitToFacultyRequest struct {
	StudentID    string `json:"student_id" validate:"required,max=64"`
	SubmissionID string `json:"submission_id" validate:"required,max=64"`
}

// SWOTAnalysisResponse is one stored SWOT analysis.
type SWOTAnalysisResponse struct {
	Strengths     []string  `json:"strengths"`
	Weaknesses    []string  `json:"weaknesses"`
	Opportunities []string  `json:"opportunities"`
	Threats       []string  `json:"threats"`
	Suggestions   []string  `json:"suggestions,omitempty"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
}

// RubricScoreResponse is one criterion result of a faculty evaluation.
type RubricScoreResponse struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
}

// FacultyEvaluationResponse is the rubric review attached to a submission.
type FacultyEvaluationResponse struct {
	RubricScores []RubricScoreResponse `json:"rubric_scores"`
	Comments     string                `json:"comments"`
	EvaluatedBy  string                `json:"evaluated_by,omitempty"`
	EvaluatedAt  time.Time             `json:"evaluated_at"`
}

// SubmissionResponse is the serialized submission state.
type SubmissionResponse struct {
	ID                string                     `json:"id"`
	StudentID         string                     `json:"student_id"`
	AssignmentID      string                     `json:"assignment_id"`
	AssignmentTitle   string                     `json:"assignment_title,omitempty"`
	CourseName        string                     `json:"course_name,omitempty"`
	Content           string                     `json:"content"`
	Status            string                     `json:"status"`
	SWOTAnalyses      []SWOTAnalysisResponse     `json:"swot_analyses"`
	FacultyEvaluation *FacultyEvaluationResponse `json:"faculty_evaluation,omitempty"`
	SubmittedAt       *time.Time                 `json:"submitted_at,omitempty"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// NewSubmissionResponse converts a submission model into a DTO.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              submission.ID,
		StudentID:       submission.StudentID,
		AssignmentID:    submission.AssignmentID,
		AssignmentTitle: submission.AssignmentTitle,
		CourseName:      submission.CourseName,
		Content:         submission.Content,
		Status:          submission.Status,
		SWOTAnalyses:    make([]SWOTAnalysisResponse, 0, len(submission.SWOTAnalyses)),
		SubmittedAt:     submission.SubmittedAt,
		UpdatedAt:       submission.UpdatedAt,
	}

	for _, analysis := range submission.SWOTAnalyses {
		response.SWOTAnalyses = append(response.SWOTAnalyses, SWOTAnalysisResponse{
			Strengths:     analysis.Strengths,
			Weaknesses:    analysis.Weaknesses,
			Opportunities: analysis.Opportunities,
			Threats:       analysis.Threats,
			Suggestions:   analysis.Suggestions,
			AnalyzedAt:    analysis.AnalyzedAt,
		})
	}

	if submission.FacultyEvaluation != nil {
		evaluation := FacultyEvaluationResponse{
			Comments:     submission.FacultyEvaluation.Comments,
			EvaluatedBy:  submission.FacultyEvaluation.EvaluatedBy,
			EvaluatedAt:  submission.FacultyEvaluation.EvaluatedAt,
			RubricScores: make([]RubricScoreResponse, 0, len(submission.FacultyEvaluation.RubricScores)),
		}
		for _, score := range submission.FacultyEvaluation.RubricScores {
			evaluation.RubricScores = append(evaluation.RubricScores, RubricScoreResponse{
				Criterion: score.Criterion,
				Score:     score.Score,
				MaxScore:  score.MaxScore,
			})
		}
		response.FacultyEvaluation = &evaluation
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		out = append(out, NewSubmissionResponse(submission))
	}
	return out
}
