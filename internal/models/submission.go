package models

import "time"

const (
	// SubmissionStatusDraft indicates the submission is still being worked on.
	SubmissionStatusDraft = "draft"
	// SubmissionStatusSubmittedToFaculty indicates the submission was handed over for review.
	SubmissionStatusSubmittedToFaculty = "submitted_to_faculty"
)

// SWOTAnalysis captures one strengths/weaknesses/opportunities/threats review
// of a submission draft.
type SWOTAnalysis struct {
	Strengths     []string  `json:"strengths"`
	Weaknesses    []string  `json:"weaknesses"`
	Opportunities []string  `json:"opportunities"`
	Threats       []string  `json:"threats"`
	Suggestions   []string  `json:"suggestions"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
}

// RubricScore is one criterion result inside a faculty evaluation.
type RubricScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
}

// FacultyEvaluation holds the rubric-based review of a submitted work.
type FacultyEvaluation struct {
	RubricScores []RubricScore `json:"rubric_scores"`
	Comments     string        `json:"comments"`
	EvaluatedBy  string        `json:"evaluated_by,omitempty"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
}

// Submission represents a student's written work for one assignment.
type Submission struct {
	ID                string             `json:"id"`
	StudentID         string             `json:"student_id"`
	AssignmentID      string             `json:"assignment_id"`
	AssignmentTitle   string             `json:"assignment_title,omitempty"`
	CourseName        string             `json:"course_name,omitempty"`
	Content           string             `json:"content"`
	Status            string             `json:"status"`
	SWOTAnalyses      []SWOTAnalysis     `json:"swot_analyses"`
	FacultyEvaluation *FacultyEvaluation `json:"faculty_evaluation,omitempty"`
	SubmittedAt       *time.Time         `json:"submitted_at,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Submitted reports whether the submission has been handed to faculty.
func (s Submission) Submitted() bool {
	return s.Status == SubmissionStatusSubmittedToFaculty
}
