package dto

import (
	"time"

	"github.com/praxislab/praxis-api/internal/models"
)

// GenerateQuestionsRequest asks for a fresh question set. Topics and handouts
// arrive as comma-separated text from the form UI and are split server-side.
type GenerateQuestionsRequest struct {
	StudentID       string `json:"student_id" validate:"required,max=64"`
	CourseID        string `json:"course_id" validate:"omitempty,max=64"`
	CourseName      string `json:"course_name" validate:"omitempty,max=255"`
	Domain          string `json:"domain" validate:"required,max=128"`
	ServiceCategory string `json:"service_category" validate:"omitempty,max=128"`
	Department      string `json:"department" validate:"omitempty,max=128"`
	Topics          string `json:"topics" validate:"omitempty,max=1024"`
	Handouts        string `json:"handouts" validate:"omitempty,max=1024"`
}

// SelectQuestionRequest records which generated question the student picked.
type SelectQuestionRequest struct {
	SelectedQuestion string `json:"selected_question" validate:"required"`
}

// SaveAssignmentRequest commits an approved question as a working assignment.
type SaveAssignmentRequest struct {
	QuestionSetID  string `json:"question_set_id" validate:"required,max=64"`
	StudentID      string `json:"student_id" validate:"required,max=64"`
	AssignmentName string `json:"assignment_name" validate:"required,max=255"`
	CourseName     string `json:"course_name" validate:"omitempty,max=255"`
}

// QuestionSetResponse is the serialized question set state.
type QuestionSetResponse struct {
	ID                 string    `json:"id"`
	StudentID          string    `json:"student_id"`
	Domain             string    `json:"domain"`
	ServiceCategory    string    `json:"service_category,omitempty"`
	Department         string    `json:"department,omitempty"`
	Topics             []string  `json:"topics,omitempty"`
	Handouts           []string  `json:"handouts,omitempty"`
	GeneratedQuestions []string  `json:"generated_questions"`
	SelectedQuestion   string    `json:"selected_question,omitempty"`
	ApprovalStatus     string    `json:"approval_status"`
	FacultyRemarks     string    `json:"faculty_remarks,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// StatusRefreshResponse is the outcome of a status poll.
type StatusRefreshResponse struct {
	ID             string `json:"id"`
	ApprovalStatus string `json:"approval_status"`
	FacultyRemarks string `json:"faculty_remarks,omitempty"`
	Transitioned   bool   `json:"transitioned"`
}

// SaveResultResponse acknowledges a successful save.
type SaveResultResponse struct {
	Message       string `json:"message"`
	AssignmentID  string `json:"assignment_id"`
	QuestionSetID string `json:"question_set_id"`
}

// SavedAssignmentResponse is one committed assignment.
type SavedAssignmentResponse struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id,omitempty"`
	Title          string    `json:"title"`
	AssignmentName string    `json:"assignment_name"`
	Description    string    `json:"description"`
	Domain         string    `json:"domain,omitempty"`
	CourseName     string    `json:"course_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ContextOptionsResponse lists the dropdown options for the generation form.
type ContextOptionsResponse struct {
	Domains           []string `json:"domains"`
	ServiceCategories []string `json:"service_categories"`
	Departments       []string `json:"departments"`
}

// CourseResponse is one course option.
type CourseResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CourseCode string `json:"course_code"`
}

// NewQuestionSetResponse converts a question set model into a DTO.
func NewQuestionSetResponse(set models.QuestionSet) QuestionSetResponse {
	return QuestionSetResponse{
		ID:                 set.ID,
		StudentID:          set.StudentID,
		Domain:             set.Domain,
		ServiceCategory:    set.ServiceCategory,
		Department:         set.Department,
		Topics:             set.Topics,
		Handouts:           set.Handouts,
		GeneratedQuestions: set.GeneratedQuestions,
		SelectedQuestion:   set.SelectedQuestion,
		ApprovalStatus:     string(set.ApprovalStatus),
		FacultyRemarks:     set.FacultyRemarks,
		CreatedAt:          set.CreatedAt,
	}
}

// NewQuestionSetResponseSlice converts question set models into DTOs.
func NewQuestionSetResponseSlice(sets []models.QuestionSet) []QuestionSetResponse {
	out := make([]QuestionSetResponse, 0, len(sets))
	for _, set := range sets {
		out = append(out, NewQuestionSetResponse(set))
	}
	return out
}

// NewSavedAssignmentResponse converts a saved assignment model into a DTO.
func NewSavedAssignmentResponse(saved models.SavedAssignment) SavedAssignmentResponse {
	return SavedAssignmentResponse{
		ID:             saved.ID,
		StudentID:      saved.StudentID,
		Title:          saved.Title,
		AssignmentName: saved.AssignmentName,
		Description:    saved.Description,
		Domain:         saved.Domain,
		CourseName:     saved.CourseName,
		CreatedAt:      saved.CreatedAt,
	}
}

// NewSavedAssignmentResponseSlice converts saved assignment models into DTOs.
func NewSavedAssignmentResponseSlice(saved []models.SavedAssignment) []SavedAssignmentResponse {
	out := make([]SavedAssignmentResponse, 0, len(saved))
	for _, entry := range saved {
		out = append(out, NewSavedAssignmentResponse(entry))
	}
	return out
}
