package models

import "time"

// Corpus processing states reported by the upload service while past
// assignments are mined for questions in the background.
const (
	CorpusProcessing = "processing"
	CorpusCompleted  = "completed"
	CorpusFailed     = "failed"
)

// CorpusBatch is the acknowledgement for a faculty bulk upload of past
// assignments. Each uploaded file becomes a trackable assignment id.
type CorpusBatch struct {
	Message          string    `json:"message"`
	CourseTitle      string    `json:"course_title"`
	CourseCode       string    `json:"course_code"`
	AcademicYear     string    `json:"academic_year"`
	Semester         int       `json:"semester"`
	UploadedFiles    []string  `json:"uploaded_files"`
	AssignmentIDs    []string  `json:"assignment_ids"`
	ProcessingStatus string    `json:"processing_status"`
	Timestamp        time.Time `json:"timestamp"`
}

// CorpusStatus is the polled processing state of one past assignment.
type CorpusStatus struct {
	AssignmentID  string    `json:"assignment_id"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
