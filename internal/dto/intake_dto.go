package dto

import "github.com/praxislab/praxis-api/internal/models"

// OpenIntakeRequest starts a new file intake session.
type OpenIntakeRequest struct {
	Flow string `json:"flow" validate:"required,oneof=student corpus"`
}

// ProcessIntakeRequest sends the session's files for text extraction.
type ProcessIntakeRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required,max=64"`
	StudentID    string `json:"student_id" validate:"required,max=64"`
}

// ArtifactResponse is the per-file state inside an intake session.
type ArtifactResponse struct {
	ID               string  `json:"id"`
	FileName         string  `json:"file_name"`
	FileSize         int64   `json:"file_size"`
	ContentType      string  `json:"content_type,omitempty"`
	ProcessingStatus string  `json:"processing_status"`
	Preview          string  `json:"preview,omitempty"`
	ExtractionMethod string  `json:"extraction_method,omitempty"`
	OCRConfidence    float64 `json:"ocr_confidence,omitempty"`
	LowConfidence    bool    `json:"low_confidence,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// IntakeSessionResponse is the serialized state of an intake session.
type IntakeSessionResponse struct {
	SessionID  string             `json:"session_id"`
	Flow       string             `json:"flow"`
	MaxFiles   int                `json:"max_files"`
	StatusLine string             `json:"status_line,omitempty"`
	StatusKind string             `json:"status_kind,omitempty"`
	Artifacts  []ArtifactResponse `json:"artifacts"`
}

// CorpusUploadRequest carries the course metadata attached to a
// past-assignment batch.
type CorpusUploadRequest struct {
	CourseTitle  string `json:"course_title" validate:"required,max=255"`
	CourseCode   string `json:"course_code" validate:"required,max=64"`
	AcademicYear string `json:"academic_year" validate:"required,max=16"`
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
}

// SubmittedArtifact carries the resolved text handed to the evaluation flow.
type SubmittedArtifact struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// IntakeSubmitResponse is the handoff produced when an intake session is submitted.
type IntakeSubmitResponse struct {
	SessionID string              `json:"session_id"`
	Artifacts []SubmittedArtifact `json:"artifacts"`
}

// CorpusUploadResponse acknowledges a faculty past-assignment batch.
type CorpusUploadResponse struct {
	Message          string   `json:"message"`
	CourseTitle      string   `json:"course_title"`
	CourseCode       string   `json:"course_code"`
	AcademicYear     string   `json:"academic_year"`
	Semester         int      `json:"semester"`
	UploadedFiles    []string `json:"uploaded_files"`
	AssignmentIDs    []string `json:"assignment_ids"`
	ProcessingStatus string   `json:"processing_status"`
}

// CorpusStatusResponse is the polled state of one past assignment.
type CorpusStatusResponse struct {
	AssignmentID  string `json:"assignment_id"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message,omitempty"`
	QuestionCount int    `json:"question_count"`
}

// NewArtifactResponse converts an artifact model into a DTO. The low
// confidence flag is derived, not stored.
func NewArtifactResponse(artifact models.SubmissionArtifact, lowConfidence bool) ArtifactResponse {
	return ArtifactResponse{
		ID:               artifact.ID,
		FileName:         artifact.FileName,
		FileSize:         artifact.FileSize,
		ContentType:      artifact.ContentType,
		ProcessingStatus: artifact.ProcessingStatus,
		Preview:          artifact.Preview,
		ExtractionMethod: artifact.ExtractionMethod,
		OCRConfidence:    artifact.OCRConfidence,
		LowConfidence:    lowConfidence,
		Error:            artifact.Error,
	}
}
