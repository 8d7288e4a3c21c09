package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// GenerateRequest asks the generation group for a fresh question set.
type GenerateRequest struct {
	StudentID       string   `json:"student_id"`
	CourseID        string   `json:"course_id,omitempty"`
	CourseName      string   `json:"course_name,omitempty"`
	Domain          string   `json:"domain"`
	ServiceCategory string   `json:"service_category,omitempty"`
	Department      string   `json:"department,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	Handouts        []string `json:"handouts,omitempty"`
}

// QuestionSetPayload is the generation group's representation of a question set.
type QuestionSetPayload struct {
	ID                 string    `json:"id"`
	StudentID          string    `json:"student_id"`
	Domain             string    `json:"domain"`
	ServiceCategory    string    `json:"service_category"`
	Department         string    `json:"department"`
	Topics             []string  `json:"topics"`
	Handouts           []string  `json:"handouts"`
	GeneratedQuestions []string  `json:"generated_questions"`
	SelectedQuestion   string    `json:"selected_question"`
	ApprovalStatus     string    `json:"approval_status"`
	FacultyRemarks     string    `json:"faculty_remarks"`
	CreatedAt          time.Time `json:"created_at"`
}

// StatusPayload is the review status readout for one question set.
type StatusPayload struct {
	ID                 string   `json:"id"`
	GeneratedQuestions []string `json:"generated_questions"`
	SelectedQuestion   string   `json:"selected_question"`
	ApprovalStatus     string   `json:"approval_status"`
	FacultyRemarks     string   `json:"faculty_remarks"`
}

// SaveAssignmentRequest commits an approved question as a working assignment.
type SaveAssignmentRequest struct {
	QuestionSetID  string `json:"question_set_id"`
	StudentID      string `json:"student_id"`
	AssignmentName string `json:"assignment_name"`
	CourseName     string `json:"course_name"`
}

// SavedAssignmentPayload is the generation group's saved assignment record.
type SavedAssignmentPayload struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	AssignmentName string    `json:"assignment_name"`
	Domain         string    `json:"domain"`
	CourseName     string    `json:"course_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// SaveResultPayload acknowledges a save without echoing the full record.
type SaveResultPayload struct {
	Message       string `json:"message"`
	AssignmentID  string `json:"assignment_id"`
	QuestionSetID string `json:"question_set_id"`
}

// ApproveRequest records a faculty review decision.
type ApproveRequest struct {
	Approve   bool   `json:"approve"`
	Remarks   string `json:"remarks,omitempty"`
	FacultyID string `json:"faculty_id"`
}

// CoursePayload is one course option offered to students.
type CoursePayload struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CourseCode string `json:"course_code"`
}

// Generate creates a new question set.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (QuestionSetPayload, error) {
	var out QuestionSetPayload
	err := c.sendJSON(ctx, GroupGeneration, "generate", http.MethodPost, "/generate", req, &out)
	return out, err
}

// Select records the student's chosen question on the question set.
func (c *Client) Select(ctx context.Context, id, question string) (QuestionSetPayload, error) {
	var out QuestionSetPayload
	body := map[string]string{"selected_question": question}
	err := c.sendJSON(ctx, GroupGeneration, "select", http.MethodPut, "/"+url.PathEscape(id)+"/select", body, &out)
	return out, err
}

// Status fetches the current review status of a question set.
func (c *Client) Status(ctx context.Context, id string) (StatusPayload, error) {
	var out StatusPayload
	err := c.getJSON(ctx, GroupGeneration, "status", "/"+url.PathEscape(id)+"/status", &out)
	return out, err
}

// SaveAssignment persists an approved question for the student.
func (c *Client) SaveAssignment(ctx context.Context, req SaveAssignmentRequest) (SaveResultPayload, error) {
	var out SaveResultPayload
	err := c.sendJSON(ctx, GroupGeneration, "save_assignment", http.MethodPost, "/assignments/save", req, &out)
	return out, err
}

// ListAssignments returns the student's saved assignments.
func (c *Client) ListAssignments(ctx context.Context, studentID string) ([]SavedAssignmentPayload, error) {
	var out []SavedAssignmentPayload
	path := "/assignments?student_id=" + url.QueryEscape(studentID)
	err := c.getJSON(ctx, GroupGeneration, "list_assignments", path, &out)
	return out, err
}

// ListQuestionSets returns question sets filtered by approval status.
func (c *Client) ListQuestionSets(ctx context.Context, status string) ([]QuestionSetPayload, error) {
	var out []QuestionSetPayload
	path := "/questions"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	err := c.getJSON(ctx, GroupGeneration, "list_question_sets", path, &out)
	return out, err
}

// Approve records a faculty decision on a question set.
func (c *Client) Approve(ctx context.Context, id string, req ApproveRequest) (StatusPayload, error) {
	var out StatusPayload
	err := c.sendJSON(ctx, GroupGeneration, "approve", http.MethodPut, "/"+url.PathEscape(id)+"/approve", req, &out)
	return out, err
}

// Courses lists the course options students can attach assignments to.
func (c *Client) Courses(ctx context.Context) ([]CoursePayload, error) {
	var out []CoursePayload
	err := c.getJSON(ctx, GroupGeneration, "courses", "/courses", &out)
	return out, err
}
