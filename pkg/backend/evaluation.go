package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// AnalyzeRequest asks the evaluation group for a SWOT review of draft content.
// SubmissionID is included whenever the caller already tracks one.
type AnalyzeRequest struct {
	StudentID    string `json:"student_id"`
	AssignmentID string `json:"assignment_id"`
	Content      string `json:"content"`
	SubmissionID string `json:"submission_id,omitempty"`
}

// AnalyzePayload is the SWOT result returned by the evaluation group.
type AnalyzePayload struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
	Suggestions   []string `json:"suggestions"`
	SubmissionID  string   `json:"submission_id"`
}

// SWOTPayload is one stored SWOT analysis inside a submission record.
type SWOTPayload struct {
	Strengths     []string   `json:"strengths"`
	Weaknesses    []string   `json:"weaknesses"`
	Opportunities []string   `json:"opportunities"`
	Threats       []string   `json:"threats"`
	Suggestions   []string   `json:"suggestions"`
	AnalysisDate  *time.Time `json:"analysis_date"`
}

// RubricScorePayload is one criterion result in a faculty evaluation.
type RubricScorePayload struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
}

// FacultyEvaluationPayload is the rubric-based review attached to a submission.
type FacultyEvaluationPayload struct {
	RubricScores []RubricScorePayload `json:"rubric_scores"`
	Comments     string               `json:"comments"`
	EvaluatedBy  string               `json:"evaluated_by"`
	EvaluatedAt  *time.Time           `json:"evaluated_at"`
}

// SubmissionPayload is the evaluation group's submission record.
type SubmissionPayload struct {
	ID                string                    `json:"id"`
	StudentID         string                    `json:"student_id"`
	AssignmentID      string                    `json:"assignment_id"`
	AssignmentTitle   string                    `json:"assignment_title"`
	CourseName        string                    `json:"course_name"`
	Content           string                    `json:"content"`
	Status            string                    `json:"status"`
	SWOTAnalyses      []SWOTPayload             `json:"swot_analyses"`
	FacultyEvaluation *FacultyEvaluationPayload `json:"faculty_evaluation"`
	SubmittedAt       *time.Time                `json:"submitted_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// EvaluateRequest records a faculty rubric evaluation of one submission.
type EvaluateRequest struct {
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback"`
	FacultyID      string             `json:"faculty_id"`
}

// RubricPayload is the evaluation group's rubric definition.
type RubricPayload struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Criteria    []RubricCriterionInput `json:"criteria"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// RubricCriterionInput is one weighted criterion with its score levels.
type RubricCriterionInput struct {
	Description string             `json:"description"`
	Weight      float64            `json:"weight"`
	Levels      []RubricLevelInput `json:"levels"`
}

// RubricLevelInput is one achievable score inside a criterion.
type RubricLevelInput struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// RubricRequest creates or replaces a rubric definition.
type RubricRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Criteria    []RubricCriterionInput `json:"criteria"`
}

// MessagePayload is a bare acknowledgement from the evaluation group.
type MessagePayload struct {
	Message string `json:"message"`
}

// Analyze requests a SWOT review. The response is schema-checked before
// decoding because the result is folded into tracked submission state.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzePayload, error) {
	var raw json.RawMessage
	if err := c.sendJSON(ctx, GroupEvaluation, "analyze", http.MethodPost, "/analyze", req, &raw); err != nil {
		return AnalyzePayload{}, err
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return AnalyzePayload{}, &RemoteError{Op: "analyze", StatusCode: http.StatusOK, Detail: "malformed response payload"}
	}
	if err := analyzeResponseSchema.Validate(value); err != nil {
		c.logger.Warn().Err(err).Msg("analyze response failed schema validation")
		return AnalyzePayload{}, &RemoteError{Op: "analyze", StatusCode: http.StatusOK, Detail: "unexpected response shape from evaluation service"}
	}

	var out AnalyzePayload
	if err := json.Unmarshal(raw, &out); err != nil {
		return AnalyzePayload{}, &RemoteError{Op: "analyze", StatusCode: http.StatusOK, Detail: "malformed response payload"}
	}
	return out, nil
}

// SubmitToFaculty hands a draft submission over for review.
func (c *Client) SubmitToFaculty(ctx context.Context, studentID, submissionID string) (MessagePayload, error) {
	var out MessagePayload
	body := map[string]string{"student_id": studentID, "submission_id": submissionID}
	err := c.sendJSON(ctx, GroupEvaluation, "submit_to_faculty", http.MethodPost, "/submit-to-faculty", body, &out)
	return out, err
}

// MySubmissions returns the student's submission history.
func (c *Client) MySubmissions(ctx context.Context, studentID string) ([]SubmissionPayload, error) {
	var out []SubmissionPayload
	err := c.getJSON(ctx, GroupEvaluation, "my_submissions", "/my-submissions/"+url.PathEscape(studentID), &out)
	return out, err
}

// PendingSubmissions lists submissions awaiting faculty review.
func (c *Client) PendingSubmissions(ctx context.Context) ([]SubmissionPayload, error) {
	var out []SubmissionPayload
	err := c.getJSON(ctx, GroupEvaluation, "pending_submissions", "/submissions/pending", &out)
	return out, err
}

// Evaluate stores a faculty rubric evaluation for one submission.
func (c *Client) Evaluate(ctx context.Context, submissionID string, req EvaluateRequest) (SubmissionPayload, error) {
	var out SubmissionPayload
	path := "/submissions/" + url.PathEscape(submissionID) + "/evaluate"
	err := c.sendJSON(ctx, GroupEvaluation, "evaluate", http.MethodPost, path, req, &out)
	return out, err
}

// ListRubrics returns all rubric definitions.
func (c *Client) ListRubrics(ctx context.Context) ([]RubricPayload, error) {
	var out []RubricPayload
	err := c.getJSON(ctx, GroupEvaluation, "list_rubrics", "/rubrics", &out)
	return out, err
}

// CreateRubric stores a new rubric definition.
func (c *Client) CreateRubric(ctx context.Context, req RubricRequest) (RubricPayload, error) {
	var out RubricPayload
	err := c.sendJSON(ctx, GroupEvaluation, "create_rubric", http.MethodPost, "/rubrics", req, &out)
	return out, err
}

// UpdateRubric replaces an existing rubric definition.
func (c *Client) UpdateRubric(ctx context.Context, id string, req RubricRequest) (RubricPayload, error) {
	var out RubricPayload
	err := c.sendJSON(ctx, GroupEvaluation, "update_rubric", http.MethodPut, "/rubrics/"+url.PathEscape(id), req, &out)
	return out, err
}

// DeleteRubric removes a rubric definition.
func (c *Client) DeleteRubric(ctx context.Context, id string) error {
	return c.delete(ctx, GroupEvaluation, "delete_rubric", "/rubrics/"+url.PathEscape(id))
}
