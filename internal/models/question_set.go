package models

import "time"

// ApprovalStatus tracks the faculty review state of a question set.
type ApprovalStatus string

const (
	// ApprovalNone indicates no question has been selected for review yet.
	ApprovalNone ApprovalStatus = "none"
	// ApprovalPending indicates a question is awaiting faculty review.
	ApprovalPending ApprovalStatus = "pending"
	// ApprovalApproved indicates faculty approved the selected question.
	ApprovalApproved ApprovalStatus = "approved"
	// ApprovalRejected indicates faculty rejected the selected question.
	ApprovalRejected ApprovalStatus = "rejected"
)

// Known reports whether the value is one of the defined review states.
func (s ApprovalStatus) Known() bool {
	switch s {
	case ApprovalNone, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a final review outcome.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// CanTransition reports whether moving to next is a legal forward step.
// Terminal states accept no further transitions.
func (s ApprovalStatus) CanTransition(next ApprovalStatus) bool {
	if s == next {
		return false
	}

	switch s {
	case ApprovalNone:
		return next == ApprovalPending || next.IsTerminal()
	case ApprovalPending:
		return next.IsTerminal()
	default:
		return false
	}
}

// QuestionSet represents a batch of generated assignment questions for one student.
type QuestionSet struct {
	ID                 string         `json:"id"`
	StudentID          string         `json:"student_id"`
	Domain             string         `json:"domain"`
	ServiceCategory    string         `json:"service_category"`
	Department         string         `json:"department"`
	Topics             []string       `json:"topics"`
	Handouts           []string       `json:"handouts"`
	GeneratedQuestions []string       `json:"generated_questions"`
	SelectedQuestion   string         `json:"selected_question"`
	ApprovalStatus     ApprovalStatus `json:"approval_status"`
	FacultyRemarks     string         `json:"faculty_remarks"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Contains reports whether question belongs to the generated batch.
func (q QuestionSet) Contains(question string) bool {
	for _, candidate := range q.GeneratedQuestions {
		if candidate == question {
			return true
		}
	}
	return false
}
