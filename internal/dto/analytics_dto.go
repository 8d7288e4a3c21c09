package dto

// PlatformOverviewResponse is the analytics usage summary shown on the
// faculty dashboard.
type PlatformOverviewResponse struct {
	TotalStudents      int     `json:"total_students"`
	TotalAssignments   int     `json:"total_assignments"`
	TotalSubmissions   int     `json:"total_submissions"`
	PendingEvaluations int     `json:"pending_evaluations"`
	ApprovalRate       float64 `json:"approval_rate"`
	AverageScore       float64 `json:"average_score"`
}
