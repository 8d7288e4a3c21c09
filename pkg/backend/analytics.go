package backend

import "context"

// OverviewPayload is the analytics group's usage summary.
type OverviewPayload struct {
	TotalStudents      int     `json:"total_students"`
	TotalAssignments   int     `json:"total_assignments"`
	TotalSubmissions   int     `json:"total_submissions"`
	PendingEvaluations int     `json:"pending_evaluations"`
	ApprovalRate       float64 `json:"approval_rate"`
	AverageScore       float64 `json:"average_score"`
}

// Overview fetches the platform usage summary.
func (c *Client) Overview(ctx context.Context) (OverviewPayload, error) {
	var out OverviewPayload
	err := c.getJSON(ctx, GroupAnalytics, "overview", "/overview", &out)
	return out, err
}
