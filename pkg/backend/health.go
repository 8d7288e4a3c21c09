package backend

import "context"

// GroupHealth is the health readout of one service group.
type GroupHealth struct {
	Group  Group  `json:"group"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Groups lists every service group the client fronts.
func Groups() []Group {
	return []Group{GroupGeneration, GroupUploads, GroupEvaluation, GroupAnalytics}
}

// Health probes one group's /health endpoint.
func (c *Client) Health(ctx context.Context, group Group) GroupHealth {
	var payload struct {
		Status string `json:"status"`
	}

	if err := c.getJSON(ctx, group, "health", "/health", &payload); err != nil {
		return GroupHealth{Group: group, Status: "unreachable", Error: err.Error()}
	}

	status := payload.Status
	if status == "" {
		status = "ok"
	}
	return GroupHealth{Group: group, Status: status}
}
