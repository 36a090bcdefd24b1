package tickets

import "time"

// Ticket is one support ticket record.
type Ticket struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	AssignedTeam string    `json:"assigned_team"`
	Resolution   string    `json:"resolution,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SampleTickets is the demo/seed dataset.
var SampleTickets = []Ticket{
	{
		ID:           "TKT-001",
		Title:        "Mobile app crashes on login",
		Description:  "The Android app crashes immediately after entering credentials on the login screen.",
		Category:     "mobile",
		Priority:     "high",
		Status:       "in_progress",
		AssignedTeam: "Mobile Platform",
	},
	{
		ID:           "TKT-002",
		Title:        "Probe agent not reporting metrics",
		Description:  "The on-prem network probe stopped pushing metrics after the last upgrade.",
		Category:     "monitoring",
		Priority:     "urgent",
		Status:       "open",
		AssignedTeam: "Infrastructure",
	},
	{
		ID:           "TKT-003",
		Title:        "Password reset email not delivered",
		Description:  "Several customers report that password reset emails never arrive, including spam folders.",
		Category:     "auth",
		Priority:     "medium",
		Status:       "resolved",
		AssignedTeam: "Identity",
		Resolution:   "Fixed SPF record on the transactional mail domain.",
	},
	{
		ID:           "TKT-004",
		Title:        "Dashboard loads slowly for large accounts",
		Description:  "Accounts with more than 500 devices see dashboard load times over 20 seconds.",
		Category:     "performance",
		Priority:     "medium",
		Status:       "pending",
		AssignedTeam: "Web Platform",
	},
	{
		ID:           "TKT-005",
		Title:        "Mobile app requirements for offline mode",
		Description:  "Product asked for a ticket tracking the offline mode requirements for the mobile app.",
		Category:     "mobile",
		Priority:     "low",
		Status:       "open",
		AssignedTeam: "Mobile Platform",
	},
}
