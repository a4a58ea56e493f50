package domain

// UI categories form a closed taxonomy. Every extraction result lands in
// exactly one of these; CategoryNotifications is the catch-all bucket.
const (
	CategoryImportantInfo = "Important Info"
	CategoryNotifications = "Notifications"
	CategoryToRespond     = "To Respond"
	CategoryMeetings      = "Meetings"
	CategoryFYI           = "FYI"
)

// UICategories lists the fixed UI taxonomy.
var UICategories = []string{
	CategoryImportantInfo,
	CategoryNotifications,
	CategoryToRespond,
	CategoryMeetings,
	CategoryFYI,
}

// IsUICategory reports whether s is a member of the fixed taxonomy.
func IsUICategory(s string) bool {
	for _, c := range UICategories {
		if c == s {
			return true
		}
	}
	return false
}

// Business categories are the richer model-produced classification of why
// a message matters, folded down into the UI taxonomy by the category map.
const (
	BusinessRevenueGenerating    = "Revenue-Generating"
	BusinessOperational          = "Operational"
	BusinessRelationshipBuilding = "Relationship-Building"
	BusinessCompliance           = "Compliance"
	BusinessOther                = "Other"
)

// Task is the structured action item produced by task extraction.
type Task struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	BusinessCategory string `json:"business_category"`
	DueDate          string `json:"due_date,omitempty"`
}

// TaskExtraction is the always-well-formed result of the task workflow.
// Category is always a member of the UI taxonomy, including on the
// degraded default path.
type TaskExtraction struct {
	RequiresAction bool    `json:"requires_action"`
	Confidence     float64 `json:"confidence_score"`
	Reason         string  `json:"reason"`
	Task           *Task   `json:"task,omitempty"`
	Category       string  `json:"category"`
}

// Draft is a generated reply draft. A draft missing subject, body, or a
// recipient is invalid and discarded by the orchestrator.
type Draft struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	To      string   `json:"to"`
	CC      []string `json:"cc"`
}

// Valid reports whether all required draft fields are present.
func (d *Draft) Valid() bool {
	return d != nil && d.Subject != "" && d.Body != "" && d.To != ""
}

// Summary is the sanitized result of thread summarization.
type Summary struct {
	Highlights string `json:"key_highlights"`
	Category   string `json:"category"`
}
