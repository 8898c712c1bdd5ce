package model

// Report is a support ticket stored at reports/{id}.
type Report struct {
	ID          string `json:"id"`
	AuthorID    string `json:"authorId"`
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
	HandledBy   string `json:"handledBy,omitempty"`
}

var reportTransitions = map[string][]string{
	"pending": {"process", "done"},
	"process": {"done"},
}

func ValidReportStatus(status string) bool {
	switch status {
	case "pending", "process", "done":
		return true
	}
	return false
}

// CanTransition reports whether a report may move from one status to another.
// done is terminal.
func CanTransition(from, to string) bool {
	for _, next := range reportTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
