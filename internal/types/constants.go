package types

import (
	"os"
	"strings"
)

const ContextUserKey = "user"

// Task status columns. These double as reserved words: a task title may
// never equal a column name.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Audit action kinds.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionAssigned = "assigned"
	ActionMoved    = "moved"
)

var ColumnNames = []string{StatusTodo, StatusInProgress, StatusDone}

func IsColumnName(s string) bool {
	for _, name := range ColumnNames {
		if s == name {
			return true
		}
	}
	return false
}

func ValidStatus(s string) bool {
	return IsColumnName(s)
}

func ValidPriority(s string) bool {
	return s == PriorityHigh || s == PriorityMedium || s == PriorityLow
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
