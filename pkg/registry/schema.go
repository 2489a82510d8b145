// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"
)

// Implementation states an activity moves through.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
)

var statuses = map[string]bool{
	StatusPlanned:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusVerified:   true,
}

// ValidStatus reports whether s is a known implementation status.
func ValidStatus(s string) bool {
	return statuses[s]
}

// Schema is a JSON Schema document kept in its decoded form.
type Schema map[string]interface{}

// ActivityRegistry is the catalogue of meetup task types the worker
// manager serves and the process models reference.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one Zeebe task type. InputSchema is enforced on every
// job before the handler runs.
type Activity struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"displayName"`
	Description          string   `json:"description"`
	Category             string   `json:"category"`
	Version              string   `json:"version"`
	TaskType             string   `json:"taskType"`
	ImplementationStatus string   `json:"implementationStatus"`
	InputSchema          Schema   `json:"inputSchema"`
	OutputSchema         Schema   `json:"outputSchema"`
	ErrorCodes           []string `json:"errorCodes"`
	Timeout              string   `json:"timeout"`
	Retries              int      `json:"retries"`
	Processes            []string `json:"processes,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

// JobTimeout parses Timeout. An empty value means no activity-level timeout.
func (a Activity) JobTimeout() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s: invalid timeout %q: %w", a.ID, a.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("activity %s: negative timeout %q", a.ID, a.Timeout)
	}
	return d, nil
}
