// common/types.go - Shared types used across packages
package common

// Status is the outcome of a task on a single host.
type Status string

const (
	StatusOK          Status = "ok"
	StatusChanged     Status = "changed"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
	StatusUnreachable Status = "unreachable"
	StatusRescued     Status = "rescued"
	StatusIgnored     Status = "ignored"
)

// StatusMeanings maps each status to a human-readable explanation.
// Shipped with every report so the frontend can render a legend.
var StatusMeanings = map[Status]string{
	StatusOK:          "Task succeeded (no error)",
	StatusChanged:     "Task made changes on target host",
	StatusFailed:      "Task failed",
	StatusSkipped:     "Task was skipped",
	StatusUnreachable: "Host was unreachable",
	StatusRescued:     "Task failed but rescued by 'rescue' block",
	StatusIgnored:     "Failure ignored via 'ignore_errors'",
}

// KnownStatus reports whether s names one of the recognized statuses.
func KnownStatus(s Status) bool {
	_, ok := StatusMeanings[s]
	return ok
}

// HostResult is the outcome of one task on one host
type HostResult struct {
	Host   string `json:"host"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"` // error message or module output, when present
}

// Task is a single action within a play, run against zero or more hosts
type Task struct {
	Name            string       `json:"name"`
	DurationSeconds *float64     `json:"duration_seconds,omitempty"` // nil = unknown, never defaulted to 0
	Hosts           []HostResult `json:"hosts,omitempty"`
}

// Play is a top-level grouping of tasks, in input order
type Play struct {
	Name  string `json:"name"`
	Tasks []Task `json:"tasks"`
}

// Run is one normalized playbook execution: ordered plays plus the
// per-host recap counters (parsed from input, or derived when absent)
type Run struct {
	Plays []Play                    `json:"plays"`
	Recap map[string]map[string]int `json:"recap,omitempty"`
}

// Node is one vertex of the mind map, in the shape the rendering
// library consumes. IDs are derived from path position so identical
// input always produces identical topology.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title,omitempty"` // hover text
	Group string `json:"group,omitempty"` // play | task | host-<status>
}

// Edge is one parent->child arrow of the mind map
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NestedNode is the same hierarchy as the node/edge list, expressed as
// a directly serializable tree for collapsible frontends
type NestedNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Group    string        `json:"group,omitempty"`
	Children []*NestedNode `json:"children"`
}

// RankedTask is one row of the slowest-tasks report
type RankedTask struct {
	Play            string  `json:"play"`
	Task            string  `json:"task"`
	DurationSeconds float64 `json:"duration_seconds"`
}
