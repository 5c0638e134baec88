package report

import (
	"time"

	"github.com/ajrichter/my-agents-cc/internal/pipeline"
)

// CombinedStatus is the multi-target snapshot written at the folder root.
// It is regenerated in full on every run.
type CombinedStatus struct {
	Folder      string         `json:"folder"`
	Repos       []TargetStatus `json:"repos"`
	Totals      Totals         `json:"totals"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// TargetStatus is one target's entry. Error is set when the target could
// not be initialized or read.
type TargetStatus struct {
	Path   string   `json:"path"`
	Name   string   `json:"name"`
	Status *Summary `json:"status,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Totals counts targets per bucket.
type Totals struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
}

// Add counts one target.
func (t *Totals) Add(ts TargetStatus) {
	t.Total++
	if ts.Error != "" || ts.Status == nil {
		t.Failed++
		return
	}
	switch ts.Status.Bucket() {
	case pipeline.StatusCompleted:
		t.Completed++
	case pipeline.StatusFailed:
		t.Failed++
	case pipeline.StatusPending:
		t.Pending++
	default:
		t.InProgress++
	}
}
