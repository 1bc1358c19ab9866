// Package run persists per-execution records under .maker/runs/.
package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run represents a single task execution on disk.
type Run struct {
	ID   string
	Dir  string
	Meta Meta
}

// Meta holds metadata about a run, persisted to meta.json.
type Meta struct {
	StartedAt      time.Time    `json:"started_at"`
	TaskName       string       `json:"task_name"`
	TaskRef        string       `json:"task_ref"` // file path or example name
	Status         string       `json:"status"`   // "running" | "completed" | "interrupted" | "stalled" | "failed"
	K              int          `json:"k"`
	TotalSteps     int          `json:"total_steps"`
	StepsCompleted int          `json:"steps_completed"`
	Steps          []StepRecord `json:"steps"`
	TotalCost      float64      `json:"total_cost"`
	TotalSamples   int          `json:"total_samples"`
	TotalFlagged   int          `json:"total_flagged"`
	Error          string       `json:"error,omitempty"`
}

// StepRecord records the outcome of a single resolved step.
type StepRecord struct {
	Index      int     `json:"index"`
	Type       string  `json:"type"`
	Action     string  `json:"action"` // winning action preview
	Samples    int     `json:"samples"`
	Flagged    int     `json:"flagged"`
	Cost       float64 `json:"cost"`
	DurationMS int64   `json:"duration_ms"`
}

// New creates a new run directory under .maker/runs/.
func New(taskName, taskRef string, k, totalSteps int) (*Run, error) {
	now := time.Now()
	id := fmt.Sprintf("%s-%s-%s",
		now.Format("20060102-150405"),
		uuid.NewString()[:8],
		sanitizeSlug(taskName),
	)

	baseDir := filepath.Join(".maker", "runs")
	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}

	r := &Run{
		ID:  id,
		Dir: dir,
		Meta: Meta{
			StartedAt:  now,
			TaskName:   taskName,
			TaskRef:    taskRef,
			Status:     "running",
			K:          k,
			TotalSteps: totalSteps,
		},
	}

	if err := r.SaveMeta(); err != nil {
		return nil, err
	}

	if err := updateLatestLink(baseDir, id); err != nil {
		return nil, err
	}

	return r, nil
}

// SaveMeta writes meta.json to the run directory.
func (r *Run) SaveMeta() error {
	data, err := json.MarshalIndent(r.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	path := filepath.Join(r.Dir, "meta.json")
	return os.WriteFile(path, data, 0644)
}

// AddStep appends a resolved step and updates the run totals.
func (r *Run) AddStep(sr StepRecord) error {
	r.Meta.Steps = append(r.Meta.Steps, sr)
	r.Meta.StepsCompleted = len(r.Meta.Steps)
	r.Meta.TotalCost += sr.Cost
	r.Meta.TotalSamples += sr.Samples
	r.Meta.TotalFlagged += sr.Flagged
	return r.SaveMeta()
}

// Complete marks the run as completed.
func (r *Run) Complete() error {
	r.Meta.Status = "completed"
	return r.SaveMeta()
}

// Interrupted marks the run as stopped before finishing all steps. The steps
// recorded so far stay in the meta.
func (r *Run) Interrupted() error {
	r.Meta.Status = "interrupted"
	return r.SaveMeta()
}

// Stalled marks the run as stopped on a step that exhausted its sample
// budget.
func (r *Run) Stalled(msg string) error {
	r.Meta.Status = "stalled"
	r.Meta.Error = msg
	return r.SaveMeta()
}

// Fail marks the run as failed with an error message.
func (r *Run) Fail(msg string) error {
	r.Meta.Status = "failed"
	r.Meta.Error = msg
	return r.SaveMeta()
}

// FilePath returns the absolute path to a file within this run directory.
func (r *Run) FilePath(name string) string {
	return filepath.Join(r.Dir, name)
}

// WriteFile writes content to a named file in the run directory.
func (r *Run) WriteFile(name string, data []byte) error {
	return os.WriteFile(r.FilePath(name), data, 0644)
}

// ReadFile reads a named file from the run directory.
func (r *Run) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(r.FilePath(name))
}

// ReadMeta loads the meta.json of a recorded run directory.
func ReadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing meta.json in %s: %w", dir, err)
	}
	return &m, nil
}

// List returns the meta of every recorded run under baseDir, skipping
// entries without a readable meta.json.
func List(baseDir string) ([]*Meta, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var metas []*Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := ReadMeta(filepath.Join(baseDir, e.Name()))
		if err != nil {
			continue
		}
		metas = append(metas, m)
	}
	return metas, nil
}

// updateLatestLink atomically updates the "latest" symlink.
func updateLatestLink(baseDir, id string) error {
	latestPath := filepath.Join(baseDir, "latest")
	tmpPath := latestPath + ".tmp"

	// Remove any stale tmp link
	os.Remove(tmpPath)

	if err := os.Symlink(id, tmpPath); err != nil {
		return fmt.Errorf("creating temp symlink: %w", err)
	}
	if err := os.Rename(tmpPath, latestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("updating latest symlink: %w", err)
	}
	return nil
}

var nonAlphanumRe = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeSlug converts a string to a filesystem-friendly slug.
func sanitizeSlug(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = s[:40]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "run"
	}
	return s
}
