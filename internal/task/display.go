package task

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bigdegenenergy/maker-framework/internal/voting"
)

// Display handles terminal progress output for a task run. A nil Display is
// valid and prints nothing.
type Display struct {
	w       io.Writer
	title   string
	verbose bool
	stop    chan struct{}
	done    chan struct{}
}

// NewDisplay creates a display that writes to stdout.
func NewDisplay(title string, verbose bool) *Display {
	return &Display{w: os.Stdout, title: title, verbose: verbose}
}

// modelColumnWidth is the fixed display width reserved for the model column.
var modelColumnWidth = 30

// ansiEscapeRe matches ANSI terminal escape sequences and C0/DEL control characters.
var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|[\x00-\x1f\x7f]`)

// sanitizeModel strips ANSI escape sequences and control characters from a model name.
func sanitizeModel(name string) string {
	return ansiEscapeRe.ReplaceAllString(name, "")
}

// truncateModel sanitizes and truncates model to fit within modelColumnWidth
// runes, appending an ellipsis if truncation occurs.
func truncateModel(model string) string {
	model = sanitizeModel(model)
	if utf8.RuneCountInString(model) <= modelColumnWidth {
		return model
	}
	runes := []rune(model)
	return string(runes[:modelColumnWidth-1]) + "…"
}

// Header prints the run header.
func (d *Display) Header() {
	if d == nil {
		return
	}
	fmt.Fprintf(d.w, "\n🗳  maker — %s\n", d.title)
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
}

// StepStart prints a step-in-progress line and starts an elapsed time ticker.
// In non-verbose mode, the line is updated in place every second with elapsed
// time. In verbose mode, a plain line is printed.
func (d *Display) StepStart(step, total int, typeName, model string) {
	if d == nil {
		return
	}
	label := fmt.Sprintf("%d/%d %s", step+1, total, typeName)
	model = truncateModel(model)
	if d.verbose {
		fmt.Fprintf(d.w, "⏳ %-16s %-30s sampling...\n", label, model)
		return
	}
	// Print without trailing newline so the ticker can overwrite in place.
	fmt.Fprintf(d.w, "⏳ %-16s %-30s sampling...", label, model)

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(d.w, "\r⏳ %-16s %-30s sampling... %.0fs",
					label, model, time.Since(start).Seconds())
			}
		}
	}()
}

// stopTicker stops the elapsed time goroutine and waits for it to finish.
func (d *Display) stopTicker() {
	if d.stop != nil {
		close(d.stop)
		<-d.done
		d.stop = nil
		d.done = nil
	}
}

func (d *Display) linePrefix() string {
	if d.verbose {
		return ""
	}
	return "\r"
}

// StepDone prints a completed step line, overwriting the running line in
// non-verbose mode, with the winning action, sample counts and cost.
func (d *Display) StepDone(typeName, model string, vote *voting.Result, duration time.Duration) {
	if d == nil {
		return
	}
	d.stopTicker()
	model = truncateModel(model)
	costStr := "—"
	if vote.Cost > 0 {
		costStr = fmt.Sprintf("$%.4f", vote.Cost)
	}
	samplesStr := fmt.Sprintf("%d samples", vote.Samples)
	if vote.Flagged > 0 {
		samplesStr = fmt.Sprintf("%d samples (%d flagged)", vote.Samples, vote.Flagged)
	}
	fmt.Fprintf(d.w, "%s✅ %-16s %-30s %-24s %-10s %.1fs\n",
		d.linePrefix(), typeName, model, samplesStr, costStr, duration.Seconds())
	fmt.Fprintf(d.w, "  │ %s\n", vote.Action.Preview(70))
}

// StepFailed prints a failed step line.
func (d *Display) StepFailed(typeName, model string, err error) {
	if d == nil {
		return
	}
	d.stopTicker()
	model = truncateModel(model)
	fmt.Fprintf(d.w, "%s❌ %-16s %-30s %s\n", d.linePrefix(), typeName, model, err.Error())
}

// StepInterrupted clears the in-progress line of a step that was cancelled
// mid-round.
func (d *Display) StepInterrupted(typeName, model string) {
	if d == nil {
		return
	}
	d.stopTicker()
	model = truncateModel(model)
	fmt.Fprintf(d.w, "%s⏹  %-16s %-30s interrupted\n", d.linePrefix(), typeName, model)
}

// Interrupted prints a partial-run summary after cancellation.
func (d *Display) Interrupted(completed, total int) {
	if d == nil {
		return
	}
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
	fmt.Fprintf(d.w, "⏹  Stopped after %d of %d steps\n\n", completed, total)
}

// Summary prints the final run summary.
func (d *Display) Summary(totalCost float64, totalSamples int, totalDuration time.Duration) {
	if d == nil {
		return
	}
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
	fmt.Fprintf(d.w, "✅ Done  %d samples  $%.4f  %.0fs\n\n", totalSamples, totalCost, totalDuration.Seconds())
}

// Failed prints a failure summary.
func (d *Display) Failed(err error) {
	if d == nil {
		return
	}
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
	fmt.Fprintf(d.w, "❌ Failed: %s\n\n", err.Error())
}
