package model

import (
	"strings"
	"time"
)

const (
	// StatusPending indicates an action has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates an action's process is executing.
	StatusRunning = "running"
	// StatusSuccess marks an action whose process exited with status zero.
	StatusSuccess = "success"
	// StatusSkipped marks an action that was not spawned, as in a dry run.
	StatusSkipped = "skipped"
	// StatusFailed marks an action that failed under a warn or abort policy.
	StatusFailed = "failed"
	// StatusIgnored marks a failure suppressed by the ignore policy.
	StatusIgnored = "ignored"
)

// Outcome captures the result of running one post-build action.
type Outcome struct {
	Target      string
	Action      string
	Index       int
	Description string
	Command     []string
	Status      string
	ExitCode    int
	Error       error
	Duration    time.Duration
	Timestamp   time.Time
}

// CommandLine renders the command for display. Arguments are joined with spaces and are
// not shell quoted.
func (o Outcome) CommandLine() string {
	return strings.Join(o.Command, " ")
}

// Failed reports whether the action did not succeed, including ignored failures.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusIgnored
}

// Summary aggregates outcome counts by status.
type Summary struct {
	Total    int
	Success  int
	Failed   int
	Ignored  int
	Skipped  int
	Duration time.Duration
}

// Summarize counts outcomes by status and sums their durations.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		s.Duration += o.Duration
		switch o.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		case StatusIgnored:
			s.Ignored++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}
