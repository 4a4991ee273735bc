// Package id generates the identifiers strandctl's scenario commands
// stamp onto their logs: a short tag for a single run, a sortable ULID
// for ordering a run's lines, and a dashless UUID for correlating with
// identifiers from outside the scheduler.
package id

import "github.com/teris-io/shortid"

// ScenarioTag returns a short, human-skimmable id for a single
// strandctl scenario invocation (pingpong, pipeline, ...) to thread
// through that run's log lines.
func ScenarioTag() string {
	tag, err := shortid.Generate()
	if err != nil {
		return ""
	}
	return tag
}
