package logging

import "strings"

// FormatSubject builds the job/state subject string used in console output.
// Job identifiers are shortened to their first eight characters.
func FormatSubject(jobID, state string) string {
	jobID = strings.TrimSpace(jobID)
	state = strings.TrimSpace(state)
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	switch {
	case jobID != "" && state != "":
		return "Job " + jobID + " (" + state + ")"
	case jobID != "":
		return "Job " + jobID
	default:
		return state
	}
}
