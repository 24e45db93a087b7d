// Package lab drives a learner through one lab.
//
// A Controller owns the step cursor and the step-scoped manifest draft.
// Every step change resets the draft to the new step's template, so edits
// never leak between steps. Finishing a lab is always an explicit call:
// Next at the last step completes the lab, FinishAndExit completes and
// ends the session, and TerminateOnly ends the session without recording
// completion.
//
// Render turns step text into segments, picking out the shell commands a
// learner can send to the terminal with one key.
package lab
