// Package tui provides the terminal user interfaces of labctl.
//
// All views use the Bubble Tea framework. Long-running domain calls run as
// tea.Cmds; confirmations asked by the domain packages are answered in a
// modal through a Confirmer.
//
// # Catalog Picker
//
// The picker lists labs grouped by category and marks completed ones:
//
//	result, err := tui.RunPicker(labs, completed)
//	switch result.Action {
//	case tui.ActionStart:
//	    // Start result.Lab
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// SimplePicker prints the same catalog without a TTY.
//
// # Lab Workspace
//
// RunLab shows one step at a time next to a manifest editor and the
// sandbox terminal:
//
//   - n/p (or arrows) move between steps, 1-9 inject a command
//   - a/D apply or delete the manifest, e/t focus the editor or terminal
//   - q opens the end dialog, ctrl+c leaves the session running
//
// # Admin Browser
//
// RunAdmin polls cluster stats and sessions and lets an admin inspect and
// delete sandbox resources or terminate sessions.
package tui
