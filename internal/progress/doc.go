// Package progress tracks which labs the user has completed on this machine.
//
// Completion is local state: it is recorded when a lab is finished and never
// sent to the server. On top of the store the package derives the same
// views the dashboard shows, namely recommended next labs, earned
// achievements and a coarse skill level.
//
// Usage:
//
//	store := progress.NewFileStore(paths.ProgressFile, system.OS())
//	if err := store.MarkCompleted("k8s-basics"); err != nil { ... }
//	done, _ := store.Completed()
//	next := progress.Recommend(labs, done, 3)
package progress
