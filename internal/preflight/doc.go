// Package preflight checks that the paths and limits a pea server depends
// on are usable before it starts.
//
// The package validates:
//   - The index directory is writable and has free space (minimum 100MB)
//   - The content root exists and is a readable directory
//   - The received-files directory can be created and written
//   - The web client directory holds index.html
//   - The file descriptor limit suits the watcher (minimum 1024)
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Targets{IndexFile: "/srv/pea/index.json"})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
