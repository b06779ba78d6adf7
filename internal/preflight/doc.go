// Package preflight provides system validation checks to ensure
// FileSentry can watch files successfully before starting.
//
// The package validates:
//   - File descriptor limits (each watched directory holds one open)
//   - inotify limits on Linux (max_user_watches, max_user_instances)
//   - Write permissions for the log directory
//   - Disk space for the journal database
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, logDir, journalDir)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
