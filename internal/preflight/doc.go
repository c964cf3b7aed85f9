// Package preflight runs the environment checks behind 'docsmcp doctor'.
//
// For a knowledge base it validates:
//   - The docs directory exists and is readable
//   - The data directory is writable
//   - Free disk space under the data directory (minimum 100MB)
//   - The embedding provider answers and its dimension matches the index
//   - The file descriptor limit, which 'docsmcp watch' depends on
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, target)
//	checker.PrintResults(results)
//	if checker.HasCriticalFailures(results) {
//	    // exit non-zero
//	}
package preflight
