// Package internal connects the Metamath verifier in internal/mm to the
// command line tool.
//
// Key components:
//
// Engine: runs the verifier on a file or an in-memory source and turns the
// resulting diagnostics into issues. Fatal diagnostics are always graded as
// errors; the severity of incomplete proofs comes from the configuration.
//
// FileReport: the issues and statistics of one database.
//
// Watcher: re-verifies databases when they are written.
//
// SourceCode: a simple structure to represent the content of a source file as a collection of lines.
//
// Usage:
//
//	engine, err := internal.NewEngine(".", rules, logger)
//	if err != nil {
//	    // handle error
//	}
//
//	report, err := engine.Check(ctx, "set.mm")
//	if err != nil {
//	    // I/O failure or cancellation
//	}
//	if report.Failed() {
//	    // report.Issues
//	}
package internal
