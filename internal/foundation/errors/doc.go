// Package errors provides the classified error primitives used across docverify.
//
// Errors carry a category (config, build, filesystem, verification, ...), a
// severity and a retry strategy, plus free-form context. The CLI adapter maps
// categories onto process exit codes so scripts can tell a broken build from a
// failed assertion.
//
// Example usage:
//
//	err := errors.WrapError(runErr, errors.CategoryBuild, "site build failed").
//		WithContext("command", cmdLine).
//		WithContext("exit_code", code).
//		Build()
package errors
