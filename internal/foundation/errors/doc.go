// Package errors provides foundational, type-safe error primitives used across seriesgen.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, not_found, template, deploy, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, user)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - HTTP and CLI adapters for error presentation
//
// Example usage:
//
//	err := errors.TemplateError("template file missing").
//		WithContext("template", "page").
//		WithCause(originalErr).
//		Build()
package errors
