// Package tracing wraps OpenTelemetry so kernel subsystems can record spans
// for process lifecycle operations without importing the SDK directly. Until
// Init is called the global no-op provider is used and spans cost nothing.
package tracing
