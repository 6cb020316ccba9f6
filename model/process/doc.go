// Package process defines the process control block, its states and the
// read-only views (snapshot rows, lifecycle changes) exposed to callers.
package process
