// Package model holds the kernel error taxonomy shared by every subsystem.
// Process records and their views live in the process sub-package.
package model
