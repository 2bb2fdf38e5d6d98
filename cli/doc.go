// Package cli parses command-line arguments, validates user input, and
// handles process-level concerns like exit codes. It translates CLI flags
// into run options for the app package.
package cli
