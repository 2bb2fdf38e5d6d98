// Package logger provides structured logging for the diarize CLI built on
// zerolog. Diagnostics default to stderr so stdout stays a machine-readable
// status stream.
package logger
