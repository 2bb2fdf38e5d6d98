// Package validation provides input validation for CLI options and config.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection.
//
// # Struct Tag Validation
//
//	type Options struct {
//	    Output      string `validate:"required"`
//	    MinSpeakers int    `validate:"min=0"`
//	}
//	err := validation.Validate(opts)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("output", opts.Output)
//	err := v.Validate()
package validation
