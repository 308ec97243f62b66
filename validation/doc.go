// Package validation validates request structs with go-playground/validator
// tags and converts failures into INVALID_INPUT AppErrors.
//
//	type Credentials struct {
//	    Email    string `json:"email" validate:"required,email,max=255"`
//	    Password string `json:"password" validate:"required"`
//	}
//	err := validation.Validate(creds)
//
// Messages describe the rule that failed, never the rejected value, so a
// password never ends up in an error string.
package validation
