package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()

	// durations must be strictly positive
	_ = v.RegisterValidation("duration_gt0", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(time.Duration)
		return ok && d > 0
	})

	return v
}

// Validate checks field ranges and cross-field rules (the two token secrets
// must differ).
func (c *Config) Validate() error {
	return newValidator().Struct(c)
}
