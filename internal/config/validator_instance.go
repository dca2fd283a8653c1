package config

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern  = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	varNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("var_name", func(fl validator.FieldLevel) bool {
			return varNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("target_name", func(fl validator.FieldLevel) bool {
			target := fl.Field().String()
			return target != "" && !strings.ContainsAny(target, " \t\r\n")
		})

		_ = v.RegisterValidation("policy", func(fl validator.FieldLevel) bool {
			_, err := action.ParsePolicy(fl.Field().String())
			return err == nil
		})

		// Durations are stored as int64 nanoseconds.
		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() >= 0
		})

		validateInst = v
	})

	return validateInst
}
