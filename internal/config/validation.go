package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/postbuild/internal/buildctx"
	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

// ValidateConfig performs structural validation and checks the syntax of every template.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return pberrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	for i, a := range cfg.Actions {
		if strings.TrimSpace(a.Command[0]) == "" {
			return pberrors.NewValidationError(fieldForAction(i, "command[0]"), "must name a program", nil)
		}
		for j, token := range a.Command {
			if err := checkTemplate(fieldForAction(i, fmt.Sprintf("command[%d]", j)), token); err != nil {
				return err
			}
		}
		fields := []struct{ name, tmpl string }{
			{"description", a.Description},
			{"stdout", a.Stdout},
			{"dir", a.Dir},
		}
		for _, f := range fields {
			if err := checkTemplate(fieldForAction(i, f.name), f.tmpl); err != nil {
				return err
			}
		}
		for key, tmpl := range a.Env {
			if err := checkTemplate(fieldForAction(i, "env."+key), tmpl); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkTemplate(field, tmpl string) error {
	if err := buildctx.Validate(tmpl); err != nil {
		return pberrors.NewValidationError(field, err.Error(), err)
	}
	return nil
}

// convertValidationError normalizes validator errors into validation errors naming the document field.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return pberrors.NewValidationError(field, msg, err)
	}

	return pberrors.NewValidationError("config", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, toSnake(part))
	}
	return strings.Join(lowered, ".")
}

// toSnake converts a Go field name such as OnFailure to on_failure. Index and key suffixes
// like [2] or [BUILD_DIR] are kept verbatim.
func toSnake(s string) string {
	name, suffix := s, ""
	if idx := strings.IndexByte(s, '['); idx >= 0 {
		name, suffix = s[:idx], s[idx:]
	}

	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String() + suffix
}

func fieldForAction(index int, field string) string {
	return fmt.Sprintf("actions[%d].%s", index, field)
}
