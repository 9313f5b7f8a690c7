package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/fleetd/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("alias", func(fl validator.FieldLevel) bool {
			return validateAlias(fl.Field().String()) == nil
		})
	})
	return validate
}

// Validate checks the config for errors and returns a structured error
// naming the first offending field.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid configuration", "")
	}

	seen := make(map[string]int, len(cfg.Hosts))
	for i, h := range cfg.Hosts {
		if prev, ok := seen[h.Alias]; ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host alias '%s' is used twice (hosts[%d] and hosts[%d])", h.Alias, prev, i),
				"Every host needs its own alias; it becomes a key in the API responses.")
		}
		seen[h.Alias] = i
	}

	return nil
}

// validateAlias checks that an alias is a plain name usable as a JSON key
// and log field.
func validateAlias(alias string) error {
	switch {
	case alias == "":
		return fmt.Errorf("alias is empty")
	case strings.ContainsAny(alias, " \t\n"):
		return fmt.Errorf("alias '%s' contains whitespace", alias)
	case strings.Contains(alias, "@"):
		return fmt.Errorf("alias '%s' looks like an SSH string, not a host name", alias)
	case strings.Contains(alias, "/"):
		return fmt.Errorf("alias '%s' contains a path separator", alias)
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("'%s' is required", field)
	case "oneof":
		msg = fmt.Sprintf("'%s' must be one of [%s], got '%v'", field, fe.Param(), fe.Value())
	case "gt", "gte", "lte":
		msg = fmt.Sprintf("'%s' is out of range (%s %s), got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "hostname_port":
		msg = fmt.Sprintf("'%s' must be host:port, got '%v'", field, fe.Value())
	case "alias":
		msg = fmt.Sprintf("'%s': %v", field, validateAlias(fmt.Sprint(fe.Value())))
	default:
		msg = fmt.Sprintf("'%s' failed '%s' validation", field, fe.Tag())
	}

	section := strings.SplitN(field, ".", 2)[0]
	if i := strings.Index(section, "["); i > 0 {
		section = section[:i]
	}
	return errors.New(errors.ErrConfig, msg,
		fmt.Sprintf("Check the '%s' section in your %s.", section, ConfigFileName))
}
