/*
Package config provides validation for the loaded configuration.

Field rules live in validate struct tags and are checked with
go-playground/validator. Failures are reported as one InvalidConfigError
listing every offending key.
*/
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report koanf keys rather than Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks every field rule and returns an InvalidConfigError on failure.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}

	return &InvalidConfigError{
		Message: strings.Join(problems, "\n"),
		Hint:    "Fix the listed keys in the config file or PERSONA_SEARCH_* environment",
	}
}

// describe renders a field error as "section.key: rule".
func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s: must satisfy %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: must satisfy %s (got %v)", key, fe.Tag(), fe.Value())
}
