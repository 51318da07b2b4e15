package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their koanf keys, so messages name the same
// path an operator writes in YAML or derives an env var from.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		return name
	})

	return v
}()

// Validate checks field rules first, then the settings the chosen store
// driver needs. The service refuses to start on any failure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		problems := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			problems[i] = describe(fe)
		}

		return validationFailed(problems)
	}

	return validationFailed(c.storeProblems())
}

func (c *Config) storeProblems() []string {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			problems = append(problems, "database.dsn is required when store.driver is postgres")
		}
	case "rest":
		if c.Store.Rest.BaseURL == "" {
			problems = append(problems, "store.rest.base_url is required when store.driver is rest")
		}

		if c.Store.Rest.APIKey == "" {
			problems = append(problems, "store.rest.api_key is required when store.driver is rest")
		}
	}

	return problems
}

func validationFailed(problems []string) error {
	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
}

// describe words one failed rule as "<key path> <requirement>".
func describe(fe validator.FieldError) string {
	path := keyPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "required_if":
		field, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s is %s", path, snake(field), value)
	case "min":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", path, fe.Param())
	case "url":
		return path + " must be a valid URL"
	case "hostname_port":
		return path + " must be host:port"
	case "gtefield":
		return fmt.Sprintf("%s must be at least %s", path, sibling(path, fe.Param()))
	case "ltefield":
		return fmt.Sprintf("%s must be at most %s", path, sibling(path, fe.Param()))
	default:
		return fmt.Sprintf("%s failed validation: %s", path, fe.Tag())
	}
}

// keyPath drops the root type name: "Config.server.port" becomes "server.port".
func keyPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return rest
}

// sibling names the Go field param next to path, as a key: ("database.min_conns",
// "MaxConns") gives "database.max_conns".
func sibling(path, param string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i+1] + snake(param)
	}

	return snake(param)
}

func snake(goName string) string {
	var b strings.Builder

	for i, r := range goName {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}

			r = unicode.ToLower(r)
		}

		b.WriteRune(r)
	}

	return b.String()
}
