package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for required fields and valid values.
// Every problem is reported, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	if c.Data.Backend == "postgres" && c.Data.Postgres.DSN == "" && c.Data.Postgres.DSNFile == "" {
		errs = append(errs, errors.New("data.postgres.dsn or data.postgres.dsn_file is required when data.backend is \"postgres\""))
	}
	if c.Data.Backend == "file" && c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required when data.backend is \"file\""))
	}

	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("auth.api_keys must not be empty when auth.type is \"apikey\""))
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" && k.KeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
		}
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, errors.New("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path must start with \"/\", got %q", c.MCP.Path))
	}
	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToUpper(c.Observability.LogLevel) {
	case "", "ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE":
	default:
		errs = append(errs, fmt.Errorf("observability.log_level must be one of ERROR, WARN, INFO, DEBUG, TRACE, got %q", c.Observability.LogLevel))
	}
	if unknown := debug.Unknown(c.Observability.Debug); len(unknown) > 0 {
		errs = append(errs, fmt.Errorf("observability.debug: unknown categories %s", strings.Join(unknown, ", ")))
	}

	return errors.Join(errs...)
}

// fieldError renders a validator failure with the YAML field path.
func fieldError(fe validator.FieldError) error {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", path)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value())
	case "min":
		return fmt.Errorf("%s must be >= %s, got %v", path, fe.Param(), fe.Value())
	case "max":
		return fmt.Errorf("%s must be <= %s, got %v", path, fe.Param(), fe.Value())
	case "url":
		return fmt.Errorf("%s must be a URL, got %q", path, fe.Value())
	default:
		return fmt.Errorf("%s failed %q validation", path, fe.Tag())
	}
}
