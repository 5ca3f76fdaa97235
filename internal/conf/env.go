// env.go - Environment variable configuration and validation for perdiem-go
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PERDIEM_DEBUG", validateEnvBool},

		// Sources
		{"sources.dir", "PERDIEM_SOURCES_DIR", nil},
		{"sources.submissions.path", "PERDIEM_SUBMISSIONS_PATH", nil},
		{"sources.inspections.path", "PERDIEM_INSPECTIONS_PATH", nil},
		{"sources.perdiem.path", "PERDIEM_PERDIEM_PATH", nil},
		{"sources.transportation.path", "PERDIEM_TRANSPORTATION_PATH", nil},
		{"sources.property.path", "PERDIEM_PROPERTY_PATH", nil},
		{"sources.cache", "PERDIEM_SOURCES_CACHE", validateEnvBool},

		// GSA API
		{"gsa.apikey", "PERDIEM_GSA_APIKEY", nil},
		{"gsa.apikeyfile", "PERDIEM_GSA_APIKEY_FILE", nil},
		{"gsa.baseurl", "PERDIEM_GSA_BASEURL", validateEnvURL},
		{"gsa.year", "PERDIEM_GSA_YEAR", validateEnvYear},
		{"gsa.timeout", "PERDIEM_GSA_TIMEOUT", validateEnvDuration},
		{"gsa.maxconcurrency", "PERDIEM_GSA_MAXCONCURRENCY", validateEnvPositiveInt},

		// Policy
		{"policy.mileagerate", "PERDIEM_POLICY_MILEAGERATE", validateEnvNonNegativeFloat},
		{"policy.inspectionceiling", "PERDIEM_POLICY_INSPECTIONCEILING", validateEnvNonNegativeFloat},
		{"policy.lodging", "PERDIEM_POLICY_LODGING", validateEnvLodgingPolicy},

		// Outer surfaces
		{"webserver.listen", "PERDIEM_LISTEN", nil},
		{"telemetry.sentrydsn", "PERDIEM_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	return nil
}

func validateEnvYear(value string) error {
	year, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid year: %w", err)
	}
	if year != 0 && (year < 2000 || year > 2100) {
		return fmt.Errorf("year must be 0 or between 2000 and 2100, got %d", year)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("value must be at least 1, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("value must not be negative, got %g", f)
	}
	return nil
}

func validateEnvLodgingPolicy(value string) error {
	switch LodgingPolicy(strings.ToLower(value)) {
	case LodgingCeiling, LodgingRate, LodgingBoth:
		return nil
	}
	return fmt.Errorf("lodging policy must be one of ceiling, rate, both, got '%s'", value)
}
