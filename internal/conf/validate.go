// validate.go contains validation logic for the configuration settings
package conf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateSourcesSettings(&settings.Sources); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateGSASettings(&settings.GSA); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validatePolicySettings(&settings.Policy); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Notify.Enabled && len(settings.Notify.URLs) == 0 {
		ve.Errors = append(ve.Errors, "notify: enabled but no service URLs configured")
	}

	if settings.Telemetry.Enabled && settings.Telemetry.SentryDSN == "" {
		ve.Errors = append(ve.Errors, "telemetry: enabled but sentrydsn is empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSourcesSettings(settings *SourcesSettings) error {
	var errs []string

	sources := map[string]*SourceConfig{
		"submissions":    &settings.Submissions,
		"inspections":    &settings.Inspections,
		"perdiem":        &settings.PerDiem,
		"transportation": &settings.Transportation,
		"property":       &settings.Property,
	}
	for _, name := range []string{"submissions", "inspections", "perdiem", "transportation", "property"} {
		src := sources[name]
		if strings.TrimSpace(src.Path) == "" {
			errs = append(errs, fmt.Sprintf("sources.%s.path must be set", name))
		}
		switch NormalizeEncoding(src.Encoding) {
		case EncodingUTF8, EncodingUTF8SIG, EncodingCP1252, EncodingLatin1:
			src.Encoding = NormalizeEncoding(src.Encoding)
		default:
			errs = append(errs, fmt.Sprintf("sources.%s.encoding '%s' is not supported", name, src.Encoding))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("sources settings errors: %v", errs)
	}
	return nil
}

func validateGSASettings(settings *GSASettings) error {
	var errs []string

	if u, err := url.Parse(settings.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("gsa.baseurl '%s' must be an http(s) URL", settings.BaseURL))
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")

	if settings.Year != 0 && (settings.Year < 2000 || settings.Year > 2100) {
		errs = append(errs, fmt.Sprintf("gsa.year must be 0 or between 2000 and 2100, got %d", settings.Year))
	}
	if settings.Timeout <= 0 {
		errs = append(errs, "gsa.timeout must be positive")
	}
	if settings.RateLimit <= 0 {
		errs = append(errs, "gsa.ratelimit must be positive")
	}
	if settings.Burst < 1 {
		errs = append(errs, "gsa.burst must be at least 1")
	}
	if settings.MaxConcurrency < 1 {
		errs = append(errs, "gsa.maxconcurrency must be at least 1")
	}
	if settings.MaxRetries < 1 {
		errs = append(errs, "gsa.maxretries must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("gsa settings errors: %v", errs)
	}
	return nil
}

func validatePolicySettings(settings *PolicySettings) error {
	var errs []string

	if settings.MileageRate < 0 {
		errs = append(errs, "policy.mileagerate must not be negative")
	}
	if settings.FreeMiles < 0 {
		errs = append(errs, "policy.freemiles must not be negative")
	}
	if settings.InspectionCeiling <= 0 {
		errs = append(errs, "policy.inspectionceiling must be positive")
	}
	if settings.BoundaryMealRatio <= 0 || settings.BoundaryMealRatio > 1 {
		errs = append(errs, fmt.Sprintf("policy.boundarymealratio must be in (0, 1], got %g", settings.BoundaryMealRatio))
	}

	settings.Lodging = LodgingPolicy(strings.ToLower(string(settings.Lodging)))
	switch settings.Lodging {
	case LodgingCeiling, LodgingRate, LodgingBoth:
	case "":
		settings.Lodging = LodgingBoth
	default:
		errs = append(errs, fmt.Sprintf("policy.lodging must be ceiling, rate or both, got '%s'", settings.Lodging))
	}

	if len(errs) > 0 {
		return fmt.Errorf("policy settings errors: %v", errs)
	}
	return nil
}
