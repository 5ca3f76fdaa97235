// config.go: settings struct for perdiem-go and the functions to load it.
package conf

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/tphakala/perdiem-go/internal/secrets"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes one tabular input: where it lives and how to decode it.
type SourceConfig struct {
	Path     string // CSV or XLSX file path, relative paths resolve against Sources.Dir
	Encoding string // utf-8, utf-8-sig, cp1252 or latin1, ignored for XLSX
	Sheet    string // worksheet name for XLSX, empty for the first sheet
}

// SourcesSettings lists the five tables a reconciliation reads.
type SourcesSettings struct {
	Dir            string       // base directory for relative source paths
	Submissions    SourceConfig // submission headers, one row per submission
	Inspections    SourceConfig // daily inspections, read positionally
	PerDiem        SourceConfig // per diem line items
	Transportation SourceConfig // transportation costs
	Property       SourceConfig // property reference data
	Cache          bool         // true to reuse the loaded dataset until a file changes
}

// GSASettings configures the per diem rate API client.
type GSASettings struct {
	APIKey         string        // api.data.gov key sent as X-API-KEY, may reference ${ENV}
	APIKeyFile     string        // file holding the API key, overrides APIKey
	BaseURL        string        // API base, without trailing slash
	Year           int           // fiscal year queried, 0 for the current year
	Timeout        time.Duration // per request timeout
	CacheTTL       time.Duration // how long a ZIP response stays cached
	RateLimit      float64       // requests per second
	Burst          int           // limiter burst size
	MaxConcurrency int           // concurrent ZIP requests
	MaxRetries     int           // attempts for transient failures
}

// LodgingPolicy selects which lodging checks run.
type LodgingPolicy string

const (
	LodgingCeiling LodgingPolicy = "ceiling" // actual cost must not exceed the GSA rate
	LodgingRate    LodgingPolicy = "rate"    // claimed rate must equal the GSA rate
	LodgingBoth    LodgingPolicy = "both"
)

// PolicySettings holds the reimbursement policy constants.
type PolicySettings struct {
	MileageRate       float64       // dollars per reimbursable mile
	FreeMiles         float64       // miles deducted before reimbursement
	InspectionCeiling float64       // maximum average reimbursement per inspection
	BoundaryMealRatio float64       // share of the meals rate paid on first and last day
	Lodging           LodgingPolicy // lodging checks to apply
}

// WebServerSettings configures the HTTP report server.
type WebServerSettings struct {
	Listen string // address to bind, e.g. ":8080"
	Debug  bool   // true to log every request
}

// NotifySettings configures notifications for flagged submissions.
type NotifySettings struct {
	Enabled bool
	URLs    []string      // shoutrrr service URLs
	Timeout time.Duration // send timeout
}

// TelemetrySettings configures error reporting.
type TelemetrySettings struct {
	Enabled   bool
	SentryDSN string
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // Path to the log file
	Level       string       // debug, info, warn or error
	Rotation    RotationType // Type of log rotation
	MaxSize     int64        // Max size in bytes for RotationSize
	RotationDay string       // Day of the week for RotationWeekly (as a string: "Sunday", "Monday", etc.)
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// Settings contains all configuration options for perdiem-go.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string    // name of this instance, shown in notifications
		Log  LogConfig // file log settings
	}

	Sources   SourcesSettings
	GSA       GSASettings
	Policy    PolicySettings
	WebServer WebServerSettings
	Notify    NotifySettings
	Telemetry TelemetrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
)

// Load reads the configuration file and environment variables into a new
// Settings instance and makes it the active one.
func Load() (*Settings, error) {
	return LoadFrom("")
}

// LoadFrom works like Load but reads configFile when it is not empty instead
// of searching the default config paths.
func LoadFrom(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values, the config file and the
// environment variable bindings.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		// invalid env values are reported but do not stop startup, validation catches real problems
		log.Printf("Warning: %v", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// defaults and environment are enough to run
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// resolveSecrets expands environment references in credentials and reads
// the API key file when one is configured.
func resolveSecrets(settings *Settings) error {
	var err error
	if settings.GSA.APIKey, err = secrets.Resolve(settings.GSA.APIKeyFile, settings.GSA.APIKey); err != nil {
		return err
	}
	if settings.Telemetry.SentryDSN, err = secrets.ExpandString(settings.Telemetry.SentryDSN); err != nil {
		return err
	}
	for i, u := range settings.Notify.URLs {
		if settings.Notify.URLs[i], err = secrets.ExpandString(u); err != nil {
			return err
		}
	}
	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// Dump renders settings as YAML with the API key and Sentry DSN masked.
func Dump(settings *Settings) ([]byte, error) {
	masked := *settings
	if masked.GSA.APIKey != "" {
		masked.GSA.APIKey = maskedValue
	}
	if masked.Telemetry.SentryDSN != "" {
		masked.Telemetry.SentryDSN = maskedValue
	}
	if len(settings.Notify.URLs) > 0 {
		masked.Notify.URLs = make([]string, len(settings.Notify.URLs))
		for i := range masked.Notify.URLs {
			masked.Notify.URLs[i] = maskedValue
		}
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}
