package turnkey

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// DefaultBaseURL is the production Turnkey API endpoint.
const DefaultBaseURL = "https://api.turnkey.com"

const (
	defaultHTTPTimeout     = 10 * time.Second
	defaultPollInterval    = 500 * time.Millisecond
	defaultPollIntervalCap = 4 * time.Second
	defaultActivityTimeout = time.Minute
)

// Config holds the client configuration: the API credential, the target
// organization, optional example-key defaults, and poll tuning. Fields are
// readable from the environment with cleanenv and are validated on client
// construction. The credential is loaded once and never mutated afterwards.
type Config struct {
	// OrganizationID scopes every request to a Turnkey organization.
	OrganizationID string `env:"TURNKEY_ORGANIZATION_ID" validate:"required"`
	// APIPublicKey is the compressed P-256 public half of the API key, hex.
	APIPublicKey string `env:"TURNKEY_API_PUBLIC_KEY" validate:"required,hexadecimal"`
	// APIPrivateKey is the 32-byte P-256 scalar of the API key, hex. It is
	// consumed by the stamper at construction and never logged or
	// serialized.
	APIPrivateKey string `env:"TURNKEY_API_PRIVATE_KEY" validate:"required,hexadecimal"`
	// BaseURL points at the Turnkey API.
	BaseURL string `env:"TURNKEY_BASE_URL" env-default:"https://api.turnkey.com" validate:"required,url"`

	// PrivateKeyID and ExamplePublicKey back the ExampleKey selector.
	// Optional: selectors that name keys explicitly work without them.
	PrivateKeyID     string `env:"TURNKEY_PRIVATE_KEY_ID"`
	ExamplePublicKey string `env:"TURNKEY_EXAMPLE_PUBLIC_KEY"`

	// HTTPTimeout bounds each individual request to the service.
	HTTPTimeout time.Duration `env:"TURNKEY_HTTP_TIMEOUT" env-default:"10s"`
	// PollInterval is the first wait between activity polls. The schedule
	// doubles from there, capped at PollIntervalCap.
	PollInterval    time.Duration `env:"TURNKEY_POLL_INTERVAL" env-default:"500ms"`
	PollIntervalCap time.Duration `env:"TURNKEY_POLL_INTERVAL_CAP" env-default:"4s"`
	// ActivityTimeout bounds the total wait for an activity to reach a
	// terminal state, polling included. When it elapses the operation fails
	// with ActivityTimeoutError.
	ActivityTimeout time.Duration `env:"TURNKEY_ACTIVITY_TIMEOUT" env-default:"60s"`
}

var configValidator = validator.New()

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present, so local development
// matches deployed environments.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, errors.Wrap(err, "reading environment")
	}
	return cfg, nil
}

// Validate checks that the required fields are present and well formed.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		ve := verrs[0]
		return &ConfigurationError{
			Field:  ve.Field(),
			Reason: fmt.Sprintf("failed %q validation", ve.Tag()),
		}
	}
	return &ConfigurationError{Field: "Config", Reason: err.Error()}
}

// withDefaults fills zero-valued tuning fields so that manually constructed
// configs behave like environment-loaded ones.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollIntervalCap <= 0 {
		c.PollIntervalCap = defaultPollIntervalCap
	}
	if c.ActivityTimeout <= 0 {
		c.ActivityTimeout = defaultActivityTimeout
	}
	return c
}
