package afip

import (
	"errors"
	"time"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
)

// Environments accepted by the gateway
const (
	EnvironmentTesting    = "testing"
	EnvironmentProduction = "production"
)

// DefaultBaseURL is the JSON gateway in front of the WSFE web service
const DefaultBaseURL = "https://app.afipsdk.com/api/v1"

// Errors for client configuration
var (
	ErrConfigMissingCUIT    = errors.New("afip: issuer CUIT is required")
	ErrConfigInvalidCUIT    = errors.New("afip: issuer CUIT must have 11 digits")
	ErrConfigMissingToken   = errors.New("afip: access token is required")
	ErrConfigInvalidEnv     = errors.New("afip: environment must be testing or production")
	ErrConfigMissingBaseURL = errors.New("afip: base URL is required")
)

// Config holds the issuer identity and gateway settings
type Config struct {
	// CUIT of the issuing business
	CUIT string
	// AccessToken authenticates against the gateway
	AccessToken string
	// Environment selects homologation (testing) or production
	Environment string
	// BaseURL of the gateway
	BaseURL string
	// Timeout bounds each HTTP call
	Timeout time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.CUIT == "" {
		return ErrConfigMissingCUIT
	}
	if fiscal.NormalizeTaxID(c.CUIT) == "" {
		return ErrConfigInvalidCUIT
	}
	if c.AccessToken == "" {
		return ErrConfigMissingToken
	}
	if c.Environment != EnvironmentTesting && c.Environment != EnvironmentProduction {
		return ErrConfigInvalidEnv
	}
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	return nil
}

// gatewayEnvironment maps the environment to the gateway's naming
func (c *Config) gatewayEnvironment() string {
	if c.Environment == EnvironmentProduction {
		return "prod"
	}
	return "dev"
}
