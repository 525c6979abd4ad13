package client

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfeidau/orgdata/internal/report"
)

// localEndpointMarker identifies a development backend (a LAN address such as
// 192.168.x.x) that has no search resolvers.
const localEndpointMarker = "192"

// ErrEndpointRequired is returned by Validate when no endpoint is set.
var ErrEndpointRequired = errors.New("graphql endpoint is required")

// Config holds common client configuration
type Config struct {
	// Endpoint is the GraphQL API URL.
	Endpoint string
	// Region is the AWS region used for IAM signing.
	Region string
	// AdminURL is the base URL of the admin REST API.
	AdminURL string
	Timeout  time.Duration
	// EnablePublicList turns on FetchListPublic. It is off by default
	// because the IAM list path is not deployed anywhere.
	EnablePublicList bool
	// ErrorMessage overrides the message published on failure.
	ErrorMessage string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		Region:       "ap-northeast-1",
		Timeout:      30 * time.Second,
		ErrorMessage: report.DefaultMessage,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEndpointRequired
	}
	return nil
}

// LocalEndpoint reports whether the endpoint points at a development backend.
func (c Config) LocalEndpoint() bool {
	return strings.Contains(c.Endpoint, localEndpointMarker)
}
