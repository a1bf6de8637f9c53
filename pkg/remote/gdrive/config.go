// Package gdrive implements the remote client interface for Google Drive.
package gdrive

import "golang.org/x/oauth2"

// Config configures a Drive client.
//
// Authentication is an explicit session: the caller constructs an OAuth
// token source (see internal/auth) and passes it in. The client never
// reads ambient credential state.
type Config struct {
	// TokenSource supplies OAuth2 tokens for the Drive API (required
	// unless Endpoint points at an unauthenticated test server).
	TokenSource oauth2.TokenSource

	// Endpoint overrides the Drive API base URL. Used for tests against
	// local fakes. Leave empty for the real service.
	Endpoint string

	// PageSize is the default page size for ListChildren operations.
	// Zero uses the service default (1000). Values over 1000 are clamped.
	PageSize int

	// UploadChunkSize is the chunk size in bytes for resumable uploads.
	// Zero uses the google-api-go-client default (16 MiB).
	UploadChunkSize int
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.TokenSource == nil && c.Endpoint == "" {
		return &ConfigError{Field: "TokenSource", Message: "a token source is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "gdrive config: " + e.Field + ": " + e.Message
}
