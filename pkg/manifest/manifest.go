// Package manifest provides loading and validation of canopy clone-job
// manifests.
//
// A clone manifest is a YAML or JSON file that configures all aspects of a
// clone job: drive connection, source and destination folders, pattern
// matching, clone behavior, and output.
//
// Manifests are validated against a JSON Schema to ensure correctness before
// execution. The schema enforces strict typing and disallows unknown
// properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	connection:
//	  service: gdrive
//	  credentials_file: credentials.json
//	source:
//	  folder_id: 1aBcDeFgHiJkLmNoPqRsTuV
//	destination:
//	  folder_id: 1zYxWvUtSrQpOnMlKjIhGfE
//	match:
//	  includes:
//	    - "**"
//	  excludes:
//	    - "**/*.tmp"
//	clone:
//	  rate_limit: 5
//	output:
//	  destination: stdout
//	  progress: true
package manifest

// Manifest represents a validated clone-job manifest.
//
// Required fields are Version, Connection, Source, and Destination. Match,
// Clone, and Output are optional with sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Connection configures the drive service connection.
	Connection ConnectionConfig `json:"connection" yaml:"connection"`

	// Source identifies the folder tree to copy.
	Source FolderRef `json:"source" yaml:"source"`

	// Destination identifies the folder the copy is placed under.
	Destination FolderRef `json:"destination" yaml:"destination"`

	// Match configures leaf filtering by glob patterns (optional).
	Match MatchConfig `json:"match,omitempty" yaml:"match,omitempty"`

	// Clone configures clone behavior (optional).
	Clone CloneConfig `json:"clone,omitempty" yaml:"clone,omitempty"`

	// Output configures output destination and format (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// ConnectionConfig configures the drive service connection.
type ConnectionConfig struct {
	// Service is the drive service type. Currently only "gdrive" is supported.
	Service string `json:"service" yaml:"service"`

	// CredentialsFile is the path to the OAuth client credentials file.
	// Optional; defaults to "credentials.json" in the working directory.
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`

	// TokenFile is the path to the cached OAuth token file.
	// Optional; defaults to "token.json" in the working directory.
	TokenFile string `json:"token_file,omitempty" yaml:"token_file,omitempty"`

	// Endpoint is a custom API endpoint URL. Optional.
	// Used for testing against emulated services.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// FolderRef identifies a drive folder.
type FolderRef struct {
	// FolderID is the opaque folder identifier.
	FolderID string `json:"folder_id" yaml:"folder_id"`
}

// MatchConfig configures leaf filtering by glob patterns.
//
// Patterns apply to leaf entries only; folders are always traversed so the
// destination structure mirrors the source.
type MatchConfig struct {
	// Includes is a list of glob patterns for leaves to include.
	// Default: ["**"] (everything).
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`

	// Excludes is a list of glob patterns for leaves to exclude. Optional.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`

	// IncludeHidden includes hidden entries (names starting with .).
	// Default: false.
	IncludeHidden bool `json:"include_hidden,omitempty" yaml:"include_hidden,omitempty"`
}

// CloneConfig configures clone behavior.
//
// All fields are optional with sensible defaults applied during loading.
type CloneConfig struct {
	// RateLimit is the maximum requests per second (0 = unlimited).
	// Default: 0.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// PageSize is the listing page size. Range: 1-1000. Default: 1000.
	PageSize int `json:"page_size,omitempty" yaml:"page_size,omitempty"`

	// ProgressEvery controls progress record frequency.
	// A progress record is emitted every N copied leaves.
	// Default: 100.
	ProgressEvery int `json:"progress_every,omitempty" yaml:"progress_every,omitempty"`

	// Preflight configures permission checks before the clone starts.
	Preflight PreflightConfig `json:"preflight,omitempty" yaml:"preflight,omitempty"`
}

// PreflightConfig controls how aggressively canopy probes permissions.
//
// Preflight is a capability contract, not a data operation.
//   - plan-only: no service calls
//   - read-safe: read-only calls against source and destination
//
// Values are schema-validated.
type PreflightConfig struct {
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// OutputConfig configures output destination and format.
//
// All fields are optional with sensible defaults applied during loading.
type OutputConfig struct {
	// Destination is the output target.
	// Values: "stdout" or "file:/path/to/output.jsonl"
	// Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Progress enables progress record emission during the clone.
	// Default: true.
	Progress *bool `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultService is the default drive service.
	DefaultService = "gdrive"

	// DefaultCredentialsFile is the default OAuth client credentials path.
	DefaultCredentialsFile = "credentials.json"

	// DefaultTokenFile is the default cached token path.
	DefaultTokenFile = "token.json"

	// DefaultRateLimit is the default rate limit (0 = unlimited).
	DefaultRateLimit = 0.0

	// DefaultPageSize is the default listing page size.
	DefaultPageSize = 1000

	// DefaultProgressEvery is the default progress emission frequency.
	DefaultProgressEvery = 100

	// DefaultDestination is the default output destination.
	DefaultDestination = "stdout"

	// DefaultProgress is the default value for progress emission.
	DefaultProgress = true

	// DefaultPreflightMode is the default preflight mode.
	DefaultPreflightMode = "read-safe"
)

// DefaultIncludes is the default include pattern set (match everything).
var DefaultIncludes = []string{"**"}

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest so callers
// don't need to reason about zero values.
func (m *Manifest) ApplyDefaults() {
	// Connection defaults
	if m.Connection.CredentialsFile == "" {
		m.Connection.CredentialsFile = DefaultCredentialsFile
	}
	if m.Connection.TokenFile == "" {
		m.Connection.TokenFile = DefaultTokenFile
	}

	// Match defaults
	if len(m.Match.Includes) == 0 {
		m.Match.Includes = append([]string(nil), DefaultIncludes...)
	}

	// Clone defaults
	if m.Clone.PageSize == 0 {
		m.Clone.PageSize = DefaultPageSize
	}
	if m.Clone.ProgressEvery == 0 {
		m.Clone.ProgressEvery = DefaultProgressEvery
	}
	// RateLimit: 0 is a valid value (unlimited), so no default needed

	if m.Clone.Preflight.Mode == "" {
		m.Clone.Preflight.Mode = DefaultPreflightMode
	}

	// Output defaults
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Output.Progress == nil {
		defaultProgress := DefaultProgress
		m.Output.Progress = &defaultProgress
	}
}

// ProgressEnabled returns whether progress records should be emitted.
// Returns the configured value, or DefaultProgress if not set.
func (o *OutputConfig) ProgressEnabled() bool {
	if o.Progress == nil {
		return DefaultProgress
	}
	return *o.Progress
}
