package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/liblearn/internal/deck"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Source kinds.
const (
	SourceGo     = "go"
	SourcePython = "python"
	SourceMeta   = "meta"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Source SourceConfig      `yaml:"source"`
	Deck   DeckConfig        `yaml:"deck"`
	HTTP   HTTPConfig        `yaml:"http"`
	Auth   AuthConfig        `yaml:"auth"`
	Report ReportConfig      `yaml:"report"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Deck.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Report.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogDir receives one log file per run; empty disables file logging.
	LogDir string `yaml:"log_dir"`
	// LogRetention is the number of log files kept; 0 keeps all.
	LogRetention int `yaml:"log_retention"`
	// Workers bounds concurrent deck builds in batch mode.
	Workers int `yaml:"workers"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogRetention, validation.Min(0)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(64)),
	)
}

// SourceConfig selects where routines come from.
type SourceConfig struct {
	Kind string `yaml:"kind"`
	// GoDir is the directory the go command runs in.
	GoDir string `yaml:"go_dir"`
	// PythonPaths are the module search roots.
	PythonPaths []string `yaml:"python_paths"`
	// MetaDir holds metadata files.
	MetaDir string `yaml:"meta_dir"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(SourceGo, SourcePython, SourceMeta)),
	); err != nil {
		return err
	}
	switch c.Kind {
	case SourcePython:
		if len(c.PythonPaths) == 0 {
			return fmt.Errorf("source: kind is %q but python_paths is empty", SourcePython)
		}
	case SourceMeta:
		if c.MetaDir == "" {
			return fmt.Errorf("source: kind is %q but meta_dir is empty", SourceMeta)
		}
	}
	return nil
}

// DeckConfig holds the default deck options.
type DeckConfig struct {
	Full    bool `yaml:"full"`
	Shuffle bool `yaml:"shuffle"`
	Cycle   bool `yaml:"cycle"`
	Private bool `yaml:"private"`
	Special bool `yaml:"special"`
	// Unresolved is "drop" or "placeholder".
	Unresolved  string `yaml:"unresolved"`
	Placeholder string `yaml:"placeholder"`
}

// Validate validates the deck configuration.
func (c *DeckConfig) Validate() error {
	if c.Unresolved == "" {
		c.Unresolved = deck.UnresolvedDrop.String()
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Unresolved, validation.In(deck.UnresolvedDrop.String(), deck.UnresolvedPlaceholder.String())),
	)
}

// Options converts the configuration into build options.
func (c *DeckConfig) Options() deck.Options {
	policy, _ := deck.ParseUnresolved(c.Unresolved)
	return deck.Options{
		AllowSpecial: c.Special,
		AllowPrivate: c.Private,
		Short:        !c.Full,
		Shuffle:      c.Shuffle,
		Unresolved:   policy,
		Placeholder:  c.Placeholder,
	}
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ReportConfig holds the batch report database configuration.
type ReportConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:     slog.LevelInfo,
			LogDir:       "./logs",
			LogRetention: 30,
			Workers:      4,
		},
		Source: SourceConfig{
			Kind:        SourceGo,
			PythonPaths: []string{"."},
			MetaDir:     "./meta",
		},
		Deck: DeckConfig{
			Unresolved:  deck.UnresolvedDrop.String(),
			Placeholder: deck.DefaultPlaceholder,
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Report: ReportConfig{
			SQLitePath: "./liblearn.db",
		},
	}
}
