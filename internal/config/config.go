package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vango-dev/homectl/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "homectl.json"

	// EnvFileName is the optional dotenv overlay next to the config file.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HOMECTL_"

	// DefaultPlaceholder is substituted with the new value in update URLs.
	DefaultPlaceholder = "{value}"

	// DefaultRequestTimeout bounds every request to the fragment service.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultHost is the default reference server host.
	DefaultHost = "localhost"

	// DefaultPort is the default reference server port.
	DefaultPort = 8080
)

// Intent names used as keys of ModalConfig.Intents.
const (
	IntentNew    = "new"
	IntentEdit   = "edit"
	IntentDelete = "delete"
)

// Duration is a time.Duration that marshals as a Go duration string.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the complete homectl.json configuration.
type Config struct {
	// BaseURL is the fragment service origin relative URLs resolve against.
	BaseURL string `json:"baseUrl,omitempty"`

	// RequestTimeout bounds each request to the fragment service.
	RequestTimeout Duration `json:"requestTimeout,omitempty"`

	// Placeholder is replaced with the new value in update URL templates.
	Placeholder string `json:"placeholder,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty"`

	// Toggle configures the on/off switch controller.
	Toggle ToggleConfig `json:"toggle,omitempty"`

	// Modal configures the modal fetch controller.
	Modal ModalConfig `json:"modal,omitempty"`

	// Listing configures where a confirmed delete navigates to.
	Listing ListingConfig `json:"listing,omitempty"`

	// Resync configures how widgets are refreshed after a write.
	Resync ResyncConfig `json:"resync,omitempty"`

	// Server configures the reference fragment service.
	Server ServerConfig `json:"server,omitempty"`

	// Metrics configures Prometheus metric names.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ToggleConfig configures the toggle controller.
type ToggleConfig struct {
	// Method is PATCH or POST.
	Method string `json:"method,omitempty"`
}

// IntentConfig binds an affordance intent to its request method and modal.
type IntentConfig struct {
	Method string `json:"method,omitempty"`
	Modal  string `json:"modal,omitempty"`
}

// ModalConfig configures the modal fetch controller.
type ModalConfig struct {
	// Container is the element ID fragments are injected into.
	Container string `json:"container,omitempty"`

	// Intents maps new, edit and delete to their request contract.
	Intents map[string]IntentConfig `json:"intents,omitempty"`
}

// ListingConfig configures the post-delete navigation.
type ListingConfig struct {
	URL   string `json:"url,omitempty"`
	Table string `json:"table,omitempty"`
}

// ResyncConfig configures widget resynchronization.
type ResyncConfig struct {
	// StatePath is the per-device state endpoint; {id} is the device ID.
	StatePath string `json:"statePath,omitempty"`

	// FeedPath is the websocket endpoint pushing state changes.
	FeedPath string `json:"feedPath,omitempty"`

	// Disabled commits optimistic state without refetching.
	Disabled bool `json:"disabled,omitempty"`
}

// ServerConfig configures the reference fragment service.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// MetricsConfig configures Prometheus metric names.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads homectl.json from dir, then applies the .env overlay and the
// environment.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to defaults when homectl.json is
// missing. The .env overlay and environment still apply.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if !errors.HasCode(err, "E131") {
			return nil, err
		}
		cfg = New()
	}
	if err := cfg.applyEnv(dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. No overlays
// are applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E131").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("E131").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E130").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E130").Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E131").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://%s:%d", DefaultHost, DefaultPort)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.Placeholder == "" {
		c.Placeholder = DefaultPlaceholder
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Toggle.Method == "" {
		c.Toggle.Method = http.MethodPatch
	}
	if c.Modal.Container == "" {
		c.Modal.Container = "modalHolder"
	}
	defaults := DefaultIntents()
	if c.Modal.Intents == nil {
		c.Modal.Intents = make(map[string]IntentConfig, len(defaults))
	}
	for name, def := range defaults {
		ic := c.Modal.Intents[name]
		if ic.Method == "" {
			ic.Method = def.Method
		}
		if ic.Modal == "" {
			ic.Modal = def.Modal
		}
		c.Modal.Intents[name] = ic
	}
	if c.Listing.URL == "" {
		c.Listing.URL = "/admin/person/list"
	}
	if c.Listing.Table == "" {
		c.Listing.Table = "dataTable"
	}
	if c.Resync.StatePath == "" {
		c.Resync.StatePath = "/device/{id}/state"
	}
	if c.Resync.FeedPath == "" {
		c.Resync.FeedPath = "/ws"
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "homectl"
	}
}

// DefaultIntents returns the request contract for each modal intent.
func DefaultIntents() map[string]IntentConfig {
	return map[string]IntentConfig{
		IntentNew:    {Method: http.MethodPost, Modal: "modalNewOrEdit"},
		IntentEdit:   {Method: http.MethodPut, Modal: "modalNewOrEdit"},
		IntentDelete: {Method: http.MethodDelete, Modal: "modalDelete"},
	}
}

// applyEnv overlays the .env file in dir and then the process environment.
func (c *Config) applyEnv(dir string) error {
	vars := map[string]string{}
	envPath := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		fileVars, err := godotenv.Read(envPath)
		if err != nil {
			return errors.New("E131").WithDetail(envPath).Wrap(err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			vars[k] = v
		}
	}
	return c.applyVars(vars)
}

func (c *Config) applyVars(vars map[string]string) error {
	if v, ok := vars[EnvPrefix+"BASE_URL"]; ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := vars[EnvPrefix+"REQUEST_TIMEOUT"]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("E130").WithDetail(EnvPrefix + "REQUEST_TIMEOUT").Wrap(err)
		}
		c.RequestTimeout = Duration(d)
	}
	if v, ok := vars[EnvPrefix+"TOGGLE_METHOD"]; ok && v != "" {
		c.Toggle.Method = strings.ToUpper(v)
	}
	if v, ok := vars[EnvPrefix+"HOST"]; ok && v != "" {
		c.Server.Host = v
	}
	if v, ok := vars[EnvPrefix+"PORT"]; ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E130").WithDetail(EnvPrefix + "PORT").Wrap(err)
		}
		c.Server.Port = port
	}
	if v, ok := vars[EnvPrefix+"LOG_LEVEL"]; ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("E130").
			WithDetailf("baseUrl %q must be an absolute URL", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("E130").WithDetail("requestTimeout must be positive")
	}
	if c.Placeholder == "" {
		return errors.New("E130").WithDetail("placeholder must not be empty")
	}
	switch c.Toggle.Method {
	case http.MethodPatch, http.MethodPost:
	default:
		return errors.New("E130").
			WithDetailf("toggle.method %q must be PATCH or POST", c.Toggle.Method)
	}
	for name, ic := range c.Modal.Intents {
		switch name {
		case IntentNew, IntentEdit, IntentDelete:
		default:
			return errors.New("E130").WithDetailf("unknown modal intent %q", name)
		}
		if !validMethod(ic.Method) {
			return errors.New("E130").
				WithDetailf("modal.intents.%s.method %q is not an HTTP method", name, ic.Method)
		}
	}
	if !strings.Contains(c.Resync.StatePath, "{id}") {
		return errors.New("E130").WithDetail("resync.statePath must contain {id}")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E130").WithDetailf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// SlogLevel returns LogLevel as an slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.New("E130").WithDetailf("logLevel %q", c.LogLevel).Wrap(err)
	}
	return lvl, nil
}

// ServerAddress returns the listen address of the reference service.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Timeout returns RequestTimeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}
