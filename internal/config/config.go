// Package config provides the configuration structure for the tts-bootstrap command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the optional per-project configuration file, looked up in the project root.
const FileName = "tts-bootstrap.toml"

// Default values mirror the layout of the demo checkout.
const (
	DefaultInterpreter      = "python3.10"
	DefaultEnvDir           = ".env"
	DefaultMarkerName       = "ok"
	DefaultRequirements     = "requirements.txt"
	DefaultDependencyDir    = "MeloTTS"
	DefaultPinnedTag        = "v0.1.2"
	DefaultTokenizerModule  = "unidic"
	DefaultTokenizerCommand = "download"
	DefaultDemoEntry        = "app.py"
	DefaultStatusSubject    = "tts.bootstrap.status"
	LogFileName             = "tts-bootstrap.log"
)

var (
	// ErrInterpreterEmpty indicates that no interpreter name is configured.
	ErrInterpreterEmpty = errors.New("interpreter cannot be empty")
	// ErrEnvDirEmpty indicates that the environment directory is empty.
	ErrEnvDirEmpty = errors.New("environment directory cannot be empty")
	// ErrMarkerNameEmpty indicates that the readiness marker name is empty.
	ErrMarkerNameEmpty = errors.New("marker name cannot be empty")
	// ErrRequirementsEmpty indicates that the requirements manifest path is empty.
	ErrRequirementsEmpty = errors.New("requirements manifest cannot be empty")
	// ErrDependencyDirEmpty indicates that the nested dependency directory is empty.
	ErrDependencyDirEmpty = errors.New("dependency directory cannot be empty")
	// ErrPinnedTagEmpty indicates that no tag is pinned for the nested dependency.
	ErrPinnedTagEmpty = errors.New("pinned tag cannot be empty")
	// ErrTokenizerModuleEmpty indicates that the tokenizer module is empty.
	ErrTokenizerModuleEmpty = errors.New("tokenizer module cannot be empty")
	// ErrDemoCommandEmpty indicates that the demo entry point is empty.
	ErrDemoCommandEmpty = errors.New("demo command cannot be empty")
	// ErrEnvDirUnsafe indicates an environment directory that is not a dedicated
	// sub-directory of the root. It is wiped on every provisioning run.
	ErrEnvDirUnsafe = errors.New("environment directory must be a sub-directory of the root holding neither the dependency nor the manifest")
)

// InterpreterConfig names the interpreter that creates the virtual environment.
type InterpreterConfig struct {
	Name string `env:"TTS_BOOTSTRAP_INTERPRETER" toml:"name"`
}

// PathsConfig holds the project-relative locations the bootstrapper touches.
type PathsConfig struct {
	Root          string `env:"TTS_BOOTSTRAP_ROOT"           toml:"root"`
	EnvDir        string `env:"TTS_BOOTSTRAP_ENV_DIR"        toml:"env_dir"`
	MarkerName    string `env:"TTS_BOOTSTRAP_MARKER"         toml:"marker_name"`
	Requirements  string `env:"TTS_BOOTSTRAP_REQUIREMENTS"   toml:"requirements"`
	DependencyDir string `env:"TTS_BOOTSTRAP_DEPENDENCY_DIR" toml:"dependency_dir"`
}

// DependencyConfig pins the nested TTS library fork.
// LegacyResolver adds --use-deprecated=legacy-resolver to the editable install,
// which the pinned release needs with current pip versions.
type DependencyConfig struct {
	PinnedTag      string `env:"TTS_BOOTSTRAP_PINNED_TAG"      toml:"pinned_tag"`
	LegacyResolver bool   `env:"TTS_BOOTSTRAP_LEGACY_RESOLVER" toml:"legacy_resolver"`
}

// TokenizerConfig describes the asset download subcommand, run as `python -m <module> <command>`.
type TokenizerConfig struct {
	Module  string `env:"TTS_BOOTSTRAP_TOKENIZER_MODULE"  toml:"module"`
	Command string `env:"TTS_BOOTSTRAP_TOKENIZER_COMMAND" toml:"command"`
}

// DemoConfig holds the interpreter arguments of the demo entry point.
type DemoConfig struct {
	Args []string `env:"TTS_BOOTSTRAP_DEMO" envSeparator:" " toml:"args"`
}

// LoggingConfig holds the log destination.
type LoggingConfig struct {
	Dir string `env:"TTS_BOOTSTRAP_LOG_DIR" toml:"dir"`
}

// NATSConfig holds the optional status-event transport. An empty URL disables it.
type NATSConfig struct {
	URL           string `env:"TTS_BOOTSTRAP_NATS_URL"       toml:"url"`
	StatusSubject string `env:"TTS_BOOTSTRAP_STATUS_SUBJECT" toml:"status_subject"`
}

// Config is the root configuration structure.
type Config struct {
	Interpreter InterpreterConfig `toml:"interpreter"`
	Paths       PathsConfig       `toml:"paths"`
	Dependency  DependencyConfig  `toml:"dependency"`
	Tokenizer   TokenizerConfig   `toml:"tokenizer"`
	Demo        DemoConfig        `toml:"demo"`
	Logging     LoggingConfig     `toml:"logging"`
	NATS        NATSConfig        `toml:"nats"`
}

// SharedSettings are the pipeline-wide values the bootstrapper honours.
type SharedSettings struct {
	NATSURL     string
	BaseLogsDir string
}

// SharedSource provides the pipeline-wide settings.
type SharedSource func(log *logger.Logger) (SharedSettings, error)

// sharedConfig is the layout of the pipeline configuration read by the configurator.
type sharedConfig struct {
	NATS  sharedNATSConfig  `toml:"nats"`
	Paths sharedPathsConfig `toml:"paths"`
}

type sharedNATSConfig struct {
	URL string `toml:"url"`
}

type sharedPathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Interpreter: InterpreterConfig{Name: DefaultInterpreter},
		Paths: PathsConfig{
			Root:          ".",
			EnvDir:        DefaultEnvDir,
			MarkerName:    DefaultMarkerName,
			Requirements:  DefaultRequirements,
			DependencyDir: DefaultDependencyDir,
		},
		Dependency: DependencyConfig{
			PinnedTag:      DefaultPinnedTag,
			LegacyResolver: true,
		},
		Tokenizer: TokenizerConfig{
			Module:  DefaultTokenizerModule,
			Command: DefaultTokenizerCommand,
		},
		Demo:    DemoConfig{Args: []string{DefaultDemoEntry}},
		Logging: LoggingConfig{Dir: os.TempDir()},
		NATS:    NATSConfig{URL: "", StatusSubject: DefaultStatusSubject},
	}
}

// Load builds the configuration from defaults, the optional project file,
// the shared pipeline configuration and TTS_BOOTSTRAP_* environment variables,
// in that order of increasing precedence.
func Load(log *logger.Logger) (*Config, error) {
	return LoadWith(log, ConfiguratorSource)
}

// LoadWith is Load with an explicit source for the shared settings.
// Environment overrides are applied once before the project file is read, so
// TTS_BOOTSTRAP_ROOT also selects where tts-bootstrap.toml is looked up, and
// once more at the end so they win over every other layer.
func LoadWith(log *logger.Logger, source SharedSource) (*Config, error) {
	cfg := Default()

	err := cfg.ApplyEnv()
	if err != nil {
		return nil, err
	}

	err = cfg.LoadFile(filepath.Join(cfg.Paths.Root, FileName))
	if err != nil {
		return nil, err
	}

	cfg.LoadShared(log, source)

	err = cfg.ApplyEnv()
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile decodes a TOML file over the current values. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the fixed project config file
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	err = toml.Unmarshal(data, c)
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	return nil
}

// ConfiguratorSource reads the shared settings through the pipeline configurator.
func ConfiguratorSource(log *logger.Logger) (SharedSettings, error) {
	var shared sharedConfig

	err := configurator.Load(&shared, log)
	if err != nil {
		return SharedSettings{}, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return SharedSettings{
		NATSURL:     shared.NATS.URL,
		BaseLogsDir: shared.Paths.BaseLogsDir,
	}, nil
}

// LoadShared applies the NATS URL and log directory from source.
// The bootstrapper must work on a bare checkout, so failures only produce a warning.
func (c *Config) LoadShared(log *logger.Logger, source SharedSource) {
	shared, err := source(log)
	if err != nil {
		log.Warn("Shared configuration unavailable, using local settings: %v", err)

		return
	}

	if shared.NATSURL != "" {
		c.NATS.URL = shared.NATSURL
	}

	if shared.BaseLogsDir != "" {
		c.Logging.Dir = shared.BaseLogsDir
	}
}

// ApplyEnv overrides fields from TTS_BOOTSTRAP_* environment variables.
func (c *Config) ApplyEnv() error {
	err := env.Parse(c)
	if err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	return nil
}

// Validate ensures every value the bootstrap sequence depends on is set.
func (c *Config) Validate() error {
	checks := []struct {
		value string
		err   error
	}{
		{c.Interpreter.Name, ErrInterpreterEmpty},
		{c.Paths.EnvDir, ErrEnvDirEmpty},
		{c.Paths.MarkerName, ErrMarkerNameEmpty},
		{c.Paths.Requirements, ErrRequirementsEmpty},
		{c.Paths.DependencyDir, ErrDependencyDirEmpty},
		{c.Dependency.PinnedTag, ErrPinnedTagEmpty},
		{c.Tokenizer.Module, ErrTokenizerModuleEmpty},
	}

	for _, check := range checks {
		if check.value == "" {
			return check.err
		}
	}

	if len(c.Demo.Args) == 0 {
		return ErrDemoCommandEmpty
	}

	return c.validateEnvPath()
}

// validateEnvPath rejects environment directories whose removal would take
// the root, the dependency checkout or the manifest with it.
func (c *Config) validateEnvPath() error {
	envPath := c.EnvPath()

	if !isWithin(c.Paths.Root, envPath) || filepath.Clean(c.Paths.Root) == envPath {
		return fmt.Errorf("%w: '%s' resolves to '%s'", ErrEnvDirUnsafe, c.Paths.EnvDir, envPath)
	}

	if isWithin(envPath, c.DependencyPath()) {
		return fmt.Errorf("%w: '%s' holds dependency '%s'", ErrEnvDirUnsafe, envPath, c.DependencyPath())
	}

	if isWithin(envPath, c.ManifestPath()) {
		return fmt.Errorf("%w: '%s' holds manifest '%s'", ErrEnvDirUnsafe, envPath, c.ManifestPath())
	}

	return nil
}

// isWithin reports whether target equals parent or lies below it.
func isWithin(parent, target string) bool {
	rel, err := filepath.Rel(parent, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// EnvPath returns the environment directory resolved against the project root.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Paths.Root, c.Paths.EnvDir)
}

// MarkerPath returns the readiness marker location.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.EnvPath(), c.Paths.MarkerName)
}

// ManifestPath returns the requirements manifest location.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.Root, c.Paths.Requirements)
}

// DependencyPath returns the nested dependency checkout location.
func (c *Config) DependencyPath() string {
	return filepath.Join(c.Paths.Root, c.Paths.DependencyDir)
}
