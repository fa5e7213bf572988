package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// FileName is the optional supervisor configuration file, relative to the
// supervisor context directory.
const FileName = ".ccp.toml"

// Defaults for the supervised server and its client.
const (
	DefaultListen        = "0.0.0.0:8082"
	DefaultAddress       = "http://localhost:8082"
	DefaultClientCommand = "claude"
	DefaultClientEnvVar  = "ANTHROPIC_BASE_URL"
	DefaultClientGrace   = 2 * time.Second
)

// FileConfig represents the top-level TOML structure of .ccp.toml.
type FileConfig struct {
	Server      ServerConfig      `toml:"server" mapstructure:"server"`
	Environment EnvironmentConfig `toml:"environment" mapstructure:"environment"`
	Client      ClientConfig      `toml:"client" mapstructure:"client"`
	Log         LogConfig         `toml:"log" mapstructure:"log"`
	History     HistoryConfig     `toml:"history" mapstructure:"history"`
}

// ServerConfig describes the supervised program. An empty Command means the
// running executable with the "serve" verb.
type ServerConfig struct {
	Command        []string `toml:"command" mapstructure:"command"`
	ForegroundArgs []string `toml:"foreground_args" mapstructure:"foreground_args"`
	Env            []string `toml:"env" mapstructure:"env"`
	Listen         string   `toml:"listen" mapstructure:"listen"`
	Address        string   `toml:"address" mapstructure:"address"`
}

// EnvironmentConfig lists the preparation steps run before a launch.
// Create runs only when Dir is set and missing; Install runs on every launch.
type EnvironmentConfig struct {
	Dir     string   `toml:"dir" mapstructure:"dir"`
	Create  []string `toml:"create" mapstructure:"create"`
	Install []string `toml:"install" mapstructure:"install"`
}

type ClientConfig struct {
	Command []string      `toml:"command" mapstructure:"command"`
	EnvVar  string        `toml:"env_var" mapstructure:"env_var"`
	Grace   time.Duration `toml:"grace" mapstructure:"grace"`
}

type LogConfig struct {
	MaxSizeMB  int  `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `toml:"compress" mapstructure:"compress"`
}

// HistoryConfig enables lifecycle history when DSN is non-empty.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Default returns the configuration used when no file is present.
func Default() FileConfig {
	return FileConfig{
		Server: ServerConfig{
			Listen:  DefaultListen,
			Address: DefaultAddress,
		},
		Client: ClientConfig{
			Command: []string{DefaultClientCommand},
			EnvVar:  DefaultClientEnvVar,
			Grace:   DefaultClientGrace,
		},
	}
}

// Load reads the supervisor TOML at path. A missing file is not an error and
// yields Default(). Relative paths in the file are resolved against baseDir.
func Load(path, baseDir string) (FileConfig, error) {
	fc := Default()
	if path == "" {
		return fc, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return fc, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := v.Unmarshal(&fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	fc.applyDefaults()
	if err := fc.Validate(); err != nil {
		return fc, fmt.Errorf("%s: %w", path, err)
	}
	if fc.Environment.Dir != "" && !filepath.IsAbs(fc.Environment.Dir) {
		fc.Environment.Dir = filepath.Join(baseDir, fc.Environment.Dir)
	}
	return fc, nil
}

func (fc *FileConfig) applyDefaults() {
	d := Default()
	if fc.Server.Listen == "" {
		fc.Server.Listen = d.Server.Listen
	}
	if fc.Server.Address == "" {
		fc.Server.Address = d.Server.Address
	}
	if len(fc.Client.Command) == 0 {
		fc.Client.Command = d.Client.Command
	}
	if fc.Client.EnvVar == "" {
		fc.Client.EnvVar = d.Client.EnvVar
	}
	if fc.Client.Grace <= 0 {
		fc.Client.Grace = d.Client.Grace
	}
}

// Validate checks constraints viper cannot express.
func (fc FileConfig) Validate() error {
	if len(fc.Environment.Create) > 0 && fc.Environment.Dir == "" {
		return errors.New("environment.create requires environment.dir")
	}
	if fc.Log.MaxSizeMB < 0 || fc.Log.MaxBackups < 0 || fc.Log.MaxAgeDays < 0 {
		return errors.New("log limits must not be negative")
	}
	return nil
}

// ServerCommand returns the argv of the supervised program. exe is the path of
// the running binary, used when no command is configured.
func (fc FileConfig) ServerCommand(exe string) []string {
	if len(fc.Server.Command) > 0 {
		return append([]string(nil), fc.Server.Command...)
	}
	return []string{exe, "serve", "--addr", fc.Server.Listen}
}
