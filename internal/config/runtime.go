package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/loykin/ccp/internal/alias"
	"github.com/loykin/ccp/internal/settings"
	"github.com/spf13/viper"
)

// Built-in defaults for the forwarder runtime.
const (
	DefaultProvider   = alias.ProviderOpenAI
	DefaultBigModel   = "gpt-4.1"
	DefaultSmallModel = "gpt-4.1-mini"
	DefaultLogLevel   = "INFO"
)

// Runtime is the forwarder configuration, assembled once at startup.
type Runtime struct {
	OpenAIAPIKey      string `mapstructure:"openai_api_key"`
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	PreferredProvider string `mapstructure:"preferred_provider"`
	BigModel          string `mapstructure:"big_model"`
	SmallModel        string `mapstructure:"small_model"`
	LogLevel          string `mapstructure:"log_level"`
}

var runtimeKeys = map[string]string{
	settings.KeyOpenAIAPIKey:      "",
	settings.KeyGeminiAPIKey:      "",
	settings.KeyPreferredProvider: DefaultProvider,
	settings.KeyBigModel:          DefaultBigModel,
	settings.KeySmallModel:        DefaultSmallModel,
	settings.KeyLogLevel:          DefaultLogLevel,
}

// LoadRuntime builds a Runtime with precedence: settings file, then process
// environment, then built-in defaults. settingsPath may be empty or missing.
func LoadRuntime(settingsPath string) (Runtime, error) {
	return loadRuntime(settingsPath, os.LookupEnv)
}

func loadRuntime(settingsPath string, lookup func(string) (string, bool)) (Runtime, error) {
	v := viper.New()
	// viper ranks config above defaults, so the environment is folded into the
	// default layer to sit between the file and the built-ins.
	for key, def := range runtimeKeys {
		vk := strings.ToLower(key)
		v.SetDefault(vk, def)
		if ev, ok := lookup(key); ok {
			v.SetDefault(vk, ev)
		}
	}
	if settingsPath != "" {
		if _, err := os.Stat(settingsPath); err == nil {
			v.SetConfigFile(settingsPath)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Runtime{}, fmt.Errorf("read settings %s: %w", settingsPath, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Runtime{}, err
		}
	}
	var rt Runtime
	if err := v.Unmarshal(&rt); err != nil {
		return Runtime{}, err
	}
	rt.PreferredProvider = strings.ToLower(strings.TrimSpace(rt.PreferredProvider))
	if rt.PreferredProvider == "" {
		rt.PreferredProvider = DefaultProvider
	}
	return rt, nil
}

// Validate reports missing credentials. Both are required at startup.
func (r Runtime) Validate() error {
	var errs []error
	if r.OpenAIAPIKey == "" {
		errs = append(errs, fmt.Errorf("%s is not set", settings.KeyOpenAIAPIKey))
	}
	if r.GeminiAPIKey == "" {
		errs = append(errs, fmt.Errorf("%s is not set", settings.KeyGeminiAPIKey))
	}
	return errors.Join(errs...)
}

// Aliases returns the resolver view of the runtime configuration.
func (r Runtime) Aliases() alias.Settings {
	return alias.Settings{
		PreferredProvider: r.PreferredProvider,
		BigModel:          r.BigModel,
		SmallModel:        r.SmallModel,
	}
}
