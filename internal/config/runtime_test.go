package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadRuntimeDefaults(t *testing.T) {
	rt, err := loadRuntime("", envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultProvider, rt.PreferredProvider)
	assert.Equal(t, DefaultBigModel, rt.BigModel)
	assert.Equal(t, DefaultSmallModel, rt.SmallModel)
	assert.Equal(t, DefaultLogLevel, rt.LogLevel)
	assert.Error(t, rt.Validate())
}

func TestLoadRuntimeEnvOverridesDefaults(t *testing.T) {
	rt, err := loadRuntime(filepath.Join(t.TempDir(), ".env"), envFrom(map[string]string{
		"BIG_MODEL":          "gpt-5",
		"PREFERRED_PROVIDER": "Google",
	}))
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", rt.BigModel)
	assert.Equal(t, "google", rt.PreferredProvider)
	assert.Equal(t, DefaultSmallModel, rt.SmallModel)
}

func TestLoadRuntimeFileOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "OPENAI_API_KEY=sk-file\nGEMINI_API_KEY=gm-file\nBIG_MODEL=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rt, err := loadRuntime(path, envFrom(map[string]string{
		"OPENAI_API_KEY": "sk-env",
		"BIG_MODEL":      "from-env",
		"SMALL_MODEL":    "small-env",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sk-file", rt.OpenAIAPIKey)
	assert.Equal(t, "from-file", rt.BigModel)
	assert.Equal(t, "small-env", rt.SmallModel)
	assert.NoError(t, rt.Validate())

	a := rt.Aliases()
	assert.Equal(t, "from-file", a.BigModel)
	assert.Equal(t, "small-env", a.SmallModel)
}

func TestValidateReportsBothKeys(t *testing.T) {
	err := Runtime{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
