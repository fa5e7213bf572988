package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_Precedence(t *testing.T) {
	e := FromList([]string{"A=base", "B=base", "PATH=/bin"})

	out := e.Merge([]string{"A=proc", "C=${PATH}:/x", "=skipped", "noequals"})
	assert.Equal(t, []string{"A=proc", "B=base", "C=/bin:/x", "PATH=/bin"}, out)
}

func TestMerge_UnknownReferenceKept(t *testing.T) {
	out := FromList(nil).Merge([]string{"X=${MISSING}-${"})
	assert.Equal(t, []string{"X=${MISSING}-${"}, out)
}

func TestMerge_InheritedValuesAreVerbatim(t *testing.T) {
	e := FromList([]string{"HOME=/home/u", "TEMPLATE=path=${HOME}/x"})

	out := e.Merge([]string{"CACHE=${HOME}/.cache"})
	assert.Equal(t, []string{"CACHE=/home/u/.cache", "HOME=/home/u", "TEMPLATE=path=${HOME}/x"}, out)
}

func TestMerge_DoesNotMutateBase(t *testing.T) {
	e := FromList([]string{"A=1"})
	_ = e.Merge([]string{"A=2"})
	assert.Equal(t, []string{"A=1"}, e.Merge(nil))
}

func TestNew_InheritsProcessEnv(t *testing.T) {
	t.Setenv("CCP_ENV_TEST", "yes")
	assert.Contains(t, New().Merge(nil), "CCP_ENV_TEST=yes")
}
