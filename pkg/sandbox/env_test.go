package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blackcoderx/hopp/pkg/storage"
	"github.com/blackcoderx/hopp/pkg/templating"
)

func variable(key, value string) storage.EnvVariable {
	return storage.EnvVariable{Key: key, InitialValue: value, CurrentValue: value}
}

func TestEnvsLookupPrefersSelected(t *testing.T) {
	envs := Envs{
		Global:   []storage.EnvVariable{variable("host", "global.example.com"), variable("region", "eu")},
		Selected: []storage.EnvVariable{variable("host", "dev.example.com")},
	}

	v, ok := envs.Get("host", SourceAll)
	assert.True(t, ok)
	assert.Equal(t, "dev.example.com", v.CurrentValue)

	v, ok = envs.Get("host", SourceGlobal)
	assert.True(t, ok)
	assert.Equal(t, "global.example.com", v.CurrentValue)

	_, ok = envs.Get("region", SourceActive)
	assert.False(t, ok)

	assert.Equal(t, []templating.Variable{
		{Key: "host", Value: "dev.example.com"},
		{Key: "host", Value: "global.example.com"},
		{Key: "region", Value: "eu"},
	}, envs.Variables(SourceAll))
}

func TestEnvsSet(t *testing.T) {
	envs := Envs{Global: []storage.EnvVariable{variable("region", "eu")}}

	envs.Set("region", "us", SourceAll)
	assert.Equal(t, "us", envs.Global[0].CurrentValue)
	assert.Equal(t, "eu", envs.Global[0].InitialValue)

	envs.Set("token", "abc", SourceAll)
	assert.Equal(t, []storage.EnvVariable{variable("token", "abc")}, envs.Selected)

	envs.Set("flag", "1", SourceGlobal)
	assert.Len(t, envs.Global, 2)

	envs.SetInitial("token", "seed", SourceActive)
	assert.Equal(t, "seed", envs.Selected[0].InitialValue)
	assert.Equal(t, "abc", envs.Selected[0].CurrentValue)

	envs.Reset("token", SourceAll)
	assert.Equal(t, "seed", envs.Selected[0].CurrentValue)

	envs.Unset("token", SourceGlobal)
	assert.Len(t, envs.Selected, 1, "global scope does not touch selected")
	envs.Unset("token", SourceAll)
	assert.Empty(t, envs.Selected)
}

func TestEnvsGetResolve(t *testing.T) {
	envs := Envs{
		Global:   []storage.EnvVariable{variable("host", "example.com")},
		Selected: []storage.EnvVariable{variable("base", "https://<<host>>/<<version>>")},
	}

	v, ok := envs.GetResolve("base", SourceAll)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/<<version>>", v)

	v, ok = envs.GetResolve("base", SourceActive)
	assert.True(t, ok)
	assert.Equal(t, "https://<<host>>/<<version>>", v)

	_, ok = envs.GetResolve("missing", SourceAll)
	assert.False(t, ok)
}

func TestEnvsClone(t *testing.T) {
	envs := Envs{Selected: []storage.EnvVariable{variable("a", "1")}}
	c := envs.Clone()
	c.Set("a", "2", SourceAll)
	assert.Equal(t, "1", envs.Selected[0].CurrentValue)
}
