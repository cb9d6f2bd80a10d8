package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dysedit/internal/apperr"
)

type memKV map[string][]byte

func (m memKV) Get(_ context.Context, key string, v any) error {
	raw, ok := m[key]
	if !ok {
		return fmt.Errorf("kv %s: %w", key, apperr.ErrNotFound)
	}
	return json.Unmarshal(raw, v)
}

func (m memKV) Put(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m[key] = raw
	return nil
}

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	require.NoError(t, d.Validate())
	assert.Equal(t, "#fffef7", d.BackgroundColor)
	assert.Nil(t, d.VoiceName)
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	got, err := Load(context.Background(), memKV{})
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	kv := memKV{}
	th := Default()
	name := "Amelie"
	th.VoiceName = &name
	th.VoiceRate = 0.8
	th.FontFamily = "OpenDyslexic"
	require.NoError(t, th.ApplyPreset("Dark Blue"))

	require.NoError(t, Save(ctx, kv, th))
	got, err := Load(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, "#1a365d", got.BackgroundColor)
	assert.Equal(t, "#e2e8f0", got.TextColor)

	v := got.Voice()
	assert.Equal(t, "Amelie", v.Name)
	assert.InDelta(t, 0.8, v.Rate, 1e-9)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Theme){
		"color":  func(th *Theme) { th.TextColor = "blue" },
		"font":   func(th *Theme) { th.FontFamily = "Comic Sans" },
		"size":   func(th *Theme) { th.FontSize = 4 },
		"rate":   func(th *Theme) { th.VoiceRate = 3 },
		"height": func(th *Theme) { th.LineHeight = 5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			th := Default()
			mutate(&th)
			assert.Error(t, th.Validate())
			assert.Error(t, Save(context.Background(), memKV{}, th))
		})
	}
}

func TestApplyUnknownPreset(t *testing.T) {
	th := Default()
	require.ErrorIs(t, th.ApplyPreset("Neon"), apperr.ErrNotFound)
	assert.Equal(t, Default(), th)
}

func TestVariables(t *testing.T) {
	th := Default()
	vars := th.Variables()
	assert.Equal(t, "14px", vars["--dys-font-size"])
	assert.Equal(t, "1.5", vars["--dys-line-height"])
	assert.Equal(t, "'Verdana', Arial, sans-serif", vars["--dys-font-family"])

	th.FontFamily = "Lexend"
	assert.Equal(t, "'Lexend', Arial, Verdana, sans-serif", th.FontStack())
}
