// Package settings holds the reading theme and voice preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dysedit/internal/apperr"
	"github.com/starford/dysedit/internal/speech"
)

const storeKey = "theme"

// SystemFont selects the platform UI font stack.
const SystemFont = "system"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Choice is a named value offered to the user.
type Choice struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Preset is a named background and text color pair.
type Preset struct {
	Name            string `json:"name"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
}

var (
	BackgroundChoices = []Choice{
		{Name: "Ivory", Value: "#fffef7"},
		{Name: "Pale blue", Value: "#f0f7ff"},
		{Name: "Mint green", Value: "#f0fdf4"},
		{Name: "Peach", Value: "#fefbf3"},
		{Name: "Very pale grey", Value: "#fafafa"},
	}
	TextChoices = []Choice{
		{Name: "Navy blue", Value: "#1e3a8a"},
		{Name: "Dark grey", Value: "#374151"},
		{Name: "Dark brown", Value: "#92400e"},
	}
	FontChoices = []Choice{
		{Name: "Standard (system)", Value: SystemFont},
		{Name: "Arial", Value: "Arial"},
		{Name: "Verdana", Value: "Verdana"},
		{Name: "Tahoma", Value: "Tahoma"},
		{Name: "Calibri", Value: "Calibri"},
		{Name: "Helvetica", Value: "Helvetica"},
		{Name: "OpenDyslexic", Value: "OpenDyslexic"},
		{Name: "Lexend", Value: "Lexend"},
	}
	Presets = []Preset{
		{Name: "Dark Pro", BackgroundColor: "#2d3748", TextColor: "#f7fafc"},
		{Name: "Dark Blue", BackgroundColor: "#1a365d", TextColor: "#e2e8f0"},
		{Name: "Dark Warm", BackgroundColor: "#3c2415", TextColor: "#faf5f0"},
		{Name: "Clear Classic", BackgroundColor: "#ffffff", TextColor: "#2d3748"},
		{Name: "Clear Soft", BackgroundColor: "#f8f4f0", TextColor: "#5a4037"},
		{Name: "Clear Blue", BackgroundColor: "#f0f8ff", TextColor: "#1e3a8a"},
	}
)

// Theme is the persisted reading theme and voice.
type Theme struct {
	BackgroundColor string  `json:"background_color"`
	TextColor       string  `json:"text_color"`
	FontFamily      string  `json:"font_family"`
	FontSize        int     `json:"font_size"`
	LineHeight      float64 `json:"line_height"`
	VoiceName       *string `json:"voice_name"`
	VoiceRate       float64 `json:"voice_rate"`
	VoicePitch      float64 `json:"voice_pitch"`
}

// Default returns the stock theme: ivory background, navy text, Verdana.
func Default() Theme {
	return Theme{
		BackgroundColor: "#fffef7",
		TextColor:       "#1e3a8a",
		FontFamily:      "Verdana",
		FontSize:        14,
		LineHeight:      1.5,
		VoiceRate:       1,
		VoicePitch:      1,
	}
}

// Validate validates the theme.
func (t *Theme) Validate() error {
	fonts := make([]any, 0, len(FontChoices))
	for _, f := range FontChoices {
		fonts = append(fonts, f.Value)
	}
	return validation.ValidateStruct(t,
		validation.Field(&t.BackgroundColor, validation.Required, validation.Match(hexColor)),
		validation.Field(&t.TextColor, validation.Required, validation.Match(hexColor)),
		validation.Field(&t.FontFamily, validation.Required, validation.In(fonts...)),
		validation.Field(&t.FontSize, validation.Required, validation.Min(10), validation.Max(48)),
		validation.Field(&t.LineHeight, validation.Required, validation.Min(1.0), validation.Max(3.0)),
		validation.Field(&t.VoiceRate, validation.Required, validation.Min(0.5), validation.Max(2.0)),
		validation.Field(&t.VoicePitch, validation.Min(0.0), validation.Max(2.0)),
	)
}

// ApplyPreset copies the colors of the named preset.
func (t *Theme) ApplyPreset(name string) error {
	for _, p := range Presets {
		if p.Name == name {
			t.BackgroundColor = p.BackgroundColor
			t.TextColor = p.TextColor
			return nil
		}
	}
	return fmt.Errorf("settings: preset %q: %w", name, apperr.ErrNotFound)
}

// FontStack returns the CSS font-family value for the theme font.
func (t Theme) FontStack() string {
	switch t.FontFamily {
	case SystemFont:
		return `-apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', 'Oxygen', 'Ubuntu', 'Cantarell', 'Fira Sans', 'Droid Sans', 'Helvetica Neue', sans-serif`
	case "OpenDyslexic", "Lexend":
		return "'" + t.FontFamily + "', Arial, Verdana, sans-serif"
	default:
		return "'" + t.FontFamily + "', Arial, sans-serif"
	}
}

// Variables returns the CSS custom properties the host applies.
func (t Theme) Variables() map[string]string {
	return map[string]string{
		"--dys-bg-color":    t.BackgroundColor,
		"--dys-text-color":  t.TextColor,
		"--dys-font-size":   strconv.Itoa(t.FontSize) + "px",
		"--dys-line-height": strconv.FormatFloat(t.LineHeight, 'f', -1, 64),
		"--dys-font-family": t.FontStack(),
	}
}

// Voice returns the speech parameters of the theme.
func (t Theme) Voice() speech.Voice {
	v := speech.Voice{Rate: t.VoiceRate, Pitch: t.VoicePitch}
	if t.VoiceName != nil {
		v.Name = *t.VoiceName
	}
	return v
}

// KV is the local key-value state the theme is kept in.
type KV interface {
	Get(ctx context.Context, key string, v any) error
	Put(ctx context.Context, key string, v any) error
}

// Load returns the stored theme, or the default when none was saved.
func Load(ctx context.Context, kv KV) (Theme, error) {
	t := Default()
	if err := kv.Get(ctx, storeKey, &t); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("settings: load: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Default(), fmt.Errorf("settings: stored theme invalid: %w", err)
	}
	return t, nil
}

// Save validates and stores t.
func Save(ctx context.Context, kv KV, t Theme) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := kv.Put(ctx, storeKey, t); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}
