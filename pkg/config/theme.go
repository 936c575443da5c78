package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Theme returns the stored theme, falling back to dark for unknown values.
func Theme(v *viper.Viper) string {
	if strings.ToLower(v.GetString(KeyTheme)) == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// ToggleTheme returns the opposite of theme.
func ToggleTheme(theme string) string {
	if theme == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// SaveTheme stores theme on v and writes the config file back to disk.
func SaveTheme(v *viper.Viper, theme string) error {
	theme = strings.ToLower(theme)
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("unknown theme %q (want %s or %s)", theme, ThemeDark, ThemeLight)
	}
	v.Set(KeyTheme, theme)
	if v.ConfigFileUsed() == "" {
		return nil
	}
	return v.WriteConfig()
}

// Preferences exposes the theme setting of a viper instance to the web UI.
type Preferences struct {
	v *viper.Viper
}

func NewPreferences(v *viper.Viper) *Preferences { return &Preferences{v: v} }

func (p *Preferences) Theme() string { return Theme(p.v) }

func (p *Preferences) SetTheme(theme string) error { return SaveTheme(p.v, theme) }
