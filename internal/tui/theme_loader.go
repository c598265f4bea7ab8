package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// themeFile represents the structure of the theme TOML file. A color left
// out of the file keeps a nil TerminalColor and the default is used instead.
// Icons are pointers so an empty string can still override.
type themeFile struct {
	Primary    Color `toml:"Primary"`
	Subtle     Color `toml:"Subtle"`
	Success    Color `toml:"Success"`
	Error      Color `toml:"Error"`
	Normal     Color `toml:"Normal"`
	Disabled   Color `toml:"Disabled"`
	Border     Color `toml:"Border"`
	SignalHigh Color `toml:"SignalHigh"`
	SignalLow  Color `toml:"SignalLow"`

	TitleIcon         *string `toml:"TitleIcon"`
	NetworkSecureIcon *string `toml:"NetworkSecureIcon"`
	NetworkOpenIcon   *string `toml:"NetworkOpenIcon"`
}

// UnmarshalTOML implements toml.Unmarshaler.
func (c *Color) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		c.TerminalColor = lipgloss.Color(v)
		return nil
	case []any:
		if len(v) != 2 {
			return fmt.Errorf("adaptive color needs [light, dark], got %d values", len(v))
		}
		light, ok1 := v[0].(string)
		dark, ok2 := v[1].(string)
		if !ok1 || !ok2 {
			return errors.New("adaptive color values must be strings")
		}
		c.TerminalColor = lipgloss.AdaptiveColor{Light: light, Dark: dark}
		return nil
	}
	return fmt.Errorf("unsupported color value %v", v)
}

// LoadTheme reads a TOML theme and returns the default theme with the file's
// values applied.
func LoadTheme(r io.Reader) (Theme, error) {
	if r == nil {
		return Theme{}, errors.New("no theme to read")
	}

	var tf themeFile
	if _, err := toml.NewDecoder(r).Decode(&tf); err != nil {
		return Theme{}, fmt.Errorf("parsing theme: %w", err)
	}

	theme := NewDefaultTheme()
	setColor := func(dst *Color, src Color) {
		if src.TerminalColor != nil {
			*dst = src
		}
	}
	setColor(&theme.Primary, tf.Primary)
	setColor(&theme.Subtle, tf.Subtle)
	setColor(&theme.Success, tf.Success)
	setColor(&theme.Error, tf.Error)
	setColor(&theme.Normal, tf.Normal)
	setColor(&theme.Disabled, tf.Disabled)
	setColor(&theme.Border, tf.Border)
	setColor(&theme.SignalHigh, tf.SignalHigh)
	setColor(&theme.SignalLow, tf.SignalLow)

	if tf.TitleIcon != nil {
		theme.TitleIcon = *tf.TitleIcon
	}
	if tf.NetworkSecureIcon != nil {
		theme.NetworkSecureIcon = *tf.NetworkSecureIcon
	}
	if tf.NetworkOpenIcon != nil {
		theme.NetworkOpenIcon = *tf.NetworkOpenIcon
	}
	return theme, nil
}

// LoadThemeFile loads the theme at path into CurrentTheme. An empty path does
// nothing.
func LoadThemeFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	theme, err := LoadTheme(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	CurrentTheme = theme
	return nil
}
