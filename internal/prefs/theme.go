package prefs

import (
	"context"
	"strconv"
)

// ThemePreference is the appearance configuration of one user.
type ThemePreference struct {
	DarkModeOverride    *bool  `json:"dark_mode_override"`
	DynamicColorEnabled bool   `json:"dynamic_color_enabled"`
	PrimaryColorARGB    *int32 `json:"primary_color_argb"`
}

// Theme reads and writes the theme_prefs namespace.
type Theme struct {
	prefs *Store
}

func NewTheme(prefs *Store) *Theme {
	return &Theme{prefs: prefs}
}

func parseDarkTheme(v Value) *bool {
	if !v.Set {
		return nil
	}
	b, err := strconv.ParseBool(v.Raw)
	if err != nil {
		return nil
	}
	return &b
}

func parseDynamicColor(v Value) bool {
	if !v.Set {
		return true
	}
	b, err := strconv.ParseBool(v.Raw)
	if err != nil {
		return true
	}
	return b
}

func parsePrimaryColor(v Value) *int32 {
	if !v.Set {
		return nil
	}
	n, err := strconv.ParseInt(v.Raw, 10, 32)
	if err != nil {
		return nil
	}
	c := int32(n)
	return &c
}

func (t *Theme) Get(userID int64) (ThemePreference, error) {
	dark, err := t.prefs.Get(userID, DarkTheme)
	if err != nil {
		return ThemePreference{}, err
	}
	dynamic, err := t.prefs.Get(userID, DynamicColor)
	if err != nil {
		return ThemePreference{}, err
	}
	primary, err := t.prefs.Get(userID, PrimaryColor)
	if err != nil {
		return ThemePreference{}, err
	}
	return ThemePreference{
		DarkModeOverride:    parseDarkTheme(dark),
		DynamicColorEnabled: parseDynamicColor(dynamic),
		PrimaryColorARGB:    parsePrimaryColor(primary),
	}, nil
}

// Read streams the combined theme: the current value first, then a new
// value after each change to any theme key.
func (t *Theme) Read(ctx context.Context, userID int64) (<-chan ThemePreference, error) {
	ctx, cancel := context.WithCancel(ctx)

	dark, err := t.prefs.Read(ctx, userID, DarkTheme)
	if err != nil {
		cancel()
		return nil, err
	}
	dynamic, err := t.prefs.Read(ctx, userID, DynamicColor)
	if err != nil {
		cancel()
		return nil, err
	}
	primary, err := t.prefs.Read(ctx, userID, PrimaryColor)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan ThemePreference)
	go func() {
		defer cancel()
		defer close(out)

		var cur ThemePreference
		for i, ch := range []<-chan Value{dark, dynamic, primary} {
			v, ok := <-ch
			if !ok {
				return
			}
			switch i {
			case 0:
				cur.DarkModeOverride = parseDarkTheme(v)
			case 1:
				cur.DynamicColorEnabled = parseDynamicColor(v)
			case 2:
				cur.PrimaryColorARGB = parsePrimaryColor(v)
			}
		}

		for {
			select {
			case out <- cur:
			case <-ctx.Done():
				return
			}

			select {
			case v, ok := <-dark:
				if !ok {
					return
				}
				cur.DarkModeOverride = parseDarkTheme(v)
			case v, ok := <-dynamic:
				if !ok {
					return
				}
				cur.DynamicColorEnabled = parseDynamicColor(v)
			case v, ok := <-primary:
				if !ok {
					return
				}
				cur.PrimaryColorARGB = parsePrimaryColor(v)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SetDarkOverride stores the dark mode override; nil follows the system setting.
func (t *Theme) SetDarkOverride(userID int64, enabled *bool) error {
	if enabled == nil {
		return t.prefs.Clear(userID, DarkTheme)
	}
	return t.prefs.Write(userID, DarkTheme, strconv.FormatBool(*enabled))
}

func (t *Theme) SetDynamicColor(userID int64, enabled bool) error {
	return t.prefs.Write(userID, DynamicColor, strconv.FormatBool(enabled))
}

// SetPrimaryColor stores an ARGB seed color; nil removes it.
func (t *Theme) SetPrimaryColor(userID int64, argb *int32) error {
	if argb == nil {
		return t.prefs.Clear(userID, PrimaryColor)
	}
	return t.prefs.Write(userID, PrimaryColor, strconv.FormatInt(int64(*argb), 10))
}
