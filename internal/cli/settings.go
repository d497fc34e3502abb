package cli

import (
	"fmt"

	"github.com/tnunamak/usagemon/internal/config"
)

// Settings prints the preferences, or updates dark mode when darkMode is
// "on" or "off".
func (a *App) Settings(darkMode string) int {
	prefs, err := config.LoadPreferences(a.ConfigDir)
	if err != nil {
		fmt.Fprintf(a.Stderr, "usagemon: %v\n", err)
		return ExitFetchFailed
	}

	switch darkMode {
	case "":
	case "on", "off":
		prefs.DarkMode = darkMode == "on"
		if err := config.SavePreferences(a.ConfigDir, prefs); err != nil {
			fmt.Fprintf(a.Stderr, "usagemon: %v\n", err)
			return ExitFetchFailed
		}
	default:
		fmt.Fprintf(a.Stderr, "usagemon: --dark-mode must be on or off, got %q\n", darkMode)
		return ExitFetchFailed
	}

	fmt.Fprintf(a.Stdout, "dark mode: %s\n", onOff(prefs.DarkMode))
	return ExitOK
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
