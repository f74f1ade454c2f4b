package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"capsule/internal/config"
)

// uiMode selects the capture progress display.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch m := uiMode(strings.TrimSpace(strings.ToLower(value))); m {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return m, nil
	default:
		return "", fmt.Errorf("invalid ui mode %q (expected auto|on|off)", value)
	}
}

// captureUIMode takes --ui when it was given and [ui] mode otherwise.
func captureUIMode(cmd *cobra.Command, cfg config.Config) (uiMode, error) {
	value := cfg.UI.Mode
	if cmd.Flags().Changed("ui") {
		flag, err := cmd.Flags().GetString("ui")
		if err != nil {
			return "", err
		}
		value = flag
	}
	return readUIMode(value)
}

// progress reports whether capture should draw the live progress view.
// --quiet wins over every mode.
func (m uiMode) progress(quiet bool) bool {
	switch {
	case quiet, m == uiModeOff:
		return false
	case m == uiModeOn:
		return true
	default:
		return isTerminal(os.Stdout)
	}
}
