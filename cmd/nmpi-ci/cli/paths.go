// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// Configuration file locations resolve flag > environment > default.
// Every command that touches the credential store or the run history
// database goes through these helpers, so a path set once via the
// environment applies to the whole tool.

// CredentialsPath resolves the encrypted credential bundle path:
// the --credentials flag, then NMPI_CI_CREDENTIALS, then
// ~/.config/nmpi-ci/credentials.age.
func CredentialsPath(flagValue string) (string, error) {
	return resolvePath(flagValue, "NMPI_CI_CREDENTIALS", func() (string, error) {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolving credential bundle path: %w", err)
		}
		return filepath.Join(configDir, "nmpi-ci", "credentials.age"), nil
	})
}

// IdentityPath resolves the age identity file path: the --identity
// flag, then NMPI_CI_IDENTITY, then ~/.config/nmpi-ci/identity.key.
func IdentityPath(flagValue string) (string, error) {
	return resolvePath(flagValue, "NMPI_CI_IDENTITY", func() (string, error) {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolving identity path: %w", err)
		}
		return filepath.Join(configDir, "nmpi-ci", "identity.key"), nil
	})
}

// StorePath resolves the run history database path: the --store flag,
// then NMPI_CI_STORE, then ~/.local/state/nmpi-ci/runs.db
// (XDG_STATE_HOME is honored).
func StorePath(flagValue string) (string, error) {
	return resolvePath(flagValue, "NMPI_CI_STORE", func() (string, error) {
		if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
			return filepath.Join(stateHome, "nmpi-ci", "runs.db"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving run store path: %w", err)
		}
		return filepath.Join(home, ".local", "state", "nmpi-ci", "runs.db"), nil
	})
}

// ProfilesPath resolves an extra container profile file: the
// --profiles flag, then NMPI_CI_PROFILES. Empty means no extra file;
// the built-in profiles and the standard search paths still apply.
func ProfilesPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("NMPI_CI_PROFILES")
}

func resolvePath(flagValue, envName string, fallback func() (string, error)) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if value := os.Getenv(envName); value != "" {
		return value, nil
	}
	return fallback()
}
