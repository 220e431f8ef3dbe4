// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files and surfaces them to the configuration layer as
// environment variables. Each file in the directory is one secret: the
// filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: llm-api-key, github-token, openalex-email, pubmed-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// envPrefix matches the viper environment prefix so applied secrets read as
// ordinary configuration values.
const envPrefix = "INSIGHT_PILOT_"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply exports each secret under its environment variable name unless that
// variable is already set, so an explicit environment always wins over the
// secrets directory. Returns the applied variable names, sorted.
func Apply(secrets map[string]string) []string {
	var applied []string
	for name, value := range secrets {
		env := EnvName(name)
		if _, exists := os.LookupEnv(env); exists {
			continue
		}
		if err := os.Setenv(env, value); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not set %s: %v\n", env, err)
			continue
		}
		applied = append(applied, env)
	}
	sort.Strings(applied)
	return applied
}

// EnvName converts a secret file name to its environment variable form:
// "llm-api-key" becomes "INSIGHT_PILOT_LLM_API_KEY".
func EnvName(name string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
