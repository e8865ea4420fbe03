package main

import (
	"os"
	"strings"

	"shortforge/internal/daemonrun"
)

// configPathFromEnv returns SHORTFORGE_CONFIG, or "" for the default lookup.
func configPathFromEnv() string {
	return strings.TrimSpace(os.Getenv("SHORTFORGE_CONFIG"))
}

func runOptionsFromEnv() daemonrun.Options {
	return daemonrun.Options{
		LogLevel:    strings.TrimSpace(os.Getenv("SHORTFORGE_LOG_LEVEL")),
		Development: os.Getenv("SHORTFORGE_DEV") == "1",
	}
}
