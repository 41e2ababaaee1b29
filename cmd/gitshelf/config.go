package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// appConfig is the CLI's own application-level config, distinct from a
// repository's .git/config (spec §4.11): a plain key=value INI file under
// the user's home directory, read with gopkg.in/ini.v1 rather than the
// core's gcfg-backed quoted-subsection parser, since nothing here needs
// Git's config dialect.
type appConfig struct {
	LogLevel string
}

func defaultAppConfig() *appConfig {
	return &appConfig{LogLevel: "info"}
}

func appConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gitshelfrc"), nil
}

// loadAppConfig reads the CLI config file if present, falling back to
// defaults silently when it doesn't exist — a first run shouldn't require
// one.
func loadAppConfig() (*appConfig, error) {
	cfg := defaultAppConfig()

	path, err := appConfigPath()
	if err != nil {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	core := f.Section("core")
	if key, err := core.GetKey("loglevel"); err == nil {
		cfg.LogLevel = key.String()
	}
	return cfg, nil
}

func (c *appConfig) logrusLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
