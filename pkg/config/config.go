// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads castellond's configuration file.
package config

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"

	"github.com/castellan-sh/castellan/pkg/daemon"
)

// DefaultKeytab is where the system keytab conventionally lives.
const DefaultKeytab = "/etc/krb5.keytab"

type Config struct {
	// Port to listen on in standalone mode.
	Port uint16 `yaml:"port,omitempty"`

	// BindAddress restricts listening to one address; "any"/"all" or
	// empty binds every local address family.
	BindAddress string `yaml:"bindAddress,omitempty"`

	// Service pins credentials to one service principal.
	Service string `yaml:"service,omitempty"`

	// Keytab path.
	Keytab string `yaml:"keytab,omitempty"`

	// PIDFile receives the process id in standalone mode.
	PIDFile string `yaml:"pidFile,omitempty"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"logLevel,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:   daemon.DefaultPort,
		Keytab: DefaultKeytab,
	}
}

// Load reads path strictly (unknown keys are errors) and fills in defaults
// for omitted fields.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(b, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	if cfg.Port == 0 {
		cfg.Port = daemon.DefaultPort
	}
	if cfg.Keytab == "" {
		cfg.Keytab = DefaultKeytab
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.BindAddress {
	case "", "any", "all":
	default:
		if _, err := netip.ParseAddr(c.BindAddress); err != nil {
			return fmt.Errorf("bindAddress: %w", err)
		}
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("logLevel: %w", err)
		}
	}
	return nil
}
