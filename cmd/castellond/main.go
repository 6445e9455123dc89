// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

// castellond accepts authenticated network connections and dispatches
// predefined commands to the registered protocol layer, after Kerberos-based
// identity establishment. It runs standalone or as a per-connection daemon
// under inetd/tcpserver.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/castellan-sh/castellan/pkg/config"
	"github.com/castellan-sh/castellan/pkg/daemon"
	"github.com/castellan-sh/castellan/pkg/session"
)

// version is overridden at link time on release builds.
var version = "<unknown>"

func main() {
	if err := newApp().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "castellond",
		Short:         "Kerberos-authenticated remote command daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return processGlobalFlags(cmd)
		},
		RunE: runDaemon,
	}
	flags := rootCmd.Flags()
	flags.StringP("config", "f", "", "configuration file")
	flags.BoolP("standalone", "m", false, "stand-alone daemon mode instead of serving one inherited connection")
	flags.Uint16P("port", "p", 0, fmt.Sprintf("port to listen on in standalone mode (default %d)", daemon.DefaultPort))
	flags.StringP("bind", "b", "", "address to bind in standalone mode (default: all local addresses)")
	flags.StringP("pid-file", "P", "", "write the process id to this file, only useful with -m")
	flags.StringP("service", "s", "", "service principal to use (default: any principal in the keytab)")
	flags.StringP("keytab", "k", "", fmt.Sprintf("keytab file (default %s)", config.DefaultKeytab))
	flags.BoolP("debug", "d", false, "log debugging information")
	flags.String("log-format", "text", `log format, "text" or "json"`)
	return rootCmd
}

func processGlobalFlags(cmd *cobra.Command) error {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logFormat, _ := cmd.Flags().GetString("log-format")
	switch logFormat {
	case "json":
		logrus.StandardLogger().SetFormatter(new(logrus.JSONFormatter))
	case "text":
		if isatty.IsTerminal(os.Stderr.Fd()) {
			formatter := new(logrus.TextFormatter)
			formatter.ForceColors = true
			logrus.StandardLogger().SetFormatter(formatter)
		}
	default:
		return fmt.Errorf("unsupported log-format: %q", logFormat)
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetUint16("port")
	}
	if flags.Changed("bind") {
		cfg.BindAddress, _ = flags.GetString("bind")
	}
	if flags.Changed("pid-file") {
		cfg.PIDFile, _ = flags.GetString("pid-file")
	}
	if flags.Changed("service") {
		cfg.Service, _ = flags.GetString("service")
	}
	if flags.Changed("keytab") {
		cfg.Keytab, _ = flags.GetString("keytab")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LogLevel != "" && !logrus.IsLevelEnabled(logrus.DebugLevel) {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logrus.SetLevel(level)
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	standalone, _ := cmd.Flags().GetBool("standalone")

	handler := session.DefaultHandler()

	d, err := daemon.New(daemon.Options{
		Standalone:  standalone,
		Port:        cfg.Port,
		BindAddress: cfg.BindAddress,
		PIDFile:     cfg.PIDFile,
		Service:     cfg.Service,
		Keytab:      cfg.Keytab,
		Handler:     handler,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}
