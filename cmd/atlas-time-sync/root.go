package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexwizp/iot-backup/internal/config"
	"github.com/alexwizp/iot-backup/internal/logger"
	"github.com/alexwizp/iot-backup/pkg/clocksync"
)

const (
	envPrefix         = "ATLAS"
	defaultConfigPath = "atlas-time-sync.yml"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "atlas-time-sync",
		Short:        "Keep the RTC on network time and push it to the head unit",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, v.GetBool("quiet"))
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "path to YAML config (default "+defaultConfigPath+")")
	pf.Bool("quiet", false, "only warnings and errors")
	pf.Bool("debug", false, "debug output")
	pf.String("api-key", "", "ipgeolocation.io API key (overrides config)")
	pf.String("wifi-password", "", "WiFi password (overrides config)")
	for _, name := range []string{"config", "quiet", "debug", "api-key", "wifi-password"} {
		if err := v.BindPFlag(name, pf.Lookup(name)); err != nil {
			logger.Error("bind flag %s: %v", name, err)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and check the config, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			syncEvery, pushEvery, tick := cfg.Sync.Intervals()
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: sync every %v, push every %v, tick %v, head unit %s@%d\n",
				syncEvery, pushEvery, tick, cfg.HeadUnit.Device, cfg.HeadUnit.Baud)
			return nil
		},
	})
	return root
}

// loadConfig читает YAML (отсутствующий файл по умолчанию — Default), применяет
// флаги и окружение, затем проверяет результат.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	logger.SetQuiet(v.GetBool("quiet"))
	logger.SetDebug(v.GetBool("debug"))

	path := v.GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		logger.Info("config %s not found, using defaults", path)
		cfg = config.Default()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if key := v.GetString("api-key"); key != "" {
		cfg.SetAPIKey(key)
	}
	if pw := v.GetString("wifi-password"); pw != "" {
		cfg.WiFi.Password = pw
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// runDaemon запускает цикл; по SIGINT/SIGTERM контекст отменяется, дочерние процессы останавливаются.
func runDaemon(parent context.Context, cfg *config.Config, quiet bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("atlas-time-sync: started (Ctrl+C to stop)")
	err := clocksync.RunDaemon(ctx, cfg, quiet)
	logger.Info("atlas-time-sync: stopped")
	return err
}
