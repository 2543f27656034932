// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// inertial_radar tracks the relative position of a device from its
// accelerometer and attitude feeds and shows it as a radar trail. Each
// process role (tracker, web, producers, console, display) is a subcommand
// talking to the others over MQTT.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_radar/internal/app"
	"github.com/relabs-tech/inertial_radar/internal/config"
)

var version = "dev"

func main() {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "inertial_radar",
		Short: "Dead-reckoning position radar over MQTT",
		Long: `inertial_radar integrates accelerometer samples into a relative
position, with bias calibration, filtering and zero-velocity updates.

Start a broker, then the tracker, a producer and one or more viewers:

  inertial_radar tracker
  inertial_radar mock-producer   (or imu-producer / serial-producer)
  inertial_radar web`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			if err := config.InitGlobal(configPath); err != nil {
				return err
			}
			log.Printf("config loaded from %s", configPath)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "radar_config.txt", "config file (KEY=VALUE, or YAML when named *.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		runner("tracker", "Run the estimator on the MQTT feeds and publish its state", app.RunTracker),
		runner("web", "Serve the radar page, state API and phone sensor websocket", app.RunWeb),
		runner("imu-producer", "Publish MPU9250 samples (SPI) to MQTT", app.RunIMUProducer),
		runner("serial-producer", "Publish $PDRIM/$PDRIO sentences from a serial port to MQTT", app.RunSerialProducer),
		runner("mock-producer", "Publish a scripted walk to MQTT", app.RunMockProducer),
		runner("console", "Print tracker state from MQTT", app.RunConsoleMQTT),
		runner("display", "Draw tracker state on an SSD1306 OLED", app.RunDisplay),
	)

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}

// runner wraps an app entry point as a subcommand that stops on SIGINT or
// SIGTERM.
func runner(use, short string, run func(context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx)
		},
	}
}
