/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/timesync/timesync/config"
	"github.com/timesync/timesync/source"
	"github.com/timesync/timesync/stats"
	"github.com/timesync/timesync/widget"
)

var (
	runAutoFlag        bool
	runInitialSyncFlag bool
	runSampleLogFlag   bool
	runCSVPathFlag     string
	runUncertaintyFlag string
)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runAutoFlag, "auto", "a", false, "enable auto sync on start")
	runCmd.Flags().BoolVar(&runInitialSyncFlag, "initial-sync", true, "sync silently right after start")
	runCmd.Flags().BoolVar(&runSampleLogFlag, "samplelog", false, "log every sync sample")
	runCmd.Flags().StringVar(&runCSVPathFlag, "csvpath", "", "write CSV log of sync samples into this file")
	runCmd.Flags().StringVarP(&runUncertaintyFlag, "uncertainty", "u", "", "uncertainty expression, overrides config. "+widget.MathHelp)
}

// commandHandler is what stdin commands control
type commandHandler interface {
	SyncNow(ctx context.Context) error
	ToggleAuto(ctx context.Context) error
}

// readCommands reads one command per line until quit, EOF or ctx is done
func readCommands(ctx context.Context, in io.Reader, h commandHandler, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var err error
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
			continue
		case "s", "sync":
			err = h.SyncNow(ctx)
		case "a", "auto":
			err = h.ToggleAuto(ctx)
		case "q", "quit":
			quit()
			return
		default:
			log.Warningf("unknown command %q, use s (sync), a (auto) or q (quit)", scanner.Text())
		}
		if err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("reading commands: %v", err)
	}
}

func sampleLogger() (widget.Logger, func(), error) {
	cleanup := func() {}
	if runCSVPathFlag != "" {
		f, err := os.Create(runCSVPathFlag)
		if err != nil {
			return nil, cleanup, err
		}
		return widget.NewCSVLogger(f), func() { f.Close() }, nil
	}
	if runSampleLogFlag {
		w := log.StandardLogger().Writer()
		return widget.NewDummyLogger(w), func() { w.Close() }, nil
	}
	return widget.NopLogger{}, cleanup, nil
}

func runRun(cfg *config.Config) error {
	store := config.NewStore(cfg.SettingsPath)
	settings, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	sources, err := source.FromSpecs(cfg.Sources, source.DefaultClient)
	if err != nil {
		return err
	}
	l, cleanup, err := sampleLogger()
	defer cleanup()
	if err != nil {
		return fmt.Errorf("setting up sample log: %w", err)
	}

	st := stats.NewJSONStats()
	if cfg.MonitoringPort > 0 {
		go st.Start(cfg.MonitoringPort)
	}

	uncertainty := cfg.Uncertainty
	if runUncertaintyFlag != "" {
		uncertainty = runUncertaintyFlag
	}
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	w, err := widget.New(
		&widget.Config{
			Settings:    settings,
			Timeout:     cfg.Timeout,
			History:     cfg.History,
			Uncertainty: uncertainty,
			AutoSync:    runAutoFlag,
			InitialSync: runInitialSyncFlag,
		},
		sources,
		st,
		l,
		widget.NewTermRenderer(os.Stdout, interactive),
		widget.WithStore(store),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go readCommands(ctx, os.Stdin, w, cancel)
	return w.Run(ctx)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Show local and reference clocks, updated every second",
	Long:  "Show local and reference clocks, updated every second. Type s to sync, a to toggle auto sync, q to quit.",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		cfg, err := prepareConfig()
		if err != nil {
			log.Fatal(err)
		}
		if err := runRun(cfg); err != nil {
			log.Fatal(err)
		}
	},
}
