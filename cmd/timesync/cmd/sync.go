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
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timesync/timesync/config"
	"github.com/timesync/timesync/display"
	"github.com/timesync/timesync/drift"
	"github.com/timesync/timesync/source"
	"github.com/timesync/timesync/stats"
	"github.com/timesync/timesync/widget"
)

func init() {
	RootCmd.AddCommand(syncCmd)
}

func syncRun(ctx context.Context, out io.Writer, cfg *config.Config, sources []source.Source) error {
	w, err := widget.New(
		&widget.Config{
			Settings:    config.DefaultSettings(),
			Timeout:     cfg.Timeout,
			History:     cfg.History,
			Uncertainty: cfg.Uncertainty,
		},
		sources,
		stats.NewStats(),
		widget.NopLogger{},
		widget.NewTermRenderer(io.Discard, false),
	)
	if err != nil {
		return err
	}
	outcome, err := w.Sync(ctx, false)
	fmt.Fprintln(out, w.Status())
	if err != nil {
		return err
	}
	now := outcome.At
	ref, _ := drift.Project(w.Snapshot(), now)
	fmt.Fprintf(out, "source:    %s\n", outcome.Source)
	fmt.Fprintf(out, "offset:    %.3fs\n", outcome.OffsetSeconds)
	fmt.Fprintf(out, "local:     %s\n", display.FormatLocal(now))
	fmt.Fprintf(out, "reference: %s\n", display.FormatProjectedUTC(ref, true))
	return nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync once and print the result",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		cfg, err := prepareConfig()
		if err != nil {
			log.Fatal(err)
		}
		sources, err := source.FromSpecs(cfg.Sources, source.DefaultClient)
		if err != nil {
			log.Fatal(err)
		}
		if err := syncRun(context.Background(), os.Stdout, cfg, sources); err != nil {
			log.Fatal(err)
		}
	},
}
