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
	"github.com/timesync/timesync/source"
	"github.com/timesync/timesync/syncer"
)

func init() {
	RootCmd.AddCommand(offsetCmd)
}

// offsetRun prints offset of local clock from reference in seconds, suitable for scripts
func offsetRun(ctx context.Context, out io.Writer, cfg *config.Config, sources []source.Source) error {
	o := syncer.New(sources, syncer.WithTimeout(cfg.Timeout), syncer.WithHistory(1))
	outcome, err := o.Sync(ctx, true)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%.3f\n", outcome.OffsetSeconds)
	return err
}

var offsetCmd = &cobra.Command{
	Use:   "offset",
	Short: "Print offset of reference time from local clock, in seconds",
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
		if err := offsetRun(context.Background(), os.Stdout, cfg, sources); err != nil {
			log.Fatal(err)
		}
	},
}
