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
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/timesync/timesync/source"
)

func init() {
	RootCmd.AddCommand(sourcesCmd)
}

// probe is a result of asking one source, regardless of the others
type probe struct {
	result source.Result
	local  time.Time
}

// probeSources asks all sources at once. Results keep the order of sources.
func probeSources(ctx context.Context, clock clockwork.Clock, sources []source.Source, timeout time.Duration) []probe {
	probes := make([]probe, len(sources))
	var eg errgroup.Group
	for i, s := range sources {
		eg.Go(func() error {
			r := s.Attempt(ctx, timeout)
			if r.Source == "" {
				r.Source = s.Name()
			}
			probes[i] = probe{result: r, local: clock.Now()}
			return nil
		})
	}
	_ = eg.Wait()
	return probes
}

func printSources(out io.Writer, probes []probe) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"priority", "source", "result", "timestamp", "offset(s)", "rtt"})
	for i, p := range probes {
		row := []string{fmt.Sprintf("%d", i+1), p.result.Source}
		if p.result.Success {
			row = append(row,
				"ok",
				p.result.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", p.result.Timestamp.Sub(p.local).Seconds()),
				p.result.RTT.Round(time.Millisecond).String(),
			)
		} else {
			row = append(row, p.result.Reason, "", "", p.result.RTT.Round(time.Millisecond).String())
		}
		table.Append(row)
	}
	table.Render()
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Probe every configured time source",
	Long:  "Probe every configured time source at once and print what each of them says. Sources are listed in the order sync tries them.",
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
		probes := probeSources(context.Background(), clockwork.NewRealClock(), sources, cfg.Timeout)
		printSources(os.Stdout, probes)
	},
}
