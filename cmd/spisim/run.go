// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/db47h/spisim/bus"
	"github.com/db47h/spisim/internal/scenario"
	"github.com/db47h/spisim/trace"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRunCmd(lo *logOpts) *cobra.Command {
	var vcd string
	cmd := &cobra.Command{
		Use:   "run scenario.yaml",
		Short: "Run a scenario",
		Long:  "Run the transfers of a scenario file and print the bytes received by each transfer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := lo.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			log = log.With("component", "cli")

			s, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			opts := []bus.Option{bus.WithLogger(log)}

			var w *trace.Writer
			if vcd != "" {
				f, err := os.Create(vcd)
				if err != nil {
					return errors.Wrap(err, "vcd")
				}
				defer f.Close()
				w = trace.NewWriter(f, s.SystemClock())
				opts = append(opts, bus.WithTracer(w.Trace))
			}

			p, c, err := s.Connect(s.Peripheral(), opts...)
			if err != nil {
				return err
			}
			defer p.Close()
			log.Info("running scenario", "name", s.Name, "mode", s.SPIMode(), "sclk", c.(*bus.Conn).Frequency(), "transfers", len(s.Transfers))

			r, err := s.Run(c)
			if w != nil {
				if ferr := w.Flush(); err == nil {
					err = ferr
				}
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, b := range r {
				fmt.Fprintf(out, "%d: % x\n", i, b)
			}
			log.Info("done", "ticks", p.Ticks())
			return nil
		},
	}
	cmd.Flags().StringVar(&vcd, "vcd", "", "write a VCD waveform to `file`")
	return cmd
}
