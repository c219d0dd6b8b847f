// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var version = "devel"

type logOpts struct {
	level string
	json  bool
}

func (o *logOpts) logger(w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(o.level)); err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if o.json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func newRootCmd() *cobra.Command {
	var lo logOpts
	root := &cobra.Command{
		Use:           "spisim",
		Short:         "Cycle accurate SPI controller simulator",
		Long:          "spisim runs SPI transfer scenarios against a cycle accurate model of an SPI controller core.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&lo.level, "log-level", "warn", "minimum log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&lo.json, "log-json", false, "log in JSON format")

	root.AddCommand(newRunCmd(&lo), &cobra.Command{
		Use:   "version",
		Short: "Print spisim version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "spisim", version)
		},
	})
	return root
}
