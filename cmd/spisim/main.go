// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command spisim runs SPI transfer scenarios against a simulated controller
// core.
//
// Usage:
//
//	spisim run [--vcd file] [--log-level level] [--log-json] scenario.yaml
//	spisim version
//
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "spisim:", err)
		os.Exit(1)
	}
}
