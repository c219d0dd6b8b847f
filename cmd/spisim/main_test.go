// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const loopback = `
name: loopback
sysclk: 4MHz
frequency: 1MHz
transfers:
  - write: [0x01, 0xff]
  - write: [0xa5]
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeScenario(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	path := writeScenario(t, loopback)
	vcd := filepath.Join(t.TempDir(), "out.vcd")
	out, logs, err := execute(t, "run", "--log-level", "info", "--log-json", "--vcd", vcd, path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "0: 01 ff\n1: a5\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(logs, `"component":"cli"`) || !strings.Contains(logs, `"msg":"done"`) {
		t.Errorf("missing log entries in %q", logs)
	}
	b, err := os.ReadFile(vcd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "$version spisim $end\n") {
		t.Errorf("bad VCD header: %q", b[:32])
	}
}

func TestRunErrors(t *testing.T) {
	if _, _, err := execute(t, "run"); err == nil {
		t.Error("expected an error for missing scenario")
	}
	if _, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for missing file")
	}
	path := writeScenario(t, loopback)
	if _, _, err := execute(t, "run", "--log-level", "loud", path); err == nil || !strings.Contains(err.Error(), "log level") {
		t.Errorf("expected a log level error, got %v", err)
	}
	path = writeScenario(t, "sysclk: 1MHz\nfrequency: 1kHz\n")
	if _, _, err := execute(t, "run", path); err == nil || !strings.Contains(err.Error(), "too slow") {
		t.Errorf("expected a frequency error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "spisim "+version+"\n" {
		t.Fatalf("unexpected output %q", out)
	}
}
