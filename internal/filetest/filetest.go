// Package filetest supports golden-file tests: enumerate the source
// scripts of a testdata directory, run each through whatever stage the
// test exercises, and diff the produced output against a stored .want
// file, updating the stored file instead when the update flag is set.
package filetest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
)

var updateAll = flag.Bool("test.update-all-tests", false, "If set, sets all test.update-*-tests.")

// SourceFiles returns the names of the regular files in dir with the
// given extension (leading dot optional), in directory order.
func SourceFiles(t *testing.T, dir, ext string) []string {
	t.Helper()

	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if ext != "" && filepath.Ext(dent.Name()) != ext {
			continue
		}
		names = append(names, dent.Name())
	}
	return names
}

// DiffOutput validates that output matches the golden file
// <resultDir>/<name>.want, or rewrites the golden file when updateFlag
// (or the global update-all flag) is set.
func DiffOutput(t *testing.T, name, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, name, "output", ".want", output, resultDir, updateFlag)
}

// DiffErrors is DiffOutput for expected-error output, stored as
// <name>.err.
func DiffErrors(t *testing.T, name, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, name, "errors", ".err", output, resultDir, updateFlag)
}

// DiffCustom is the general form: label names the kind of output in test
// logs, ext is the golden-file extension (with the leading dot).
func DiffCustom(t *testing.T, name, label, ext, output, resultDir string, updateFlag *bool) {
	t.Helper()

	goldFile := filepath.Join(resultDir, name+ext)

	if *updateFlag || *updateAll {
		if err := os.WriteFile(goldFile, []byte(output), 0o600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got %s:\n%s\n", label, output)
	}
	if patch := diff.Diff(want, output); patch != "" {
		if testing.Verbose() {
			t.Logf("want %s:\n%s\n", label, want)
		}
		t.Errorf("diff %s:\n%s\n", label, patch)
	}
}
