//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Ingest builds the CLI and runs one ingestion batch with config defaults.
func Ingest() error {
	mg.Deps(Build)
	return runBin("ingest")
}

// Serve builds the CLI and starts the HTTP API with the scheduled crawler.
func Serve() error {
	mg.Deps(Init, Build)
	return runBin("serve")
}

func runBin(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
