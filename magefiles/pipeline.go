//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// runStage runs one insight-pilot subcommand inside the scratch project.
func runStage(args ...string) error {
	bin, err := filepath.Abs(filepath.Join(binDir, binName))
	if err != nil {
		return err
	}
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("binary missing: run mage build first")
	}
	cmd := exec.Command(bin, args...)
	cmd.Dir = scratchDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Search runs the collection stage in the scratch project.
func Search() error {
	return runStage("search")
}

// Merge reconciles raw results in the scratch project.
func Merge() error {
	return runStage("merge")
}

// Dedup deduplicates the scratch project's item list.
func Dedup() error {
	return runStage("dedup")
}

// Download fetches PDFs for the scratch project.
func Download() error {
	return runStage("download")
}

// Convert turns the scratch project's PDFs into Markdown.
func Convert() error {
	return runStage("convert")
}

// Analyze runs the analysis stage in the scratch project.
func Analyze() error {
	return runStage("analyze")
}

// Index regenerates the scratch project's reports, index, and catalog.
func Index() error {
	return runStage("index")
}

// Status prints the scratch project's state.
func Status() error {
	return runStage("status")
}
