package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/container"
	"github.com/PotatoDog1669/insight-pilot/internal/convert"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert downloaded PDFs to Markdown",
	Long: `Convert pipes every downloaded PDF through a containerized conversion
backend and stores the Markdown under markdown/, with YAML frontmatter
linking each file back to its item. Requires docker or podman.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("backend", string(types.BackendMarkitdown), "conversion backend: markitdown or marker")
	convertCmd.Flags().String("runtime", "", "container runtime: docker or podman (default: first available)")
	convertCmd.Flags().Bool("force", false, "reconvert items that already have Markdown")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	backend, _ := cmd.Flags().GetString("backend")
	runtimeName, _ := cmd.Flags().GetString("runtime")
	force, _ := cmd.Flags().GetBool("force")

	items, err := layout.LoadItems()
	if err != nil {
		return err
	}

	rt, err := container.Select(runtimeName)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Using container runtime: %s\n", rt.Name())

	conv, err := convert.NewConverter(types.ConversionConfig{Backend: types.ConversionBackend(backend)}, rt)
	if err != nil {
		return err
	}

	result, err := convert.ConvertBatch(conv, items, layout.Root, layout.MarkdownDir(), force, os.Stdout)
	if err != nil {
		return err
	}

	touchStage(layout, "convert", result.Converted)

	if result.HasFailures() {
		return fmt.Errorf("%d item(s) failed conversion", result.Failed)
	}
	return nil
}
