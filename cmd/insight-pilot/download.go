package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/download"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const (
	defaultDownloadTimeout = 60 * time.Second
	defaultDownloadDelay   = 1 * time.Second
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download PDFs for active items",
	Long: `Download fetches the PDF for every active item that still needs one,
validates the content, and stores it under papers/. Failed downloads are
recorded in .insight/download_failed.json for manual follow-up.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().Duration("timeout", defaultDownloadTimeout, "HTTP request timeout")
	downloadCmd.Flags().Duration("delay", defaultDownloadDelay, "delay between consecutive downloads")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	delay, _ := cmd.Flags().GetDuration("delay")

	items, err := layout.LoadItems()
	if err != nil {
		return err
	}

	cfg := types.DownloadConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		DownloadDelay: delay,
	}
	client := &http.Client{Timeout: cfg.Timeout}

	result, err := download.DownloadBatch(context.Background(), client, items, layout.PapersDir(), cfg, os.Stdout)
	if err != nil {
		return err
	}

	if err := layout.SaveItems(items); err != nil {
		return err
	}
	// The failure file reflects the latest run only; a clean run clears it.
	if err := layout.SaveDownloadFailed(result.FailedItems); err != nil {
		return err
	}

	syncState(layout, "download", items)

	if result.HasFailures() {
		return fmt.Errorf("%d item(s) failed download", result.Failed)
	}
	return nil
}
