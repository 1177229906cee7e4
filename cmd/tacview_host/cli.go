package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/OCAP2/tacview/internal/api"
	"github.com/OCAP2/tacview/internal/config"
	"github.com/OCAP2/tacview/internal/database"
)

// runCommand handles the catalog maintenance subcommands.
func runCommand(args []string) error {
	catalog := database.NewManager(config.GetCatalogConfig(), zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}))
	if err := catalog.Connect(); err != nil {
		return fmt.Errorf("failed to open recording catalog: %w", err)
	}
	defer catalog.Close()

	switch strings.ToLower(args[0]) {
	case "recordings":
		limit := 20
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}
			limit = n
		}
		return listRecordings(os.Stdout, catalog, limit)

	case "upload-pending":
		client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		return uploadPending(ctx, os.Stdout, catalog, client)

	default:
		return fmt.Errorf("unknown command %q (want recordings or upload-pending)", args[0])
	}
}

func listRecordings(w io.Writer, catalog *database.Manager, limit int) error {
	recs, err := catalog.ListRecordings(limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tDURATION\tBYTES\tUPLOADED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%.1fs\t%d\t%t\n", r.Name, r.Title, r.Duration, r.Bytes, r.Uploaded)
	}
	return tw.Flush()
}

type uploader interface {
	Upload(ctx context.Context, path string, meta api.UploadMetadata) error
}

func uploadPending(ctx context.Context, w io.Writer, catalog *database.Manager, client uploader) error {
	pending, err := catalog.PendingUploads()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(w, "No pending uploads.")
		return nil
	}

	var failed int
	for _, r := range pending {
		err := client.Upload(ctx, r.FilePath, api.UploadMetadata{
			Name:     r.Name,
			Title:    r.Title,
			Category: r.Category,
			Host:     r.Host,
			Duration: r.Duration,
		})
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s: %v\n", r.Name, err)
			continue
		}
		if err := catalog.MarkUploaded(r.Name); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: uploaded\n", r.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(pending))
	}
	return nil
}
