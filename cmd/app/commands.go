package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/prasetyowira/qrgen/config"
	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/download"
	"github.com/prasetyowira/qrgen/domain/render"
	"github.com/spf13/cobra"
)

func newGenerateCmd(app *App, cfg *config.Config) *cobra.Command {
	var (
		size   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Generate a QR code for a URL and add it to history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			if size == 0 {
				size = cfg.AllowedSizes.Default()
			}
			if !cfg.AllowedSizes.Allowed(size) {
				return fmt.Errorf("%s: %d (choose from %v)", constant.ErrSizeNotAllowed, size, cfg.AllowedSizes)
			}

			svc, err := openServices(cfg, app.HTTPClient)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.controller.Generate(cmd.Context(), args[0], size)
			if err != nil {
				return err
			}
			return writeResult(app.Out, format, result)
		},
	}

	cmd.Flags().IntVarP(&size, "size", "s", 0, "image size in pixels (defaults to the middle allowed size)")
	cmd.Flags().StringVarP(&output, "output", "o", string(formatTable), "output format (table, json, yaml)")
	return cmd
}

func newHistoryCmd(app *App, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and edit the generation history",
	}
	cmd.AddCommand(
		newHistoryListCmd(app, cfg),
		newHistoryDeleteCmd(app, cfg),
		newHistoryClearCmd(app, cfg),
	)
	return cmd
}

func newHistoryListCmd(app *App, cfg *config.Config) *cobra.Command {
	var (
		query  string
		output string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history entries, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}

			svc, err := openServices(cfg, app.HTTPClient)
			if err != nil {
				return err
			}
			defer svc.Close()

			view, err := svc.renderer.Render(cmd.Context(), query)
			if err != nil {
				return err
			}
			return writeView(app.Out, format, view)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy filter on the URL")
	cmd.Flags().StringVarP(&output, "output", "o", string(formatTable), "output format (table, json, yaml)")
	return cmd
}

func newHistoryDeleteCmd(app *App, cfg *config.Config) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:     "delete <index>",
		Aliases: []string{"rm"},
		Short:   "Delete the history entry at index",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			svc, err := openServices(cfg, app.HTTPClient)
			if err != nil {
				return err
			}
			defer svc.Close()

			outcome, err := svc.renderer.Perform(cmd.Context(), render.Action{
				Kind:     render.ActionDelete,
				Index:    index,
				RecordID: id,
			}, nil)
			if err != nil {
				return err
			}

			fmt.Fprintln(app.Out, outcome.Message)
			fmt.Fprintf(app.Out, "%d %s left\n", len(outcome.View.Entries), plural(len(outcome.View.Entries), "entry", "entries"))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "only delete if the entry still has this record ID")
	return cmd
}

func newHistoryClearCmd(app *App, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cfg, app.HTTPClient)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, constant.MsgHistoryCleared)
			return nil
		},
	}
}

func newDownloadCmd(app *App, cfg *config.Config) *cobra.Command {
	var (
		dir    string
		prefix string
		id     string
	)

	cmd := &cobra.Command{
		Use:   "download <index>",
		Short: "Download the image of the history entry at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.DownloadDir
			}
			if prefix == "" {
				prefix = cfg.DownloadPrefix
			}

			svc, err := openServices(cfg, app.HTTPClient)
			if err != nil {
				return err
			}
			defer svc.Close()

			saver := download.NewDirSaver(dir)
			renderer := render.NewRenderer(svc.store, svc.downloader, prefix)
			outcome, err := renderer.Perform(cmd.Context(), render.Action{
				Kind:     render.ActionDownload,
				Index:    index,
				RecordID: id,
			}, saver)
			if err != nil {
				return err
			}

			fmt.Fprintln(app.Out, outcome.Message)
			fmt.Fprintf(app.Out, "Saved %s (%s)\n", saver.LastPath, humanize.Bytes(uint64(outcome.Download.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to save into (defaults to download_dir)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "filename prefix (defaults to download_prefix)")
	cmd.Flags().StringVar(&id, "id", "", "only download if the entry still has this record ID")
	return cmd
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid history index %q", raw)
	}
	return index, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
