package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kapu/baselink-bot/internal/app"
	"github.com/kapu/baselink-bot/internal/domain"
	"github.com/kapu/baselink-bot/internal/service/baselink"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run the screenshot pipeline locally and print the reply",
	Long: `Run OCR and the YouTube lookup on a local image and print the message
the bot would send.

Examples:
  baselink-bot resolve --image ./th15.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath, _ := cmd.Flags().GetString("image")
		if imagePath == "" {
			return fmt.Errorf("--image is required")
		}

		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		container, err := app.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		res := container.Baselink.Resolve(ctx, &domain.ImageAttachment{
			Filename: filepath.Base(imagePath),
			Data:     data,
		})
		fmt.Fprintln(cmd.OutOrStdout(), container.Formatter.FormatResolution(res))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search YouTube with a text query and print the first base link",
	Long: `Skip OCR and resolve a base link from text.

Examples:
  baselink-bot search --query "TH15 war base anti 3 star"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		if baselink.NormalizeQuery(query) == "" {
			return fmt.Errorf("--query is required")
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		container, err := app.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		res := domain.Resolution{Query: query}
		link, found, err := container.Resolver.Resolve(ctx, query)
		switch {
		case err != nil:
			res.Outcome, res.Err = domain.OutcomeSearchError, err
		case found:
			res.Outcome, res.Link = domain.OutcomeFound, link
		default:
			res.Outcome = domain.OutcomeNoLink
		}
		fmt.Fprintln(cmd.OutOrStdout(), container.Formatter.FormatResolution(res))

		used, remaining, reset := container.YouTube.GetQuotaStatus()
		fmt.Fprintf(cmd.ErrOrStderr(), "quota: used %d, remaining %d, resets %s\n", used, remaining, reset.Format(time.RFC3339))
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("image", "", "path to a base screenshot")
	searchCmd.Flags().String("query", "", "text to search YouTube with")
}
