package main

import (
	"context"
	"fmt"
	"time"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

var (
	fetchAlternates bool
	fetchFormat     string
	fetchOffline    bool
	fetchFallback   string
	fetchTimeout    time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the current catalog",
	Long: `Fetch reads the catalog from the server once and prints it. If the
server cannot be reached the bundled fallback catalog is printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var format models.Format
		if fetchFormat != "" {
			parsed, ok := models.ParseFormat(fetchFormat)
			if !ok {
				return fmt.Errorf("%w: got %q", services.ErrInvalidFormat, fetchFormat)
			}
			format = parsed
		}

		fallback, err := services.NewFallbackCatalog(fetchFallback)
		if err != nil {
			return err
		}

		var source services.CatalogFetcher = services.NewRemoteCatalogClient(serverURL, "")
		if fetchOffline {
			source = fallback
		}

		cache := services.NewCatalogCache(source, fallback, services.NewBroadcaster(),
			services.WithFetchTimeout(fetchTimeout))

		ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
		defer cancel()

		partition := models.PartitionFor(fetchAlternates)
		snap, err := cache.EnsureFreshSnapshot(ctx, partition)
		if err != nil {
			return err
		}
		label := snap.Source
		if fetchOffline {
			label = services.SourceFallback
		}

		cards := filterFormat(snap.Cards, format)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d cards from %s\n", colorize.CyanString("Catalog:"), len(cards), sourceLabel(label))
		return printCards(out, cards)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchAlternates, "alternates", false, "include alternate art cards")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "", "only show cards restricted in this format (RE, RL, LI)")
	fetchCmd.Flags().BoolVar(&fetchOffline, "offline", false, "print the fallback catalog without contacting the server")
	fetchCmd.Flags().StringVar(&fetchFallback, "fallback", "", "fallback catalog JSON file (defaults to the bundled one)")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 15*time.Second, "how long to wait for the server")
}
