package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

var (
	watchAlternates bool
	watchFormat     string
	watchInterval   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the catalog and print it whenever it changes",
	Long: `Watch keeps a local catalog cache in sync with the server. It polls the
server's catalog version and refetches only when the version moves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var format models.Format
		if watchFormat != "" {
			parsed, ok := models.ParseFormat(watchFormat)
			if !ok {
				return fmt.Errorf("%w: got %q", services.ErrInvalidFormat, watchFormat)
			}
			format = parsed
		}

		fallback, err := services.NewFallbackCatalog("")
		if err != nil {
			return err
		}

		client := services.NewRemoteCatalogClient(serverURL, "")
		broadcaster := services.NewBroadcaster()
		cache := services.NewCatalogCache(client, fallback, broadcaster)
		consumer := services.NewCatalogConsumer(cache, broadcaster, watchAlternates, watchInterval)
		poller := services.NewRemoteVersionPoller(client, broadcaster, watchInterval,
			services.WithDegradedCheck(cache.Degraded))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go consumer.Start(ctx)
		go poller.Start(ctx)

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case state := <-consumer.Updates():
				remote, _ := poller.LastRemoteVersion()
				cards := filterFormat(state.Cards, format)
				fmt.Fprintf(out, "\n%s %s  %d cards from %s (remote version %d)\n",
					colorize.CyanString("Updated"), time.Now().Format(time.Kitchen),
					len(cards), sourceLabel(state.Source), remote)
				if err := printCards(out, cards); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchAlternates, "alternates", false, "include alternate art cards")
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "only show cards restricted in this format (RE, RL, LI)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "how often to check the server version")
}
