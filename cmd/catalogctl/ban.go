package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

var banTimeout time.Duration

var banCmd = &cobra.Command{
	Use:   "ban CARD:FORMAT=VALUE...",
	Short: "Submit a ban-list batch",
	Long: `Ban submits every argument as one ban-list batch. Each argument names a
card, a format and a value: X-0001:RE=1 limits X-0001 and its alternates to
one copy in RE. Values are 0 (banned), 1, 2 and 3 (unrestricted).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := make([]models.BanListUpdate, 0, len(args))
		for _, arg := range args {
			u, err := parseBanArg(arg)
			if err != nil {
				return err
			}
			updates = append(updates, u)
		}

		if adminToken == "" {
			return fmt.Errorf("an admin token is required (--token or ADMIN_TOKEN)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), banTimeout)
		defer cancel()

		client := services.NewRemoteCatalogClient(serverURL, adminToken)
		resp, err := client.ApplyBanList(ctx, updates)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range resp.Results {
			if r.Success {
				fmt.Fprintf(out, "%s %s %s=%s (%d cards)\n", colorize.GreenString("ok  "), r.CardID, r.Format, severityLabel(r.Value), r.Affected)
			} else {
				fmt.Fprintf(out, "%s %s %s: %s\n", colorize.RedString("fail"), r.CardID, r.Format, r.Error)
			}
		}
		fmt.Fprintf(out, "Batch %s: %d/%d applied, catalog version %d\n",
			resp.BatchID, resp.Summary.Successful, resp.Summary.Total, resp.Version)

		if !resp.Success {
			return fmt.Errorf("%d of %d updates failed", resp.Summary.Failed, resp.Summary.Total)
		}
		return nil
	},
}

func init() {
	banCmd.Flags().DurationVar(&banTimeout, "timeout", 30*time.Second, "how long to wait for the server")
}

// parseBanArg parses CARD:FORMAT=VALUE. Format and value are checked by the
// server so that one bad item does not block the rest of the batch.
func parseBanArg(arg string) (models.BanListUpdate, error) {
	cardID, rest, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(cardID) == "" {
		return models.BanListUpdate{}, fmt.Errorf("invalid update %q: expected CARD:FORMAT=VALUE", arg)
	}
	format, rawValue, ok := strings.Cut(rest, "=")
	if !ok {
		return models.BanListUpdate{}, fmt.Errorf("invalid update %q: expected CARD:FORMAT=VALUE", arg)
	}
	value, err := strconv.Atoi(strings.TrimSpace(rawValue))
	if err != nil {
		return models.BanListUpdate{}, fmt.Errorf("invalid value in %q: %w", arg, err)
	}
	return models.BanListUpdate{
		CardID: strings.TrimSpace(cardID),
		Format: models.Format(strings.TrimSpace(format)),
		Value:  models.Severity(value),
	}, nil
}
