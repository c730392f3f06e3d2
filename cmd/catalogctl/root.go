package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codyseavey/card-catalog/internal/config"
	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

// cliDefaults are read from the environment before flags are parsed.
type cliDefaults struct {
	Server string `env:"CATALOG_SERVER" envDefault:"http://localhost:8080"`
	Token  string `env:"ADMIN_TOKEN"`
}

var (
	serverURL  string
	adminToken string
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Inspect and edit a card catalog server",
	Long: `catalogctl talks to a card catalog server over HTTP. It can print the
catalog, follow it as ban lists change, and submit ban-list batches.`,
	SilenceUsage: true,
}

func init() {
	var defaults cliDefaults
	if err := config.ParseEnv(&defaults); err != nil {
		defaults.Server = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaults.Server, "catalog server base URL")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", defaults.Token, "admin bearer token (for ban)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(banCmd)
}

// severityLabel renders a severity with the color admins expect from the ban list.
func severityLabel(s models.Severity) string {
	switch s {
	case models.SeverityBanned:
		return colorize.RedString(s.String())
	case models.SeverityLimitedOne, models.SeverityLimitedTwo:
		return colorize.YellowString(s.String())
	case models.SeverityUnrestricted:
		return colorize.GreenString(s.String())
	default:
		return colorize.MagentaString(s.String())
	}
}

// printCards writes one row per card with its three ban-list values.
func printCards(w io.Writer, cards []models.Card) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRE\tRL\tLI")
	for i := range cards {
		c := &cards[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name,
			severityLabel(c.BanListRE), severityLabel(c.BanListRL), severityLabel(c.BanListLI))
	}
	return tw.Flush()
}

// filterFormat keeps the cards restricted in format.
func filterFormat(cards []models.Card, format models.Format) []models.Card {
	if format == "" {
		return cards
	}
	out := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if c.BanList(format) < models.SeverityUnrestricted {
			out = append(out, c)
		}
	}
	return out
}

func sourceLabel(source string) string {
	if source == services.SourceFallback {
		return colorize.YellowString(source)
	}
	return colorize.CyanString(source)
}
