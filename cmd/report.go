package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "read-only reports",
}

func init() {
	reportCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	reportCmd.AddCommand(reportUnlinkedCmd())
	reportCmd.AddCommand(reportTombstonesCmd())
}

func reportUnlinkedCmd() *cobra.Command {
	var language string
	var counterpart string

	var required = []string{"lang", "counterpart"}

	command := &cobra.Command{
		Use:     "unlinked",
		Short:   "list the quotes without a counterpart",
		Example: "aphorium report unlinked -l ru -c en",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			engine := openEngine()
			defer engine.Close()

			quotes, err := engine.Reporter.Unlinked(context.Background(), language, counterpart)
			if err != nil {
				logrus.Error(err)
				return
			}

			printQuotes(quotes)
			color.Yellow("%d %s quotes without a %s counterpart", len(quotes), language, counterpart)
		},
	}

	command.Flags().StringVarP(&language, "lang", "l", "", "language of the listed quotes (required)")
	command.Flags().StringVarP(&counterpart, "counterpart", "c", "", "language of the missing counterpart (required)")

	command.Flags().SortFlags = false

	return command
}

func reportTombstonesCmd() *cobra.Command {
	var quoteID uint

	var required = []string{"quote"}

	command := &cobra.Command{
		Use:     "tombstones",
		Short:   "list the quotes merged into a quote",
		Example: "aphorium report tombstones -q <quote-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			engine := openEngine()
			defer engine.Close()

			snapshots, err := engine.Reporter.Tombstones(context.Background(), quoteID)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Language", "Author", "Source", "Links", "Text"})
			for _, snapshot := range snapshots {
				q := snapshot.Quote
				table.Append([]string{
					strconv.FormatUint(uint64(q.ID), 10),
					q.Language,
					ref(q.AuthorID),
					ref(q.SourceID),
					itoa(len(snapshot.Translations)),
					q.Text,
				})
			}
			table.Render()
		},
	}

	command.Flags().UintVarP(&quoteID, "quote", "q", 0, "canonical quote id (required)")

	return command
}
