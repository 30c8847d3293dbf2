package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/emrgen/aphorium"
	"github.com/emrgen/aphorium/internal/service"
	"github.com/emrgen/aphorium/internal/translate"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "link quotes across languages",
}

func init() {
	linkCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	linkCmd.AddCommand(linkPairCmd())
	linkCmd.AddCommand(linkAuthorCmd())
	linkCmd.AddCommand(linkAllCmd())
	linkCmd.AddCommand(linkBackfillCmd())
	linkCmd.AddCommand(linkMaterializeCmd())
}

func linkPairCmd() *cobra.Command {
	var sourceID uint
	var targetID uint
	var confidence int

	var required = []string{"source", "target"}

	command := &cobra.Command{
		Use:     "pair",
		Short:   "link two quotes",
		Example: "aphorium link pair -s <quote-id> -t <quote-id> -c 90",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			engine := openEngine()
			defer engine.Close()

			result, err := engine.Linker.Link(context.Background(), sourceID, targetID, confidence, service.StrategyManual)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Source", "Target", "Group", "Created", "Regrouped"})
			table.Append([]string{
				strconv.FormatUint(uint64(result.SourceID), 10),
				strconv.FormatUint(uint64(result.TargetID), 10),
				strconv.FormatUint(uint64(result.GroupID), 10),
				strconv.FormatBool(result.Created),
				strconv.FormatBool(result.Regrouped),
			})
			table.Render()
		},
	}

	command.Flags().UintVarP(&sourceID, "source", "s", 0, "source quote id (required)")
	command.Flags().UintVarP(&targetID, "target", "t", 0, "target quote id (required)")
	command.Flags().IntVarP(&confidence, "confidence", "c", 100, "link confidence, 0-100")

	command.Flags().SortFlags = false

	return command
}

func linkAuthorCmd() *cobra.Command {
	var authorID uint

	var required = []string{"author"}

	command := &cobra.Command{
		Use:     "author",
		Short:   "link the quotes of one author",
		Example: "aphorium link author -a <author-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			engine := openEngine()
			defer engine.Close()

			report, err := engine.Linker.LinkAttribution(context.Background(), authorID)
			if err != nil {
				logrus.Error(err)
				return
			}
			printLinkReport(report)
		},
	}

	command.Flags().UintVarP(&authorID, "author", "a", 0, "author id (required)")

	return command
}

func linkAllCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "all",
		Short: "link the quotes of every author with quotes in both languages",
		Run: func(cmd *cobra.Command, args []string) {
			engine := openEngine()
			defer engine.Close()

			ctx, cancel := signalContext()
			defer cancel()

			report, err := engine.Linker.LinkAll(ctx)
			if report != nil {
				printLinkReport(report)
			}
			if err != nil {
				logrus.Error(err)
			}
		},
	}

	return command
}

func linkBackfillCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "backfill",
		Short: "make every existing link symmetric and grouped",
		Run: func(cmd *cobra.Command, args []string) {
			engine := openEngine()
			defer engine.Close()

			ctx, cancel := signalContext()
			defer cancel()

			report, err := engine.Linker.Backfill(ctx)
			if report != nil {
				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"Pairs", "Created", "Regrouped", "Failures"})
				table.Append([]string{itoa(report.Pairs), itoa(report.Created), itoa(report.Regrouped), itoa(len(report.Failures))})
				table.Render()
				printLinkFailures(report.Failures)
			}
			if err != nil {
				logrus.Error(err)
			}
		},
	}

	return command
}

func linkMaterializeCmd() *cobra.Command {
	var quoteID uint
	var language string
	var text string

	var required = []string{"quote", "lang", "text"}

	command := &cobra.Command{
		Use:     "materialize",
		Short:   "create and link the missing translation of a quote",
		Long:    `create a quote in the given language with the given text and link it to a quote that has no counterpart`,
		Example: "aphorium link materialize -q <quote-id> -l ru --text <translation>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			provider := translate.ProviderFunc(func(context.Context, string, string, string) (string, error) {
				return text, nil
			})
			engine := openEngine(aphorium.WithProvider(provider))
			defer engine.Close()

			quote, err := engine.Linker.Materialize(context.Background(), quoteID, language)
			if err != nil {
				logrus.Error(err)
				return
			}

			color.Green("created quote %d in group %s", quote.ID, ref(quote.BilingualGroupID))
		},
	}

	command.Flags().UintVarP(&quoteID, "quote", "q", 0, "quote without a counterpart (required)")
	command.Flags().StringVarP(&language, "lang", "l", "", "language of the new quote (required)")
	command.Flags().StringVar(&text, "text", "", "translated text (required)")

	command.Flags().SortFlags = false

	return command
}
