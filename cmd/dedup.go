package cmd

import (
	"github.com/emrgen/aphorium/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func dedupCmd() *cobra.Command {
	var languages []string
	var dryRun bool

	command := &cobra.Command{
		Use:     "dedup",
		Short:   "merge duplicate quotes",
		Long:    `find the duplicate quotes of each language and merge every duplicate group into one canonical quote`,
		Example: "aphorium dedup -l en -l ru --dry-run",
		Run: func(cmd *cobra.Command, args []string) {
			engine := openEngine()
			defer engine.Close()

			if len(languages) == 0 {
				languages = engine.Config.Languages
			}

			ctx, cancel := signalContext()
			defer cancel()

			reports, err := engine.Dedup.Deduplicate(ctx, service.DedupOptions{DryRun: dryRun}, languages...)
			for _, report := range reports {
				if report != nil {
					printDedupReport(report)
				}
			}
			if err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	command.Flags().StringSliceVarP(&languages, "lang", "l", nil, "languages to deduplicate (default from config)")
	command.Flags().BoolVar(&dryRun, "dry-run", false, "report the duplicate groups without merging")

	command.Flags().SortFlags = false

	return command
}
