package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/service"
	"github.com/emrgen/aphorium/internal/similarity"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")

		cmd.Usage()

		return true
	}

	return false
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func uintList(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}

func ref(id *uint) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func printDedupReport(report *service.DedupReport) {
	if report.DryRun {
		color.Yellow("dry run, nothing was merged")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Language", "Scanned", "Skipped", "Comparisons", "Exact", "Token", "Fuzzy", "Groups", "Merged", "Removed", "Failures"})
	table.Append([]string{
		report.Language,
		itoa(report.Scanned),
		itoa(report.Skipped),
		itoa(report.Comparisons),
		itoa(report.Matches[similarity.MethodExact]),
		itoa(report.Matches[similarity.MethodToken]),
		itoa(report.Matches[similarity.MethodFuzzy]),
		itoa(report.Groups),
		itoa(report.Merged),
		itoa(report.Removed),
		itoa(len(report.Failures)),
	})
	table.Render()

	if report.DryRun && len(report.Duplicates) > 0 {
		groups := tablewriter.NewWriter(os.Stdout)
		groups.SetHeader([]string{"Quotes", "Method", "Score"})
		for _, group := range report.Duplicates {
			groups.Append([]string{uintList(group.IDs), string(group.Method), fmt.Sprintf("%.3f", group.Score)})
		}
		groups.Render()
	}

	for _, failure := range report.Failures {
		color.Red("group %s: %s", uintList(failure.IDs), failure.Reason)
	}
}

func printLinkReport(report *service.LinkReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Authors", "Proposals", "Created", "Unchanged", "Failures"})
	table.Append([]string{
		report.RunID,
		itoa(report.Authors),
		itoa(report.Proposals),
		itoa(report.Created),
		itoa(report.Unchanged),
		itoa(len(report.Failures)),
	})
	table.Render()

	printLinkFailures(report.Failures)
}

func printLinkFailures(failures []service.LinkFailure) {
	for _, failure := range failures {
		color.Red("author %d, %d -> %d: %s", failure.AuthorID, failure.SourceID, failure.TargetID, failure.Reason)
	}
}

func printQuotes(quotes []*model.Quote) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Language", "Author", "Source", "Group", "Text"})
	for _, q := range quotes {
		table.Append([]string{
			strconv.FormatUint(uint64(q.ID), 10),
			q.Language,
			ref(q.AuthorID),
			ref(q.SourceID),
			ref(q.BilingualGroupID),
			q.Text,
		})
	}
	table.Render()
}
