package commands

import (
	"fmt"
	"log/slog"
	"os"
	"zjubulletin/lib/serviceutil"
	"zjubulletin/services/bulletin"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var outPath *string

func init() {
	outPath = scrapeCmd.Flags().String("out", "docs/data.json", "Path to write the aggregated document to.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--out <path/to/data.json>]",
	Short: "Scrapes every configured college and writes the aggregated JSON document.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		auth := bulletin.Authenticate(ctx, "", bulletin.CredentialsFromEnv())
		slog.Info("authentication resolved", "status", auth.Status.String())

		scraper := bulletin.NewScraper(auth, bulletin.Colleges)
		result, err := scraper.ScrapeAll(ctx)
		if err != nil {
			serviceutil.Fatal("scrape aborted", err)
		}

		err = bulletin.WriteRunResult(*outPath, result)
		if err != nil {
			serviceutil.Fatal(fmt.Sprintf("failed to write %s", *outPath), err)
		}

		total := 0
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"College", "Items", "Note"})
		for _, college := range result.Colleges {
			t.AppendRow(table.Row{college.Name, len(college.Items), college.Note})
			total += len(college.Items)
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		slog.Info("wrote aggregated document",
			"path", *outPath, "items", total, "updated_at", result.UpdatedAt)
	},
}
