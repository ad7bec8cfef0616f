package commands

import (
	"strings"
	"time"

	"profrank-backend/internal/resultstore"
	"profrank-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyDb       *string
	historyLimit    *int
	historyJson     *bool
	historyComments *bool
)

func init() {
	historyDb = historyCmd.Flags().String("db", "", "The database runs were exported to, overrides the database of the config.")
	historyLimit = historyCmd.Flags().Int("limit", 20, "The amount of runs to list.")
	historyJson = historyCmd.Flags().Bool("json", false, "Print as json.")
	historyComments = historyCmd.Flags().Bool("comments", false, "Print the stored comments under each instructor.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Lists exported runs, or the ranked instructors of one run.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dsn := *historyDb
		if dsn == "" {
			dsn = config.Database
		}
		database, err := resultstore.Open(dsn)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		store := resultstore.NewStore(database)

		if len(args) == 1 {
			instructors, err := store.RunInstructors(cmd.Context(), args[0])
			if err != nil {
				serviceutil.Fatal("failed to read run", err)
			}
			if *historyJson {
				printJson(instructors)
				return
			}
			renderInstructors(instructors, *historyComments)
			return
		}

		runs, err := store.ListRuns(cmd.Context(), *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}
		if *historyJson {
			printJson(runs)
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Started", "School", "Course", "Preferences", "Candidates", "Partial"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				run.ID,
				run.StartedAt.Format(time.DateTime),
				run.School.Name,
				run.Token.String(),
				strings.Join(run.Request.PreferenceTags, ", "),
				run.Candidates,
				run.Partial,
			})
		}
		t.Render()
	},
}
