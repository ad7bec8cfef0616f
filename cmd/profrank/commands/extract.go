package commands

import (
	"log/slog"
	"time"

	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/extract"
	"profrank-backend/internal/resultstore"
	"profrank-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	extractPrefer   *[]string
	extractJson     *bool
	extractComments *bool
	extractDb       *string
	extractWorkers  *int
	extractDeadline *time.Duration
)

func init() {
	extractPrefer = extractCmd.Flags().StringSlice("prefer", nil, "Teacher tags to prefer, ex. \"caring,amazing lectures\".")
	extractJson = extractCmd.Flags().Bool("json", false, "Print the ranked instructors as json.")
	extractComments = extractCmd.Flags().Bool("comments", false, "Print the latest matched comments under each instructor.")
	extractDb = extractCmd.Flags().String("db", "", "The database to export the run to, overrides the database of the config.")
	extractWorkers = extractCmd.Flags().Int("workers", 0, "The amount of teachers fetched at once, overrides the config.")
	extractDeadline = extractCmd.Flags().Duration("deadline", 0, "The time the whole run may take, overrides the config.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <school> <department> <course> [dept-code]",
	Short: "Finds the instructors that taught a course and ranks them.",
	Args:  cobra.RangeArgs(3, 4),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Extract
		if *extractWorkers > 0 {
			cfg.Workers = *extractWorkers
		}
		if *extractDeadline > 0 {
			cfg.DeadlineMs = int(extractDeadline.Milliseconds())
		}

		req := extract.Request{
			SchoolName:     args[0],
			Department:     args[1],
			Course:         args[2],
			PreferenceTags: *extractPrefer,
		}
		if len(args) == 4 {
			req.DeptCodeOverride = args[3]
		}

		pipeline := extract.New(newClient(cfg), cfg, telemetry.SlogAPI{})

		started := time.Now()
		result, err := pipeline.Run(cmd.Context(), req)
		if err != nil {
			serviceutil.Fatal("failed to extract instructors", err)
		}
		finished := time.Now()

		slog.Info(
			"extracted instructors",
			"school", result.School.Name,
			"course", result.Token.String(),
			"candidates", result.Candidates,
			"instructors", len(result.Instructors),
			"partial", result.Partial,
			"seconds", finished.Sub(started).Seconds(),
		)
		if result.Partial {
			slog.Warn("the deadline was reached, some instructors are missing")
		}

		dsn := *extractDb
		if dsn == "" {
			dsn = config.Database
		}
		if dsn != "" {
			saveRun(cmd, dsn, resultstore.Run{
				StartedAt:   started,
				FinishedAt:  finished,
				Request:     req,
				School:      result.School,
				Token:       result.Token,
				Candidates:  result.Candidates,
				Partial:     result.Partial,
				Instructors: result.Instructors,
			})
		}

		if *extractJson {
			printJson(result.Instructors)
			return
		}
		renderInstructors(result.Instructors, *extractComments)
	},
}

func saveRun(cmd *cobra.Command, dsn string, run resultstore.Run) {
	database, err := resultstore.Open(dsn)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	defer database.Close()

	id, err := resultstore.NewStore(database).SaveRun(cmd.Context(), run)
	if err != nil {
		serviceutil.Fatal("failed to save run", err)
	}
	slog.Info("saved run", "id", id, "db", dsn)
}
