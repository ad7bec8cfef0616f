package commands

import (
	"log/slog"
	"strings"

	"profrank-backend/internal/scrapers/ratings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var probeJson *bool

func init() {
	probeJson = probeCmd.Flags().Bool("json", false, "Print the field map as json.")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Introspects the ratings service and prints the fields that will be queried.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Extract
		client := newClient(cfg)
		fields := client.ProbeSchema(cmd.Context(), ratings.ProbeOptions{
			ReviewTypeName:  cfg.ReviewTypeName,
			TeacherTypeName: cfg.TeacherTypeName,
		})

		if *probeJson {
			printJson(fields)
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"discovered", fields.Discovered},
			{"comment", fields.CommentField},
			{"class-like", strings.Join(fields.ClassLikeFields, ", ")},
			{"review tags", fields.TagsField},
			{"teacher tags", fields.TeacherTagField},
			{"teacher tag name", fields.TeacherTagNameField},
		})
		t.Render()

		if !fields.Discovered {
			slog.Warn("introspection failed, the defaults are shown")
		}
	},
}
