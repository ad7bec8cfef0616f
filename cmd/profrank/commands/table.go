package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"profrank-backend/internal/ranking"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printJson(value any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(value)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func renderInstructors(instructors []ranking.ScoredInstructor, comments bool) {
	t := newTable()
	t.AppendHeader(table.Row{
		"#", "Name", "Department",
		"Rating", "Difficulty", "Take Again",
		"Ratings", "Matched", "Score", "Tags",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 10, WidthMax: 48},
	})
	for i, inst := range instructors {
		t.AppendRow(table.Row{
			i + 1,
			inst.Name,
			inst.Department,
			fmt.Sprintf("%.1f", inst.AvgRating),
			fmt.Sprintf("%.1f", inst.AvgDifficulty),
			fmt.Sprintf("%.0f%%", inst.WouldTakeAgainPercent),
			inst.NumRatings,
			inst.MatchedReviews,
			fmt.Sprintf("%.3f", inst.CompositeScore),
			strings.Join(inst.Tags, ", "),
		})
		if !comments {
			continue
		}
		for _, comment := range inst.LatestComments {
			t.AppendRow(table.Row{"", text.Italic.Sprint(truncate(comment, 100))})
		}
		t.AppendSeparator()
	}
	t.Render()
}
