package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"study-evaluator/internal/client"
	"study-evaluator/internal/extract"
	"study-evaluator/internal/render"
	"study-evaluator/internal/schemas"
)

var resultFilter schemas.ResultFilter

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := newClient().ListResults(cmd.Context(), resultFilter)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rows)
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "FILE", "TOTAL", "CAMPUS", "CLASS", "AUTHOR", "CREATED")
		for _, r := range rows {
			total := "-"
			if r.TotalScore != nil {
				total = strconv.FormatFloat(*r.TotalScore, 'f', -1, 64)
			}
			t.Row(strconv.FormatInt(r.ID, 10), r.Filename, total,
				deref(r.Campus), deref(r.ClassName), deref(r.AuthorName),
				r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println(t.String())
		return nil
	},
}

var resultCmd = &cobra.Command{
	Use:   "result ID",
	Short: "Show one stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad result id %q", args[0])
		}
		detail, err := newClient().GetResult(cmd.Context(), id)
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("result %d not found", id)
		}
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(detail)
		}
		view := render.Render(extract.Decode(detail.AnalysisData), detail.Filename, locale())
		return render.Text(os.Stdout, view)
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the campuses and classes results can be filtered by",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := newClient().FilterOptions(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(opts)
		}
		fmt.Printf("campuses: %v\nclasses:  %v\n", opts.Campuses, opts.ClassNames)
		return nil
	},
}

var reevaluateCmd = &cobra.Command{
	Use:   "reevaluate ID",
	Short: "Re-extract a stored result from its archived completion (needs --token)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad result id %q", args[0])
		}
		resp, err := newClient().Reevaluate(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var analyzeLocalCmd = &cobra.Command{
	Use:   "analyze-local",
	Short: "Evaluate the report found in the server's local report directory (needs --token)",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().AnalyzeLocal(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(resp)
		}
		view := render.Render(extract.Extract(resp.AnalysisResult), resp.FileProcessed, locale())
		return render.Text(os.Stdout, view)
	},
}

func init() {
	f := resultsCmd.Flags()
	f.StringVar(&resultFilter.Campus, "campus", "", "only this campus")
	f.StringVar(&resultFilter.ClassName, "class", "", "only this class, e.g. 1반")
	f.StringVar(&resultFilter.StartDate, "from", "", "created on or after YYYY-MM-DD")
	f.StringVar(&resultFilter.EndDate, "to", "", "created on or before YYYY-MM-DD")
	f.StringVarP(&resultFilter.Q, "query", "q", "", "match author or file name")

	rootCmd.AddCommand(resultsCmd, resultCmd, optionsCmd, reevaluateCmd, analyzeLocalCmd)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
