package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"study-evaluator/internal/batch"
	"study-evaluator/internal/pairing"
	"study-evaluator/internal/render"
)

var (
	flagPlans   []string
	flagReports []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload --plan FILE... --report FILE...",
	Short: "Upload plans and reports for pairing and evaluation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(flagPlans) == 0 && len(flagReports) == 0 {
			return errors.New("nothing to upload: pass --plan and/or --report")
		}
		plans, err := docs(flagPlans)
		if err != nil {
			return err
		}
		reports, err := docs(flagReports)
		if err != nil {
			return err
		}

		resp, err := newClient().Upload(cmd.Context(), plans, reports)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		if flagJSON {
			return printJSON(resp)
		}
		return printSummary(os.Stdout, batch.Summarize(resp, locale()))
	},
}

func init() {
	uploadCmd.Flags().StringSliceVarP(&flagPlans, "plan", "p", nil, "plan files (xlsx, txt, csv)")
	uploadCmd.Flags().StringSliceVarP(&flagReports, "report", "r", nil, "report files (xlsx, txt, csv)")
	rootCmd.AddCommand(uploadCmd)
}

func docs(paths []string) ([]pairing.Doc, error) {
	files, err := readFiles(paths)
	if err != nil {
		return nil, err
	}
	out := make([]pairing.Doc, len(files))
	for i, f := range files {
		out[i] = pairing.Doc{Name: filepath.Base(f.path), Data: f.data}
	}
	return out, nil
}

func printSummary(w io.Writer, s batch.Summary) error {
	none := locale().None
	list := func(names []string) string {
		if len(names) == 0 {
			return none
		}
		return strings.Join(names, ", ")
	}
	fmt.Fprintf(w, "matched: %d  evaluated: %d/%d\n", s.MatchedCount, s.Succeeded(), len(s.Items))
	fmt.Fprintf(w, "unmatched plans: %s\n", list(s.UnmatchedPlans))
	fmt.Fprintf(w, "unmatched reports: %s\n\n", list(s.UnmatchedReports))
	for _, v := range s.Items {
		if err := render.Text(w, v); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
