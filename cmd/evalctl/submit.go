package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"study-evaluator/internal/schemas"
)

var (
	flagTitle      string
	flagAuthor     string
	flagCampus     string
	flagMembers    int
	flagBodyFile   string
	flagReflection string
)

var submitCmd = &cobra.Command{
	Use:   "submit plan|report",
	Short: "Submit a typed-form plan or report for background grading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagBodyFile == "" {
			return errors.New("--body is required")
		}
		body, err := os.ReadFile(flagBodyFile)
		if err != nil {
			return err
		}
		c := newClient()

		var out schemas.SubmissionOut
		switch args[0] {
		case "plan":
			out, err = c.SubmitPlan(cmd.Context(), schemas.PlanRequest{
				Title: flagTitle, Author: flagAuthor, Campus: flagCampus,
				MemberCount: flagMembers, Plan: string(body),
			})
		case "report":
			out, err = c.SubmitReport(cmd.Context(), schemas.ReportRequest{
				Title: flagTitle, Author: flagAuthor, Campus: flagCampus,
				MemberCount: flagMembers, Content: string(body), Reflection: flagReflection,
			})
		default:
			return fmt.Errorf("unknown kind %q: want plan or report", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var submissionsCmd = &cobra.Command{
	Use:   "submissions plan|report [ID]",
	Short: "List typed-form submissions, or show one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if len(args) == 2 {
			sub, err := c.GetSubmission(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(sub)
		}
		subs, err := c.ListSubmissions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(subs)
		}
		for _, s := range subs {
			total := "-"
			if s.Total != nil {
				total = fmt.Sprintf("%g", *s.Total)
			}
			fmt.Printf("%s  %s  %-6s  %s  %s\n", s.ID, s.Date.Local().Format("2006-01-02"), total, s.Status,
				strings.TrimSpace(s.Title))
		}
		return nil
	},
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&flagTitle, "title", "", "study goal / title")
	f.StringVar(&flagAuthor, "author", "", "author name")
	f.StringVar(&flagCampus, "campus", "", "campus")
	f.IntVar(&flagMembers, "members", 0, "number of study members")
	f.StringVar(&flagBodyFile, "body", "", "file holding the plan text or report content")
	f.StringVar(&flagReflection, "reflection", "", "reflection text (reports only)")
	_ = submitCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(submitCmd, submissionsCmd)
}
