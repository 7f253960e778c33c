package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"study-evaluator/internal/client"
	"study-evaluator/internal/render"
)

var (
	// Global flags.
	flagBaseURL string
	flagToken   string
	flagLocale  string
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "evalctl",
	Short: "Submit study plans and reports for evaluation and browse the results",
	Long: `evalctl talks to the study evaluation API.

Plans and reports are paired by the last three "_" separated parts of their
file names (campus_class_author), evaluated against the rubric, and stored.
Results can then be listed, filtered and shown.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", envOrDefault("API_BASE_URL", "http://localhost:8000"), "evaluation API base URL")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", envOrDefault("API_TOKEN", ""), "API token for admin endpoints")
	rootCmd.PersistentFlags().StringVar(&flagLocale, "locale", envOrDefault("LOCALE", "ko"), "display language: ko, en")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print raw JSON instead of rendered text")
}

func newClient() *client.Client {
	return client.New(flagBaseURL, flagToken)
}

func locale() render.Locale {
	return render.LocaleFor(flagLocale)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func readFiles(paths []string) ([]namedFile, error) {
	out := make([]namedFile, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		out = append(out, namedFile{path: p, data: b})
	}
	return out, nil
}

type namedFile struct {
	path string
	data []byte
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
