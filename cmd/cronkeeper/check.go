package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/cronkeeper/internal/crontab"
)

var errInvalidCrontab = errors.New("crontab contains invalid lines")

// checkReport is the machine-readable result of check.
type checkReport struct {
	Path     string               `json:"path" yaml:"path"`
	Valid    bool                 `json:"valid" yaml:"valid"`
	Errors   []crontab.Diagnostic `json:"errors" yaml:"errors"`
	Schedule []crontab.Entry      `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var (
		format   string
		schedule int
	)

	cmd := &cobra.Command{
		Use:   "check <crontab-file>",
		Short: "Validate a crontab file offline",
		Long: `Validate every line of a crontab file with the same rules the gateway
applies on save. Exits non-zero when any line is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (expected text, json or yaml)", format)
			}
			if schedule < 0 || schedule > 100 {
				return fmt.Errorf("--schedule must be between 0 and 100")
			}

			doc, err := crontab.Load(args[0])
			if err != nil {
				return err
			}

			report := checkReport{Path: args[0], Errors: doc.Validate()}
			report.Valid = len(report.Errors) == 0
			if report.Errors == nil {
				report.Errors = []crontab.Diagnostic{}
			}
			if schedule > 0 && report.Valid {
				report.Schedule = doc.Schedule(time.Now(), schedule)
			}

			if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
			if !report.Valid {
				return errInvalidCrontab
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().IntVar(&schedule, "schedule", 0, "Also print the next N runs of every active entry")
	return cmd
}

func writeReport(w io.Writer, format string, r checkReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	if r.Valid {
		fmt.Fprintf(w, "%s: OK\n", r.Path)
	}
	for _, d := range r.Errors {
		field := ""
		if d.Field != "" {
			field = " [" + d.Field + "]"
		}
		fmt.Fprintf(w, "%s:%d:%s %s\n    %s\n", r.Path, d.LineNumber, field, d.Error, d.Line)
	}
	for _, e := range r.Schedule {
		fmt.Fprintf(w, "line %d: %s\n", e.LineNumber, e.Command)
		for _, t := range e.NextRuns {
			fmt.Fprintf(w, "    %s\n", t.Format(time.RFC3339))
		}
	}
	return nil
}
