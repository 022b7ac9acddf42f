package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"gitlab.com/plantguard-2025.net/internal/domain"
)

// Formatter renders reports and target lists for a terminal
type Formatter struct {
	out io.Writer
}

func NewFormatter(out io.Writer) *Formatter {
	return &Formatter{out: out}
}

// PrintReport prints one line per case followed by the summary
func (f *Formatter) PrintReport(report *domain.Report) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.out, "%s %s.%s (%s)\n", cyan("Run"), report.ClassName, report.MethodName, report.RunID)
	if !report.Success {
		fmt.Fprintf(f.out, "%s %s: %s\n", red("✗"), report.ErrorType, report.Message)
		return
	}
	if report.Meta.Name != "" {
		fmt.Fprintf(f.out, "  %s\n", report.Meta.Name)
	}

	for _, r := range report.TestResults {
		if r.Passed {
			fmt.Fprintf(f.out, "  %s %-8s %s\n", green("✓"), r.ID, r.Duration)
			continue
		}
		fmt.Fprintf(f.out, "  %s %-8s %s\n", red("✗"), r.ID, r.Duration)
		fmt.Fprintf(f.out, "      expected: %s\n", render(r.Expected))
		fmt.Fprintf(f.out, "      actual:   %s\n", render(r.Actual))
		if r.Error != "" {
			fmt.Fprintf(f.out, "      error:    %s\n", red(r.Error))
		}
	}

	s := report.Summary
	line := fmt.Sprintf("%d cases: %d passed, %d failed (%s)", s.TotalCases, s.PassedCases, s.FailedCases, s.PassRate)
	if s.FailedCases == 0 {
		fmt.Fprintln(f.out, green(line))
	} else {
		fmt.Fprintln(f.out, red(line))
	}
}

// PrintTargets lists targets as class.method with their kind
func (f *Formatter) PrintTargets(targets []domain.TargetInfo) {
	yellow := color.New(color.FgYellow).SprintFunc()
	for _, t := range targets {
		async := ""
		if t.IsAsync {
			async = yellow(" async")
		}
		fmt.Fprintf(f.out, "%s:%s.%s  %s%s  %v\n", t.Root, t.ClassName, t.MethodName, t.Kind, async, t.Params)
	}
}

// PrintJSON writes v as indented JSON
func (f *Formatter) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func render(v interface{}) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
