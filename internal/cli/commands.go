package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/plantguard-2025.net/internal/adapter/tablefile"
	"gitlab.com/plantguard-2025.net/internal/core/services/unittest"
	"gitlab.com/plantguard-2025.net/internal/domain"
)

// ErrCasesFailed is returned by the run command when a case failed, so the
// process exits non-zero.
var ErrCasesFailed = errors.New("unit test cases failed")

// Flags holds the command line flags of the unitrun commands
type Flags struct {
	Descriptor    string
	Table         string
	Root          string
	ClassName     string
	MethodName    string
	StopOnFailure bool
	JSON          bool
	NoProgress    bool
}

// Commands holds all CLI commands
type Commands struct {
	service unittest.IUnitTestService
	flags   Flags
	out     io.Writer
	errOut  io.Writer
}

// NewCommands creates all commands around an in-process service
func NewCommands(service unittest.IUnitTestService, out, errOut io.Writer) *Commands {
	return &Commands{
		service: service,
		out:     out,
		errOut:  errOut,
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command) {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a unit test table against a project target",
		Long:  "Load a test table (xlsx, csv or json), run every case against the target and print the report",
		Args:  cobra.NoArgs,
		RunE:  c.Run,
	}
	runCmd.Flags().StringVarP(&c.flags.Descriptor, "descriptor", "d", "", "YAML run descriptor")
	runCmd.Flags().StringVarP(&c.flags.Table, "table", "t", "", "Test table file; overrides the descriptor's table")
	runCmd.Flags().StringVar(&c.flags.Root, "root", "", "Project root")
	runCmd.Flags().StringVarP(&c.flags.ClassName, "class", "c", "", "Module path or module.Class")
	runCmd.Flags().StringVarP(&c.flags.MethodName, "method", "m", "", "Function or method name")
	runCmd.Flags().BoolVar(&c.flags.StopOnFailure, "fail-fast", false, "Stop on first failing case")
	runCmd.Flags().BoolVar(&c.flags.JSON, "json", false, "Print the report as JSON")
	runCmd.Flags().BoolVar(&c.flags.NoProgress, "no-progress", false, "Hide the progress bar")
	rootCmd.AddCommand(runCmd)

	targetsCmd := &cobra.Command{
		Use:   "targets [root]",
		Short: "List the functions and methods a run can target",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Targets,
	}
	targetsCmd.Flags().BoolVar(&c.flags.JSON, "json", false, "Print targets as JSON")
	rootCmd.AddCommand(targetsCmd)
}

func (c *Commands) descriptor() (domain.InvocationDescriptor, string, error) {
	var (
		desc  domain.InvocationDescriptor
		table string
	)
	if c.flags.Descriptor != "" {
		d, err := LoadDescriptor(c.flags.Descriptor)
		if err != nil {
			return desc, "", err
		}
		desc, table = d.InvocationDescriptor, d.Table
	}
	if c.flags.Table != "" {
		table = c.flags.Table
	}
	if c.flags.Root != "" {
		desc.Root = c.flags.Root
	}
	if c.flags.ClassName != "" {
		desc.ClassName = c.flags.ClassName
	}
	if c.flags.MethodName != "" {
		desc.MethodName = c.flags.MethodName
	}
	if c.flags.StopOnFailure {
		desc.StopOnFailure = true
	}

	if desc.Root == "" || desc.ClassName == "" || desc.MethodName == "" {
		return desc, "", errors.New("root, class and method are required (flags or descriptor)")
	}
	if table == "" {
		return desc, "", errors.New("a test table file is required")
	}
	return desc, table, nil
}

// Run executes the run command
func (c *Commands) Run(cmd *cobra.Command, args []string) error {
	desc, tablePath, err := c.descriptor()
	if err != nil {
		return err
	}

	f, err := os.Open(tablePath)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()
	table, err := tablefile.Read(tablePath, f)
	if err != nil {
		return err
	}

	var (
		bar            *ProgressBar
		passed, failed int
	)
	var opts []unittest.RunOption
	if !c.flags.NoProgress && !c.flags.JSON {
		opts = append(opts, unittest.WithProgress(func(done, total int, r domain.ExecutionResult) {
			if bar == nil {
				bar = NewProgressBar(total, c.errOut)
			}
			if r.Passed {
				passed++
			} else {
				failed++
			}
			bar.Update(passed, failed)
		}))
	}

	report := c.service.Run(cmd.Context(), desc, table, opts...)
	if bar != nil {
		bar.Finish()
	}

	formatter := NewFormatter(c.out)
	if c.flags.JSON {
		if err := formatter.PrintJSON(report); err != nil {
			return err
		}
	} else {
		formatter.PrintReport(report)
	}

	if !report.Success {
		return fmt.Errorf("%s: %s", report.ErrorType, report.Message)
	}
	if report.Summary.FailedCases > 0 {
		return ErrCasesFailed
	}
	return nil
}

// Targets executes the targets command
func (c *Commands) Targets(cmd *cobra.Command, args []string) error {
	root := ""
	if len(args) == 1 {
		root = args[0]
	}
	targets, err := c.service.ListTargets(cmd.Context(), root)
	if err != nil {
		return err
	}

	formatter := NewFormatter(c.out)
	if c.flags.JSON {
		if targets == nil {
			targets = []domain.TargetInfo{}
		}
		return formatter.PrintJSON(targets)
	}
	formatter.PrintTargets(targets)
	return nil
}
