// Package main provides the CLI entry point for wbrefresh.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukaji3/wbrefresh-go/internal/console"
	"github.com/ukaji3/wbrefresh-go/internal/power"
	"github.com/ukaji3/wbrefresh-go/internal/watchdog"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/output"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/parser"
)

// errRunFailed is returned after a run already reported its failure.
var errRunFailed = errors.New("run failed")

// errMissingArgument is returned after the missing argument was reported.
var errMissingArgument = errors.New("missing argument")

type runFlags struct {
	attach      bool
	profilePath string
	reportPath  string
	pretty      bool
}

type runFunc func(ctx context.Context, opts wbrefresh.Options) (*models.Report, error)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errRunFailed) && !errors.Is(err, errMissingArgument) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wbrefresh",
		Short: "Refresh spreadsheet workbooks through an automation host",
		Long: `wbrefresh opens a workbook, refreshes its connections and pivot tables,
updates its date filter, recalculates and saves it. Each subcommand runs
one fixed workflow and exits 0 on success, 1 on failure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(
		newProfileCmd("circana", "Refresh the Circana workbook", wbrefresh.Circana),
		newProfileCmd("npd", "Refresh the NPD workbook", wbrefresh.NPD),
		newCalendarCmd(),
		newCalendarFileCmd(),
		newInspectCmd(),
	)
	return rootCmd
}

func newProfileCmd(name, short string, builtin func() wbrefresh.Profile) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   name + " <workbook.xlsx>",
		Short: short,
		Args:  requireArg(builtin().Tag, "file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := builtin()
			if flags.profilePath != "" {
				p, err := wbrefresh.LoadProfile(flags.profilePath)
				if err != nil {
					return err
				}
				profile = p
			}
			tag := profile.Tag
			if tag == "" {
				tag = profile.Name
			}
			return runWorkflow(cmd, tag, flags, func(ctx context.Context, opts wbrefresh.Options) (*models.Report, error) {
				return wbrefresh.Run(ctx, args[0], profile, opts)
			})
		},
	}
	addRunFlags(cmd, &flags)
	cmd.Flags().StringVar(&flags.profilePath, "profile", "", "YAML profile replacing the built-in workflow")
	return cmd
}

func newCalendarCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "calendar <folder>",
		Short: "Write the reference Sunday into the calendar workbooks via the automation host",
		Args:  requireArg("", "folder"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, "", flags, func(ctx context.Context, opts wbrefresh.Options) (*models.Report, error) {
				return wbrefresh.RunCalendar(ctx, args[0], opts)
			})
		},
	}
	addRunFlags(cmd, &flags)
	return cmd
}

func newCalendarFileCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "calendar-file <folder>",
		Short: "Write the reference Sunday into the calendar workbooks by editing the files",
		Args:  requireArg("", "folder"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, "", flags, func(ctx context.Context, opts wbrefresh.Options) (*models.Report, error) {
				return wbrefresh.RunCalendarFile(ctx, args[0], opts)
			})
		},
	}
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "Write the run report as JSON to this file")
	cmd.Flags().BoolVar(&flags.pretty, "pretty", false, "Pretty-print the JSON report")
	return cmd
}

// requireArg accepts exactly one argument. A missing one is reported as a
// console line, the only output the supervising process reads.
func requireArg(tag, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			log := console.New(cmd.OutOrStdout()).WithField(wbrefresh.FieldTag, tag)
			wbrefresh.Emit(log, wbrefresh.StatusFail, "Missing %s argument", what)
			return errMissingArgument
		}
		return cobra.ExactArgs(1)(cmd, args)
	}
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().BoolVar(&flags.attach, "attach", false, "Attach to a running host instead of starting one")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "Write the run report as JSON to this file")
	cmd.Flags().BoolVar(&flags.pretty, "pretty", false, "Pretty-print the JSON report")
}

// runWorkflow brackets one run with sleep prevention and the host watchdog,
// then prints the trailer and writes the report.
func runWorkflow(cmd *cobra.Command, tag string, flags runFlags, run runFunc) error {
	log := console.New(cmd.OutOrStdout())

	restore, err := power.KeepAwake()
	if err != nil {
		wbrefresh.Emit(log, wbrefresh.StatusWarn, "Sleep prevention unavailable: %v", err)
	} else {
		defer restore()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	guard := watchdog.Guard(ctx, log)
	defer guard.Stop()

	opts := wbrefresh.DefaultOptions()
	opts.Attach = flags.attach
	opts.Logger = log
	opts.OnHostStarted = guard.Track

	report, runErr := run(ctx, opts)
	guard.Stop()

	trailer(log.WithField(wbrefresh.FieldTag, tag), report)

	if flags.reportPath != "" {
		if err := writeReport(report, flags.reportPath, flags.pretty); err != nil {
			wbrefresh.Emit(log, wbrefresh.StatusWarn, "Report not written: %v", err)
		}
	}

	if runErr != nil || !report.Success {
		return errRunFailed
	}
	return nil
}

func trailer(log logrus.FieldLogger, report *models.Report) {
	secs := int(report.Elapsed.Seconds())
	wbrefresh.Emit(log, wbrefresh.StatusTime, "Total time: %dm %ds", secs/60, secs%60)
	if report.Success {
		wbrefresh.Emit(log, wbrefresh.StatusDone, "SUCCESS!")
		return
	}
	wbrefresh.Emit(log, wbrefresh.StatusFail, "FAILED")
}

func writeReport(report *models.Report, path string, pretty bool) error {
	jsonData, err := output.ToJSON(report, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	var (
		outputPath string
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Print the sheets, connections and pivot tables of a workbook as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]

			// Validate input file exists
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", wbrefresh.ErrFileNotFound, inputPath)
			}

			wb, err := parser.ReadWorkbook(inputPath)
			if err != nil {
				return fmt.Errorf("inspection failed: %w", err)
			}

			jsonData, err := output.WorkbookToJSON(wb, pretty)
			if err != nil {
				return fmt.Errorf("serialization failed: %w", err)
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}
