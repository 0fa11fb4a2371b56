package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quidome/sort-media/pkg/config"
	"github.com/quidome/sort-media/pkg/createdat"
	"github.com/quidome/sort-media/pkg/organize"
	"github.com/quidome/sort-media/pkg/plan"
	"github.com/quidome/sort-media/pkg/scan"
	"github.com/quidome/sort-media/pkg/transfer"
)

const version = "0.2.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	settings := config.Defaults()
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sort-media [flags] SOURCE DEST",
		Short: "Sort photos and videos into dated directories",
		Long: "sort-media copies (or moves) every file below SOURCE to " +
			"DEST/YEAR/YEAR-MM-DD/HH:MM:SS NAME, using the capture time stored in the " +
			"file's metadata and falling back to its modification time.",
		Version: version,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := applyConfigFile(cmd.Flags(), configPath, &settings); err != nil {
					return err
				}
			}
			return run(cmd, args[0], args[1], settings)
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	flags := rootCmd.Flags()
	flags.BoolVar(&settings.Move, "move", settings.Move, "move files instead of copying them")
	flags.BoolVarP(&settings.DryRun, "dry-run", "n", settings.DryRun, "report what would be done without changing anything")
	flags.BoolVarP(&settings.Quiet, "quiet", "q", settings.Quiet, "do not print a line per file")
	flags.IntVar(&settings.Shift.Years, "year-shift", 0, "add N years to every timestamp")
	flags.IntVar(&settings.Shift.Months, "month-shift", 0, "add N months to every timestamp")
	flags.IntVar(&settings.Shift.Days, "day-shift", 0, "add N days to every timestamp")
	flags.IntVar(&settings.Shift.Hours, "hour-shift", 0, "add N hours to every timestamp")
	flags.IntVar(&settings.Shift.Minutes, "minute-shift", 0, "add N minutes to every timestamp")
	flags.IntVar(&settings.Shift.Seconds, "second-shift", 0, "add N seconds to every timestamp")
	flags.StringVar(&settings.Chmod, "chmod", settings.Chmod, "octal permissions for created files (default: keep the source permissions)")
	flags.BoolVar(&settings.Lowercase, "lowercase", settings.Lowercase, "lower-case destination file names")
	flags.BoolVar(&settings.MediaOnly, "media-only", settings.MediaOnly, "only process known image and video extensions")
	flags.BoolVar(&settings.FilenameDates, "filename-dates", settings.FilenameDates, "use dates from camera file names before the modification time")
	flags.BoolVar(&settings.SkipIdentical, "skip-identical", settings.SkipIdentical, "skip files whose identical copy already exists at the destination")
	flags.BoolVar(&settings.Verify, "verify", settings.Verify, "compare content after copying")
	flags.BoolVar(&settings.KeepEmptyDirs, "keep-empty-dirs", settings.KeepEmptyDirs, "keep source directories emptied by --move")
	flags.BoolVar(&settings.Exiftool, "exiftool", settings.Exiftool, "also ask exiftool for timestamps")
	flags.IntVar(&settings.MaxDepth, "max-depth", settings.MaxDepth, "maximum recursion depth (-1 = unlimited, 0 = no recursion)")
	flags.BoolVar(&settings.Debug, "debug", settings.Debug, "enable debug logging")
	flags.StringVar(&configPath, "config", "", "YAML settings file; flags given on the command line win")

	return rootCmd
}

// applyConfigFile loads path into s and then restores the flags that were
// set explicitly, so the command line overrides the file.
func applyConfigFile(flags *pflag.FlagSet, path string, s *config.Settings) error {
	explicit := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := config.Load(afero.NewOsFs(), path, s); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

func run(cmd *cobra.Command, source, dest string, s config.Settings) error {
	logger := newLogger(cmd.ErrOrStderr(), s.Debug)

	if err := s.Validate(); err != nil {
		return err
	}
	fileMode, err := s.FileMode()
	if err != nil {
		return err
	}

	mode := plan.ModeCopy
	if s.Move {
		mode = plan.ModeMove
	}

	scanOpts := scan.DefaultOptions()
	scanOpts.MaxDepth = s.MaxDepth
	scanOpts.MediaOnly = s.MediaOnly

	cfg := organize.Config{
		SourceRoot:    source,
		DestRoot:      dest,
		Shift:         s.Shift,
		Mode:          mode,
		DryRun:        s.DryRun,
		Quiet:         s.Quiet,
		KeepEmptyDirs: s.KeepEmptyDirs,
		Scan:          scanOpts,
		Timestamps:    createdat.Options{FilenameDates: s.FilenameDates},
		Plan:          plan.Options{Lowercase: s.Lowercase, SkipIdentical: s.SkipIdentical},
		Transfer:      transfer.Options{FileMode: fileMode, Verify: s.Verify},
	}

	fsys := afero.NewOsFs()
	if err := organize.Validate(fsys, cfg); err != nil {
		return err
	}

	if s.Exiftool {
		et, err := createdat.NewExiftoolExtractor(time.Local)
		if err != nil {
			return err
		}
		defer et.Close()
		cfg.Timestamps.Extractors.Fallback = et
	}

	cmd.SilenceUsage = true

	if s.DryRun {
		logger.Info("dry run: no files will be changed")
	}
	if !s.Shift.IsZero() {
		logger.Info("shifting timestamps", "shift", fmt.Sprintf("%+v", s.Shift))
	}
	logger.Debug("starting", "source", source, "dest", dest, "mode", mode)

	sum, err := organize.Run(cmd.Context(), fsys, cfg, cmd.OutOrStdout(), logger)
	sum.Report(cmd.OutOrStdout(), logger)
	return err
}
