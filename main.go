package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"bwestbro.com/cp2k/cp2k"
)

// Options holds the flags shared by every command
type Options struct {
	Config   string
	Profile  string
	Sections []string
	Verbose  bool
}

func NewRootCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           "cp2kparse",
		Short:         "Extract results from CP2K run directories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.Config, "config", "c", "", "TOML config file")
	flags.StringVar(&opts.Profile, "profile", "",
		"section profile (base|advanced)")
	flags.StringSliceVarP(&opts.Sections, "section", "s", nil,
		"extra section to parse, may be repeated")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewTrajectoryCommand(opts))
	cmd.AddCommand(NewSectionsCommand(opts))
	return cmd
}

func NewParseCommand(opts *Options) *cobra.Command {
	var rc RawConf
	cmd := &cobra.Command{
		Use:   "parse [dirs...]",
		Short: "Parse the output and restart files in each run directory",
		Long: `Parse the CP2K output and restart files in each run directory and
write one record per directory. With no arguments the current
directory is parsed. The exit status is the most severe status over
all directories.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConf(cmd, opts, &rc)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
			logger.Debug("loaded config",
				"sections", conf.Sections, "jobs", conf.Jobs)
			records := RunJobs(cmd.Context(), args, conf, logger)
			if err := WriteRecords(cmd.OutOrStdout(), conf.Format, records); err != nil {
				return err
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			return Worst(records)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&rc.Output, "output", "", "name of the output file in each directory")
	flags.StringVar(&rc.Restart, "restart", "", "name of the restart file in each directory")
	flags.StringVar(&rc.Format, "format", "", "record format (json|yaml)")
	flags.IntVarP(&rc.Jobs, "jobs", "j", 0, "directories to parse at once")
	return cmd
}

func NewTrajectoryCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "trajectory <restart>",
		Short: "Print the structure in a restart file as extended xyz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, name := filepath.Split(args[0])
			if dir == "" {
				dir = "."
			}
			geom, err := cp2k.ReadTrajectory(os.DirFS(dir), name)
			if err != nil {
				return &ExitError{
					Code:    Status(cp2k.Normal, err),
					Message: err.Error(),
				}
			}
			_, err = io.WriteString(cmd.OutOrStdout(), geom.XYZ())
			return err
		},
	}
}

func NewSectionsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the optional sections, marking the active ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rc RawConf
			conf, err := loadConf(cmd, opts, &rc)
			if err != nil {
				return err
			}
			WriteSections(cmd.OutOrStdout(), cp2k.Sections, conf.Sections)
			return nil
		},
	}
}

// loadConf reads the config file and applies the flags set on cmd over
// it. flags holds the values of command-specific flags.
func loadConf(cmd *cobra.Command, opts *Options, flags *RawConf) (Config, error) {
	rc, err := LoadConfig(opts.Config)
	if err != nil {
		return Config{}, err
	}
	set := cmd.Flags().Changed
	if set("profile") {
		rc.Profile = opts.Profile
	}
	if set("section") {
		rc.Sections = append(rc.Sections, opts.Sections...)
	}
	if set("output") {
		rc.Output = flags.Output
	}
	if set("restart") {
		rc.Restart = flags.Restart
	}
	if set("format") {
		rc.Format = flags.Format
	}
	if set("jobs") {
		rc.Jobs = flags.Jobs
	}
	return rc.ToConfig()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}
	code := ExitFailure
	var ee *ExitError
	if errors.As(err, &ee) {
		code = ee.Code
	}
	fmt.Fprintf(os.Stderr, "cp2kparse: %v\n", err)
	stop()
	os.Exit(code)
}
