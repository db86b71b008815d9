package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/provide-io/flavor/go/fmtpack/pkg"
	"github.com/provide-io/flavor/go/fmtpack/pkg/cmake"
	"github.com/provide-io/flavor/go/fmtpack/pkg/logging"
	"github.com/provide-io/flavor/go/fmtpack/pkg/profile"
	"github.com/provide-io/flavor/go/fmtpack/pkg/recipe"
)

type flags struct {
	os          string
	arch        string
	compiler    string
	buildType   string
	options     []string
	profilePath string
	workdir     string
	logLevel    string
	cmake       string
	sourceURL   string
	format      string
	force       bool
	wait        bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:           "fmtpack",
		Short:         "Fetch, build and package the fmt library",
		Long:          `Fetch, build and package the fmt formatting library with CMake into a local package cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.os, "os", "", "Target operating system (Linux, Macos, Windows, ...)")
	pf.StringVar(&f.arch, "arch", "", "Target architecture (x86_64, armv8, ...)")
	pf.StringVar(&f.compiler, "compiler", "", "Compiler name")
	pf.StringVar(&f.buildType, "build-type", "", "Build type (Release, Debug, ...)")
	pf.StringArrayVarP(&f.options, "option", "o", nil, "Option override name=value (repeatable)")
	pf.StringVar(&f.profilePath, "profile", "", "Profile file (.json, .yaml, .yml or .toml)")
	pf.StringVar(&f.workdir, "workdir", "", "Package cache directory (defaults to FMTPACK_CACHE_DIR or the user cache)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, json[:level])")
	pf.StringVar(&f.cmake, "cmake", os.Getenv("FMTPACK_CMAKE"), "CMake command, e.g. 'cmake -G Ninja'")
	pf.StringVar(&f.sourceURL, "source-url", "", "Fetch the pinned source archive from this mirror")

	rootCmd.AddCommand(
		newOptionsCmd(f),
		newIDCmd(f),
		newSourceCmd(f),
		newCreateCmd(f),
		newInfoCmd(f),
		newVerifyCmd(f),
		newExportCmd(f),
	)
	return rootCmd
}

// logger returns the command logger and a function that closes its output.
func (f *flags) logger(name string) (hclog.Logger, func()) {
	level, source := logging.ResolveLevel(f.logLevel)
	output, closeOutput := logging.Output()
	logger := logging.NewLogger(name, level, output)
	logger.Trace("Log level resolved", "level", level, "source", source)
	return logger, func() {
		if err := closeOutput(); err != nil {
			fmt.Fprintf(os.Stderr, "fmtpack: closing log file: %v\n", err)
		}
	}
}

// settings layers host defaults, the profile and explicit flags.
func (f *flags) settings(cmd *cobra.Command, p *profile.Profile) (recipe.Settings, error) {
	s, err := p.ApplySettings(recipe.HostSettings())
	if err != nil {
		return s, err
	}

	explicit := map[string]string{}
	for flagName, setting := range map[string]struct {
		name  string
		value string
	}{
		"os":         {recipe.SettingOS, f.os},
		"arch":       {recipe.SettingArch, f.arch},
		"compiler":   {recipe.SettingCompiler, f.compiler},
		"build-type": {recipe.SettingBuildType, f.buildType},
	} {
		if cmd.Flags().Changed(flagName) {
			explicit[setting.name] = setting.value
		}
	}
	return s.Merge(explicit)
}

func (f *flags) pkgOptions(cmd *cobra.Command, logger hclog.Logger) (pkg.Options, error) {
	var p *profile.Profile
	if f.profilePath != "" {
		loaded, err := profile.Load(f.profilePath)
		if err != nil {
			return pkg.Options{}, err
		}
		p = loaded
	}

	settings, err := f.settings(cmd, p)
	if err != nil {
		return pkg.Options{}, err
	}
	r := recipe.Fmt()
	flagOverrides, ignored, err := recipe.ParseOverrides(r.Identity.Name, f.options)
	if err != nil {
		return pkg.Options{}, err
	}
	overrides, profileIgnored := p.MergeOverrides(r.Identity.Name, flagOverrides)
	for _, key := range append(ignored, profileIgnored...) {
		logger.Warn("⚠️ Option is scoped to another package, ignoring", "option", key)
	}
	command, err := cmake.ParseCommand(f.cmake)
	if err != nil {
		return pkg.Options{}, err
	}

	return pkg.Options{
		Recipe:    r,
		Settings:  settings,
		Overrides: overrides,
		CacheRoot: f.workdir,
		SourceURL: f.sourceURL,
		UserAgent: "fmtpack/" + version,
		CMake:     command,
		Force:     f.force,
		Wait:      f.wait,
	}, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func writeInfo(w io.Writer, info *recipe.PackageInfo, format string) error {
	ft, err := recipe.ParseFormat(format)
	if err != nil {
		return err
	}
	return info.Encode(w, ft)
}

func newOptionsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show how options resolve for the given settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-options")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			resolved, err := opts.Recipe.Resolve(opts.Settings, opts.Overrides)
			if err != nil {
				return err
			}
			return printOptions(cmd.OutOrStdout(), resolved)
		},
	}
}

func printOptions(w io.Writer, resolved *recipe.Resolved) error {
	removed := color.New(color.FgRed).SprintFunc()
	changed := color.New(color.FgYellow).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPTION\tVALUE\tDEFAULT\tNOTE")
	for _, spec := range resolved.Schema() {
		value, ok := resolved.Value(spec.Name)
		if !ok {
			reason, _ := resolved.RemovalReason(spec.Name)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", removed(spec.Name), removed("-"), spec.Default, removed("removed: "+reason))
			continue
		}
		def, _ := spec.Normalize(spec.Default)
		name := spec.Name
		if value != def {
			name = changed(name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, value, spec.Default, spec.Help)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s := resolved.Settings(); s.IsZero() {
		fmt.Fprintln(w, "\nsettings: (cleared)")
	} else {
		fmt.Fprintf(w, "\nsettings: os=%s arch=%s compiler=%s build_type=%s\n", s.OS, s.Arch, s.Compiler, s.BuildType)
	}
	return nil
}

func newIDCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print the package id the configuration selects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-id")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			id, err := pkg.PackageID(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newSourceCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Fetch and verify the pinned sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-source")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()

			tree, err := pkg.Source(ctx, logger, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree)
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.force, "force", false, "Fetch again even if sources are cached")
	return cmd
}

func newCreateCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Fetch, build and package, then print the package info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-create")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()

			logger.Debug("Using cmake", "command", opts.CMake)
			opts.Runner = &cmake.ExecRunner{Logger: logger.Named("cmake"), Stream: verboseStream(logger)}

			res, err := pkg.Create(ctx, logger, opts)
			if err != nil {
				return err
			}
			return writeInfo(cmd.OutOrStdout(), res.Info, f.format)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", "json", "Info output format (json or yaml)")
	cmd.Flags().BoolVar(&f.force, "force", false, "Rebuild even if the package is cached")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "Wait for another process holding the package lock")
	return cmd
}

// verboseStream passes tool output through at debug level and below.
func verboseStream(logger hclog.Logger) io.Writer {
	if logger.IsDebug() {
		return os.Stderr
	}
	return nil
}

func newInfoCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the info of a created package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-info")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			res, err := pkg.Describe(logger, opts)
			if err != nil {
				return err
			}
			return writeInfo(cmd.OutOrStdout(), res.Info, f.format)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", "json", "Output format (json or yaml)")
	return cmd
}

func newVerifyCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the layout of a created package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-verify")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			res, err := pkg.Verify(logger, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", color.GreenString("✓"), res.PackageID, res.Folders.Package)
			return nil
		},
	}
}

func newExportCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "export DEST",
		Short: "Archive a created package (.tar, .tar.gz, .tar.bz2 or .tar.xz)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := f.logger("fmtpack-export")
			defer closeLog()
			opts, err := f.pkgOptions(cmd, logger)
			if err != nil {
				return err
			}
			res, err := pkg.Export(logger, opts, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", res.PackageID, args[0])
			return nil
		},
	}
}
