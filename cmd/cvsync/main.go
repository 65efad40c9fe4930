package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamsammich/cvsync/internal/cache"
	"github.com/bamsammich/cvsync/internal/config"
	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/synchronizer"
	"github.com/bamsammich/cvsync/internal/ui"
	"github.com/bamsammich/cvsync/internal/workspace"
)

var version = "dev"

var (
	flagWorkspace string
	flagVerbose   bool
	flagQuiet     bool
	flagLogFile   string
	flagBWLimit   string
	flagNoSidecar bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:           "cvsync",
		Short:         "Inspect and maintain CVS workspace synchronization metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults)
			return setupLogging()
		},
	}

	rootCmd.PersistentFlags().
		StringVarP(&flagWorkspace, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&flagQuiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().
		StringVar(&flagLogFile, "log", "", "write structured JSON log to FILE")
	rootCmd.PersistentFlags().
		StringVar(&flagBWLimit, "base-bwlimit", "", "throughput cap for Base copies (e.g. 100M)")
	rootCmd.PersistentFlags().
		BoolVar(&flagNoSidecar, "no-sidecar", false, "do not persist phantom state across sessions")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(docsCmd)

	defer syncfile.CleanupTmpFiles()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cvsync version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("cvsync %s\n", version)
	},
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig) {
	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("verbose") && defaults.Verbose != nil {
		flagVerbose = *defaults.Verbose
	}
	if !flags.Changed("quiet") && defaults.Quiet != nil {
		flagQuiet = *defaults.Quiet
	}
	if !flags.Changed("log") && defaults.LogFile != nil {
		flagLogFile = *defaults.LogFile
	}
	if !flags.Changed("base-bwlimit") && defaults.BaseBWLimit != nil {
		flagBWLimit = *defaults.BaseBWLimit
	}
	if !flags.Changed("no-sidecar") && defaults.NoSidecar != nil {
		flagNoSidecar = *defaults.NoSidecar
	}
}

func setupLogging() error {
	logLevel := slog.LevelWarn
	if flagVerbose {
		logLevel = slog.LevelDebug
	} else if !flagQuiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	var logHandler slog.Handler = textHandler
	if flagLogFile != "" {
		lf, err := os.Create(flagLogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return nil
}

// openSynchronizer builds the synchronizer for the --workspace root. The
// returned close func flushes and closes the phantom sidecar.
func openSynchronizer() (*synchronizer.Synchronizer, func(), error) {
	ws, err := workspace.New(flagWorkspace)
	if err != nil {
		return nil, nil, err
	}

	opts := synchronizer.Options{}
	if flagBWLimit != "" {
		n, err := parseSize(flagBWLimit)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --base-bwlimit: %w", err)
		}
		opts.BaseBWLimit = n
	}

	closeFn := func() {}
	if !flagNoSidecar {
		sidecar, err := cache.OpenSidecar(ws.SidecarPath("phantoms.db"))
		if err != nil {
			slog.Warn("phantom sidecar unavailable", "error", err)
		} else {
			opts.Sidecar = sidecar
			closeFn = func() {
				if err := sidecar.Close(); err != nil {
					slog.Warn("closing phantom sidecar", "error", err)
				}
			}
		}
	}

	return synchronizer.New(ws, opts), closeFn, nil
}

// resolveArg maps a command argument onto a workspace path. Arguments are
// workspace-relative; absolute paths must point under the workspace root.
func resolveArg(ws *workspace.Workspace, arg string) (workspace.Path, error) {
	p := arg
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(ws.RootDir(), p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("%s is outside the workspace", arg)
		}
		p = rel
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." || p == "/" {
		return workspace.Root, nil
	}
	return workspace.NewPath(strings.Split(strings.Trim(p, "/"), "/")...), nil
}

// resolveFolder maps an argument onto a container resource.
func resolveFolder(ws *workspace.Workspace, arg string) (workspace.Resource, error) {
	p, err := resolveArg(ws, arg)
	if err != nil {
		return workspace.Resource{}, err
	}
	return ws.Folder(p), nil
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
