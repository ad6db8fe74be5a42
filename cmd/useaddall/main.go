// Command useaddall is a static analysis tool that finds loops copying
// one collection into another element by element in compiled JVM
// bytecode.
//
// Usage:
//
//	useaddall scan ./build/classes
//	useaddall scan app.jar --format json
//
// The scan exits 0 when nothing was found, 1 when findings were
// reported, and 2 when inputs could not be read or analyzed.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mpyw/useaddall"
	"github.com/mpyw/useaddall/internal/config"
	"github.com/mpyw/useaddall/internal/report"
)

var (
	flagConfig    string
	flagFormat    string
	flagClasspath []string
	flagWorkers   int
	flagNoColor   bool
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "useaddall",
	Short: "Detect collection copy loops in JVM bytecode",
}

var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "Scan class files, directories and jars",
	Long: `Scan analyzes every class file reachable from the given paths.

Paths may be .class files, .jar archives, or directories searched
recursively for both. Exit status is 0 for a clean scan, 1 when
findings were reported, and 2 when inputs could not be read.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runScan,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildVersion())
	},
}

func init() {
	scanCmd.Flags().StringVarP(&flagConfig, "config", "c", "",
		"config file (default "+config.DefaultFile+" in the working directory)")
	scanCmd.Flags().StringVarP(&flagFormat, "format", "f", "text",
		"output format: text or json")
	scanCmd.Flags().StringSliceVar(&flagClasspath, "classpath", nil,
		"extra directories or jars for supertype lookups")
	scanCmd.Flags().IntVar(&flagWorkers, "workers", 0,
		"parallel analysis workers (default GOMAXPROCS)")
	scanCmd.Flags().BoolVar(&flagNoColor, "no-color", false,
		"disable colored output")
	scanCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.AddCommand(scanCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "useaddall:", err)
		os.Exit(2)
	}
}

func runScan(cmd *cobra.Command, args []string) {
	if flagFormat != "text" && flagFormat != "json" {
		fail(fmt.Errorf("unknown format %q", flagFormat))
	}

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}
	cfg.Classpath = append(cfg.Classpath, flagClasspath...)
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flagWorkers
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	res, err := useaddall.NewScanner(cfg, logger).Scan(cmd.Context(), args...)
	if err != nil {
		fail(err)
	}

	if flagFormat == "json" {
		err = report.WriteJSON(os.Stdout, res.Summary)
	} else {
		err = report.WriteText(os.Stdout, res.Summary, colorEnabled())
	}
	if err != nil {
		fail(err)
	}

	for _, f := range res.Failures {
		fmt.Fprintln(os.Stderr, "useaddall:", f)
	}
	switch {
	case len(res.Failures) > 0:
		os.Exit(2)
	case len(res.Diagnostics) > 0:
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.LoadDefault(".")
}

func colorEnabled() bool {
	if flagNoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "useaddall:", err)
	os.Exit(2)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
