package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/harrison/jargrep/internal/config"
	"github.com/harrison/jargrep/internal/fileutil"
	"github.com/harrison/jargrep/internal/grep"
	"github.com/harrison/jargrep/internal/logger"
	"github.com/harrison/jargrep/internal/pattern"
	"github.com/harrison/jargrep/internal/report"
	"github.com/harrison/jargrep/internal/trail"
)

// runSearch implements the jargrep command
func runSearch(cmd *cobra.Command, f *flagValues, args []string) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(f.overrides(cmd.Flags()))
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	matcher, err := pattern.Compile(args[0], pattern.Options{Literal: f.fixedStrings, IgnoreCase: f.ignoreCase})
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	filter, err := buildFilter(cfg)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	targets, err := resolveTargets(args[1:], cfg, filter, log)
	if err != nil {
		return err
	}

	opts, err := searchOptions(cfg, matcher, filter)
	if err != nil {
		return err
	}

	var sink report.Sink
	if f.output != "" {
		sink = report.NewFile(f.output)
	} else {
		out := cmd.OutOrStdout()
		sink = report.NewWriter(out)
		if useColor(cfg.Color, out) {
			opts.StackOptions = append(opts.StackOptions, trail.WithColor(matcher))
		}
	}

	log.LogDebug(fmt.Sprintf("searching %d target(s) for %q with %d job(s)", len(targets), matcher, opts.Jobs))
	_, runErr := grep.NewSearcher(opts, sink, log).Run(cmd.Context(), targets)

	if err := sink.Close(); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to write report: %w", err))
	}
	if file, ok := sink.(*report.File); ok {
		log.LogInfo(fmt.Sprintf("wrote %d report block(s) to %s", file.Blocks(), file.Path()))
	} else {
		log.LogDebug(fmt.Sprintf("reported %d block(s)", sink.Blocks()))
	}
	return runErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// overrides returns the flags that were set explicitly.
func (f *flagValues) overrides(flags *pflag.FlagSet) config.Overrides {
	var o config.Overrides

	switches := []struct {
		name string
		dst  **bool
		val  *bool
	}{
		{"search-filenames", &o.SearchFilenames, f.searchFilenames},
		{"search-contents", &o.SearchContents, f.searchContents},
		{"search-classes", &o.SearchClasses, f.searchClasses},
		{"field-names", &o.FieldNames, f.fieldNames},
		{"field-values", &o.FieldValues, f.fieldValues},
		{"method-names", &o.MethodNames, f.methodNames},
		{"ldc", &o.LDC, f.ldc},
		{"search-inside-special", &o.SearchInsideSpecial, f.searchInsideSpecial},
	}
	for _, s := range switches {
		if flags.Changed(s.name) {
			*s.dst = s.val
		}
	}

	// -a and -I win over --binary-files
	switch {
	case flags.Changed("text") && f.text:
		mode := grep.BinaryText.String()
		o.BinaryFiles = &mode
	case flags.Changed("without-match") && f.withoutMatch:
		mode := grep.BinaryWithoutMatch.String()
		o.BinaryFiles = &mode
	case flags.Changed("binary-files"):
		o.BinaryFiles = &f.binaryFiles
	}

	if flags.Changed("include") {
		o.Include = &f.include
	}
	if flags.Changed("exclude") {
		o.Exclude = &f.exclude
	}
	if flags.Changed("exclude-dir") {
		o.ExcludeDirs = f.excludeDirs
	}
	if flags.Changed("max-depth") {
		o.MaxDepth = &f.maxDepth
	}
	if flags.Changed("jobs") {
		o.Jobs = &f.jobs
	}
	if flags.Changed("color") {
		o.Color = &f.color
	}
	if flags.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if flags.Changed("log-dir") {
		o.LogDir = &f.logDir
	}
	return o
}

func buildFilter(cfg *config.Config) (pattern.Filter, error) {
	switch {
	case cfg.Include != "":
		m, err := pattern.Compile(cfg.Include, pattern.Options{})
		if err != nil {
			return pattern.Filter{}, fmt.Errorf("invalid include pattern: %w", err)
		}
		return pattern.NewInclude(m), nil
	case cfg.Exclude != "":
		m, err := pattern.Compile(cfg.Exclude, pattern.Options{})
		if err != nil {
			return pattern.Filter{}, fmt.Errorf("invalid exclude pattern: %w", err)
		}
		return pattern.NewExclude(m), nil
	}
	return pattern.Filter{}, nil
}

func searchOptions(cfg *config.Config, matcher pattern.Matcher, filter pattern.Filter) (grep.Options, error) {
	mode, err := grep.ParseBinaryMode(cfg.BinaryFiles)
	if err != nil {
		return grep.Options{}, err
	}

	opts := grep.DefaultOptions(matcher)
	opts.Filter = filter
	opts.SearchFilenames = cfg.SearchFilenames
	opts.SearchContents = cfg.SearchContents
	opts.SearchClasses = cfg.SearchClasses
	opts.FieldNames = cfg.FieldNames
	opts.FieldValues = cfg.FieldValues
	opts.MethodNames = cfg.MethodNames
	opts.LDC = cfg.LDC
	opts.Binary = mode
	opts.SearchInsideSpecial = cfg.SearchInsideSpecial
	opts.ContainerExtensions = cfg.ContainerExtensions
	opts.Jobs = cfg.Jobs
	return opts, nil
}

// newLogger builds the console logger and, with a log dir, the run log.
func newLogger(stderr io.Writer, cfg *config.Config) (logger.Logger, func(), error) {
	console := logger.NewConsoleLogger(stderr, cfg.LogLevel)
	switch cfg.Color {
	case "always":
		console.SetColor(true)
	case "never":
		console.SetColor(false)
	}

	if cfg.LogDir == "" {
		return console, func() {}, nil
	}

	file, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run log: %w", err)
	}
	closeLog := func() {
		if err := file.Close(); err != nil {
			console.LogWarn(err.Error())
		}
	}
	return logger.NewMultiLogger(console, file), closeLog, nil
}

// resolveTargets expands directory arguments, or picks the default targets
// of the working directory when there are none.
func resolveTargets(args []string, cfg *config.Config, filter pattern.Filter, log logger.Logger) ([]string, error) {
	if len(args) == 0 {
		targets, err := fileutil.DefaultTargets(".")
		if err != nil {
			return nil, fmt.Errorf("no FILE given and %w in the current directory", err)
		}
		return targets, nil
	}

	targets, errs := fileutil.ExpandTargets(args, fileutil.ScanOptions{
		Accept:      filter.Accepts,
		ExcludeDirs: cfg.ExcludeDirs,
		MaxDepth:    cfg.MaxDepth,
	})
	for _, err := range errs {
		log.LogWarn(err.Error())
	}
	return targets, nil
}

// useColor resolves --color for the report writer.
func useColor(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
