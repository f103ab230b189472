package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// flagValues collects the command line as parsed by cobra.
type flagValues struct {
	fixedStrings bool
	ignoreCase   bool

	searchFilenames     *bool
	searchContents      *bool
	searchClasses       *bool
	fieldNames          *bool
	fieldValues         *bool
	methodNames         *bool
	ldc                 *bool
	searchInsideSpecial *bool

	binaryFiles  string
	text         bool
	withoutMatch bool

	include     string
	exclude     string
	excludeDirs []string
	maxDepth    int
	jobs        int
	color       string
	output      string

	configPath string
	logLevel   string
	logDir     string
}

// NewRootCommand creates and returns the jargrep command
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *flagValues) {
	f := &flagValues{}

	cmd := &cobra.Command{
		Use:   "jargrep [OPTION]... PATTERN [FILE...]",
		Short: "Search files, jar/zip archives and class files for a pattern",
		Long: `jargrep searches for PATTERN in each FILE.

Besides plain text lines it looks inside zip and jar containers (to any
depth) and inside compiled class files, where it matches field names,
constant field values, method names and the literals loaded by ldc
instructions. Every match is printed below the trail of files, entries
and class members that leads to it.

Directories are searched recursively. With no FILE, every .jar, .zip and
.class file in the current directory is searched.

Configuration is loaded from .jargrep/config.yaml (or config.toml) if
present. CLI flags override configuration file settings.

Examples:
  jargrep -F 'jdbc:mysql' app.jar
  jargrep -i 'password' lib/
  jargrep --ldc=no --field-values=no 'Factory$' *.jar
  jargrep --exclude '\.png$' -o report.txt TODO build/`,
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.fixedStrings, "fixed-strings", "F", false, "Interpret PATTERN as a literal string")
	flags.BoolVarP(&f.ignoreCase, "ignore-case", "i", false, "Ignore case distinctions")

	f.searchFilenames = switchVar(flags, "search-filenames", true, "Match file and entry names")
	f.searchContents = switchVar(flags, "search-contents", true, "Match content lines")
	f.searchClasses = switchVar(flags, "search-classes", true, "Look inside .class files")
	f.fieldNames = switchVar(flags, "field-names", true, "Match declared field names")
	f.fieldValues = switchVar(flags, "field-values", true, "Match constant field values")
	f.methodNames = switchVar(flags, "method-names", true, "Match declared method names")
	f.ldc = switchVar(flags, "ldc", true, "Match literals loaded by ldc instructions")
	f.searchInsideSpecial = switchVar(flags, "search-inside-special", false, "Also line-search the raw bytes of containers and class files")

	flags.StringVar(&f.binaryFiles, "binary-files", "binary", "How to search binary content: binary, without-match or text")
	flags.BoolVarP(&f.text, "text", "a", false, "Equivalent to --binary-files=text")
	flags.BoolVarP(&f.withoutMatch, "without-match", "I", false, "Equivalent to --binary-files=without-match")

	flags.StringVar(&f.include, "include", "", "Only descend into entries whose name matches PATTERN")
	flags.StringVar(&f.exclude, "exclude", "", "Skip entries whose name matches PATTERN")
	flags.StringSliceVar(&f.excludeDirs, "exclude-dir", nil, "Skip directories named NAME when expanding directory targets (repeatable)")
	flags.IntVar(&f.maxDepth, "max-depth", 0, "Descend at most N levels into directory targets (0 = unlimited)")
	flags.IntVarP(&f.jobs, "jobs", "j", 1, "Number of top-level files searched concurrently")
	flags.StringVar(&f.color, "color", "auto", "Colorize the report: always, auto or never")
	flags.StringVarP(&f.output, "output", "o", "", "Write the report to FILE instead of stdout")

	flags.StringVar(&f.configPath, "config", "", "Path to config file (default: .jargrep/config.yaml)")
	flags.StringVar(&f.logLevel, "log-level", "warn", "Diagnostics level: trace, debug, info, warn, error")
	flags.StringVar(&f.logDir, "log-dir", "", "Also write diagnostics to a run log in DIR")

	return cmd, f
}

// switchVar registers a --name[=BOOL] flag.
func switchVar(flags *pflag.FlagSet, name string, value bool, usage string) *bool {
	p := new(bool)
	*p = value
	flags.Var((*switchValue)(p), name, usage)
	flags.Lookup(name).NoOptDefVal = "true"
	return p
}
