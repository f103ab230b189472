package fileutil

import (
	"errors"
	"os"
)

// DefaultExtensions are the files searched when no target is given.
var DefaultExtensions = []string{".jar", ".zip", ".class"}

// ErrNoTargets is returned by DefaultTargets when the directory holds no
// searchable file.
var ErrNoTargets = errors.New("no .jar, .zip or .class files found")

// ExpandTargets turns command line arguments into the list of files to
// search. Files are kept as given, in order. Directories are replaced by
// the files ScanDirectory finds in them with opts; the scan is always
// recursive, down to opts.MaxDepth when set. Arguments that cannot be
// stat'ed are kept so the search reports them.
func ExpandTargets(args []string, opts ScanOptions) ([]string, []error) {
	opts.Recursive = true

	var (
		targets []string
		errs    []error
	)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			targets = append(targets, arg)
			continue
		}

		result, err := ScanDirectory(arg, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		targets = append(targets, result.Files...)
		errs = append(errs, result.Errors...)
	}
	return targets, errs
}

// DefaultTargets lists the jar, zip and class files directly inside dir.
func DefaultTargets(dir string) ([]string, error) {
	result, err := ScanDirectory(dir, ScanOptions{Extensions: DefaultExtensions})
	if err != nil {
		return nil, err
	}
	if len(result.Files) == 0 {
		return nil, ErrNoTargets
	}
	return result.Files, nil
}
