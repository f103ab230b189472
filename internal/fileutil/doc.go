// Package fileutil enumerates the files jargrep searches.
//
// Directory arguments are expanded recursively into sorted file lists,
// skipping hidden directories, and an optional predicate (normally the
// --include/--exclude filter) selects which files are kept. With no
// arguments at all, DefaultTargets picks the archives and class files of
// the working directory.
//
// Walk errors below the root are collected in ScanResult.Errors instead of
// aborting the scan.
package fileutil
