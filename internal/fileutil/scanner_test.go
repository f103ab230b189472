package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/harrison/jargrep/internal/pattern"
)

// makeTree creates files (with parent directories) below root.
func makeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	sort.Strings(names)
	return names
}

func TestScanDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// tmpDir/
	//   app.jar
	//   Main.class
	//   notes.txt
	//   Setup.JAR (case-insensitive extensions)
	//   lib/
	//     dep.jar
	//     dep.zip
	//     nested/
	//       Deep.class
	//   .git/
	//     hidden.jar
	//   build/
	//     out.jar
	makeTree(t, tmpDir,
		"app.jar",
		"Main.class",
		"notes.txt",
		"Setup.JAR",
		"lib/dep.jar",
		"lib/dep.zip",
		"lib/nested/Deep.class",
		".git/hidden.jar",
		"build/out.jar",
	)

	tests := []struct {
		name          string
		opts          ScanOptions
		wantFileNames []string
	}{
		{
			name:          "non-recursive scan",
			opts:          ScanOptions{},
			wantFileNames: []string{"Main.class", "Setup.JAR", "app.jar", "notes.txt"},
		},
		{
			name: "recursive scan skips hidden directories",
			opts: ScanOptions{Recursive: true},
			wantFileNames: []string{
				"Deep.class", "Main.class", "Setup.JAR", "app.jar", "dep.jar", "dep.zip", "notes.txt", "out.jar",
			},
		},
		{
			name:          "extension filter",
			opts:          ScanOptions{Extensions: []string{".jar"}, Recursive: true},
			wantFileNames: []string{"Setup.JAR", "app.jar", "dep.jar", "out.jar"},
		},
		{
			name:          "extension without dot prefix",
			opts:          ScanOptions{Extensions: []string{"class"}, Recursive: true},
			wantFileNames: []string{"Deep.class", "Main.class"},
		},
		{
			name:          "default target extensions",
			opts:          ScanOptions{Extensions: DefaultExtensions},
			wantFileNames: []string{"Main.class", "Setup.JAR", "app.jar"},
		},
		{
			name:          "max depth 2",
			opts:          ScanOptions{Recursive: true, MaxDepth: 2},
			wantFileNames: []string{"Main.class", "Setup.JAR", "app.jar", "dep.jar", "dep.zip", "notes.txt", "out.jar"},
		},
		{
			name:          "excluded directory",
			opts:          ScanOptions{Recursive: true, ExcludeDirs: []string{"build", "nested"}},
			wantFileNames: []string{"Main.class", "Setup.JAR", "app.jar", "dep.jar", "dep.zip", "notes.txt"},
		},
		{
			name: "include filter",
			opts: ScanOptions{
				Recursive: true,
				Accept:    pattern.NewInclude(pattern.MustCompile(`\.class$`, pattern.Options{})).Accepts,
			},
			wantFileNames: []string{"Deep.class", "Main.class"},
		},
		{
			name: "exclude filter sees the directory part",
			opts: ScanOptions{
				Recursive: true,
				Accept:    pattern.NewExclude(pattern.MustCompile("lib/", pattern.Options{Literal: true})).Accepts,
			},
			wantFileNames: []string{"Main.class", "Setup.JAR", "app.jar", "notes.txt", "out.jar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(tmpDir, tt.opts)
			if err != nil {
				t.Fatalf("ScanDirectory() error = %v", err)
			}
			if len(result.Errors) != 0 {
				t.Errorf("ScanDirectory() errors = %v, want none", result.Errors)
			}

			got := baseNames(result.Files)
			want := append([]string(nil), tt.wantFileNames...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ScanDirectory() files = %v, want %v", got, want)
			}
		})
	}
}

func TestScanDirectory_PathsJoinRoot(t *testing.T) {
	tmpDir := t.TempDir()
	makeTree(t, tmpDir, "lib/dep.jar")

	result, err := ScanDirectory(tmpDir, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	want := []string{filepath.Join(tmpDir, "lib", "dep.jar")}
	if !reflect.DeepEqual(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
}

func TestScanDirectory_SortedOutput(t *testing.T) {
	tmpDir := t.TempDir()
	makeTree(t, tmpDir, "zeta.jar", "alpha.jar", "mid/beta.jar", "gamma.jar")

	result, err := ScanDirectory(tmpDir, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	if !sort.StringsAreSorted(result.Files) {
		t.Errorf("Files not sorted: %v", result.Files)
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := ScanDirectory(filepath.Join(t.TempDir(), "nope"), ScanOptions{}); err == nil {
			t.Error("ScanDirectory() expected error for missing directory")
		}
	})

	t.Run("file instead of directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		makeTree(t, tmpDir, "a.jar")
		if _, err := ScanDirectory(filepath.Join(tmpDir, "a.jar"), ScanOptions{}); err == nil {
			t.Error("ScanDirectory() expected error for a regular file")
		}
	})
}

func TestScanDirectory_EmptyDirectory(t *testing.T) {
	result, err := ScanDirectory(t.TempDir(), ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("Files = %v, want empty", result.Files)
	}
}

func TestExpandTargets(t *testing.T) {
	tmpDir := t.TempDir()
	makeTree(t, tmpDir, "dir/b.jar", "dir/a.txt", "dir/sub/c.class", "single.txt")

	single := filepath.Join(tmpDir, "single.txt")
	missing := filepath.Join(tmpDir, "missing.jar")
	dir := filepath.Join(tmpDir, "dir")

	t.Run("files kept in order and directories expanded", func(t *testing.T) {
		got, errs := ExpandTargets([]string{single, dir, missing}, ScanOptions{})
		if len(errs) != 0 {
			t.Errorf("errors = %v, want none", errs)
		}
		want := []string{
			single,
			filepath.Join(dir, "a.txt"),
			filepath.Join(dir, "b.jar"),
			filepath.Join(dir, "sub", "c.class"),
			missing,
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ExpandTargets() = %v, want %v", got, want)
		}
	})

	t.Run("filter applies to expanded files only", func(t *testing.T) {
		exclude := pattern.NewExclude(pattern.MustCompile(`\.txt$`, pattern.Options{}))
		got, _ := ExpandTargets([]string{single, dir}, ScanOptions{Accept: exclude.Accepts})
		want := []string{
			single,
			filepath.Join(dir, "b.jar"),
			filepath.Join(dir, "sub", "c.class"),
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ExpandTargets() = %v, want %v", got, want)
		}
	})

	t.Run("excluded directories and depth", func(t *testing.T) {
		got, _ := ExpandTargets([]string{dir}, ScanOptions{ExcludeDirs: []string{"sub"}})
		want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.jar")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ExpandTargets(ExcludeDirs) = %v, want %v", got, want)
		}

		got, _ = ExpandTargets([]string{dir}, ScanOptions{MaxDepth: 1})
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ExpandTargets(MaxDepth=1) = %v, want %v", got, want)
		}
	})
}

func TestDefaultTargets(t *testing.T) {
	t.Run("archives and classes in the directory only", func(t *testing.T) {
		tmpDir := t.TempDir()
		makeTree(t, tmpDir, "a.jar", "b.zip", "C.class", "readme.txt", "sub/d.jar")

		got, err := DefaultTargets(tmpDir)
		if err != nil {
			t.Fatalf("DefaultTargets() error = %v", err)
		}
		if want := []string{"C.class", "a.jar", "b.zip"}; !reflect.DeepEqual(baseNames(got), want) {
			t.Errorf("DefaultTargets() = %v, want %v", baseNames(got), want)
		}
	})

	t.Run("nothing to search", func(t *testing.T) {
		tmpDir := t.TempDir()
		makeTree(t, tmpDir, "readme.txt")

		_, err := DefaultTargets(tmpDir)
		if !errors.Is(err, ErrNoTargets) {
			t.Errorf("DefaultTargets() error = %v, want ErrNoTargets", err)
		}
	})
}
