// Package items collects the ordered list of item identifiers to sort.
//
// Sources are positional paths (files or directories) plus an optional
// batch file listing one path per line. Directories expand to the files
// they contain, recursively with IncludeSubdirs. Filesystem access goes
// through afero so tests run on an in-memory filesystem.
package items

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// ImageExtensions are the extensions collected from directories by default.
var ImageExtensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff", ".webp"}

// Options controls collection.
type Options struct {
	// Paths are files or directories, in the order given.
	Paths []string

	// BatchFile, if set, names a text file with one path per line.
	// Blank lines and lines starting with '#' are ignored.
	BatchFile string

	// IncludeSubdirs expands directories recursively.
	IncludeSubdirs bool

	// Extensions filters files found inside directories (case-insensitive).
	// Nil means ImageExtensions; an empty non-nil slice accepts every file.
	// Files named explicitly are never filtered.
	Extensions []string
}

// Collector expands Options into an item list on a filesystem.
//
// Relative paths, including batch file entries, resolve against workDir.
// Collected items under workDir are reported relative to it, so the same
// files give the same identifiers however they were named.
type Collector struct {
	fs      afero.Fs
	workDir string
}

// NewCollector returns a Collector reading from fsys.
// workDir may be empty, in which case paths are used as given.
func NewCollector(fsys afero.Fs, workDir string) *Collector {
	return &Collector{fs: fsys, workDir: workDir}
}

// resolve makes p absolute against workDir.
func (c *Collector) resolve(p string) string {
	if c.workDir == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.workDir, p)
}

// display is the inverse of resolve for paths under workDir.
func (c *Collector) display(p string) string {
	if c.workDir == "" {
		return p
	}
	rel, err := filepath.Rel(c.workDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

// Collect returns the item identifiers described by opts.
//
// Order: positional paths first, then batch file entries, each directory
// contributing its files in lexical order. With no paths at all, workDir
// is collected. Repeats keep their first position. Hidden files and
// directories are skipped during expansion. A path that does not exist
// is an error. The result is never nil.
func (c *Collector) Collect(opts Options) ([]string, error) {
	sources := slices.Clone(opts.Paths)
	if opts.BatchFile != "" {
		batch, err := c.readBatchFile(opts.BatchFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, batch...)
	}
	if len(sources) == 0 {
		if c.workDir == "" {
			return nil, fmt.Errorf("no paths given and no working directory")
		}
		sources = []string{c.workDir}
	}

	exts := opts.Extensions
	if exts == nil {
		exts = ImageExtensions
	}

	out := []string{}
	seen := make(map[string]bool)
	add := func(p string) {
		p = c.display(filepath.Clean(p))
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, src := range sources {
		src = c.resolve(src)
		info, err := c.fs.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", src, err)
		}
		if !info.IsDir() {
			add(src)
			continue
		}
		files, err := c.expandDir(src, opts.IncludeSubdirs, exts)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

func (c *Collector) readBatchFile(name string) ([]string, error) {
	data, err := afero.ReadFile(c.fs, c.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var paths []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return paths, nil
}

// expandDir lists files under dir in lexical order.
// afero.Walk visits entries in lexical order, like filepath.Walk.
func (c *Collector) expandDir(dir string, recursive bool, exts []string) ([]string, error) {
	var files []string
	err := afero.Walk(c.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p == dir {
				return nil
			}
			if !recursive || strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") || !matchExt(info.Name(), exts) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", dir, err)
	}
	return files, nil
}

func matchExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
