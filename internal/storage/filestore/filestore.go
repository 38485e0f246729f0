// Package filestore exposes a single directory as the storage capability of
// the catalog: listing, line reads, atomic writes and removal.
package filestore

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// PersistenceError describes a failed filesystem operation.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Dir is a directory rooted at a fixed path. Names passed to its methods are
// base names relative to that root.
type Dir struct {
	root string
}

// New returns a Dir rooted at root. The directory is not created.
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// Path returns the full path of name inside the directory.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

func (d *Dir) fail(op, name string, err error) error {
	return &PersistenceError{Op: op, Path: d.Path(name), Err: err}
}

// MkdirAll creates the directory and any missing parents.
func (d *Dir) MkdirAll() error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return &PersistenceError{Op: "mkdir", Path: d.root, Err: err}
	}
	return nil
}

// List returns the sorted names of regular files whose name starts with
// prefix and ends with suffix. Either may be empty.
func (d *Dir) List(prefix, suffix string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Path: d.root, Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Exists reports whether name exists in the directory.
func (d *Dir) Exists(name string) (bool, error) {
	_, err := os.Stat(d.Path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, d.fail("stat", name, err)
	}
}

// Open opens name for reading. The caller must close the returned reader.
func (d *Dir) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(d.Path(name))
	if err != nil {
		return nil, d.fail("open", name, err)
	}
	return f, nil
}

// ReadLines calls fn for every line of name, in order, until fn returns
// false.
func (d *Dir) ReadLines(name string, fn func(line string) bool) error {
	f, err := os.Open(d.Path(name))
	if err != nil {
		return d.fail("open", name, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if !fn(scanner.Text()) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return d.fail("read", name, err)
	}
	return nil
}

// FirstLine returns the first line of name. An empty file yields io.EOF.
func (d *Dir) FirstLine(name string) (string, error) {
	var (
		first string
		found bool
	)
	if err := d.ReadLines(name, func(line string) bool {
		first, found = line, true
		return false
	}); err != nil {
		return "", err
	}
	if !found {
		return "", d.fail("read", name, io.EOF)
	}
	return first, nil
}

// WriteAtomic writes name by calling fn with a temporary file in the same
// directory and renaming it into place once fn succeeds. An existing file is
// replaced; on failure it is left untouched.
func (d *Dir) WriteAtomic(name string, fn func(w io.Writer) error) (rerr error) {
	if err := d.MkdirAll(); err != nil {
		return err
	}

	tmp := d.Path("." + name + "." + uuid.NewString() + ".part")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return d.fail("create", name, err)
	}
	defer func() {
		if rerr != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		return d.fail("write", name, err)
	}
	if err := w.Flush(); err != nil {
		return d.fail("write", name, err)
	}
	if err := f.Close(); err != nil {
		return d.fail("close", name, err)
	}
	if err := os.Rename(tmp, d.Path(name)); err != nil {
		return d.fail("rename", name, err)
	}
	return nil
}

// WriteLines atomically replaces name with the given lines, each terminated
// by a newline.
func (d *Dir) WriteLines(name string, lines []string) error {
	return d.WriteAtomic(name, func(w io.Writer) error {
		for _, line := range lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes name. A missing file is not an error.
func (d *Dir) Remove(name string) error {
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return d.fail("remove", name, err)
	}
	return nil
}
