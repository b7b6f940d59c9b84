// Package library lists the ROMs the driver can switch between.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("chip8.library")

var ErrNoROMs = errors.New("no ROMs found")

// Library is an ordered list of ROM files with a cursor that wraps around at both ends.
type Library struct {
	paths   []string
	current int
}

// Open lists ROMs from path. A directory yields every regular, non-hidden file in it,
// sorted by name, with the first one current. A file yields the files of its directory
// with that file current, so Next and Prev move to its neighbours.
func Open(path string) (*Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	dir, name := path, ""
	if !info.IsDir() {
		dir, name = filepath.Dir(path), filepath.Base(path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	l := &Library{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.Name() == name {
			l.current = len(l.paths)
		}
		l.paths = append(l.paths, filepath.Join(dir, entry.Name()))
	}

	// A hidden file was asked for by name, keep it reachable
	if name != "" && (len(l.paths) == 0 || filepath.Base(l.paths[l.current]) != name) {
		l.current = len(l.paths)
		l.paths = append(l.paths, path)
	}

	if len(l.paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoROMs, dir)
	}

	log.Infof("%d ROMs in %s", len(l.paths), dir)
	return l, nil
}

func (l *Library) Len() int {
	return len(l.paths)
}

// Current returns the path of the current ROM.
func (l *Library) Current() string {
	return l.paths[l.current]
}

// Name returns the file name of the current ROM.
func (l *Library) Name() string {
	return filepath.Base(l.Current())
}

// Next moves to the following ROM, wrapping to the first, and returns its path.
func (l *Library) Next() string {
	l.current = (l.current + 1) % len(l.paths)
	return l.Current()
}

// Prev moves to the preceding ROM, wrapping to the last, and returns its path.
func (l *Library) Prev() string {
	l.current = (l.current - 1 + len(l.paths)) % len(l.paths)
	return l.Current()
}
