package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

type candidate struct {
	path    string
	modTime time.Time
}

// matchFiles lists the regular files in dir ending in ext, in name order.
// Dot files are skipped the way a shell glob would. A missing directory
// or a path that is not a directory yields no candidates.
func matchFiles(dir, ext string) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, candidate{path: path, modTime: info.ModTime()})
	}
	return files, nil
}

// LatestArtifact returns the most recently modified artifact in dir. Equal
// timestamps resolve to the name that sorts first.
func LatestArtifact(dir, ext string) (string, error) {
	candidates, err := matchFiles(dir, ext)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", &NotFoundError{Kind: ErrNoArtifact, Dir: dir, Pattern: "*" + ext}
	}

	latest := candidates[0]
	for _, c := range candidates[1:] {
		if c.modTime.After(latest.modTime) {
			latest = c
		}
	}
	return latest.path, nil
}

// ListInputs returns the input files of dir sorted by name.
func ListInputs(dir, ext string) ([]string, error) {
	candidates, err := matchFiles(dir, ext)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, &NotFoundError{Kind: ErrNoInput, Dir: dir, Pattern: "*" + ext}
	}

	files := make([]string, len(candidates))
	for i, c := range candidates {
		files[i] = c.path
	}
	return files, nil
}
