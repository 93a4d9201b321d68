package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	// DateTimeLayout names files created at a point in time.
	DateTimeLayout = "2006-01-02T15-04-05"
	// DateLayout names files created on a day.
	DateLayout = "2006-01-02"
)

// NameFromTime returns a file name for t, e.g. "2024-05-01T13-45-10.log".
func NameFromTime(t time.Time, ext string) string {
	return t.Format(DateTimeLayout) + normalizeExt(ext)
}

// DateName returns a file name for the day of t, e.g. "2024-05-01.log".
func DateName(t time.Time, ext string) string {
	return t.Format(DateLayout) + normalizeExt(ext)
}

// TimeFromName parses a name produced by NameFromTime or DateName. Any
// directory and extension are ignored.
func TimeFromName(name string) (time.Time, error) {
	base := filepath.Base(name)
	root := strings.TrimSuffix(base, filepath.Ext(base))
	layout := DateLayout
	if strings.Count(root, "-") == 4 {
		layout = DateTimeLayout
	}
	t, err := time.ParseInLocation(layout, root, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("logging: parse name %q: %w", name, err)
	}
	return t, nil
}

func normalizeExt(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// Prune removes the oldest time-named files with extension ext from dir
// so that at most keep remain. Files whose names do not parse are left
// alone. It returns the removed paths.
func Prune(dir, ext string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("logging: read dir: %w", err)
	}

	type stamped struct {
		path string
		at   time.Time
	}
	var files []stamped
	ext = normalizeExt(ext)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		at, err := TimeFromName(e.Name())
		if err != nil {
			continue
		}
		files = append(files, stamped{path: filepath.Join(dir, e.Name()), at: at})
	}
	if len(files) <= keep {
		return nil, nil
	}
	slices.SortFunc(files, func(a, b stamped) int { return b.at.Compare(a.at) })

	var removed []string
	for _, f := range files[keep:] {
		if err := os.Remove(f.path); err != nil {
			return removed, fmt.Errorf("logging: remove %s: %w", f.path, err)
		}
		removed = append(removed, f.path)
	}
	return removed, nil
}
