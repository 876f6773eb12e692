// Package nvidia makes pip-installed CUDA toolkit libraries visible to the
// dynamic loader. Wheels like nvidia-cublas and nvidia-cudnn unpack their
// DLLs under <site-packages>/nvidia/<component>/{bin,lib} instead of a
// system-wide location, so on Windows the loader cannot find them by name
// until those directories are registered explicitly.
package nvidia

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// vendorSubtree is the fixed directory the CUDA wheels share inside a
// site-packages root.
const vendorSubtree = "nvidia"

// Snapshot captures the process state Repair reads: the OS, the current
// value of the search-path variable, and the package-installation roots to
// scan.
type Snapshot struct {
	GOOS  string
	Path  string
	Roots []string
}

// Result is the outcome of a repair pass. Path is the updated search-path
// value; Added lists the candidate directories discovered, in the order
// they were prepended.
type Result struct {
	Path  string
	Added []string
}

// Repair computes the search-path update for a snapshot. It is pure: no
// environment is touched and no loader registration happens here.
//
// Only Windows resolves shared libraries through the search-path variable,
// so on every other OS the snapshot's path comes back unchanged with zero
// candidates.
func Repair(snap Snapshot) Result {
	if snap.GOOS != "windows" {
		return Result{Path: snap.Path}
	}

	candidates := candidateDirs(snap.Roots)
	return Result{
		Path:  prependUnique(snap.Path, candidates),
		Added: candidates,
	}
}

// candidateDirs scans <root>/nvidia/<component>/<dir> for directories named
// bin or lib. The scan is exactly two levels deep below the vendor subtree;
// wheels that nest their binaries deeper are not picked up. A root without
// the subtree contributes nothing.
func candidateDirs(roots []string) []string {
	var dirs []string
	seen := make(map[string]struct{})

	for _, root := range roots {
		base := filepath.Join(root, vendorSubtree)
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}

		matches, err := filepath.Glob(filepath.Join(base, "*", "*"))
		if err != nil {
			continue
		}

		for _, match := range matches {
			name := filepath.Base(match)
			if name != "bin" && name != "lib" {
				continue
			}
			info, err := os.Stat(match)
			if err != nil || !info.IsDir() {
				continue
			}
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			dirs = append(dirs, match)
		}
	}

	return dirs
}

// prependUnique puts each dir at the front of the list-separated path value
// unless an identical entry is already present. Existing entries keep their
// relative order.
func prependUnique(path string, dirs []string) string {
	if len(dirs) == 0 {
		return path
	}

	existing := make(map[string]struct{})
	for _, entry := range strings.Split(path, string(os.PathListSeparator)) {
		existing[entry] = struct{}{}
	}

	updated := path
	for _, dir := range dirs {
		if _, ok := existing[dir]; ok {
			continue
		}
		existing[dir] = struct{}{}
		if updated == "" {
			updated = dir
			continue
		}
		updated = dir + string(os.PathListSeparator) + updated
	}

	return updated
}

// Apply runs one repair pass against the live process: discovers the
// Python site-packages roots, registers every candidate directory with the
// Windows DLL search mechanism, and writes the updated PATH back. It never
// fails; a directory that cannot be registered is skipped after a debug
// log line, since most candidates are expected to be inapplicable.
func Apply(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runtime.GOOS != "windows" {
		return
	}

	snap := Snapshot{
		GOOS:  runtime.GOOS,
		Path:  os.Getenv("PATH"),
		Roots: SitePackagesRoots(),
	}

	result := Repair(snap)
	for _, dir := range result.Added {
		if err := registerDLLDirectory(dir); err != nil {
			logger.Debug("skipping DLL directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	if result.Path != snap.Path {
		if err := os.Setenv("PATH", result.Path); err != nil {
			logger.Debug("failed to update PATH", zap.Error(err))
			return
		}
		logger.Debug("prepended CUDA library directories to PATH", zap.Strings("dirs", result.Added))
	}
}
