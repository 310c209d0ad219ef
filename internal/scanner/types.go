// Package scanner discovers the pages of a docs site.
// A page is a file named after the configured page file (default +page.md)
// anywhere below the content root.
package scanner

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultPageFile is the file name that marks a routed page.
const DefaultPageFile = "+page.md"

// FileInfo describes a discovered page.
type FileInfo struct {
	Path    string    // Path relative to the content root, slash separated
	AbsPath string    // Absolute path
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// ScanOptions configures the scanner.
type ScanOptions struct {
	// RootDir is the content root to walk.
	RootDir string

	// PageFile is the page file name (empty = DefaultPageFile).
	PageFile string

	// Exclude lists pages, relative to RootDir, that are never yielded.
	Exclude []string

	// FollowSymlinks yields symlinked pages (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

func (o *ScanOptions) pageFile() string {
	if o.PageFile == "" {
		return DefaultPageFile
	}
	return o.PageFile
}

// IsPage reports whether rel, a path relative to RootDir, names a page that
// would be yielded by a scan.
func (o *ScanOptions) IsPage(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}
	if filepath.Base(rel) != o.pageFile() {
		return false
	}
	dirs := strings.Split(rel, "/")
	for _, d := range dirs[:len(dirs)-1] {
		if skipDir(d) {
			return false
		}
	}
	return !o.excluded(rel)
}

func (o *ScanOptions) excluded(rel string) bool {
	return slices.ContainsFunc(o.Exclude, func(ex string) bool {
		return filepath.ToSlash(filepath.Clean(ex)) == rel
	})
}

// skipDir reports whether a directory with this name is never descended.
func skipDir(name string) bool {
	return name == "node_modules" || (len(name) > 1 && strings.HasPrefix(name, "."))
}
