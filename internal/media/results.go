package media

import "time"

// FileResult records the outcome of validating a single candidate
// file. Results are immutable once produced; a change to the file's
// mtime produces a new result rather than mutating the old one.
type FileResult struct {
	Path               string
	IsValid            bool
	Size               int64
	ModTime            time.Time
	DiscoveredAt       time.Time
	ValidationDuration time.Duration
}

// FolderScanResult is the complete outcome of scanning one folder.
type FolderScanResult struct {
	FolderPath        string
	FileResults       []FileResult
	TotalFilesScanned int
	ScanDuration      time.Duration
}

// ValidPaths returns the paths of the results that validated, in
// scan order.
func (r FolderScanResult) ValidPaths() []string {
	paths := make([]string, 0, len(r.FileResults))
	for _, fr := range r.FileResults {
		if fr.IsValid {
			paths = append(paths, fr.Path)
		}
	}
	return paths
}
