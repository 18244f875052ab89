// Package pathutil shortens file paths for log and error messages.
package pathutil

import "path/filepath"

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.geotree/geotree.db" becomes ".../.geotree/geotree.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}
