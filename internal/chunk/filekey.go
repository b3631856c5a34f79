package chunk

import "regexp"

var fileKeySuffix = regexp.MustCompile(`:(?:chunk)?\d+$`)

// FileKey strips the position suffix from a chunk source, leaving the
// relative file path. Both code sources ("app.py:41") and doc sources
// ("README.md:chunk2") collapse to their file.
func FileKey(source string) string {
	return fileKeySuffix.ReplaceAllString(source, "")
}
