// Package pathutil provides path manipulation for slash-separated archive paths.
package pathutil

import (
	"io/fs"
	"path"
	"strings"
)

// Normalize converts an archive name to fs.ValidPath form.
//
// It performs the following transformations:
//   - Strips leading slashes: "/etc/nginx" → "etc/nginx"
//   - Strips trailing slashes: "etc/nginx/" → "etc/nginx"
//   - Collapses consecutive slashes: "etc//nginx" → "etc/nginx"
//   - Converts empty string to root: "" → "."
//   - Preserves root indicator: "/" → "."
//
// Paths containing "." or ".." elements are preserved so Valid can reject them.
func Normalize(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}

	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}

// Valid reports whether the normalized form of p stays inside the archive
// root and names something other than the root itself.
func Valid(p string) bool {
	n := Normalize(p)
	return n != "." && fs.ValidPath(n)
}

// Match reports whether two archive names refer to the same entry.
// Leading, trailing and duplicate slashes are ignored.
func Match(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Dir returns the parent of a normalized path, or "." at the top level.
func Dir(p string) string {
	return path.Dir(p)
}

// EntryName converts a slash-separated relative path to the name stored in a
// header. Directories get a trailing slash.
func EntryName(rel string, isDir bool) string {
	name := Normalize(rel)
	if isDir {
		return name + "/"
	}
	return name
}
