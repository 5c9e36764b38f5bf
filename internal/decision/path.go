package decision

import (
	"path"
	"strings"
)

// NormalizeDestination canonicalizes a rule destination as entered by the
// user: a drive-letter prefix and its separator are stripped, backslashes
// become forward slashes, and the result always carries a trailing slash.
// "E:/Games/Sims4/mods" and "Games\Sims4\mods" both normalize to
// "Games/Sims4/mods/". An empty or blank destination stays empty.
func NormalizeDestination(destination string) string {
	d := strings.TrimSpace(destination)
	d = strings.ReplaceAll(d, "\\", "/")
	if len(d) >= 2 && d[1] == ':' && isASCIILetter(d[0]) {
		d = strings.TrimLeft(d[2:], "/")
	}
	if d == "" {
		return ""
	}
	if !strings.HasSuffix(d, "/") {
		d += "/"
	}
	return d
}

// IsAbsoluteDestination reports whether a destination is rooted outside the
// browser's downloads tree. Only genuinely rooted paths count: drive-letter
// prefixes are styling the user carried over from a Windows path and
// normalize away into a relative destination.
func IsAbsoluteDestination(destination string) bool {
	d := strings.TrimSpace(strings.ReplaceAll(destination, "\\", "/"))
	if len(d) >= 2 && d[1] == ':' && isASCIILetter(d[0]) {
		return false
	}
	return strings.HasPrefix(d, "/")
}

// PlacementPath joins a normalized destination with the download's base
// filename.
func PlacementPath(destination, filename string) string {
	return NormalizeDestination(destination) + baseFilename(filename)
}

func baseFilename(filename string) string {
	f := strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/")
	if f == "" {
		return ""
	}
	base := path.Base(f)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
