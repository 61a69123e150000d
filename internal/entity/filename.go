package entity

import (
	"path"
	"strings"
)

var (
	illegalChars = strings.NewReplacer(
		":", "", "/", "", `\`, "", "*", "", "?", "",
		`"`, "", "<", "", ">", "", "|", "",
	)
	linkChars = strings.NewReplacer("#", "", "^", "", "[", "", "]", "")
)

// SafeFileName removes characters that common file systems reject. Spaces and
// non-ASCII text are kept; there is no truncation or de-duplication.
func SafeFileName(name string) string {
	return illegalChars.Replace(name)
}

// SafeFileNameFor is SafeFileName plus the wiki-link characters # ^ [ ] for
// kinds whose names are used as link targets.
func SafeFileNameFor(kind Kind, name string) string {
	out := SafeFileName(name)
	if SchemaFor(kind).LinkSafe {
		out = linkChars.Replace(out)
	}
	return out
}

// PathFor returns the vault-relative document path, e.g. "Characters/Aria.md".
func PathFor(kind Kind, name string) string {
	return path.Join(Folder(kind), SafeFileNameFor(kind, name)+".md")
}

// KindForPath infers the kind from the top-level folder of a vault path.
func KindForPath(p string) (Kind, bool) {
	dir, _, ok := strings.Cut(path.Clean(p), "/")
	if !ok {
		return "", false
	}
	for _, s := range schemas {
		if s.Folder == dir {
			return s.Kind, true
		}
	}
	return "", false
}
