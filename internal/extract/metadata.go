package extract

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultEdition is the sentinel used when no edition token is present in
// the containing folder name.
const DefaultEdition = "1e"

var (
	// editionPattern matches a trailing edition token such as "2e" or "5e"
	// in a folder name like "Kids on Bikes 2e".
	editionPattern = regexp.MustCompile(`([1-9]e)$`)

	// titlePattern captures the word run following the " - " separator in a
	// file name like "Dragonbane - Bestiary - 20240607.md".
	titlePattern = regexp.MustCompile(` - ([' \w]+)`)
)

// SourceInfo is naming metadata inferred from a source file path.
type SourceInfo struct {
	Title   string
	Edition string
}

// InferMetadata derives the document title and game system edition from a
// file path. It is a pure function, independent of any I/O, so naming
// convention changes never touch the extraction code. The edition comes
// from the containing folder name and defaults to "1e"; the title comes
// from the file name after the separator marker, falling back to the bare
// file name.
func InferMetadata(path string) SourceInfo {
	info := SourceInfo{Edition: DefaultEdition}

	folder := filepath.Base(filepath.Dir(path))
	if m := editionPattern.FindStringSubmatch(folder); m != nil {
		info.Edition = m[1]
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info.Title = name
	if m := titlePattern.FindStringSubmatch(name); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			info.Title = title
		}
	}

	return info
}
