package queue

import (
	"fmt"
	"path/filepath"
	"strings"

	"spool/internal/textutil"
)

// outputTitleLimit bounds how many runes of a media title survive into the
// delivered filename.
const outputTitleLimit = 70

// WorkRoot returns the per-item scratch directory rooted at base.
func (i Item) WorkRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return filepath.Join(base, fmt.Sprintf("item-%d", i.ID))
}

// OutputBaseName derives the delivered filename (without extension) from the
// resolved title, falling back to a generic name keyed by item ID.
func (i Item) OutputBaseName() string {
	fallback := fmt.Sprintf("media-%d", i.ID)
	return textutil.MediaFileName(i.Title, fallback, outputTitleLimit)
}

// OutputFileName joins the derived base name with the extension for the
// requested media kind.
func (i Item) OutputFileName() string {
	return i.OutputBaseName() + "." + string(i.MediaKind)
}
