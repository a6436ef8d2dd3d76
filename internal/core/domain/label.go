package domain

import (
	"path/filepath"
	"strings"
)

const maxLabelLength = 64

// SanitizeLabel makes a model-produced label safe for use as a storage
// container name: no path separators, no control characters, bounded
// length. An empty result degrades to UnknownLabel.
func SanitizeLabel(raw string) string {
	label := strings.TrimSpace(raw)
	label = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return -1
		case r < 0x20:
			return ' '
		default:
			return r
		}
	}, label)
	label = strings.Join(strings.Fields(label), " ")
	label = strings.Trim(label, ".")

	if len(label) > maxLabelLength {
		label = strings.TrimSpace(label[:maxLabelLength])
	}
	if label == "" {
		return UnknownLabel
	}
	return label
}

// SanitizeFilename strips directory components and characters unsafe for
// the storage layer from an uploaded file name.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == '(', r == ')':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.pdf"
	}
	return base
}
