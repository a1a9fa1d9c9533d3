package model

import "strings"

// invalidFileChars cannot appear in a Windows file name.
const invalidFileChars = `<>:"/\|?*`

// SafeFileName replaces characters Windows rejects in file names with '_'.
// changed reports whether anything was replaced.
func SafeFileName(name string) (safe string, changed bool) {
	var sb strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidFileChars, r) {
			sb.WriteByte('_')
			changed = true
			continue
		}
		sb.WriteRune(r)
	}
	safe = sb.String()
	// Windows also drops trailing dots and spaces.
	if trimmed := strings.TrimRight(safe, ". "); trimmed != safe {
		safe = trimmed + strings.Repeat("_", len(safe)-len(trimmed))
		changed = true
	}
	if safe == "" {
		safe, changed = "_", true
	}
	return safe, changed
}
