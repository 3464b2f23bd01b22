package constants

import "strings"

// AllowedExtensions holds the file extensions accepted by the infraction pipeline.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// IntakeExtensions holds the archive extensions accepted by the ZIP intake stage.
var IntakeExtensions = map[string]struct{}{
	"zip": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether ext (already normalized) is an accepted input type.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[ext]
	return ok
}

// IntakeExt reports whether ext (already normalized) is an accepted intake archive type.
func IntakeExt(ext string) bool {
	_, ok := IntakeExtensions[ext]
	return ok
}
