package constants

import "strings"

// DocumentExtensions holds the extensions treated as tax documents inside an archive.
var DocumentExtensions = map[string]struct{}{
	"pdf": {},
}

// ArchiveExtensions holds the extensions accepted as document archives.
var ArchiveExtensions = map[string]struct{}{
	"zip": {},
}

const (
	PDFMimeType = "application/pdf"
	ZipMimeType = "application/zip"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsDocumentExt reports whether ext (with or without the dot) names a document.
func IsDocumentExt(ext string) bool {
	_, ok := DocumentExtensions[NormalizeExt(ext)]
	return ok
}

// IsArchiveExt reports whether ext (with or without the dot) names an archive.
func IsArchiveExt(ext string) bool {
	_, ok := ArchiveExtensions[NormalizeExt(ext)]
	return ok
}
