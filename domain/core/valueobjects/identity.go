package valueobjects

import (
	"net/url"
	"path"
	"strings"
)

// AttachmentsSegment marks a folder whose files are referenced by documents
// but are not documents themselves.
const AttachmentsSegment = "Attachments/"

// StripExtension removes the file extension from the final path element.
// Dots in directory names are preserved: "a.b/note.md" becomes "a.b/note".
func StripExtension(p string) string {
	ext := path.Ext(p)
	if ext == "" || ext == p || strings.HasSuffix(p, "/"+ext) {
		return p
	}
	return strings.TrimSuffix(p, ext)
}

// BareName returns the final path element without its extension
func BareName(p string) string {
	stripped := StripExtension(p)
	if i := strings.LastIndex(stripped, "/"); i >= 0 {
		return stripped[i+1:]
	}
	return stripped
}

// Extension returns the lower-cased extension of p without the leading dot
func Extension(p string) string {
	ext := path.Ext(p)
	if ext == "" || ext == p {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeExtension accepts ".md", "md" or ".MD" and returns "md"
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Decode percent-decodes an identifier coming from a URL. Identifiers that
// are not valid escapes are returned unchanged.
func Decode(identifier string) string {
	decoded, err := url.PathUnescape(identifier)
	if err != nil {
		return identifier
	}
	return decoded
}

// IsAttachmentPath reports whether p lives under an Attachments folder
func IsAttachmentPath(p string) bool {
	return strings.HasPrefix(p, AttachmentsSegment) || strings.Contains(p, "/"+AttachmentsSegment)
}

// NormalizeTag trims whitespace and a single leading '#'
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "#")
}

// TagLabel returns the node label for a tag, e.g. "x" or "#x" both give "#x".
// An empty tag yields an empty label.
func TagLabel(tag string) string {
	name := NormalizeTag(tag)
	if name == "" {
		return ""
	}
	return "#" + name
}
