package security

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// FallbackFilename is used when an upload arrives without a usable name
const FallbackFilename = "attachment"

// AttachmentInfo describes an uploaded file as it will be attached to outbound mail
type AttachmentInfo struct {
	Filename    string // Sanitized base name
	Extension   string // Lowercase extension, including the dot
	ContentType string // Detected from content, never from the client header
	Allowed     bool   // Passed the strict whitelist
	Reason      string // Why the strict whitelist rejected it
}

// Magic byte signatures for allowed file types
var magicBytes = map[string][][]byte{
	".jpg":  {{0xFF, 0xD8, 0xFF}},
	".jpeg": {{0xFF, 0xD8, 0xFF}},
	".png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	".pdf":  {{0x25, 0x50, 0x44, 0x46}},                         // %PDF
	".doc":  {{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}}, // OLE Compound Document
	".docx": {{0x50, 0x4B, 0x03, 0x04}},                         // ZIP (PK..)
	".txt":  {},
}

// Strict MIME types - DO NOT include application/octet-stream
var strictMIMETypes = map[string]bool{
	// Images
	"image/jpeg": true,
	"image/png":  true,
	// Documents
	"application/pdf":           true,
	"application/msword":        true,
	"application/x-ole-storage": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	// ZIP-based documents (DOCX detection fallback)
	"application/zip": true,
	// Text
	"text/plain": true,
}

// SafeFilename reduces a client-supplied filename to a printable base name.
// An empty or unusable name becomes FallbackFilename.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return FallbackFilename
	}
	return name
}

// InspectAttachment names, types and checks an upload against the document whitelist.
// Callers decide whether Allowed is enforced.
func InspectAttachment(filename string, data []byte) AttachmentInfo {
	info := AttachmentInfo{
		Filename: SafeFilename(filename),
	}

	detected := mimetype.Detect(data)
	// Strip parameters such as "; charset=utf-8"
	info.ContentType = strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0])
	if info.ContentType == "" {
		info.ContentType = "application/octet-stream"
	}

	info.Extension = strings.ToLower(filepath.Ext(info.Filename))
	if info.Extension == "" {
		info.Reason = "file has no extension"
		return info
	}

	signatures, ok := magicBytes[info.Extension]
	if !ok {
		info.Reason = "file extension not allowed: " + info.Extension
		return info
	}

	if len(signatures) > 0 && !hasSignature(data, signatures) {
		info.Reason = "file content does not match extension"
		return info
	}

	if !strictMIMETypes[info.ContentType] {
		info.Reason = "MIME type not allowed: " + info.ContentType
		return info
	}

	info.Allowed = true
	return info
}

func hasSignature(data []byte, signatures [][]byte) bool {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}
