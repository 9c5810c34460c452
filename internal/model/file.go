package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType classifies an attachment into a fixed enumeration.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeCSV   FileType = "csv"
	FileTypeExcel FileType = "excel"
	FileTypeImage FileType = "image"
	FileTypeText  FileType = "text"
	FileTypeOther FileType = "other"
)

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "svg": true,
}

var textExtensions = map[string]bool{
	"txt": true, "md": true, "json": true, "js": true, "ts": true, "html": true, "css": true,
}

// ClassifyFile derives the file type from the MIME type and filename
// extension. MIME takes precedence; the result is deterministic for a given
// (name, mime) pair.
func ClassifyFile(name, mimeType string) FileType {
	mime := strings.ToLower(mimeType)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	switch {
	case mime == "application/pdf" || ext == "pdf":
		return FileTypePDF
	case mime == "text/csv" || ext == "csv":
		return FileTypeCSV
	case mime == "application/vnd.ms-excel" ||
		mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" ||
		ext == "xls" || ext == "xlsx":
		return FileTypeExcel
	case strings.HasPrefix(mime, "image/") || imageExtensions[ext]:
		return FileTypeImage
	case strings.HasPrefix(mime, "text/") || textExtensions[ext]:
		return FileTypeText
	default:
		return FileTypeOther
	}
}

// FormatFileSize renders a byte count for display.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d bytes", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}

// PreviewText returns a short preview of a text file's content, truncated to
// 200 characters with an ellipsis.
func PreviewText(content string) string {
	runes := []rune(content)
	if len(runes) <= 200 {
		return content
	}
	return string(runes[:200]) + "..."
}
