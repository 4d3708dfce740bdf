// Package detect determines document MIME types from file names and content.
package detect

import (
	"archive/zip"
	"bytes"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fwojciec/docint"
)

var _ docint.MimeDetector = (*Detector)(nil)

// MIME types the detector reports for formats the mime package may not know.
const (
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeOdt  = "application/vnd.oasis.opendocument.text"
	MimeEml  = "message/rfc822"
)

var extensions = map[string]string{
	".docx":     MimeDocx,
	".xlsx":     MimeXlsx,
	".xlsm":     "application/vnd.ms-excel.sheet.macroenabled.12",
	".odt":      MimeOdt,
	".eml":      MimeEml,
	".mbox":     "application/mbox",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".htm":      "text/html",
	".html":     "text/html",
	".xhtml":    "application/xhtml+xml",
	".xml":      "application/xml",
	".svg":      "image/svg+xml",
	".pdf":      "application/pdf",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
	".webp":     "image/webp",
	".json":     "application/json",
}

var mailHeaders = []string{"Return-Path:", "Received:", "From:", "MIME-Version:", "Message-ID:", "Delivered-To:"}

// Detector resolves MIME types by file extension first and by content
// sniffing second.
type Detector struct{}

// NewDetector creates a new Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the MIME type of content. path may be empty.
func (d *Detector) Detect(content []byte, path string) (string, error) {
	if mt := ByExtension(path); mt != "" {
		return mt, nil
	}
	if len(content) == 0 {
		return "", docint.Errorf(docint.EINVALID, "cannot detect type of empty content")
	}
	return Sniff(content), nil
}

// ByExtension returns the MIME type for path's extension, or "".
func ByExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if mt, ok := extensions[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "application/octet-stream" {
		return mt
	}
	return ""
}

// Sniff determines the MIME type from content alone.
func Sniff(content []byte) string {
	switch {
	case bytes.HasPrefix(content, []byte("%PDF-")):
		return "application/pdf"
	case bytes.HasPrefix(content, []byte("PK\x03\x04")):
		if mt := sniffZip(content); mt != "" {
			return mt
		}
		return "application/zip"
	case bytes.HasPrefix(bytes.TrimSpace(content), []byte("<?xml")):
		return "application/xml"
	case isMail(content):
		return MimeEml
	}
	return http.DetectContentType(content)
}

// sniffZip recognizes office documents by the entries of their archive.
func sniffZip(content []byte) string {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}
	for _, f := range r.File {
		switch {
		case f.Name == "mimetype":
			rc, err := f.Open()
			if err != nil {
				return ""
			}
			buf := make([]byte, 128)
			n, _ := rc.Read(buf)
			rc.Close()
			return strings.TrimSpace(string(buf[:n]))
		case strings.HasPrefix(f.Name, "word/"):
			return MimeDocx
		case strings.HasPrefix(f.Name, "xl/"):
			return MimeXlsx
		}
	}
	return ""
}

func isMail(content []byte) bool {
	head := content[:min(len(content), 1024)]
	for _, h := range mailHeaders {
		if bytes.HasPrefix(head, []byte(h)) {
			return bytes.Contains(head, []byte("\n\n")) || bytes.Contains(head, []byte("\r\n\r\n")) || bytes.Count(head, []byte(":")) > 2
		}
	}
	return false
}
