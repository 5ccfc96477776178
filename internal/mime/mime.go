package mime

import (
	"path"
	"strings"
)

var mimeExts = map[string][]string{
	"application/javascript;": {"js", "mjs", "cjs"},
	"application/json;":       {"json", "map"},
	"application/pdf":         {"pdf"},
	"application/wasm":        {"wasm"},
	"application/xml;":        {"xml", "plist"},
	"application/zip":         {"zip"},
	"audio/mp4":               {"m4a"},
	"audio/mpeg":              {"mp3", "m3a"},
	"audio/ogg":               {"ogg", "oga"},
	"audio/wav":               {"wav"},
	"audio/webm":              {"weba"},
	"font/collection":         {"ttc"},
	"font/otf":                {"otf"},
	"font/ttf":                {"ttf"},
	"font/woff":               {"woff"},
	"font/woff2":              {"woff2"},
	"image/apng":              {"apng"},
	"image/avif":              {"avif"},
	"image/gif":               {"gif"},
	"image/jpeg":              {"jpg", "jpeg"},
	"image/png":               {"png"},
	"image/svg+xml;":          {"svg", "svgz"},
	"image/webp":              {"webp"},
	"image/x-icon":            {"ico"},
	"text/css":                {"css", "less", "sass", "scss", "styl"},
	"text/csv":                {"csv"},
	"text/html":               {"html", "htm", "shtml", "tpl"},
	"text/markdown":           {"md", "markdown"},
	"text/plain":              {"txt", "text", "log", "glsl"},
	"text/yaml":               {"yaml", "yml"},
	"video/mp4":               {"mp4", "m4v"},
	"video/ogg":               {"ogv"},
	"video/webm":              {"webm"},
}

var mimeMap = map[string]string{}

func init() {
	for k, v := range mimeExts {
		if strings.HasSuffix(k, ";") || strings.HasPrefix(k, "text/") {
			k = strings.TrimSuffix(k, ";") + "; charset=utf-8"
		}
		for _, ext := range v {
			mimeMap["."+ext] = k
		}
	}
	mimeExts = nil
}

// GetContentType returns the MIME type of the file with the given filename.
// It returns "application/octet-stream" for unknown extensions.
func GetContentType(filename string) string {
	contentType, ok := mimeMap[strings.ToLower(path.Ext(filename))]
	if !ok {
		return "application/octet-stream"
	}
	return contentType
}

// DataURIType returns the MIME type used when embedding the file as a data
// URI. The charset suffix is stripped since data URIs carry base64 payloads.
func DataURIType(filename string) string {
	contentType := GetContentType(filename)
	mediaType, _, _ := strings.Cut(contentType, ";")
	return mediaType
}

// IsText reports whether the content of the file is UTF-8 text.
func IsText(filename string) bool {
	contentType := GetContentType(filename)
	return strings.HasPrefix(contentType, "text/") ||
		strings.HasPrefix(contentType, "application/javascript") ||
		strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "application/xml") ||
		strings.HasPrefix(contentType, "image/svg+xml")
}
