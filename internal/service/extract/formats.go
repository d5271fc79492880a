package extract

import (
	"path/filepath"
	"strings"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".bmp": true, ".tiff": true, ".tif": true, ".avif": true, ".heic": true,
}

var textExts = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true, ".ts": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".css": true,
	".html": true, ".htm": true, ".csv": true, ".json": true, ".xml": true,
	".sh": true, ".yaml": true, ".yml": true, ".rst": true, ".rb": true,
	".go": true, ".rs": true, ".kt": true, ".swift": true,
}

func isImage(ct, fname string) bool {
	return strings.HasPrefix(ct, "image/") || imageExts[filepath.Ext(fname)]
}

func isPlaintext(ct, fname string) bool {
	return strings.Contains(ct, "text/") || textExts[filepath.Ext(fname)]
}
