package assets

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultContentType 在扩展名无法识别时使用。
const DefaultContentType = "application/octet-stream"

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
}

// ContentType 依次查询固定图片映射表、系统 MIME 表，最后退回 octet-stream。
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := imageContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
