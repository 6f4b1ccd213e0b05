package cache

import "time"

// FileMeta 是一次 stat 调用保留下来的文件信息。
type FileMeta struct {
	Size    int64
	ModTime time.Time
}

// ModTimeMillis 返回毫秒精度的修改时间。
func (m FileMeta) ModTimeMillis() int64 {
	return m.ModTime.UnixMilli()
}

// ExistenceEntry 记录某个绝对路径是否为可读的普通文件。
// Meta 仅在 stat 成功时存在；目录等非普通文件 Exists 为 false 但仍带 Meta。
type ExistenceEntry struct {
	Exists     bool
	Meta       *FileMeta
	RecordedAt time.Time
}

// ContentEntry 保存小文件的完整内容。Data 写入后即视为只读，调用方不得修改。
type ContentEntry struct {
	Data        []byte
	ContentType string
	Validator   string
	RecordedAt  time.Time
}
