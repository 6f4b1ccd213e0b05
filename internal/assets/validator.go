package assets

import (
	"strconv"
	"time"
)

// Validator 以毫秒精度的修改时间生成带引号的 ETag，例如 "1718000000123"。
// 文件未变化时结果稳定，任何修改都会改变它。
func Validator(modTime time.Time) string {
	return `"` + strconv.FormatInt(modTime.UnixMilli(), 10) + `"`
}
