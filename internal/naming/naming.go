// Package naming 集中管理文件名约定：哪些名字算图片/PDF，以及输出文件名如何推导。
//
// 源条目与输出之间没有清单或索引：唯一的关联就是这里的字符串变换。
package naming

import (
	"strings"
)

// SearchableSuffix 是输出文件名的固定后缀。
const SearchableSuffix = "_searchable.pdf"

// reservedImageSuffix 是派生产物的保留模式，永远不当作源图片。
const reservedImageSuffix = ".pdf.png"

// 后缀匹配区分大小写（与约定的字面规则保持一致）。
var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// IsImage 判断 name 是否为待转换的源图片。
func IsImage(name string) bool {
	if strings.HasSuffix(name, reservedImageSuffix) {
		return false
	}
	for _, ext := range imageExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IsPDF 判断 name 是否以 .pdf 结尾（包括 searchable 输出）。
func IsPDF(name string) bool { return strings.HasSuffix(name, ".pdf") }

// IsSearchable 判断 name 是否为已转换的输出。
func IsSearchable(name string) bool { return strings.HasSuffix(name, SearchableSuffix) }

// Base 去掉最后一个扩展名：a.tar.png -> a.tar；没有 '.' 时原样返回。
func Base(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name
	}
	return name[:i]
}

// SearchableName 返回条目对应的输出文件名：<base>_searchable.pdf。
func SearchableName(name string) string { return Base(name) + SearchableSuffix }

// tempMarker 分隔临时文件名中的目标名与随机后缀。
const tempMarker = ".tmp-"

// IsTemp 判断 name 是否为本程序写入输出时留下的临时文件：
// "." + <base>_searchable.pdf + ".tmp-" + 数字。
//
// 只认这一种形状；用户自己的 .x.tmp-1.png 之类仍按后缀规则分类。
func IsTemp(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	i := strings.LastIndex(name, tempMarker)
	if i < 0 {
		return false
	}
	target, rand := name[1:i], name[i+len(tempMarker):]
	return IsSearchable(target) && isDigits(rand)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
