package domain

// FileSet 是某个目录在一次扫描中的分类快照（只由文件名推导，不读内容，不持久化）。
//
// 约束：
// - PDFs = Searchable ∪ NonSearchable，且两者不相交
// - 同一个名字不会同时出现在 Images 与 PDFs 中
// - 每次访问目录都重新构造；跨轮次没有任何记忆
type FileSet struct {
	Images        []string
	PDFs          []string
	Searchable    []string
	NonSearchable []string

	// Stale 是上次写入中断遗留的临时文件（.<name>.tmp-*），不参与完成度判定。
	Stale []string
}

// Items 返回待转换条目数（图片 + 非 searchable PDF）。
func (s FileSet) Items() int { return len(s.Images) + len(s.NonSearchable) }
