package domain

// ItemKind 区分条目来源。
type ItemKind string

const (
	KindImage ItemKind = "image"
	KindPDF   ItemKind = "pdf"
)

// PlanState 是规划阶段对条目的判定。
type PlanState string

const (
	// PlanPending 表示需要转换。
	PlanPending PlanState = "pending"
	// PlanDone 表示目标文件已在本轮快照中存在。
	PlanDone PlanState = "done"
	// PlanCollision 表示同一轮中更早的条目已占用同一目标名（例如 a.png 与 a.pdf）。
	PlanCollision PlanState = "collision"
)

// ItemPlan 描述一个条目的转换计划（只描述 src/target；真正写入由 run 负责）。
type ItemPlan struct {
	Dir    string
	Kind   ItemKind
	Source string // 目录内文件名
	Target string // <base>_searchable.pdf
	State  PlanState
}
