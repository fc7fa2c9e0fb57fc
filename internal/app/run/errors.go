package run

import (
	"errors"
	"fmt"

	"github.com/John-Robertt/searchpdf/internal/domain"
	"github.com/John-Robertt/searchpdf/internal/infra/fsx"
)

// Stage 标记条目转换失败发生在哪一步。
type Stage string

const (
	StageOpen     Stage = "open"
	StageRender   Stage = "render"
	StageOCR      Stage = "ocr"
	StageAssemble Stage = "assemble"
	StageWrite    Stage = "write"
)

// ItemConversionError 是单个条目转换失败的可追溯错误。
// 上层据此生成 error_code；该条目在下一轮会被重新尝试。
type ItemConversionError struct {
	Dir   string
	Item  string
	Stage Stage
	Err   error
}

func (e *ItemConversionError) Error() string {
	if e == nil {
		return "item conversion error"
	}
	return fmt.Sprintf("转换失败（%s）：%s：%v", e.Stage, e.Item, e.Err)
}

func (e *ItemConversionError) Unwrap() error { return e.Err }

// Code 把错误映射为稳定的 error_code。
func Code(err error) string {
	if err == nil {
		return ""
	}
	if fsx.IsPathTypeConflict(err) {
		return domain.ErrCodeTargetConflict
	}
	// 临时文件与目标同目录，EXDEV 只会出现在写入阶段（例如目录本身是挂载点）。
	if fsx.IsCrossDevice(err) {
		return domain.ErrCodeWriteFailed
	}
	var ie *ItemConversionError
	if errors.As(err, &ie) {
		switch ie.Stage {
		case StageOpen:
			return domain.ErrCodeOpenFailed
		case StageRender:
			return domain.ErrCodeRenderFailed
		case StageOCR:
			return domain.ErrCodeOCRFailed
		case StageAssemble:
			return domain.ErrCodeAssembleFailed
		case StageWrite:
			return domain.ErrCodeWriteFailed
		}
	}
	return domain.ErrCodeUnexpected
}
