package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/searchpdf/internal/infra/fsx"
)

const (
	// ErrCodeCreated 表示配置文件不存在，已写入默认配置（提示性，不是失败）。
	ErrCodeCreated = "config_created"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultFileName     = "config.json"
	DefaultDirectory    = "Documents"
	DefaultSleepSeconds = 5
	DefaultEngine       = "gosseract"
	DefaultRenderer     = "mupdf"
	DefaultCompleteness = "count"
	DefaultDPI          = 300
	DefaultMaxImageSide = 6000
)

// defaultFileJSON 是首次运行时写入的配置内容（只包含两个基本字段，其余走内置默认）。
const defaultFileJSON = `{"directory_path":"Documents","sleep_time":5}` + "\n"

const defaultFileYAML = "directory_path: Documents\nsleep_time: 5\n"

// CLIArgs 是 CLI 暴露的入口参数。
type CLIArgs struct {
	// ConfigPath 为空时使用 <cwd>/config.json。
	ConfigPath string
}

// FileConfig 对应 config.json / config.yaml 的解析结构。
// 指针字段用于区分“未填写”与“显式写了零值”。
type FileConfig struct {
	DirectoryPath string   `json:"directory_path" yaml:"directory_path"`
	SleepTime     *float64 `json:"sleep_time" yaml:"sleep_time"`
	OCREngine     string   `json:"ocr_engine" yaml:"ocr_engine"`
	Languages     []string `json:"languages" yaml:"languages"`
	DPI           int      `json:"dpi" yaml:"dpi"`
	Renderer      string   `json:"renderer" yaml:"renderer"`
	Completeness  string   `json:"completeness" yaml:"completeness"`
	ExcludeDirs   []string `json:"exclude_dirs" yaml:"exclude_dirs"`
	TesseractPath string   `json:"tesseract_path" yaml:"tesseract_path"`
	PdftoppmPath  string   `json:"pdftoppm_path" yaml:"pdftoppm_path"`
	OCRURL        string   `json:"ocr_url" yaml:"ocr_url"`
	ItemTimeout   float64  `json:"item_timeout" yaml:"item_timeout"`
	MaxImageSide  *int     `json:"max_image_side" yaml:"max_image_side"`
	ReportFile    string   `json:"report_file" yaml:"report_file"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取（或刚写入）的配置文件绝对路径。
	ConfigPath string
	// Created 表示本次启动写入了默认配置（对应 ErrCodeCreated）。
	Created bool

	Root      string
	SleepTime time.Duration

	OCREngine string
	Languages []string
	DPI       int
	Renderer  string

	Completeness string
	ExcludeDirs  []string

	TesseractPath string
	PdftoppmPath  string
	OCRURL        string

	ItemTimeout  time.Duration
	MaxImageSide int
	ReportFile   string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeCreated:
		return fmt.Sprintf("%s：未找到配置文件，已写入默认配置 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// CreatedNotice 返回“已写入默认配置”的提示性错误；未创建时返回 nil。
func (c EffectiveConfig) CreatedNotice() error {
	if !c.Created {
		return nil
	}
	return &Error{Code: ErrCodeCreated, Path: c.ConfigPath}
}

// LoadEffective 读取配置文件（不存在则写入默认配置后继续），并规范化为最终配置。
//
// 规则（固定）：
// - 配置文件：CLI --config > <cwd>/config.json；扩展名 .yaml/.yml 按 YAML 解析，其余按 JSON
// - directory_path / report_file：相对路径以 cwd 为基准
// - exclude_dirs：相对路径以 directory_path 为基准
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	created := false
	if !exists {
		if err := writeDefault(cfgPath); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("写入默认配置失败：%w", err)}
		}
		fc = defaultFileConfig()
		created = true
	}

	eff, err := merge(cwdAbs, fc, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.Created = created
	return eff, nil
}

func defaultFileConfig() FileConfig {
	s := float64(DefaultSleepSeconds)
	return FileConfig{DirectoryPath: DefaultDirectory, SleepTime: &s}
}

func merge(cwdAbs string, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	dir := strings.TrimSpace(fc.DirectoryPath)
	if dir == "" {
		dir = DefaultDirectory
	}
	root := absCleanFrom(cwdAbs, dir)

	sleep := float64(DefaultSleepSeconds)
	if fc.SleepTime != nil {
		sleep = *fc.SleepTime
	}
	// 0 合法：轮询循环自身有最短休眠（poll.MinInterval）。
	if sleep < 0 {
		return invalid("sleep_time 不能为负数：%v", sleep)
	}

	engine := strings.ToLower(strings.TrimSpace(fc.OCREngine))
	if engine == "" {
		engine = DefaultEngine
	}
	switch engine {
	case "gosseract", "tesseract", "remote":
	default:
		return invalid("ocr_engine 只能是 gosseract、tesseract 或 remote，实际是 %q", fc.OCREngine)
	}

	langs := make([]string, 0, len(fc.Languages))
	for _, l := range fc.Languages {
		l = strings.TrimSpace(l)
		if l == "" || strings.ContainsAny(l, " +") {
			return invalid("languages 含有无效项：%q", l)
		}
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}

	dpi := fc.DPI
	if dpi == 0 {
		dpi = DefaultDPI
	}
	if dpi < 72 || dpi > 1200 {
		return invalid("dpi 超出范围 [72, 1200]：%d", dpi)
	}

	renderer := strings.ToLower(strings.TrimSpace(fc.Renderer))
	if renderer == "" {
		renderer = DefaultRenderer
	}
	if renderer != "mupdf" && renderer != "pdftoppm" {
		return invalid("renderer 只能是 mupdf 或 pdftoppm，实际是 %q", fc.Renderer)
	}

	completeness := strings.ToLower(strings.TrimSpace(fc.Completeness))
	if completeness == "" {
		completeness = DefaultCompleteness
	}
	if completeness != "count" && completeness != "names" {
		return invalid("completeness 只能是 count 或 names，实际是 %q", fc.Completeness)
	}

	ocrURL := strings.TrimSpace(fc.OCRURL)
	if engine == "remote" {
		u, err := url.Parse(ocrURL)
		if ocrURL == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return invalid("ocr_engine=remote 需要有效的 http/https ocr_url，实际是 %q", ocrURL)
		}
	}

	if fc.ItemTimeout < 0 {
		return invalid("item_timeout 不能为负数：%v", fc.ItemTimeout)
	}

	maxSide := DefaultMaxImageSide
	if fc.MaxImageSide != nil {
		maxSide = *fc.MaxImageSide
	}
	if maxSide < 0 {
		return invalid("max_image_side 不能为负数：%d", maxSide)
	}

	excludes := make([]string, 0, len(fc.ExcludeDirs))
	for _, d := range fc.ExcludeDirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		excludes = append(excludes, absCleanFrom(root, d))
	}

	reportFile := ""
	if strings.TrimSpace(fc.ReportFile) != "" {
		reportFile = absCleanFrom(cwdAbs, fc.ReportFile)
	}

	return EffectiveConfig{
		ConfigPath:    cfgPath,
		Root:          root,
		SleepTime:     seconds(sleep),
		OCREngine:     engine,
		Languages:     langs,
		DPI:           dpi,
		Renderer:      renderer,
		Completeness:  completeness,
		ExcludeDirs:   excludes,
		TesseractPath: orDefault(fc.TesseractPath, "tesseract"),
		PdftoppmPath:  orDefault(fc.PdftoppmPath, "pdftoppm"),
		OCRURL:        ocrURL,
		ItemTimeout:   seconds(fc.ItemTimeout),
		MaxImageSide:  maxSide,
		ReportFile:    reportFile,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// readFileConfig 读取并解析配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if isYAML(path) {
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, true, err
		}
		return fc, true, nil
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

func writeDefault(path string) error {
	data := defaultFileJSON
	if isYAML(path) {
		data = defaultFileYAML
	}
	err := fsx.WriteFileAtomicNoOverwrite(filepath.Dir(path), filepath.Base(path), []byte(data))
	if errors.Is(err, os.ErrExist) {
		// 并发启动的另一个进程刚写入：直接使用它。
		return nil
	}
	return err
}
