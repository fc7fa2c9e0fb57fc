package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadEffective_CreatesDefaultConfig(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := os.ReadFile(filepath.Join(cwd, "config.json"))
	if err != nil {
		t.Fatalf("应写入默认配置：%v", err)
	}
	if string(b) != `{"directory_path":"Documents","sleep_time":5}`+"\n" {
		t.Fatalf("默认配置内容不符合预期：%q", string(b))
	}
	if !eff.Created || Code(eff.CreatedNotice()) != ErrCodeCreated {
		t.Fatalf("期望标记为 %q，实际 Created=%v", ErrCodeCreated, eff.Created)
	}
	if eff.Root != filepath.Join(cwd, "Documents") {
		t.Fatalf("Root 不符合预期：%q", eff.Root)
	}
	if eff.SleepTime != 5*time.Second {
		t.Fatalf("SleepTime 不符合预期：%v", eff.SleepTime)
	}

	// 第二次启动直接读取，不再标记 created。
	eff2, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff2.Created || eff2.CreatedNotice() != nil {
		t.Fatalf("已存在的配置不应标记为 created")
	}
}

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "config.json"), []byte(`{"directory_path":"scans"}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := EffectiveConfig{
		ConfigPath:    filepath.Join(cwd, "config.json"),
		Root:          filepath.Join(cwd, "scans"),
		SleepTime:     5 * time.Second,
		OCREngine:     "gosseract",
		Languages:     []string{"eng"},
		DPI:           300,
		Renderer:      "mupdf",
		Completeness:  "count",
		ExcludeDirs:   []string{},
		TesseractPath: "tesseract",
		PdftoppmPath:  "pdftoppm",
		MaxImageSide:  6000,
	}
	if !reflect.DeepEqual(eff, want) {
		t.Fatalf("默认值不符合预期：\n got=%+v\nwant=%+v", eff, want)
	}
}

func TestLoadEffective_AllFieldsJSON(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "config.json"), []byte(`{
  "directory_path": "/data/inbox",
  "sleep_time": 0.5,
  "ocr_engine": "Remote",
  "languages": ["eng", " deu "],
  "dpi": 200,
  "renderer": "pdftoppm",
  "completeness": "names",
  "exclude_dirs": ["archive", "/abs/skip", ""],
  "tesseract_path": "/opt/tess",
  "pdftoppm_path": "/opt/pdftoppm",
  "ocr_url": "http://127.0.0.1:8884/ocr",
  "item_timeout": 90,
  "max_image_side": 0,
  "report_file": "last.json"
}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Root != "/data/inbox" || eff.SleepTime != 500*time.Millisecond {
		t.Fatalf("Root/SleepTime 不符合预期：%q %v", eff.Root, eff.SleepTime)
	}
	if eff.OCREngine != "remote" || eff.OCRURL != "http://127.0.0.1:8884/ocr" {
		t.Fatalf("引擎配置不符合预期：%q %q", eff.OCREngine, eff.OCRURL)
	}
	if !reflect.DeepEqual(eff.Languages, []string{"eng", "deu"}) {
		t.Fatalf("languages 不符合预期：%v", eff.Languages)
	}
	if !reflect.DeepEqual(eff.ExcludeDirs, []string{"/data/inbox/archive", "/abs/skip"}) {
		t.Fatalf("exclude_dirs 不符合预期：%v", eff.ExcludeDirs)
	}
	if eff.ItemTimeout != 90*time.Second || eff.MaxImageSide != 0 {
		t.Fatalf("item_timeout/max_image_side 不符合预期：%v %d", eff.ItemTimeout, eff.MaxImageSide)
	}
	if eff.ReportFile != filepath.Join(cwd, "last.json") {
		t.Fatalf("report_file 不符合预期：%q", eff.ReportFile)
	}
	if eff.DPI != 200 || eff.Renderer != "pdftoppm" || eff.Completeness != "names" {
		t.Fatalf("dpi/renderer/completeness 不符合预期：%+v", eff)
	}
	if eff.TesseractPath != "/opt/tess" || eff.PdftoppmPath != "/opt/pdftoppm" {
		t.Fatalf("可执行文件路径不符合预期：%+v", eff)
	}
}

func TestLoadEffective_YAMLViaCLIPath(t *testing.T) {
	cwd := t.TempDir()
	p := filepath.Join(cwd, "conf", "searchpdf.yaml")
	writeFile(t, p, []byte("directory_path: inbox\nsleep_time: 2\nlanguages: [chi_sim]\n"))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: "conf/searchpdf.yaml"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != p || eff.Root != filepath.Join(cwd, "inbox") {
		t.Fatalf("路径不符合预期：%q %q", eff.ConfigPath, eff.Root)
	}
	if eff.SleepTime != 2*time.Second || !reflect.DeepEqual(eff.Languages, []string{"chi_sim"}) {
		t.Fatalf("字段不符合预期：%+v", eff)
	}
}

func TestLoadEffective_CreatesDefaultYAML(t *testing.T) {
	cwd := t.TempDir()
	p := filepath.Join(cwd, "searchpdf.yml")

	if _, err := LoadEffective(cwd, CLIArgs{ConfigPath: p}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("应写入默认配置：%v", err)
	}
	if string(b) != "directory_path: Documents\nsleep_time: 5\n" {
		t.Fatalf("默认 YAML 内容不符合预期：%q", string(b))
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad json":       `{`,
		"negative sleep": `{"sleep_time": -1}`,
		"unknown engine": `{"ocr_engine": "easyocr"}`,
		"remote no url":  `{"ocr_engine": "remote"}`,
		"remote bad url": `{"ocr_engine": "remote", "ocr_url": "ftp://x"}`,
		"dpi too small":  `{"dpi": 10}`,
		"bad renderer":   `{"renderer": "ghostscript"}`,
		"bad strategy":   `{"completeness": "hash"}`,
		"bad language":   `{"languages": ["eng+deu"]}`,
		"negative side":  `{"max_image_side": -1}`,
		"neg timeout":    `{"item_timeout": -3}`,
		"wrong type":     `{"sleep_time": "5"}`,
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, "config.json"), []byte(body))
		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestCode_NonConfigError(t *testing.T) {
	if Code(os.ErrNotExist) != "" {
		t.Fatalf("非 *Error 应返回空串")
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
