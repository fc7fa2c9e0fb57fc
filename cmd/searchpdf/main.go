package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/abiiranathan/goflag"

	"github.com/John-Robertt/searchpdf/internal/adapter"
	"github.com/John-Robertt/searchpdf/internal/app/poll"
	"github.com/John-Robertt/searchpdf/internal/app/run"
	"github.com/John-Robertt/searchpdf/internal/config"
	"github.com/John-Robertt/searchpdf/internal/domain"
	"github.com/John-Robertt/searchpdf/internal/infra/fsx"
	"github.com/John-Robertt/searchpdf/internal/infra/httpx"
	"github.com/John-Robertt/searchpdf/internal/infra/pdfx"
	"github.com/John-Robertt/searchpdf/internal/ocr"
	"github.com/John-Robertt/searchpdf/internal/ocr/remote"
	"github.com/John-Robertt/searchpdf/internal/ocr/tess"
	"github.com/John-Robertt/searchpdf/internal/ocr/tesscli"
	"github.com/John-Robertt/searchpdf/internal/render"
	"github.com/John-Robertt/searchpdf/internal/render/mupdf"
	"github.com/John-Robertt/searchpdf/internal/render/pdftoppm"
)

type cliArgs struct {
	ConfigPath string
}

func main() {
	args := &cliArgs{}
	exitCode := 0

	ctx := defineFlags(args,
		func() { exitCode = runCmd(args) },
		func() { exitCode = onceCmd(args) },
	)
	subcmd, err := ctx.Parse(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		ctx.PrintUsage(os.Stderr)
		os.Exit(2)
	}
	if subcmd == nil {
		ctx.PrintUsage(os.Stdout)
		os.Exit(1)
	}

	subcmd.Handler()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func defineFlags(args *cliArgs, runHandler, onceHandler func()) *goflag.Context {
	configFlag := goflag.Flag{
		FlagType:  goflag.FlagString,
		Name:      "config",
		ShortName: "c",
		Value:     &args.ConfigPath,
		Usage:     "配置文件路径（默认 ./config.json；.yaml/.yml 按 YAML 解析）",
		Required:  false,
	}

	ctx := goflag.NewContext()
	ctx.AddSubCommand("run", "持续轮询目录并转换（Ctrl-C 等当前文件完成后退出，再按一次立即终止）", runHandler).
		AddFlagPtr(&configFlag)
	ctx.AddSubCommand("once", "只执行一轮，报告以 JSON 输出到 stdout（Ctrl-C 行为同 run）", onceHandler).
		AddFlagPtr(&configFlag)
	return ctx
}

func runCmd(args *cliArgs) int {
	logger := newLogger(os.Stderr)

	eff, ok := loadConfig(logger, args.ConfigPath)
	if !ok {
		return 1
	}
	orch, err := buildOrchestrator(eff, newLogObserver(logger))
	if err != nil {
		logger.Error("初始化失败", "error", err)
		return 1
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()
	context.AfterFunc(ctx, func() {
		logger.Info("收到停止信号，当前文件完成后退出（再次发送信号立即终止）")
	})

	logger.Info("开始轮询",
		"root", eff.Root,
		"interval", eff.SleepTime,
		"engine", eff.OCREngine,
		"renderer", eff.Renderer,
		"completeness", eff.Completeness,
	)
	loop := &poll.Loop{
		Interval: eff.SleepTime,
		Pass: func(ctx context.Context) (domain.PassReport, error) {
			return orch.Execute(ctx), nil
		},
		OnPass: func(rep domain.PassReport, err error) {
			if err != nil {
				logAborted(logger, err)
			}
			if eff.ReportFile != "" {
				if werr := writeReportFile(eff.ReportFile, rep); werr != nil {
					logger.Error("写入报告失败", "path", eff.ReportFile, "error", werr)
				}
			}
		},
	}
	if err := loop.Run(ctx); err != nil {
		logger.Error("轮询异常结束", "error", err)
		return 1
	}
	logger.Info("已停止")
	return 0
}

func onceCmd(args *cliArgs) int {
	logger := newLogger(os.Stderr)

	eff, ok := loadConfig(logger, args.ConfigPath)
	if !ok {
		return 1
	}
	orch, err := buildOrchestrator(eff, newLogObserver(logger))
	if err != nil {
		logger.Error("初始化失败", "error", err)
		return 1
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	loop := &poll.Loop{
		Pass: func(ctx context.Context) (domain.PassReport, error) {
			return orch.Execute(ctx), nil
		},
	}
	rep, err := loop.RunOnce(ctx)
	if err != nil {
		logAborted(logger, err)
	}
	if eff.ReportFile != "" {
		if werr := writeReportFile(eff.ReportFile, rep); werr != nil {
			logger.Error("写入报告失败", "path", eff.ReportFile, "error", werr)
			err = errors.Join(err, werr)
		}
	}

	// stdout 只输出一个 PassReport JSON；日志全部走 stderr。
	if eerr := emitReport(os.Stdout, rep); eerr != nil {
		logger.Error("输出报告失败", "error", eerr)
		return 1
	}
	return exitCodeFor(rep, err)
}

// notifyContext 在第一次 SIGINT/SIGTERM 时取消 ctx，随后恢复信号的默认处理：
// 当前条目卡死时，再发一次信号即可直接终止进程。
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// loadConfig 读取配置；config_created 只记录提示，config_invalid 让进程以 1 退出。
func loadConfig(logger *slog.Logger, configPath string) (config.EffectiveConfig, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		logger.Error("读取当前目录失败", "error", err)
		return config.EffectiveConfig{}, false
	}
	eff, err := config.LoadEffective(cwd, config.CLIArgs{ConfigPath: configPath})
	if err != nil {
		logger.Error("配置无效", "code", config.Code(err), "error", err)
		return config.EffectiveConfig{}, false
	}
	if notice := eff.CreatedNotice(); notice != nil {
		logger.Info("已写入默认配置", "code", config.Code(notice), "path", eff.ConfigPath)
	}
	return eff, true
}

// buildOrchestrator 按配置选择 OCR 引擎与渲染器，并组装成一轮的执行者。
func buildOrchestrator(eff config.EffectiveConfig, obs run.Observer) (*run.Orchestrator, error) {
	p, err := newPipeline(eff)
	if err != nil {
		return nil, err
	}
	return run.New(eff, p, pdfx.Merger{}, obs)
}

func newPipeline(eff config.EffectiveConfig) (adapter.Pipeline, error) {
	opts := ocr.Options{Languages: eff.Languages, DPI: eff.DPI}

	engines, err := ocr.NewRegistry(
		tess.New(opts),
		tesscli.New(eff.TesseractPath, opts),
		remote.New(eff.OCRURL, httpx.NewOCRClient(0), opts),
	)
	if err != nil {
		return adapter.Pipeline{}, fmt.Errorf("初始化 OCR 引擎失败：%w", err)
	}
	renderers, err := render.NewRegistry(
		mupdf.New(eff.DPI),
		pdftoppm.New(eff.PdftoppmPath, eff.DPI),
	)
	if err != nil {
		return adapter.Pipeline{}, fmt.Errorf("初始化渲染器失败：%w", err)
	}

	engine, ok := engines.Get(eff.OCREngine)
	if !ok {
		return adapter.Pipeline{}, fmt.Errorf("未知 OCR 引擎 %q（可选：%v）", eff.OCREngine, engines.Names())
	}
	renderer, ok := renderers.Get(eff.Renderer)
	if !ok {
		return adapter.Pipeline{}, fmt.Errorf("未知渲染器 %q（可选：%v）", eff.Renderer, renderers.Names())
	}
	return adapter.Pipeline{
		Engine:       engine,
		Renderer:     renderer,
		MaxImageSide: eff.MaxImageSide,
	}, nil
}

func logAborted(logger *slog.Logger, err error) {
	var ue *poll.UnexpectedError
	if errors.As(err, &ue) && len(ue.Stack) > 0 {
		logger.Error("本轮中止", "error", ue.Err, "stack", string(ue.Stack))
		return
	}
	logger.Error("本轮中止", "error", err)
}

func emitReport(w io.Writer, rep domain.PassReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeReportFile(path string, rep domain.PassReport) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func exitCodeFor(rep domain.PassReport, err error) int {
	if err != nil || rep.Aborted || rep.Summary.Failed > 0 {
		return 1
	}
	return 0
}
