//go:build unix

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

const signalHelperEnv = "SEARCHPDF_SIGNAL_HELPER"

// 子进程入口：收到第一次信号后模拟一个卡死的条目。
func TestNotifyContext_HelperProcess(t *testing.T) {
	if os.Getenv(signalHelperEnv) != "1" {
		return
	}
	ctx, stop := notifyContext(context.Background())
	defer stop()

	_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
	<-ctx.Done()
	fmt.Println("cancelled")

	// 不响应 ctx 的阻塞调用。
	time.Sleep(time.Minute)
	os.Exit(0)
}

func TestNotifyContext_SecondSignalTerminates(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^TestNotifyContext_HelperProcess$")
	cmd.Env = append(os.Environ(), signalHelperEnv+"=1")
	out, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("StdoutPipe 失败：%v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("启动子进程失败：%v", err)
	}

	ready := make(chan bool, 1)
	go func() {
		sc := bufio.NewScanner(out)
		for sc.Scan() {
			if sc.Text() == "cancelled" {
				ready <- true
				return
			}
		}
		ready <- false
	}()
	select {
	case ok := <-ready:
		if !ok {
			_ = cmd.Process.Kill()
			t.Fatalf("子进程没有在第一次信号后取消 ctx")
		}
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatalf("等待第一次信号处理超时")
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// 恢复默认处理是异步的：重复发送，直到进程退出。
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case err := <-done:
			var ee *exec.ExitError
			if !errors.As(err, &ee) {
				t.Fatalf("子进程应被信号终止，实际：%v", err)
			}
			return
		case <-tick.C:
		case <-deadline:
			_ = cmd.Process.Kill()
			t.Fatalf("第二次信号后进程仍未退出")
		}
	}
}
