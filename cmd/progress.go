package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/khanhnv2901/riskscan/internal/scan"
)

// progressPrinter renders scan progress events as a single updating
// terminal line. It implements scan.ProgressObserver.
type progressPrinter struct {
	mu       sync.Mutex
	percent  int
	task     string
	stopOnce sync.Once
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{}
}

func (p *progressPrinter) OnProgress(event scan.ProgressEvent) {
	p.mu.Lock()
	p.percent = event.Progress
	p.task = event.Task
	p.mu.Unlock()
	p.print(event)
}

func (p *progressPrinter) print(event scan.ProgressEvent) {
	bar := renderBar(event.Progress, 30)
	line := fmt.Sprintf("\r[%s] %3d%% (%.1fs) %s",
		bar, event.Progress, event.ElapsedTime.Seconds(), event.Task)
	if len(line) < 100 {
		line += strings.Repeat(" ", 100-len(line))
	}
	fmt.Fprint(os.Stdout, line)
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		fmt.Fprintln(os.Stdout)
	})
}

func renderBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return strings.Repeat("=", filled) + strings.Repeat(" ", width-filled)
}
