// Package report prints build progress for humans.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Reporter receives progress events from the build phases. Implementations
// must be safe for concurrent use: compiles report from worker goroutines.
type Reporter interface {
	// Step reports one finished action, e.g. ("Compilation of", "src/a.cpp").
	// When err is non-nil, output is the tool's diagnostics and is printed
	// directly under the status line.
	Step(action, subject string, err error, output []byte)
	// Info prints a neutral message.
	Info(format string, args ...any)
	// Banner prints a highlighted final verdict.
	Banner(ok bool, msg string)
}

// Printer is the terminal Reporter.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	blue  *color.Color
	green *color.Color
	red   *color.Color
}

// New creates a Printer writing to out. Colors are forced off when
// colorize is false and left to terminal detection otherwise.
func New(out io.Writer, colorize bool) *Printer {
	p := &Printer{
		out:   out,
		blue:  color.New(color.FgBlue),
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed),
	}
	if !colorize {
		for _, c := range []*color.Color{p.blue, p.green, p.red} {
			c.DisableColor()
		}
	}
	return p
}

// Step prints "* <action> <subject>\t [ OK ]" or "[ ERROR ]" followed by
// the failing tool's output. Both go out under one lock so concurrent
// steps never interleave with another step's diagnostics.
func (p *Printer) Step(action, subject string, err error, output []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := p.green.Sprint("OK")
	if err != nil {
		status = p.red.Sprint("ERROR")
	}
	fmt.Fprintf(p.out, "%s %s %s\t [ %s ]\n", p.blue.Sprint("*"), action, subject, status)
	if err == nil || len(output) == 0 {
		return
	}
	p.out.Write(output)
	if output[len(output)-1] != '\n' {
		fmt.Fprintln(p.out)
	}
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Banner prints msg in green or red.
func (p *Printer) Banner(ok bool, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.red
	if ok {
		c = p.green
	}
	fmt.Fprintln(p.out, c.Sprint(msg))
}

// Discard is a Reporter that prints nothing.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Step(string, string, error, []byte) {}
func (discard) Info(string, ...any)               {}
func (discard) Banner(bool, string)               {}

// FailureStreak phrases a build failure the way the banner reports it:
// the first failure is plain, repeats point at the previous ones.
func FailureStreak(fails int) string {
	switch {
	case fails <= 1:
		return "Build failed"
	case fails == 2:
		return "Build failed just like the previous one"
	default:
		return fmt.Sprintf("Build failed just like %d previous builds", fails-1)
	}
}
