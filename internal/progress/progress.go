// Package progress shows how many files of a run have finished.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Indicator tracks finished files
type Indicator interface {
	// Done marks one file as finished
	Done(ok bool)
	Describe(message string)
	Finish()
	Failed() int
}

// FileBar wraps schollz/progressbar with a per-file count
type FileBar struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	desc   string
	failed int
}

// NewFileBar creates a bar of total files writing to w (stderr when nil)
func NewFileBar(w io.Writer, total int, description string) *FileBar {
	if w == nil {
		w = os.Stderr
	}
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(!color.NoColor),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[cyan]█[reset]",
			SaucerHead:    "[cyan]▌[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &FileBar{bar: bar, desc: description}
}

// Done advances the bar by one file
func (f *FileBar) Done(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !ok {
		f.failed++
		f.bar.Describe(f.desc + " " + color.RedString("(%d failed)", f.failed))
	}
	_ = f.bar.Add(1)
}

// Describe replaces the bar description
func (f *FileBar) Describe(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.desc = message
	f.bar.Describe(message)
}

// Finish completes and clears the bar
func (f *FileBar) Finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.bar.Finish()
}

// Failed returns how many files were marked as failed
func (f *FileBar) Failed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

// Count returns the number of files marked done
func (f *FileBar) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int(f.bar.State().CurrentNum)
}

// NullIndicator counts failures but draws nothing
type NullIndicator struct {
	mu     sync.Mutex
	failed int
}

// NewNullIndicator creates an indicator that produces no output
func NewNullIndicator() *NullIndicator {
	return &NullIndicator{}
}

func (n *NullIndicator) Done(ok bool) {
	if ok {
		return
	}
	n.mu.Lock()
	n.failed++
	n.mu.Unlock()
}

func (n *NullIndicator) Describe(string) {}
func (n *NullIndicator) Finish()         {}

func (n *NullIndicator) Failed() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failed
}

// NewIndicator returns a FileBar when enabled, otherwise a NullIndicator
func NewIndicator(enabled bool, w io.Writer, total int, description string) Indicator {
	if !enabled || total <= 0 {
		return NewNullIndicator()
	}
	return NewFileBar(w, total, description)
}
