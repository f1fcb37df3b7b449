package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"rcsbsync/internal/fetchpool"
)

// progressRenderer drives one terminal progress bar per download
// batch. Batches are detected by the completed counter restarting at
// one. The pool serializes progress callbacks, so no locking is needed
// here.
type progressRenderer struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressRenderer(out io.Writer) *progressRenderer {
	return &progressRenderer{out: out}
}

// Update implements fetchpool.ProgressFunc.
func (r *progressRenderer) Update(p fetchpool.Progress) {
	if p.Total <= 0 {
		return
	}
	if r.bar == nil || p.Completed == 1 {
		r.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = r.bar.Set(p.Completed)
	if p.Completed >= p.Total {
		_ = r.bar.Finish()
		r.bar = nil
	}
}
