package main

import (
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/aria-lang/metaclassify-go/internal/progress"
)

var barNames = map[progress.Phase]string{
	progress.PhaseIndexing:    "indexed references: ",
	progress.PhaseClassifying: "classified reads: ",
}

// showProgress draws one bar per long phase from events until the returned
// stop function is called. Stop completes any unfinished bar, since events
// may be dropped, and waits for rendering to end.
func showProgress(events <-chan progress.Event) (stop func()) {
	if quiet {
		return func() {}
	}

	pbs := mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	bars := make(map[progress.Phase]*mpb.Bar)
	done := make(chan struct{})
	finished := make(chan struct{})

	newBar := func(phase progress.Phase, total int) *mpb.Bar {
		name := barNames[phase]
		return pbs.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len(name), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.AverageETA(decor.ET_STYLE_GO),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
	}

	go func() {
		defer close(finished)
		for {
			select {
			case ev := <-events:
				if _, ok := barNames[ev.Phase]; !ok || ev.Total <= 0 {
					continue
				}
				bar, ok := bars[ev.Phase]
				if !ok {
					bar = newBar(ev.Phase, ev.Total)
					bars[ev.Phase] = bar
				}
				bar.SetCurrent(int64(ev.Processed))
			case <-done:
				for _, bar := range bars {
					if !bar.Completed() {
						bar.SetTotal(-1, true)
					}
				}
				return
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		pbs.Wait()
	}
}
