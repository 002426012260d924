package cmd

import (
	"fmt"
	"io"
	"strings"

	sim "github.com/inference-sim/dispatch-sim/sim"
)

// newTextRenderer prints one status line per repaint: system time, state and
// each server's queue length and remaining work.
func newTextRenderer(w io.Writer) sim.Renderer {
	return sim.RendererFunc(func(d *sim.Dispatcher) {
		var b strings.Builder
		fmt.Fprintf(&b, "[t=%9.3f %-8s jobs=%d]", d.SystemTime(), d.State(), d.NumJobsHandled())
		for _, s := range d.Snapshots() {
			fmt.Fprintf(&b, " s%d:%dq/%.2fw", s.ID, s.QueueLength, s.RemainingWork)
		}
		fmt.Fprintln(w, b.String())
	})
}
