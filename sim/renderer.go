package sim

// Renderer is the visualization hook. Repaint is called after each job
// assignment (rate limited by Config.RepaintRate) and once after the run drains.
// Implementations may read Dispatcher and Server state but must not mutate it.
// In real-time runs Repaint is called from the alert-loop goroutine.
type Renderer interface {
	Repaint(d *Dispatcher)
}

// RendererFunc adapts a plain function to the Renderer interface.
type RendererFunc func(d *Dispatcher)

// Repaint implements Renderer.
func (f RendererFunc) Repaint(d *Dispatcher) {
	f(d)
}
