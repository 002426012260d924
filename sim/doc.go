// Package sim provides the core discrete-event job-dispatch simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - job.go: Job record (arrival, processing, remaining work, dispatch target)
//   - server.go: FIFO server, fast-forward AdvanceTo and the real-time serving goroutine
//   - dispatcher.go: the Dispatcher, its Idle → Draining → Drained lifecycle and both run modes
//
// # Time
//
// Servers and the Dispatcher read time through the Clock interface:
//   - LogicalClock: fast-forward; time jumps between arrivals and updates are pushed synchronously
//   - TimeCheck: real-time; wall-clock backed, pushes elapsed time to subscribed servers on an
//     adaptive tick and fires job-arrival alerts in due order
//
// # Key Interfaces
//
// The extension points are single-method interfaces:
//   - DispatchPolicy: pick a server for a job (Random, RoundRobin, ShortestQueue, LeastWork)
//   - Renderer: repaint hook invoked after assignments and after drain
//   - Subscriber / Alertable: Clock callbacks implemented by Server and Dispatcher
//
// Sub-packages:
//   - sim/workload/: job-file parsing and synthetic workload generation
//   - sim/trace/: dispatch decision trace recording
package sim
