package server

import (
	"runtime"

	"github.com/decred/slog"
	"github.com/pbnjay/memory"
	"github.com/prometheus/procfs"
)

// diagEverySweeps spaces the health report: one line every N liveness sweeps.
const diagEverySweeps = 10

// diagnostics periodically logs process health next to the session counts:
// goroutines, resident set size and system memory headroom.
type diagnostics struct {
	log  slog.Logger
	proc procfs.Proc
	ok   bool
}

func newDiagnostics(log slog.Logger) *diagnostics {
	d := &diagnostics{log: log}
	proc, err := procfs.Self()
	if err != nil {
		// No /proc on this platform; RSS stays unreported.
		log.Debugf("procfs unavailable: %v", err)
		return d
	}
	d.proc = proc
	d.ok = true
	return d
}

// report writes one health line at debug level.
func (d *diagnostics) report(online, recoverable int) {
	var rss uint64
	if d.ok {
		if stat, err := d.proc.Stat(); err == nil {
			rss = uint64(stat.ResidentMemory())
		}
	}
	d.log.Debugf("goroutines=%d rss=%dMiB memfree=%dMiB/%dMiB online=%d recoverable=%d",
		runtime.NumGoroutine(), rss>>20,
		memory.FreeMemory()>>20, memory.TotalMemory()>>20,
		online, recoverable)
}
