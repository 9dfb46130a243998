package eventconsumers

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
)

// LatencyProfiler accumulates handling latencies and logs a summary every
// flushEvery observations.
type LatencyProfiler struct {
	name       string
	flushEvery int

	mu      sync.Mutex
	samples []float64
}

func NewLatencyProfiler(name string, flushEvery int) *LatencyProfiler {
	return &LatencyProfiler{
		name:       name,
		flushEvery: flushEvery,
	}
}

func (p *LatencyProfiler) Observe(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples = append(p.samples, float64(elapsed.Microseconds())/1000.0)
	if len(p.samples) < p.flushEvery {
		return
	}

	mean, _ := stats.Mean(p.samples)
	median, _ := stats.Median(p.samples)
	p95, _ := stats.Percentile(p.samples, 95)
	max, _ := stats.Max(p.samples)

	log.Infof("%s latency over %d alerts: mean=%.1fms median=%.1fms p95=%.1fms max=%.1fms",
		p.name, len(p.samples), mean, median, p95, max)

	p.samples = p.samples[:0]
}
