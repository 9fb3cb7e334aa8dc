package engine

import (
	"sync"
	"time"

	"github.com/dataveil/dataveil/database"
)

const progressInterval = 2 * time.Second

// progressMeter prints a throttled per-table progress line with rows/sec
// and an ETA estimate.
type progressMeter struct {
	mu        sync.Mutex
	table     string
	logger    database.Logger
	total     int64
	done      int64
	started   time.Time
	lastPrint time.Time
}

func newProgressMeter(table string, logger database.Logger) *progressMeter {
	return &progressMeter{
		table:   table,
		logger:  logger,
		started: time.Now(),
	}
}

func (p *progressMeter) setTotal(total int64) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
}

func (p *progressMeter) advance(rows int64) {
	p.mu.Lock()
	p.done += rows
	p.mu.Unlock()
}

func (p *progressMeter) maybeReport() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.lastPrint) < progressInterval {
		return
	}
	p.lastPrint = time.Now()
	p.print()
}

func (p *progressMeter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.print()
}

func (p *progressMeter) print() {
	elapsed := time.Since(p.started).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	rate := float64(p.done) / elapsed
	eta := "done"
	if remaining := p.total - p.done; remaining > 0 && rate > 0 {
		eta = (time.Duration(float64(remaining)/rate) * time.Second).Truncate(time.Second).String()
	}
	p.logger.Printf("%s: %d/%d rows (%.0f rows/sec, ETA %s)\n", p.table, p.done, p.total, rate, eta)
}
