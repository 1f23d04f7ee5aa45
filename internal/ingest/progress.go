package ingest

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// progress counts finished chunks across workers. Counters are updated after
// each chunk's file is published, with no ordering against other chunks, so
// the numbers are for humans only.
type progress struct {
	total     int
	startTime time.Time
	done      atomic.Int64
	accepted  atomic.Int64
	discarded atomic.Int64
}

func newProgress(total int) *progress {
	return &progress{total: total, startTime: time.Now()}
}

func (p *progress) add(res Result) {
	p.accepted.Add(int64(res.Stats.Accepted))
	p.discarded.Add(int64(res.Stats.Discarded))
	p.done.Add(1)
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.startTime)
}

// report logs progress every interval until the returned stop func is called.
func (p *progress) report(log zerolog.Logger, every time.Duration) (stop func()) {
	ticker := time.NewTicker(every)
	quit := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				accepted := p.accepted.Load()
				log.Info().
					Int64("chunks", p.done.Load()).
					Int("of", p.total).
					Int64("games", accepted).
					Int64("discarded", p.discarded.Load()).
					Float64("games_per_sec", float64(accepted)/p.elapsed().Seconds()).
					Msg("chunk progress")
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(quit)
		<-finished
	}
}
