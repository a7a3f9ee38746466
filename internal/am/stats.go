package am

import (
	"time"

	"toydb/internal/pf"
)

// BuildStats is what the benchmark harness reads after a timed build: wall
// time plus the pool's I/O counters over the timed region.
type BuildStats struct {
	TimeMS         float64
	LogicalReads   int
	PhysicalReads  int
	LogicalWrites  int
	PhysicalWrites int
	PagesAccessed  int

	// SkippedInserts counts non-fatal insert failures during an incremental
	// build.
	SkippedInserts int
}

func captureStats(pool *pf.Pool, elapsed time.Duration) BuildStats {
	s := pool.Stats()
	return BuildStats{
		TimeMS:         float64(elapsed.Nanoseconds()) / 1e6,
		LogicalReads:   s.LogicalReads,
		PhysicalReads:  s.PhysicalReads,
		LogicalWrites:  s.LogicalWrites,
		PhysicalWrites: s.PhysicalWrites,
		PagesAccessed:  s.PhysicalReads + s.PhysicalWrites,
	}
}
