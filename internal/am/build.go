package am

import (
	"errors"
	"io"
	"log"
	"sort"
	"time"

	"toydb/internal/pf"
)

// BuildMethod selects how BuildIndexFromExistingFile turns its sorted pairs
// into a tree.
type BuildMethod int

const (
	// MethodBulk hands the sorted pairs to the bottom-up bulk loader.
	MethodBulk BuildMethod = iota
	// MethodSortedInsert replays the sorted pairs through InsertEntry.
	MethodSortedInsert
)

// Logger receives non-fatal build diagnostics. The default discards them.
type Logger interface {
	Printf(format string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

var _ Logger = (*log.Logger)(nil)

// BuildIndexIncremental creates the index and feeds it one InsertEntry per
// source pair, in source order. Insert failures are non-fatal: they are
// counted, reported to logger, and the build continues, so one bad record
// cannot abort a long load.
func BuildIndexIncremental(pool *pf.Pool, src PairSource, attrType AttrType, attrLength int, baseName string, indexNo int, logger Logger) (BuildStats, error) {
	if logger == nil {
		logger = discardLogger{}
	}
	if err := CreateIndex(pool, baseName, indexNo, attrType, attrLength); err != nil {
		return BuildStats{}, err
	}
	idx, err := OpenIndex(pool, baseName, indexNo, attrType, attrLength)
	if err != nil {
		return BuildStats{}, err
	}

	pool.ResetStats()
	start := time.Now()

	skipped := 0
	for {
		pair, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			idx.Close()
			return BuildStats{}, err
		}
		if err := idx.InsertEntry(pair.Key, pair.RecID); err != nil {
			skipped++
			logger.Printf("am: skipping recid %d: %v", pair.RecID, err)
		}
	}

	// Close inside the timed region so the final flush is part of the
	// measured cost, as with the other methods.
	closeErr := idx.Close()
	stats := captureStats(pool, time.Since(start))
	stats.SkippedInserts = skipped
	return stats, closeErr
}

// BuildIndexFromExistingFile drains the source into memory, sorts the pairs,
// and builds the index with the chosen method.
func BuildIndexFromExistingFile(pool *pf.Pool, src PairSource, attrType AttrType, attrLength int, baseName string, indexNo int, method BuildMethod) (BuildStats, error) {
	keys := make([][]byte, 0, 1024)
	recIDs := make([]int32, 0, 1024)
	for {
		pair, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return BuildStats{}, err
		}
		keys = append(keys, pair.Key)
		recIDs = append(recIDs, pair.RecID)
	}

	// Indirect sort through an order array; the comparator closes over the
	// keys, and the stable sort keeps equal keys in scan order.
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return Compare(keys[order[i]], attrType, attrLength, keys[order[j]]) < 0
	})
	sortedKeys := make([][]byte, len(keys))
	sortedRecIDs := make([]int32, len(recIDs))
	for i, o := range order {
		sortedKeys[i] = keys[o]
		sortedRecIDs[i] = recIDs[o]
	}

	switch method {
	case MethodBulk:
		pool.ResetStats()
		start := time.Now()
		if err := BulkLoadFromSortedPairs(pool, baseName, indexNo, attrType, attrLength, sortedKeys, sortedRecIDs); err != nil {
			return BuildStats{}, err
		}
		return captureStats(pool, time.Since(start)), nil

	case MethodSortedInsert:
		if err := CreateIndex(pool, baseName, indexNo, attrType, attrLength); err != nil {
			return BuildStats{}, err
		}
		idx, err := OpenIndex(pool, baseName, indexNo, attrType, attrLength)
		if err != nil {
			return BuildStats{}, err
		}
		pool.ResetStats()
		start := time.Now()
		for i := range sortedKeys {
			if err := idx.InsertEntry(sortedKeys[i], sortedRecIDs[i]); err != nil {
				idx.Close()
				return BuildStats{}, err
			}
		}
		closeErr := idx.Close()
		return captureStats(pool, time.Since(start)), closeErr
	}

	return BuildStats{}, errors.New("am: unknown build method")
}
