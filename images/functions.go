package images

import (
	"cmp"
	"runtime"
	"sync"
)

// Clamp restricts a value to the range [min, max].
//
// Arguments:
//   - value: The value to clamp.
//   - min: The minimum allowed value.
//   - max: The maximum allowed value.
//
// Returns:
//   - The clamped value.
func Clamp[T cmp.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Parallel executes a function in parallel across one goroutine per CPU core.
//
// Arguments:
//   - dataSize: The size of the data to process.
//   - fn: Function to execute for each partition (receives start and end indices).
//
// Example:
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	ParallelN(dataSize, runtime.NumCPU(), fn)
}

// ParallelN executes fn over contiguous partitions of [0, dataSize) using at most workers
// goroutines and returns once every partition is done.
//
// Arguments:
//   - dataSize: The size of the data to process.
//   - workers: Upper bound on goroutines; values below 2 run serially.
//   - fn: Function to execute for each partition.
func ParallelN(dataSize, workers int, fn func(partStart, partEnd int)) {
	ForEachPartition(Partitions(dataSize, workers), func(_, start, end int) {
		fn(start, end)
	})
}

// Partitions splits [0, dataSize) into at most workers contiguous, ascending [start, end) pairs.
//
// Small inputs are not worth the goroutine overhead and come back as a single partition.
//
// Arguments:
//   - dataSize: The size of the data to process.
//   - workers: Upper bound on partitions.
//
// Returns:
//   - [][2]int: Ordered [start, end) pairs, nil when dataSize <= 0.
func Partitions(dataSize, workers int) [][2]int {
	if dataSize <= 0 {
		return nil
	}
	if workers < 2 || dataSize < workers*2 {
		return [][2]int{{0, dataSize}}
	}

	partSize := dataSize / workers
	parts := make([][2]int, workers)
	for i := range parts {
		parts[i] = [2]int{i * partSize, (i + 1) * partSize}
	}
	// Last partition gets any remaining data.
	parts[workers-1][1] = dataSize

	return parts
}

// ForEachPartition runs fn once per partition, each in its own goroutine, and waits for all of
// them. The partition index lets callers write into per-partition slots and merge them in order,
// which gives the same result as a serial run.
//
// Arguments:
//   - parts: Partitions as returned by Partitions.
//   - fn: Function receiving the partition index and its [start, end) bounds.
func ForEachPartition(parts [][2]int, fn func(part, partStart, partEnd int)) {
	if len(parts) == 1 {
		fn(0, parts[0][0], parts[0][1])
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(parts))

	for i, p := range parts {
		go func(part, start, end int) {
			defer wg.Done()
			fn(part, start, end)
		}(i, p[0], p[1])
	}

	wg.Wait()
}
