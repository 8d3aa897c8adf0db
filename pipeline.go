package impact

import "sync"

// task splits data in contiguous chunks, one per worker, and waits for all of
// them. fn must only touch its own element.
func task[T any](workersCount int, data []T, fn func(data T)) {
	workersCount = max(DEFAULT_WORKERS, workersCount)
	if workersCount == 1 || len(data) <= 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	dataSize := len(data)
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, dataSize)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(start, end)
	}
	wg.Wait()
}
