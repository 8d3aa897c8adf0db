package impact

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 200} {
		data := make([]int, 100)
		for i := range data {
			data[i] = i
		}

		var sum atomic.Int64
		var calls atomic.Int64
		task(workers, data, func(v int) {
			sum.Add(int64(v))
			calls.Add(1)
		})

		assert.Equal(t, int64(4950), sum.Load(), "workers=%d", workers)
		assert.Equal(t, int64(100), calls.Load(), "workers=%d", workers)
	}
}

func TestTask_Empty(t *testing.T) {
	called := false
	task(4, []int{}, func(int) { called = true })
	assert.False(t, called)
}
