package utils

import (
	"sync"
)

// ParallelTask is a unit of work whose failure must not affect its siblings.
type ParallelTask func() error

// RunParallelTasks executes every task concurrently and waits for all of them.
// errs[i] holds the outcome of tasks[i].
func RunParallelTasks(tasks []ParallelTask) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t ParallelTask) {
			defer wg.Done()
			errs[index] = t()
		}(i, task)
	}

	wg.Wait()
	return errs
}

// CountFailures returns how many entries of errs are non-nil.
func CountFailures(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
