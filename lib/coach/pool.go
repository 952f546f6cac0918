// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import "golang.org/x/sync/errgroup"

// workerPool runs analyses off the capture goroutine with a fixed
// concurrency bound. Submissions beyond the bound are refused, never
// queued.
type workerPool struct {
	group errgroup.Group
}

func newWorkerPool(limit int) *workerPool {
	pool := &workerPool{}
	pool.group.SetLimit(max(limit, 1))
	return pool
}

// tryGo starts task if a slot is free.
func (pool *workerPool) tryGo(task func()) bool {
	return pool.group.TryGo(func() error {
		task()
		return nil
	})
}

// wait blocks until every started task has returned.
func (pool *workerPool) wait() {
	_ = pool.group.Wait()
}
