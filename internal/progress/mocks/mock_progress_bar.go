// SPDX-License-Identifier: Apache-2.0

package mocks

import "sync/atomic"

type Bar struct {
	AddFn   func(int) error
	CloseFn func() error
	added   int64
}

func (b *Bar) Add(n int) error {
	atomic.AddInt64(&b.added, int64(n))
	if b.AddFn != nil {
		return b.AddFn(n)
	}
	return nil
}

func (b *Bar) Close() error {
	if b.CloseFn != nil {
		return b.CloseFn()
	}
	return nil
}

func (b *Bar) Added() int {
	return int(atomic.LoadInt64(&b.added))
}
