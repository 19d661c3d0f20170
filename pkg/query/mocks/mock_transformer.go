// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"sync/atomic"

	"github.com/xataio/pgbind/pkg/query"
)

type Transformer struct {
	EncodingFn     func() string
	GetDumperFn    func(i uint, value any, format query.Format) (query.Dumper, error)
	getDumperCalls uint32
}

func (m *Transformer) Encoding() string {
	if m.EncodingFn == nil {
		return query.DefaultEncoding
	}
	return m.EncodingFn()
}

func (m *Transformer) GetDumper(value any, format query.Format) (query.Dumper, error) {
	i := atomic.AddUint32(&m.getDumperCalls, 1)
	return m.GetDumperFn(uint(i), value, format)
}

func (m *Transformer) GetDumperCalls() uint {
	return uint(atomic.LoadUint32(&m.getDumperCalls))
}

type Dumper struct {
	DumpFn func(value any) ([]byte, error)
	OIDFn  func() uint32
}

func (m *Dumper) Dump(value any) ([]byte, error) {
	return m.DumpFn(value)
}

func (m *Dumper) OID() uint32 {
	return m.OIDFn()
}
