// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"fmt"

	synclib "github.com/xataio/pgbind/internal/sync"
)

// Mapper resolves type names for OIDs, looking up the ones unknown to the
// transformer type map in the pg_type catalog.
type Mapper struct {
	querier      Querier
	transformer  *Transformer
	customOIDMap *synclib.Map[uint32, string]
}

const typeNameQuery = "SELECT typname FROM pg_type WHERE oid = %s::oid"

// NewMapper returns a mapper using the querier for the catalog lookups. The
// querier can be nil, in which case only the builtin types are resolved.
func NewMapper(querier Querier, transformer *Transformer) *Mapper {
	return &Mapper{
		querier:      querier,
		transformer:  transformer,
		customOIDMap: synclib.NewMap[uint32, string](),
	}
}

func (m *Mapper) TypeForOID(ctx context.Context, oid uint32) (string, error) {
	if name, found := m.transformer.TypeName(oid); found {
		return name, nil
	}
	return m.queryType(ctx, oid)
}

func (m *Mapper) queryType(ctx context.Context, oid uint32) (string, error) {
	if customType, found := m.customOIDMap.Get(oid); found {
		return customType, nil
	}

	if m.querier == nil {
		return "unknown", nil
	}

	res, err := m.querier.Query(ctx, typeNameQuery, []any{int64(oid)})
	if err != nil {
		return "unknown", fmt.Errorf("selecting type for OID %d: %w", oid, err)
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		return "unknown", fmt.Errorf("selecting type for OID %d: %w", oid, ErrNoRows)
	}

	dataType, ok := res.Rows[0][0].(string)
	if !ok {
		return "unknown", fmt.Errorf("selecting type for OID %d: unexpected value %T", oid, res.Rows[0][0])
	}

	m.customOIDMap.Set(oid, dataType)
	return dataType, nil
}
