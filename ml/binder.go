package ml

import (
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// columnBinder maps a model's feature list onto the column positions of a
// frame. Frames built from similar records share a column layout, so the
// lookup is cached per layout.
type columnBinder struct {
	features []string
	cache    *lru.Cache[string, []int]
}

func newColumnBinder(features []string, size int) (*columnBinder, error) {
	cache, err := lru.New[string, []int](size)
	if err != nil {
		return nil, err
	}
	return &columnBinder{
		features: append([]string(nil), features...),
		cache:    cache,
	}, nil
}

func (b *columnBinder) bind(columns []string) ([]int, error) {
	key := layoutKey(columns)
	if positions, ok := b.cache.Get(key); ok {
		return positions, nil
	}

	index := make(map[string]int, len(columns))
	for i, column := range columns {
		if _, seen := index[column]; !seen {
			index[column] = i
		}
	}
	positions := make([]int, len(b.features))
	for i, feature := range b.features {
		pos, ok := index[feature]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, feature)
		}
		positions[i] = pos
	}

	b.cache.Add(key, positions)
	return positions, nil
}

// layoutKey encodes a column list so that distinct lists never share a key,
// whatever characters the names contain.
func layoutKey(columns []string) string {
	var key strings.Builder
	for _, column := range columns {
		key.WriteString(strconv.Quote(column))
	}
	return key.String()
}

func (b *columnBinder) cached() int {
	return b.cache.Len()
}
