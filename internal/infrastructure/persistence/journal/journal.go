// Package journal buffers writes made inside a transaction for backends
// that commit a batch at once rather than through a native transaction handle.
package journal

import "context"

type contextKey struct{}

// Write is one buffered Put
type Write struct {
	Dict  string
	Key   string
	Value []byte
}

// Journal records Puts in order. Later writes to the same key replace earlier ones.
type Journal struct {
	writes []Write
	index  map[string]int
}

// New returns an empty journal
func New() *Journal {
	return &Journal{index: make(map[string]int)}
}

// With attaches the journal to ctx
func With(ctx context.Context, j *Journal) context.Context {
	return context.WithValue(ctx, contextKey{}, j)
}

// From returns the journal carried by ctx, or nil outside a transaction
func From(ctx context.Context) *Journal {
	j, _ := ctx.Value(contextKey{}).(*Journal)
	return j
}

func slot(dict, key string) string {
	return dict + "\x00" + key
}

// Put buffers a copy of value
func (j *Journal) Put(dict, key string, value []byte) {
	v := append([]byte{}, value...)
	s := slot(dict, key)
	if i, ok := j.index[s]; ok {
		j.writes[i].Value = v
		return
	}
	j.index[s] = len(j.writes)
	j.writes = append(j.writes, Write{Dict: dict, Key: key, Value: v})
}

// Lookup returns a copy of the buffered value, if any
func (j *Journal) Lookup(dict, key string) ([]byte, bool) {
	i, ok := j.index[slot(dict, key)]
	if !ok {
		return nil, false
	}
	return append([]byte{}, j.writes[i].Value...), true
}

// Writes returns the buffered writes in first-write order
func (j *Journal) Writes() []Write {
	return j.writes
}

// Len is the number of distinct keys written
func (j *Journal) Len() int {
	return len(j.writes)
}
