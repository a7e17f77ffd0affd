package shellmux

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	closed bool
	err    error
}

func (f *fakeCloser) Close() error {
	f.closed = true

	return f.err
}

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := NewRegistry[*fakeCloser]("widget")

	item := &fakeCloser{}
	r.Insert("a", item)

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, item, got)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"a"}, r.IDs())

	r.Remove("a")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry[*fakeCloser]("widget")

	_, err := r.Get("nope")
	require.Error(t, err)

	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "widget", nfErr.Kind)
	assert.Equal(t, "nope", nfErr.ID)
}

func TestRegistry_ShutdownClosesAllAndAggregatesErrors(t *testing.T) {
	r := NewRegistry[*fakeCloser]("widget")

	ok1 := &fakeCloser{}
	ok2 := &fakeCloser{}
	bad := &fakeCloser{err: errors.New("boom")}

	r.Insert("1", ok1)
	r.Insert("2", ok2)
	r.Insert("3", bad)

	err := r.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.True(t, ok1.closed)
	assert.True(t, ok2.closed)
	assert.True(t, bad.closed)
	assert.Equal(t, 0, r.Len())
}
