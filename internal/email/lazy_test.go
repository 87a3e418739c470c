package email

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyOpensOnce(t *testing.T) {
	calls := 0
	l := NewLazy(func() (int, error) {
		calls++
		return 42, nil
	})

	_, ok := l.Peek()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		v, err := l.Get()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	calls := 0
	l := NewLazy(func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("refused")
		}
		return "conn", nil
	})

	_, err := l.Get()
	require.Error(t, err)
	_, ok := l.Peek()
	assert.False(t, ok)

	v, err := l.Get()
	require.NoError(t, err)
	assert.Equal(t, "conn", v)
	assert.Equal(t, 2, calls)
}

func TestLazyReset(t *testing.T) {
	calls := 0
	l := NewLazy(func() (int, error) {
		calls++
		return calls, nil
	})

	v, err := l.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	old, ok := l.Reset()
	assert.True(t, ok)
	assert.Equal(t, 1, old)

	v, err = l.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
