package step

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialStopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	record := func(name string, err error) Step {
		return Step{Name: name, Run: func() error {
			ran = append(ran, name)
			return err
		}}
	}

	err := Sequential{}.Run(Op{Name: "update"},
		record("append", nil),
		record("flag", boom),
		record("delete", nil),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to flag: boom", err.Error())
	assert.Equal(t, []string{"append", "flag"}, ran)
}

func TestSequentialRunsAll(t *testing.T) {
	count := 0
	s := Step{Name: "noop", Run: func() error { count++; return nil }}

	require.NoError(t, Sequential{}.Run(Op{Name: "x"}, s, s, s))
	assert.Equal(t, 3, count)
}
