package report

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackNesting(t *testing.T) {
	s := NewStack()
	s.Run("outer", func() error {
		s.Record(StatusPass, "Expected 1 to equal 1")
		s.Run("inner", func() error {
			s.Record(StatusFail, "Expected 1 to equal 2")
			return nil
		})
		return nil
	})

	root := s.Root()
	assert.Equal(t, 1, s.Depth())
	require.Len(t, root.Children, 1)
	outer := root.Children[0]
	assert.Equal(t, "outer", outer.Descriptor)
	assert.Len(t, outer.ExpectResults, 1)
	require.Len(t, outer.Children, 1)
	assert.Equal(t, "inner", outer.Children[0].Descriptor)

	pass, fail, errs := root.Counts()
	assert.Equal(t, [3]int{1, 1, 0}, [3]int{pass, fail, errs})
	assert.False(t, root.Passed())
}

func TestRunRecordsErrors(t *testing.T) {
	s := NewStack()
	s.Run("broken", func() error {
		s.Record(StatusPass, "first")
		return errors.New("boom")
	})

	node := s.Root().Children[0]
	assert.Equal(t, []ExpectResult{
		{Status: StatusPass, Message: "first"},
		{Status: StatusError, Message: "boom"},
	}, node.ExpectResults)
}

func TestRootIsNeverPopped(t *testing.T) {
	s := NewStack()
	assert.Nil(t, s.Pop())
	assert.Equal(t, 1, s.Depth())
}

func TestReplaceLast(t *testing.T) {
	s := NewStack()
	s.ReplaceLast(StatusFail, "only")
	s.Record(StatusPass, "a")
	s.ReplaceLast(StatusFail, "b")
	assert.Equal(t, []ExpectResult{
		{Status: StatusFail, Message: "only"},
		{Status: StatusFail, Message: "b"},
	}, s.Root().ExpectResults)
}

func TestEmptyTreeJSON(t *testing.T) {
	data, err := json.Marshal(NewStack().Root())
	require.NoError(t, err)
	assert.JSONEq(t, `{"descriptor":"root","expectResults":[],"children":[]}`, string(data))
}
