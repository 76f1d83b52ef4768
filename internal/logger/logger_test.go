package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoneOrdersBySeverityThenLocation(t *testing.T) {
	log := NewLog()
	log.AddWarning(&MsgLocation{File: "b.py", Line: 2}, "unused import")
	log.AddError(&MsgLocation{File: "a.py", Line: 5}, "cycle detected")
	log.AddError(&MsgLocation{File: "a.py", Line: 1}, "cannot resolve module")

	msgs := log.Done()
	require.Len(t, msgs, 3)
	require.Equal(t, Error, msgs[0].Kind)
	require.Equal(t, 1, msgs[0].Data.Location.Line)
	require.Equal(t, Error, msgs[1].Kind)
	require.Equal(t, 5, msgs[1].Data.Location.Line)
	require.Equal(t, Warning, msgs[2].Kind)
}

func TestHasErrors(t *testing.T) {
	log := NewLog()
	require.False(t, log.HasErrors())
	log.AddWarning(nil, "heads up")
	require.False(t, log.HasErrors())
	log.AddError(nil, "fatal")
	require.True(t, log.HasErrors())
}
