package vm

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestOperandPattern(t *testing.T) {
	pattern := NewOperandPattern("test").
		MutObjects(1, "y").
		ConstObjects(2, "x").
		Double(3, "alpha").
		Int64s(4, "shape").
		Int64(5, "axis")
	operand := NewOperand().
		Int64s(1, 10, 11).
		Int64s(2, -20).
		Double(3, 0.25).
		Int64s(4, 2, 3).
		Int64(5, -1).
		Done()
	view, err := pattern.Match(operand)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11}, view.MutObjectIDs())
	require.Equal(t, []int64{-20}, view.ConstObjectIDs())
	require.Equal(t, 0.25, view.Double(3))
	require.Equal(t, []int64{2, 3}, view.Int64s(4))
	require.Equal(t, int64(-1), view.Int64(5))
	require.Len(t, pattern.Fields(), 5)

	// Repeated fields are optional.
	view, err = pattern.Match(NewOperand().Double(3, 1).Int64(5, 0).Done())
	require.NoError(t, err)
	require.Empty(t, view.MutObjectIDs())

	// Missing scalar.
	_, err = pattern.Match(NewOperand().Double(3, 1).Done())
	require.ErrorContains(t, err, "axis")

	// Undeclared field.
	_, err = pattern.Match(NewOperand().Double(3, 1).Int64(5, 0).Int64(6, 0).Done())
	require.Error(t, err)

	// Wrong wire type.
	_, err = pattern.Match(NewOperand().Int64(3, 1).Int64(5, 0).Done())
	require.Error(t, err)

	// Truncated.
	truncated := protowire.AppendTag(nil, 1, protowire.BytesType)
	truncated = protowire.AppendVarint(truncated, 10)
	_, err = pattern.Match(Operand(truncated))
	require.Error(t, err)

	requireViolation(t, OperandMismatch, func() { pattern.MustMatch(Operand(truncated)) })
}

func TestOperandPatternDeclaration(t *testing.T) {
	err := exceptions.TryCatch[error](func() { NewOperandPattern("test").Int64(0, "zero") })
	require.ErrorContains(t, err, "invalid field number")
	err = exceptions.TryCatch[error](func() { NewOperandPattern("test").Int64(1, "a").Double(1, "b") })
	require.ErrorContains(t, err, "used twice")
	require.Nil(t, exceptions.Try(func() { NewOperandPattern("test").Int64(1, "a").Double(2, "b") }))
}

func TestOperandMismatchIsFatal(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	machine.Receive(NewInstructionMsg(NewConstHostSymbol, Compute, NewOperand().Double(1, 1).Done()))
	requireViolation(t, OperandMismatch, machine.Schedule)
	require.Zero(t, machine.NumLogicalObjects())
}
