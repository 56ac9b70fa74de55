package vm

import (
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ViolationKind classifies the invariants whose violation aborts the virtual machine.
type ViolationKind int

//go:generate go tool enumer -type=ViolationKind errors.go

const (
	UnknownViolation ViolationKind = iota

	// DuplicateLogicalObject is raised when a logical object id is inserted twice in the VM table.
	DuplicateLogicalObject

	// DuplicateMirroredObject is raised when a logical object gets two mirrored objects for the same device.
	DuplicateMirroredObject

	MissingLogicalObject
	MissingMirroredObject

	// UnimplementedPhase is raised when an instruction type or stream type is asked to run a phase it doesn't
	// implement.
	UnimplementedPhase

	// InterpretTypeMismatch is raised when the interpret type of a message doesn't match the phase executing it.
	InterpretTypeMismatch

	// StatusBufferUndersized is raised when a status record doesn't fit InstructionStatusBufferBytes.
	StatusBufferUndersized

	UnknownInstructionType
	UnknownStreamType
	UnknownDevice

	// OperandMismatch is raised when an operand doesn't match the pattern declared by its instruction type.
	OperandMismatch

	// Precondition is raised for data preconditions checked before use (element counts, dtypes, etc.).
	Precondition

	// Registration is raised for invalid stream type or instruction type registration.
	Registration
)

// InvariantViolation is the value the virtual machine panics with when one of its invariants is violated.
//
// These are programming or configuration errors: the virtual machine doesn't recover from them, and the
// panic is expected to terminate the process. It can be recovered with errors.As for diagnostics (and tests).
type InvariantViolation struct {
	Kind ViolationKind
	Err  error
}

// Error implements error.
func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("virtual machine invariant violated (%s): %v", v.Kind, v.Err)
}

// Unwrap returns the underlying error, with its stack trace.
func (v *InvariantViolation) Unwrap() error {
	return v.Err
}

// fatalf logs the violation and panics with an *InvariantViolation.
func fatalf(kind ViolationKind, format string, args ...any) {
	v := &InvariantViolation{Kind: kind, Err: errors.Errorf(format, args...)}
	klog.ErrorDepth(1, v.Error())
	panic(v)
}

// AsInvariantViolation converts a recovered panic value to an *InvariantViolation.
// It returns false if r is not one.
func AsInvariantViolation(r any) (*InvariantViolation, bool) {
	err, ok := r.(error)
	if !ok {
		return nil, false
	}
	var v *InvariantViolation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
