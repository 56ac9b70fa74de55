package vm

// InterpretType tags an instruction message with the phase it must run: Infer or Compute.
type InterpretType int

//go:generate go tool enumer -type=InterpretType interpret.go

const (
	InvalidInterpretType InterpretType = iota

	// Infer resolves the symbolic/metadata effects of an instruction, at schedule time, never touching
	// device-resident data.
	Infer

	// Compute performs the actual effect of an instruction.
	Compute
)

// checkInterpretType aborts if msg is not tagged with the phase being run.
func checkInterpretType(msg *InstructionMsg, phase InterpretType) {
	if msg.interpretType != phase {
		fatalf(InterpretTypeMismatch, "instruction %q tagged %s dispatched to its %s phase",
			msg.instrTypeID.Name(), msg.interpretType, phase)
	}
}
