package vm

import (
	"slices"
	"sync"

	"k8s.io/klog/v2"
)

// This file holds the process-wide registries of stream types and instruction types.
//
// Registration happens in init() functions; the registries are frozen when the first VirtualMachine is built,
// and read-only from there on.

// InstructionScope is the scope of effect of a registered instruction type.
type InstructionScope int

const (
	// ClusterScope instructions apply to all machines.
	ClusterScope InstructionScope = iota

	// LocalScope instructions apply to the invoking machine only.
	LocalScope
)

// String implements fmt.Stringer.
func (s InstructionScope) String() string {
	if s == LocalScope {
		return "local"
	}
	return "cluster"
}

// InstrTypeID identifies a registered instruction type.
type InstrTypeID struct {
	name      string
	scope     InstructionScope
	instrType InstructionType
}

// Name under which the instruction type was registered.
func (id *InstrTypeID) Name() string { return id.name }

// Scope of the registration.
func (id *InstrTypeID) Scope() InstructionScope { return id.scope }

// InstructionType registered.
func (id *InstrTypeID) InstructionType() InstructionType { return id.instrType }

// StreamTypeID returns the lanes that run messages of this instruction type tagged with the given interpret type.
func (id *InstrTypeID) StreamTypeID(interpret InterpretType) StreamTypeID {
	st := id.instrType.StreamType()
	if interpret == Infer {
		return LookupInferStreamTypeID(st)
	}
	return StreamTypeID{StreamType: st, Interpret: Compute}
}

var (
	// muRegistry protects all the registry maps below.
	muRegistry sync.Mutex

	streamTypes      = make(map[string]StreamType)
	streamTypeNames  = make(map[StreamType]string)
	inferStreamTypes = make(map[StreamType]StreamType)
	instrTypeIDs     = make(map[string]*InstrTypeID)
	registryFrozen   bool
)

func checkNotFrozen(what string) {
	if registryFrozen {
		fatalf(Registration, "%s after a VirtualMachine was created: registries are read-only during execution", what)
	}
}

// RegisterStreamType registers a stream type under the given name, together with its infer variant
// (named "infer:<name>"). It must be called at startup, typically from init().
func RegisterStreamType(name string, st StreamType) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if st == nil {
		fatalf(Registration, "RegisterStreamType(%q) with nil stream type", name)
	}
	checkStatusQuerier(name, st.StatusQuerier())
	checkNotFrozen("RegisterStreamType(" + name + ")")
	if _, found := streamTypes[name]; found {
		fatalf(Registration, "stream type %q registered twice", name)
	}
	if otherName, found := streamTypeNames[st]; found {
		fatalf(Registration, "stream type %q already registered as %q", name, otherName)
	}
	infer := &inferStreamType{base: st}
	inferName := "infer:" + name
	streamTypes[name] = st
	streamTypeNames[st] = name
	streamTypes[inferName] = infer
	streamTypeNames[infer] = inferName
	inferStreamTypes[st] = infer
	klog.V(2).Infof("registered stream type %q", name)
}

// RegisterInstructionType registers an instruction type whose effect applies to all machines.
func RegisterInstructionType(name string, instrType InstructionType) {
	registerInstructionType(name, ClusterScope, instrType)
}

// RegisterLocalInstructionType registers an instruction type whose effect applies to the invoking machine only.
// The semantics are otherwise identical to RegisterInstructionType.
func RegisterLocalInstructionType(name string, instrType InstructionType) {
	registerInstructionType(name, LocalScope, instrType)
}

func registerInstructionType(name string, scope InstructionScope, instrType InstructionType) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	checkNotFrozen("RegisterInstructionType(" + name + ")")
	if instrType == nil || instrType.StreamType() == nil {
		fatalf(Registration, "instruction type %q registered with no stream type", name)
	}
	if _, found := instrTypeIDs[name]; found {
		fatalf(Registration, "instruction type %q registered twice", name)
	}
	instrTypeIDs[name] = &InstrTypeID{name: name, scope: scope, instrType: instrType}
	klog.V(2).Infof("registered %s instruction type %q", scope, name)
}

// freezeRegistries validates the registries and makes them read-only.
// Instruction types bound to stream types that were never registered abort with Registration.
func freezeRegistries() {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if registryFrozen {
		return
	}
	for name, id := range instrTypeIDs {
		if _, found := streamTypeNames[id.instrType.StreamType()]; !found {
			fatalf(Registration, "instruction type %q is bound to a stream type that was not registered", name)
		}
	}
	for name, st := range streamTypes {
		checkStatusQuerier(name, st.StatusQuerier())
	}
	registryFrozen = true
}

// LookupInstrTypeID returns the registered instruction type for name. It aborts with UnknownInstructionType if
// no such instruction type was registered.
func LookupInstrTypeID(name string) *InstrTypeID {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	id, found := instrTypeIDs[name]
	if !found {
		fatalf(UnknownInstructionType, "instruction type %q not registered", name)
	}
	return id
}

// LookupStreamType returns the stream type registered under name.
func LookupStreamType(name string) (StreamType, bool) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	st, found := streamTypes[name]
	return st, found
}

// LookupInferStreamTypeID returns the infer lanes of the registered stream type st.
// It aborts with UnknownStreamType if st was not registered.
func LookupInferStreamTypeID(st StreamType) StreamTypeID {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if _, isInfer := st.(*inferStreamType); isInfer {
		return StreamTypeID{StreamType: st, Interpret: Infer}
	}
	infer, found := inferStreamTypes[st]
	if !found {
		fatalf(UnknownStreamType, "stream type %T not registered", st)
	}
	return StreamTypeID{StreamType: infer, Interpret: Infer}
}

// StreamTypeName returns the name st was registered with, or "<unregistered>".
func StreamTypeName(st StreamType) string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if name, found := streamTypeNames[st]; found {
		return name
	}
	return "<unregistered>"
}

// RegisteredStreamTypeNames returns the names of all stream types registered (including infer variants), sorted.
func RegisteredStreamTypeNames() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	names := keys(streamTypes)
	slices.Sort(names)
	return names
}

// RegisteredInstructionTypeNames returns the names of all instruction types registered, sorted.
func RegisteredInstructionTypeNames() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	names := keys(instrTypeIDs)
	slices.Sort(names)
	return names
}
