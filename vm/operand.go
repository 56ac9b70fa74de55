package vm

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Operand is the flat operand buffer of an instruction message, encoded in protobuf wire format.
//
// It is immutable once built: instruction types read it through an OperandView returned by their
// OperandPattern.
type Operand []byte

// OperandBuilder builds an Operand. Fields can be appended in any order; appending to the same repeated field
// more than once concatenates the values.
type OperandBuilder struct {
	buf []byte
}

// NewOperand returns a builder for a new Operand.
func NewOperand() *OperandBuilder {
	return &OperandBuilder{}
}

// Int64s appends a repeated int64 field, packed.
func (b *OperandBuilder) Int64s(field protowire.Number, values ...int64) *OperandBuilder {
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(v))
	}
	b.buf = protowire.AppendTag(b.buf, field, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, packed)
	return b
}

// Int64 appends a scalar int64 field.
func (b *OperandBuilder) Int64(field protowire.Number, value int64) *OperandBuilder {
	b.buf = protowire.AppendTag(b.buf, field, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, protowire.EncodeZigZag(value))
	return b
}

// Double appends a scalar float64 field.
func (b *OperandBuilder) Double(field protowire.Number, value float64) *OperandBuilder {
	b.buf = protowire.AppendTag(b.buf, field, protowire.Fixed64Type)
	b.buf = protowire.AppendFixed64(b.buf, math.Float64bits(value))
	return b
}

// Done returns the Operand built.
func (b *OperandBuilder) Done() Operand {
	return Operand(b.buf)
}

// OperandFieldKind is the kind of value held by an operand field.
type OperandFieldKind int

const (
	// Int64sField is a repeated int64 (packed).
	Int64sField OperandFieldKind = iota

	// Int64Field is a required scalar int64.
	Int64Field

	// DoubleField is a required scalar float64.
	DoubleField

	// MutObjectsField is a repeated list of logical object ids the instruction mutates.
	MutObjectsField

	// ConstObjectsField is a repeated list of logical object ids the instruction only reads.
	ConstObjectsField
)

func (k OperandFieldKind) wireType() protowire.Type {
	switch k {
	case Int64Field:
		return protowire.VarintType
	case DoubleField:
		return protowire.Fixed64Type
	default:
		return protowire.BytesType
	}
}

func (k OperandFieldKind) repeated() bool {
	return k == Int64sField || k == MutObjectsField || k == ConstObjectsField
}

// OperandField describes one field of an OperandPattern.
type OperandField struct {
	Number protowire.Number
	Name   string
	Kind   OperandFieldKind
}

// OperandPattern declares the fields of the operand of an instruction type.
type OperandPattern struct {
	name     string
	fields   []OperandField
	byNumber map[protowire.Number]int
}

// NewOperandPattern creates an empty pattern: fields are added with the builder methods.
func NewOperandPattern(name string) *OperandPattern {
	return &OperandPattern{name: name, byNumber: make(map[protowire.Number]int)}
}

func (p *OperandPattern) add(field protowire.Number, name string, kind OperandFieldKind) *OperandPattern {
	if !field.IsValid() {
		exceptions.Panicf("OperandPattern %q: invalid field number %d for %q", p.name, field, name)
	}
	if _, found := p.byNumber[field]; found {
		exceptions.Panicf("OperandPattern %q: field number %d used twice", p.name, field)
	}
	p.byNumber[field] = len(p.fields)
	p.fields = append(p.fields, OperandField{Number: field, Name: name, Kind: kind})
	return p
}

// Int64s declares a repeated int64 field.
func (p *OperandPattern) Int64s(field protowire.Number, name string) *OperandPattern {
	return p.add(field, name, Int64sField)
}

// Int64 declares a required int64 field.
func (p *OperandPattern) Int64(field protowire.Number, name string) *OperandPattern {
	return p.add(field, name, Int64Field)
}

// Double declares a required float64 field.
func (p *OperandPattern) Double(field protowire.Number, name string) *OperandPattern {
	return p.add(field, name, DoubleField)
}

// MutObjects declares a field with the ids of logical objects mutated by the instruction.
func (p *OperandPattern) MutObjects(field protowire.Number, name string) *OperandPattern {
	return p.add(field, name, MutObjectsField)
}

// ConstObjects declares a field with the ids of logical objects read by the instruction.
func (p *OperandPattern) ConstObjects(field protowire.Number, name string) *OperandPattern {
	return p.add(field, name, ConstObjectsField)
}

// Name of the pattern.
func (p *OperandPattern) Name() string { return p.name }

// Fields returns the fields declared, in declaration order. Don't change the returned slice.
func (p *OperandPattern) Fields() []OperandField { return p.fields }

// String implements fmt.Stringer.
func (p *OperandPattern) String() string {
	parts := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		prefix := ""
		if f.Kind.repeated() {
			prefix = "repeated "
		}
		parts = append(parts, fmt.Sprintf("%s%s=%d", prefix, f.Name, f.Number))
	}
	return fmt.Sprintf("%s{%s}", p.name, strings.Join(parts, ", "))
}

// OperandView is a typed read-only projection of an Operand, returned by OperandPattern.Match.
type OperandView struct {
	pattern *OperandPattern
	lists   map[protowire.Number][]int64
	scalars map[protowire.Number]int64
	doubles map[protowire.Number]float64
}

// Match parses operand against the pattern. It returns an error if operand has fields not declared,
// fields with the wrong wire type, is malformed, or is missing a required scalar field.
func (p *OperandPattern) Match(operand Operand) (*OperandView, error) {
	view := &OperandView{
		pattern: p,
		lists:   make(map[protowire.Number][]int64),
		scalars: make(map[protowire.Number]int64),
		doubles: make(map[protowire.Number]float64),
	}
	b := []byte(operand)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrapf(protowire.ParseError(n), "operand of %s", p.name)
		}
		b = b[n:]
		idx, found := p.byNumber[num]
		if !found {
			return nil, errors.Errorf("operand of %s has undeclared field %d", p.name, num)
		}
		field := p.fields[idx]
		if typ != field.Kind.wireType() {
			return nil, errors.Errorf("operand of %s: field %q has wire type %d, wanted %d", p.name, field.Name, typ, field.Kind.wireType())
		}
		switch typ {
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrapf(protowire.ParseError(n), "operand of %s, field %q", p.name, field.Name)
			}
			b = b[n:]
			list := view.lists[num]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return nil, errors.Wrapf(protowire.ParseError(m), "operand of %s, field %q", p.name, field.Name)
				}
				packed = packed[m:]
				list = append(list, protowire.DecodeZigZag(v))
			}
			view.lists[num] = list
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrapf(protowire.ParseError(n), "operand of %s, field %q", p.name, field.Name)
			}
			b = b[n:]
			view.scalars[num] = protowire.DecodeZigZag(v)
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, errors.Wrapf(protowire.ParseError(n), "operand of %s, field %q", p.name, field.Name)
			}
			b = b[n:]
			view.doubles[num] = math.Float64frombits(v)
		}
	}
	for _, field := range p.fields {
		switch field.Kind {
		case Int64Field:
			if _, found := view.scalars[field.Number]; !found {
				return nil, errors.Errorf("operand of %s is missing field %q", p.name, field.Name)
			}
		case DoubleField:
			if _, found := view.doubles[field.Number]; !found {
				return nil, errors.Errorf("operand of %s is missing field %q", p.name, field.Name)
			}
		}
	}
	return view, nil
}

// MustMatch is like Match, but aborts the virtual machine (OperandMismatch) if the operand doesn't match.
func (p *OperandPattern) MustMatch(operand Operand) *OperandView {
	view, err := p.Match(operand)
	if err != nil {
		fatalf(OperandMismatch, "%v", err)
	}
	return view
}

// Int64s returns the values of a repeated field (of any of the repeated kinds). Don't change the returned slice.
func (v *OperandView) Int64s(field protowire.Number) []int64 {
	return v.lists[field]
}

// Int64 returns the value of a scalar int64 field.
func (v *OperandView) Int64(field protowire.Number) int64 {
	return v.scalars[field]
}

// Double returns the value of a scalar float64 field.
func (v *OperandView) Double(field protowire.Number) float64 {
	return v.doubles[field]
}

// objectIDs returns the ids of all fields of the given kind, concatenated in declaration order.
func (v *OperandView) objectIDs(kind OperandFieldKind) []int64 {
	var ids []int64
	for _, field := range v.pattern.fields {
		if field.Kind == kind {
			ids = append(ids, v.lists[field.Number]...)
		}
	}
	return ids
}

// MutObjectIDs returns the ids of the logical objects mutated by the instruction.
func (v *OperandView) MutObjectIDs() []int64 {
	return v.objectIDs(MutObjectsField)
}

// ConstObjectIDs returns the ids of the logical objects read by the instruction.
func (v *OperandView) ConstObjectIDs() []int64 {
	return v.objectIDs(ConstObjectsField)
}
