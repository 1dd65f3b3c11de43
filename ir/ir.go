// Package ir defines the control-flow graph representation consumed and
// produced by the instrumentation pass: basic blocks with typed parameters,
// SSA instructions and block terminators.
package ir

import "fmt"

// ValueID names an SSA value inside one Graph. Every value is defined exactly
// once, either as a block parameter or as an instruction result.
type ValueID int

// NoValue marks an absent SSA value.
const NoValue ValueID = -1

// BlockID indexes a basic block inside its Graph.
type BlockID int

// Loc is an opaque source location marker carried through from the graph
// producer. Negative means unknown.
type Loc int

const NoLoc Loc = -1

// ValueKind discriminates operand kinds.
type ValueKind uint8

const (
	// Konst is a literal constant operand.
	Konst ValueKind = iota
	// Variable references an SSA definition (block parameter or instruction
	// result) by its ValueID.
	Variable
)

// Value is an operand of an instruction or terminator: either a literal
// constant or a reference to an SSA definition.
type Value struct {
	Kind ValueKind
	Lit  any
	ID   ValueID
}

// ConstOf returns a literal constant operand.
func ConstOf(v any) Value { return Value{Kind: Konst, Lit: v} }

// Ref returns an operand referencing the SSA value id.
func Ref(id ValueID) Value { return Value{Kind: Variable, ID: id} }

func (v Value) String() string {
	if v.Kind == Konst {
		return fmt.Sprintf("%#v", v.Lit)
	}
	return fmt.Sprintf("%%%d", v.ID)
}

// Instruction is one SSA instruction inside a block. Each instruction
// produces one value, named by Result.
type Instruction interface {
	Result() ValueID
	Location() Loc
	String() string
}

// Constant materializes a literal value.
type Constant struct {
	Dst   ValueID
	Value any
	At    Loc
}

func (c *Constant) Result() ValueID { return c.Dst }
func (c *Constant) Location() Loc   { return c.At }
func (c *Constant) String() string {
	return fmt.Sprintf("%%%d = const %#v", c.Dst, c.Value)
}

// Call invokes a named callable with ordered arguments.
type Call struct {
	Dst    ValueID
	Callee string
	Args   []Value
	At     Loc
}

func (c *Call) Result() ValueID { return c.Dst }
func (c *Call) Location() Loc   { return c.At }
func (c *Call) String() string {
	s := fmt.Sprintf("%%%d = call %s(", c.Dst, c.Callee)
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// VarRef re-reads a previously defined SSA value under a new name.
type VarRef struct {
	Dst ValueID
	Src ValueID
	At  Loc
}

func (v *VarRef) Result() ValueID { return v.Dst }
func (v *VarRef) Location() Loc   { return v.At }
func (v *VarRef) String() string  { return fmt.Sprintf("%%%d = ref %%%d", v.Dst, v.Src) }

// Branch terminates a block. Exactly one terminator per block.
type Branch interface {
	Location() Loc
	String() string
	branch()
}

// Jump transfers control unconditionally, passing Args to the target block's
// parameters.
type Jump struct {
	Target BlockID
	Args   []Value
	At     Loc
}

func (j *Jump) Location() Loc { return j.At }
func (j *Jump) branch()       {}
func (j *Jump) String() string {
	return fmt.Sprintf("jump b%d%s", j.Target, argList(j.Args))
}

// CondBranch transfers control to True or False depending on Cond, passing
// the matching argument list to the taken block's parameters.
type CondBranch struct {
	Cond      Value
	True      BlockID
	TrueArgs  []Value
	False     BlockID
	FalseArgs []Value
	At        Loc
}

func (c *CondBranch) Location() Loc { return c.At }
func (c *CondBranch) branch()       {}
func (c *CondBranch) String() string {
	return fmt.Sprintf("branch %s ? b%d%s : b%d%s",
		c.Cond, c.True, argList(c.TrueArgs), c.False, argList(c.FalseArgs))
}

// Return leaves the graph with Value as the call result.
type Return struct {
	Value Value
	At    Loc
}

func (r *Return) Location() Loc  { return r.At }
func (r *Return) branch()        {}
func (r *Return) String() string { return "return " + r.Value.String() }

func argList(args []Value) string {
	if len(args) == 0 {
		return "()"
	}
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}
