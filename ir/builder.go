package ir

import "github.com/cockroachdb/errors"

// Builder constructs Graphs incrementally. It allocates SSA value ids,
// tracks the current block and finalizes into a validated Graph.
type Builder struct {
	g   *Graph
	cur *Block
	loc Loc
}

// NewBuilder starts a graph with an empty entry block.
func NewBuilder(name string) *Builder {
	g := &Graph{Name: name}
	entry := &Block{ID: 0}
	g.Blocks = append(g.Blocks, entry)
	return &Builder{g: g, cur: entry, loc: NoLoc}
}

// At sets the location attached to subsequently emitted instructions.
func (b *Builder) At(loc Loc) *Builder {
	b.loc = loc
	return b
}

// Param appends a parameter to the current block and returns a reference to
// it. Entry-block parameters are the callable's parameters.
func (b *Builder) Param(name string) Value {
	id := b.g.NewValue()
	b.cur.Params = append(b.cur.Params, Param{ID: id, Name: name})
	return Ref(id)
}

// NewBlock appends an empty block (without switching to it) and returns its
// id.
func (b *Builder) NewBlock() BlockID {
	blk := &Block{ID: BlockID(len(b.g.Blocks))}
	b.g.Blocks = append(b.g.Blocks, blk)
	return blk.ID
}

// SetBlock makes the given block current.
func (b *Builder) SetBlock(id BlockID) *Builder {
	b.cur = b.g.Block(id)
	return b
}

// Current returns the current block id.
func (b *Builder) Current() BlockID { return b.cur.ID }

// BlockParam appends a parameter to the block with the given id.
func (b *Builder) BlockParam(id BlockID, name string) Value {
	blk := b.g.Block(id)
	vid := b.g.NewValue()
	blk.Params = append(blk.Params, Param{ID: vid, Name: name})
	return Ref(vid)
}

// Const emits a constant instruction in the current block.
func (b *Builder) Const(v any) Value {
	dst := b.g.NewValue()
	b.cur.Instrs = append(b.cur.Instrs, &Constant{Dst: dst, Value: v, At: b.loc})
	return Ref(dst)
}

// Call emits a call instruction in the current block.
func (b *Builder) Call(callee string, args ...Value) Value {
	dst := b.g.NewValue()
	b.cur.Instrs = append(b.cur.Instrs, &Call{Dst: dst, Callee: callee, Args: args, At: b.loc})
	return Ref(dst)
}

// VarRef emits a variable re-read of a previously defined value.
func (b *Builder) VarRef(src Value) Value {
	dst := b.g.NewValue()
	b.cur.Instrs = append(b.cur.Instrs, &VarRef{Dst: dst, Src: src.ID, At: b.loc})
	return Ref(dst)
}

// Jump terminates the current block with an unconditional branch.
func (b *Builder) Jump(target BlockID, args ...Value) {
	b.cur.Term = &Jump{Target: target, Args: args, At: b.loc}
}

// CondBranch terminates the current block with a conditional branch.
func (b *Builder) CondBranch(cond Value, t BlockID, tArgs []Value, f BlockID, fArgs []Value) {
	b.cur.Term = &CondBranch{Cond: cond, True: t, TrueArgs: tArgs, False: f, FalseArgs: fArgs, At: b.loc}
}

// Return terminates the current block returning v.
func (b *Builder) Return(v Value) {
	b.cur.Term = &Return{Value: v, At: b.loc}
}

// Graph finalizes the builder, validating SSA dominance.
func (b *Builder) Graph() (*Graph, error) {
	if err := Validate(b.g); err != nil {
		return nil, errors.Wrapf(err, "graph %s", b.g.Name)
	}
	return b.g, nil
}

// MustGraph finalizes the builder and panics on validation failure. Intended
// for statically known graphs in tests and examples.
func (b *Builder) MustGraph() *Graph {
	g, err := b.Graph()
	if err != nil {
		panic(err)
	}
	return g
}
