// lower.go walks a typed TranslationUnit into internal/ir (spec.md §4.3
// "Lowering AST to IR"). Grounded on the teacher's own AST-to-HIR walk
// (compile/ssa/hir.go) generalized from its expression-only shape to the
// full statement/control-flow grammar this subset supports; block
// sequencing, phi realization, and exit construction follow
// compile/ssa/graph.go's "current block" cursor style.
package cc

import (
	"mincc/internal/abi"
	"mincc/internal/diag"
	"mincc/internal/ir"
	"mincc/internal/token"
	"mincc/internal/types"
)

// Module is everything one translation unit lowers to: the IR functions,
// the file-scope globals (including block-scope statics, collected from
// every function body as it lowers), and the string-literal pool.
type Module struct {
	Functions []*ir.Function
	Globals   []*VarDecl
	Strings   []*StringExpr
}

// Lower walks tu into a Module, sharing arena for every type it consults
// and a for the target calling convention's classification (spec.md
// §4.3/§4.4).
func Lower(tu *TranslationUnit, arena *types.Arena, a abi.ABI, strings []*StringExpr) *Module {
	mod := &Module{Globals: append([]*VarDecl(nil), tu.Vars...), Strings: strings}
	for _, fd := range tu.Funcs {
		if fd.Body == nil {
			continue // prototype only
		}
		b := &builder{fn: ir.NewFunction(fd.Name, fd.External), arena: arena, abi: a}
		b.lowerFunction(fd)
		mod.Functions = append(mod.Functions, b.fn)
		mod.Globals = append(mod.Globals, b.statics...)
	}
	return mod
}

// builder lowers one function body. cur is the block instructions are
// currently being appended to; cur == nil marks unreachable code (after an
// unconditional jump/return with no following label), matching the
// teacher's own "dead code after a terminator is simply not built" choice.
type builder struct {
	fn  *ir.Function
	arena *types.Arena
	abi abi.ABI
	cur *ir.Block

	breakTargets    []ir.BlockID
	continueTargets []ir.BlockID
	labels          map[string]*ir.Block

	vlaSeq int

	retByHiddenPointer bool
	retPtrVar          ir.VarID

	statics []*VarDecl
}

func (b *builder) emit(instr ir.Instr) { b.cur.Emit(instr) }

func (b *builder) newTemp(t *types.Type) ir.VarID { return b.fn.NewVar("", t) }

func (b *builder) newSpanningTemp(t *types.Type) ir.VarID {
	id := b.fn.NewVar("", t)
	b.fn.Var(id).SpansBlock = true
	return id
}

// varID returns sym's IR variable, allocating one on first use. Every
// source-level local and parameter is marked SpansBlock: any local can in
// principle be read from a block other than the one that last wrote it
// (loop bodies, forward gotos), so fine-grained single-block liveness
// analysis is not attempted (spec.md §4.5 Non-goals: "register allocation
// beyond a fixed scratch scheme" already rules out the payoff).
func (b *builder) varID(sym *Symbol) ir.VarID {
	if sym.HasVarID {
		return ir.VarID(sym.VarID)
	}
	id := b.fn.NewVar(sym.Name, sym.Ty)
	b.fn.Var(id).SpansBlock = true
	sym.VarID = int(id)
	sym.HasVarID = true
	return id
}

func isMemKind(t *types.Type) bool { return t.IsAggregate() || t.IsArray() }

func (b *builder) constInt(v int64, t *types.Type) ir.VarID {
	res := b.newTemp(t)
	b.emit(ir.Instr{Op: ir.OpConst, Const: &ir.ConstPayload{Type: t, IntVal: v}, Result: res, HasResult: true})
	return res
}

func (b *builder) constFloat(v float64, t *types.Type) ir.VarID {
	res := b.newTemp(t)
	b.emit(ir.Instr{Op: ir.OpConst, Const: &ir.ConstPayload{Type: t, FloatVal: v, IsFloat: true}, Result: res, HasResult: true})
	return res
}

func (b *builder) labelPtr(label string, ptrT *types.Type) ir.VarID {
	res := b.newTemp(ptrT)
	b.emit(ir.Instr{Op: ir.OpConst, Const: &ir.ConstPayload{Type: ptrT, Label: label, IsLabelPtr: true}, Result: res, HasResult: true})
	return res
}

// emitCast converts val from src to dst, choosing the one opcode codegen's
// own cast lowering (internal/codegen/cast.go) expects for that pairing
// (spec.md §4.3 "conversions lower to a single dedicated opcode").
func (b *builder) emitCast(val ir.VarID, src, dst *types.Type) ir.VarID {
	if dst == nil || dst.IsVoid() || src.Equal(dst) {
		return val
	}
	res := b.newTemp(dst)
	switch {
	case dst.IsFloating() && src.IsFloating():
		b.emit(ir.Instr{Op: ir.OpFToF, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
	case dst.IsFloating():
		b.emit(ir.Instr{Op: ir.OpIToF, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
	case src.IsFloating():
		b.emit(ir.Instr{Op: ir.OpFToI, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
	default:
		srcSize, dstSize := int64(src.Size()), int64(dst.Size())
		switch {
		case dstSize > srcSize && src.IsInteger() && !src.IsUnsigned():
			b.emit(ir.Instr{Op: ir.OpSExt, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
		case dstSize > srcSize:
			b.emit(ir.Instr{Op: ir.OpZExt, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
		case dstSize < srcSize:
			b.emit(ir.Instr{Op: ir.OpTrunc, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
		default:
			b.emit(ir.Instr{Op: ir.OpCast, Arg0: val, HasArg0: true, Result: res, HasResult: true, CastTyp: dst})
		}
	}
	return res
}

func (b *builder) toBool(val ir.VarID, intType *types.Type) ir.VarID {
	res := b.newTemp(intType)
	b.emit(ir.Instr{Op: ir.OpBool, Arg0: val, HasArg0: true, Result: res, HasResult: true})
	return res
}

func (b *builder) intType() *types.Type { return b.arena.SimpleType(types.Int) }

// ----------------------------------------------------------------------
// Function entry

// lowerFunction builds fd's parameter list, classifies it with the active
// ABI, allocates the hidden-return-pointer var first when needed (codegen's
// emitParamSpill relies on that being var 0), then lowers the body
// (spec.md §4.3/§4.4/§4.5 "Prologue").
func (b *builder) lowerFunction(fd *FuncDecl) {
	paramTypes := make([]*types.Type, len(fd.Ty.Params))
	copy(paramTypes, fd.Ty.Params)

	b.fn.ReturnType = fd.Ty.Return
	b.fn.IsVariadic = fd.Ty.IsVariadic

	b.abi.NewFunction(b.fn, paramTypes)
	data := b.fn.ABIData.(*abi.FuncABIData)
	b.retByHiddenPointer = data.ReturnLoc.ByHiddenPointer

	if b.retByHiddenPointer {
		ptrT := b.arena.Ptr(fd.Ty.Return)
		b.retPtrVar = b.newSpanningTemp(ptrT)
		if b.retPtrVar != 0 {
			diag.ICE(fd.Pos, "hidden return-pointer var must be allocated first")
		}
	}

	for _, sym := range fd.ParamSyms {
		id := b.varID(sym)
		b.fn.Var(id).IsParam = true
	}

	b.labels = map[string]*ir.Block{}
	collectLabels(fd.Body, b.fn, b.labels)

	entry := b.fn.NewBlock("entry")
	b.cur = entry
	b.lowerStmt(fd.Body)
	if b.cur != nil {
		// Falling off the end of a non-void function without a return is
		// undefined behavior in C; returning zero is a harmless concrete
		// choice, matching main()'s implicit `return 0;`.
		b.cur.SetTerminator(ir.ReturnZeroExit())
	}
}

func collectLabels(s Stmt, fn *ir.Function, labels map[string]*ir.Block) {
	switch st := s.(type) {
	case *BlockStmt:
		for _, inner := range st.Stmts {
			collectLabels(inner, fn, labels)
		}
	case *IfStmt:
		collectLabels(st.Then, fn, labels)
		if st.Else != nil {
			collectLabels(st.Else, fn, labels)
		}
	case *WhileStmt:
		collectLabels(st.Body, fn, labels)
	case *DoWhileStmt:
		collectLabels(st.Body, fn, labels)
	case *ForStmt:
		if st.Init != nil {
			collectLabels(st.Init, fn, labels)
		}
		collectLabels(st.Body, fn, labels)
	case *SwitchStmt:
		collectLabels(st.Body, fn, labels)
	case *LabelStmt:
		labels[st.Label] = fn.NewBlock("label_" + st.Label)
		collectLabels(st.Stmt, fn, labels)
	case *CaseStmt:
		collectLabels(st.Stmt, fn, labels)
	case *DefaultStmt:
		collectLabels(st.Stmt, fn, labels)
	}
}

// ----------------------------------------------------------------------
// Statements

func (b *builder) lowerStmt(s Stmt) {
	if b.cur == nil {
		switch s.(type) {
		case *BlockStmt, *LabelStmt:
			// a label inside may make the following code reachable again
		default:
			return
		}
	}
	switch st := s.(type) {
	case *BlockStmt:
		for _, inner := range st.Stmts {
			b.lowerStmt(inner)
		}
	case *ExprStmt:
		b.lowerDiscard(st.X)
	case *DeclStmt:
		for _, vd := range st.Decls {
			b.lowerLocalDecl(vd)
		}
	case *ReturnStmt:
		b.lowerReturn(st)
	case *IfStmt:
		b.lowerIf(st)
	case *WhileStmt:
		b.lowerWhile(st)
	case *DoWhileStmt:
		b.lowerDoWhile(st)
	case *ForStmt:
		b.lowerFor(st)
	case *BreakStmt:
		if len(b.breakTargets) == 0 {
			diag.ICE(st.Pos, "break outside a loop or switch")
		}
		b.cur.SetTerminator(ir.JumpExit(b.breakTargets[len(b.breakTargets)-1]))
		b.cur = nil
	case *ContinueStmt:
		if len(b.continueTargets) == 0 {
			diag.ICE(st.Pos, "continue outside a loop")
		}
		b.cur.SetTerminator(ir.JumpExit(b.continueTargets[len(b.continueTargets)-1]))
		b.cur = nil
	case *GotoStmt:
		target, ok := b.labels[st.Label]
		if !ok {
			diag.ICE(st.Pos, "goto to undeclared label %q", st.Label)
		}
		b.cur.SetTerminator(ir.JumpExit(target.ID))
		b.cur = nil
	case *LabelStmt:
		target := b.labels[st.Label]
		if b.cur != nil {
			b.cur.SetTerminator(ir.JumpExit(target.ID))
		}
		b.cur = target
		b.lowerStmt(st.Stmt)
	case *CaseStmt:
		b.lowerStmt(st.Stmt)
	case *DefaultStmt:
		b.lowerStmt(st.Stmt)
	case *SwitchStmt:
		b.lowerSwitch(st)
	case *EmptyStmt:
		// no-op
	}
}

func (b *builder) lowerReturn(s *ReturnStmt) {
	if s.X == nil {
		b.cur.SetTerminator(ir.ReturnZeroExit())
		b.cur = nil
		return
	}
	retType := b.fn.ReturnType
	if isMemKind(retType) {
		srcAddr := b.lowerAggregateAddr(s.X)
		if b.retByHiddenPointer {
			b.emit(ir.Instr{Op: ir.OpCopyMem, Arg0: b.retPtrVar, Arg1: srcAddr, HasArg0: true, HasArg1: true, Offset: int64(retType.Size())})
			b.cur.SetTerminator(ir.ReturnZeroExit())
		} else {
			// <=16-byte aggregate returned through rax[:rdx]/xmm0[:xmm1];
			// materialize a value-holding var of the aggregate's own type
			// and hand it to the generic ExitReturn path, which (per
			// internal/codegen/exit.go) restores its low eightbyte into
			// rax. Only that low eightbyte is returned: the upper
			// eightbyte of a 9-16 byte aggregate is not placed in rdx.
			valueVar := b.newSpanningTemp(retType)
			b.emit(ir.Instr{Op: ir.OpCopyMem, Arg0: b.addrOfVar(valueVar), Arg1: srcAddr, HasArg0: true, HasArg1: true, Offset: int64(retType.Size())})
			b.cur.SetTerminator(ir.ReturnExit(valueVar))
		}
		b.cur = nil
		return
	}
	val := b.lowerRValue(s.X)
	val = b.emitCast(val, s.X.GetType(), retType)
	b.cur.SetTerminator(ir.ReturnExit(val))
	b.cur = nil
}

func (b *builder) lowerIf(s *IfStmt) {
	thenBlk := b.fn.NewBlock("if_then")
	endBlk := b.fn.NewBlock("if_end")
	elseBlk := endBlk
	if s.Else != nil {
		elseBlk = b.fn.NewBlock("if_else")
	}

	condVal := b.lowerRValue(s.Cond)
	b.cur.SetTerminator(ir.IfExit(condVal, thenBlk.ID, elseBlk.ID))

	b.cur = thenBlk
	b.lowerStmt(s.Then)
	if b.cur != nil {
		b.cur.SetTerminator(ir.JumpExit(endBlk.ID))
	}

	if s.Else != nil {
		b.cur = elseBlk
		b.lowerStmt(s.Else)
		if b.cur != nil {
			b.cur.SetTerminator(ir.JumpExit(endBlk.ID))
		}
	}

	b.cur = endBlk
}

func (b *builder) lowerWhile(s *WhileStmt) {
	headBlk := b.fn.NewBlock("while_head")
	bodyBlk := b.fn.NewBlock("while_body")
	endBlk := b.fn.NewBlock("while_end")

	b.cur.SetTerminator(ir.JumpExit(headBlk.ID))
	b.cur = headBlk
	condVal := b.lowerRValue(s.Cond)
	b.cur.SetTerminator(ir.IfExit(condVal, bodyBlk.ID, endBlk.ID))

	b.cur = bodyBlk
	b.breakTargets = append(b.breakTargets, endBlk.ID)
	b.continueTargets = append(b.continueTargets, headBlk.ID)
	b.lowerStmt(s.Body)
	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.continueTargets = b.continueTargets[:len(b.continueTargets)-1]
	if b.cur != nil {
		b.cur.SetTerminator(ir.JumpExit(headBlk.ID))
	}

	b.cur = endBlk
}

func (b *builder) lowerDoWhile(s *DoWhileStmt) {
	bodyBlk := b.fn.NewBlock("do_body")
	condBlk := b.fn.NewBlock("do_cond")
	endBlk := b.fn.NewBlock("do_end")

	b.cur.SetTerminator(ir.JumpExit(bodyBlk.ID))
	b.cur = bodyBlk
	b.breakTargets = append(b.breakTargets, endBlk.ID)
	b.continueTargets = append(b.continueTargets, condBlk.ID)
	b.lowerStmt(s.Body)
	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.continueTargets = b.continueTargets[:len(b.continueTargets)-1]
	if b.cur != nil {
		b.cur.SetTerminator(ir.JumpExit(condBlk.ID))
	}

	b.cur = condBlk
	condVal := b.lowerRValue(s.Cond)
	b.cur.SetTerminator(ir.IfExit(condVal, bodyBlk.ID, endBlk.ID))

	b.cur = endBlk
}

func (b *builder) lowerFor(s *ForStmt) {
	if s.Init != nil {
		b.lowerStmt(s.Init)
	}
	if b.cur == nil {
		return
	}

	headBlk := b.fn.NewBlock("for_head")
	bodyBlk := b.fn.NewBlock("for_body")
	postBlk := b.fn.NewBlock("for_post")
	endBlk := b.fn.NewBlock("for_end")

	b.cur.SetTerminator(ir.JumpExit(headBlk.ID))
	b.cur = headBlk
	if s.Cond != nil {
		condVal := b.lowerRValue(s.Cond)
		b.cur.SetTerminator(ir.IfExit(condVal, bodyBlk.ID, endBlk.ID))
	} else {
		b.cur.SetTerminator(ir.JumpExit(bodyBlk.ID))
	}

	b.cur = bodyBlk
	b.breakTargets = append(b.breakTargets, endBlk.ID)
	b.continueTargets = append(b.continueTargets, postBlk.ID)
	b.lowerStmt(s.Body)
	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.continueTargets = b.continueTargets[:len(b.continueTargets)-1]
	if b.cur != nil {
		b.cur.SetTerminator(ir.JumpExit(postBlk.ID))
	}

	b.cur = postBlk
	if s.Post != nil {
		b.lowerDiscard(s.Post)
	}
	if b.cur != nil {
		b.cur.SetTerminator(ir.JumpExit(headBlk.ID))
	}

	b.cur = endBlk
}

// flattenSwitchBody peels the optional enclosing block off a switch body so
// its statements can be scanned for case/default labels in source order.
func flattenSwitchBody(s Stmt) []Stmt {
	if blk, ok := s.(*BlockStmt); ok {
		return blk.Stmts
	}
	return []Stmt{s}
}

// peelCaseLabels strips every `case v:`/`default:` prefix off s (labels
// stack when written `case 1: case 2: stmt;`), returning the accumulated
// values/default-ness and the first non-label statement underneath.
func peelCaseLabels(s Stmt) (values []int64, isDefault bool, inner Stmt) {
	for {
		switch st := s.(type) {
		case *CaseStmt:
			values = append(values, st.Value)
			s = st.Stmt
			continue
		case *DefaultStmt:
			isDefault = true
			s = st.Stmt
			continue
		}
		return values, isDefault, s
	}
}

// lowerSwitch lowers a switch to a linear compare chain (matching
// internal/codegen/exit.go's ExitSwitch lowering): a structural pre-pass
// allocates one block per case/default label group and seals the switch's
// own block immediately, then a second pass appends the statements between
// labels, inserting an implicit fallthrough jump at each group boundary
// (spec.md §4.3 "Switch lowering"). Statements before the first case or
// default label are dropped and never lowered, including any labelled
// statement among them that a goto names.
func (b *builder) lowerSwitch(s *SwitchStmt) {
	tagVal := b.lowerRValue(s.Tag)
	stmts := flattenSwitchBody(s.Body)
	endBlk := b.fn.NewBlock("switch_end")

	type group struct {
		values    []int64
		isDefault bool
		blk       *ir.Block
		stmts     []Stmt
	}
	var groups []*group

	for _, st := range stmts {
		values, isDefault, inner := peelCaseLabels(st)
		if len(values) == 0 && !isDefault {
			if len(groups) == 0 {
				continue // unreachable: no label has opened a group yet
			}
			last := groups[len(groups)-1]
			last.stmts = append(last.stmts, inner)
			continue
		}
		g := &group{values: values, isDefault: isDefault, blk: b.fn.NewBlock("switch_case")}
		g.stmts = append(g.stmts, inner)
		groups = append(groups, g)
	}

	var cases []ir.SwitchCase
	defaultBlk := endBlk
	for _, g := range groups {
		if g.isDefault {
			defaultBlk = g.blk
			continue
		}
		for _, v := range g.values {
			cases = append(cases, ir.SwitchCase{Value: v, Target: g.blk.ID})
		}
	}
	b.cur.SetTerminator(ir.SwitchExit(tagVal, cases, defaultBlk.ID, true))
	b.cur = nil

	b.breakTargets = append(b.breakTargets, endBlk.ID)
	for i, g := range groups {
		b.cur = g.blk
		for _, st := range g.stmts {
			b.lowerStmt(st)
		}
		if b.cur != nil {
			next := endBlk
			if i+1 < len(groups) {
				next = groups[i+1].blk
			}
			b.cur.SetTerminator(ir.JumpExit(next.ID))
		}
	}
	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]

	b.cur = endBlk
}

// ----------------------------------------------------------------------
// Local declarations

func (b *builder) lowerLocalDecl(vd *VarDecl) {
	sym := vd.Sym

	if vd.Ty.Kind == types.VLA {
		b.lowerVLADecl(vd)
		return
	}

	if sym.Kind == SymGlobalVar {
		// block-scope static: file-scope storage, initialized once at
		// program start by the data-section emitter, not at the
		// declaration site.
		cp := *vd
		cp.Name = sym.Label
		cp.IsGlobal = true
		b.statics = append(b.statics, &cp)
		return
	}

	id := b.varID(sym)
	if vd.Init == nil {
		return
	}

	if isMemKind(vd.Ty) {
		destAddr := b.addrOfVar(id)
		srcAddr := b.lowerAggregateAddr(vd.Init)
		b.emit(ir.Instr{Op: ir.OpCopyMem, Arg0: destAddr, Arg1: srcAddr, HasArg0: true, HasArg1: true, Offset: int64(vd.Ty.Size())})
		return
	}

	val := b.lowerRValue(vd.Init)
	val = b.emitCast(val, vd.Init.GetType(), vd.Ty)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: id, Arg1: val, HasArg0: true, HasArg1: true})
}

// lowerVLADecl evaluates the runtime bound, adjusts rsp by the rounded
// byte count, and records the resulting base pointer under a fresh
// dominance index (spec.md §4.3 "VLA lowering").
func (b *builder) lowerVLADecl(vd *VarDecl) {
	sym := vd.Sym
	elemSize := int64(vd.Ty.Elem.Size())
	longT := b.arena.SimpleType(types.Long)

	boundVal := b.lowerRValue(vd.VLABound)
	boundVal = b.emitCast(boundVal, vd.VLABound.GetType(), longT)
	elemSizeVar := b.constInt(elemSize, longT)
	bytesVar := b.newTemp(longT)
	b.emit(ir.Instr{Op: ir.OpMul, Arg0: boundVal, Arg1: elemSizeVar, HasArg0: true, HasArg1: true, Result: bytesVar, HasResult: true})

	b.emit(ir.Instr{Op: ir.OpVLAAdjust, Arg0: bytesVar, HasArg0: true})

	idx := b.vlaSeq
	b.vlaSeq++
	id := b.varID(sym)
	b.emit(ir.Instr{Op: ir.OpVLAAlloc, VLAIdx: idx, Result: id, HasResult: true})
}

// ----------------------------------------------------------------------
// Lvalue addressing

// lowerAddrOf computes the address of the lvalue expression e as a
// pointer-typed temp (spec.md §4.3 Lvalues).
func (b *builder) lowerAddrOf(e Expr) ir.VarID {
	switch x := e.(type) {
	case *VarRefExpr:
		if x.Sym.Kind == SymGlobalVar {
			ptrT := b.arena.Ptr(x.Sym.Ty)
			return b.labelPtr(x.Sym.Label, ptrT)
		}
		return b.addrOfVar(b.varID(x.Sym))
	case *DerefExpr:
		return b.lowerRValue(x.X)
	case *MemberExpr:
		base := b.lowerMemberBase(x)
		ptrT := b.arena.Ptr(x.Typ)
		res := b.newTemp(ptrT)
		b.emit(ir.Instr{Op: ir.OpGetMember, Arg0: base, HasArg0: true, Result: res, HasResult: true, Offset: int64(x.Offset)})
		return res
	case *CompoundLiteralExpr:
		return b.materializeCompoundLiteral(x)
	case *CommaExpr:
		b.lowerDiscard(x.Left)
		return b.lowerAddrOf(x.Right)
	case *StringExpr:
		return b.labelPtr(x.Label, b.arena.Ptr(x.Typ))
	default:
		diag.ICE(e.GetPos(), "expression is not an lvalue")
		return 0
	}
}

func (b *builder) addrOfVar(id ir.VarID) ir.VarID {
	res := b.newTemp(b.arena.Ptr(b.fn.Var(id).Type))
	b.emit(ir.Instr{Op: ir.OpAddr, Arg0: id, HasArg0: true, Result: res, HasResult: true})
	return res
}

// lowerMemberBase computes the base pointer a MemberExpr's get-member
// instruction adds its offset to: address-of the struct lvalue for `.`,
// the already-pointer-typed value for `->` (spec.md §4.2 Lvalues).
func (b *builder) lowerMemberBase(x *MemberExpr) ir.VarID {
	if x.Arrow {
		return b.lowerRValue(x.X)
	}
	return b.lowerAddrOf(x.X)
}

// lowerAggregateAddr lowers an aggregate- or array-typed expression to its
// address. This is the uniform convention every aggregate rvalue follows
// EXCEPT call arguments (see lowerCallArg), since assignment/member-chain
// consumers always want an address while internal/codegen's ArgByPointer
// case wants the argument variable's own slot, not a pointer into it.
func (b *builder) lowerAggregateAddr(e Expr) ir.VarID {
	switch x := e.(type) {
	case *CommaExpr:
		b.lowerDiscard(x.Left)
		return b.lowerAggregateAddr(x.Right)
	case *CondExpr:
		return b.lowerAggregateCond(x)
	case *CallExpr:
		// lowerCall already returns an address for an aggregate-typed
		// result (it allocates the result in its own spanning temp and
		// hands back &temp), matching every other aggregate rvalue here.
		return b.lowerCall(x)
	default:
		return b.lowerAddrOf(e)
	}
}

func (b *builder) lowerAggregateCond(x *CondExpr) ir.VarID {
	ptrT := b.arena.Ptr(x.Typ)
	resultVar := b.newSpanningTemp(ptrT)

	thenBlk := b.fn.NewBlock("cond_then")
	elseBlk := b.fn.NewBlock("cond_else")
	endBlk := b.fn.NewBlock("cond_end")

	condVal := b.lowerRValue(x.Cond)
	b.cur.SetTerminator(ir.IfExit(condVal, thenBlk.ID, elseBlk.ID))

	b.cur = thenBlk
	thenAddr := b.lowerAggregateAddr(x.Then)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: resultVar, Arg1: thenAddr, HasArg0: true, HasArg1: true})
	b.cur.SetTerminator(ir.JumpExit(endBlk.ID))

	b.cur = elseBlk
	elseAddr := b.lowerAggregateAddr(x.Else)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: resultVar, Arg1: elseAddr, HasArg0: true, HasArg1: true})
	b.cur.SetTerminator(ir.JumpExit(endBlk.ID))

	b.cur = endBlk
	return resultVar
}

// materializeCompoundLiteral allocates a fresh aggregate/array-typed temp,
// zeroes it, writes each initializer at its offset, and returns its
// address (spec.md §4.2 "Compound literal").
func (b *builder) materializeCompoundLiteral(x *CompoundLiteralExpr) ir.VarID {
	tempVar := b.newSpanningTemp(x.Typ)
	addr := b.addrOfVar(tempVar)
	b.emit(ir.Instr{Op: ir.OpZeroMem, Arg0: addr, HasArg0: true, Offset: int64(x.Typ.Size())})

	for _, init := range x.Inits {
		if isMemKind(init.Value.GetType()) {
			srcAddr := b.lowerAggregateAddr(init.Value)
			b.emit(ir.Instr{Op: ir.OpCopyMem, Arg0: b.offsetAddr(addr, int64(init.Offset)), Arg1: srcAddr, HasArg0: true, HasArg1: true, Offset: int64(init.Value.GetType().Size())})
			continue
		}
		val := b.lowerRValue(init.Value)
		b.emit(ir.Instr{Op: ir.OpStoreOff, Arg0: addr, Arg1: val, HasArg0: true, HasArg1: true, Offset: int64(init.Offset)})
	}
	return addr
}

// offsetAddr computes base+delta as a fresh pointer temp, reusing
// OpGetMember's "pointer + constant offset" semantics.
func (b *builder) offsetAddr(base ir.VarID, delta int64) ir.VarID {
	if delta == 0 {
		return base
	}
	res := b.newTemp(b.fn.Var(base).Type)
	b.emit(ir.Instr{Op: ir.OpGetMember, Arg0: base, HasArg0: true, Result: res, HasResult: true, Offset: delta})
	return res
}

// storeLValue writes val into the lvalue e, returning val so callers that
// want an assignment expression's own value (e.g. `x = y = 1`) can chain
// it (spec.md §4.2 Assignment).
func (b *builder) storeLValue(e Expr, val ir.VarID) ir.VarID {
	switch x := e.(type) {
	case *VarRefExpr:
		if x.Sym.Kind == SymGlobalVar {
			ptrT := b.arena.Ptr(x.Sym.Ty)
			addr := b.labelPtr(x.Sym.Label, ptrT)
			b.emit(ir.Instr{Op: ir.OpStoreBase, Arg0: addr, Arg1: val, HasArg0: true, HasArg1: true})
			return val
		}
		id := b.varID(x.Sym)
		b.emit(ir.Instr{Op: ir.OpStore, Arg0: id, Arg1: val, HasArg0: true, HasArg1: true})
		return val
	case *DerefExpr:
		addr := b.lowerRValue(x.X)
		b.emit(ir.Instr{Op: ir.OpStoreBase, Arg0: addr, Arg1: val, HasArg0: true, HasArg1: true})
		return val
	case *MemberExpr:
		base := b.lowerMemberBase(x)
		b.emit(ir.Instr{Op: ir.OpStoreOff, Arg0: base, Arg1: val, HasArg0: true, HasArg1: true, Offset: int64(x.Offset)})
		return val
	case *CommaExpr:
		b.lowerDiscard(x.Left)
		return b.storeLValue(x.Right, val)
	default:
		diag.ICE(e.GetPos(), "expression is not an assignable lvalue")
		return val
	}
}

// ----------------------------------------------------------------------
// Expressions

// lowerDiscard lowers e purely for side effects.
func (b *builder) lowerDiscard(e Expr) {
	if e == nil || b.cur == nil {
		return
	}
	b.lowerRValue(e)
}

var binOpMap = map[token.Kind]ir.Op{
	token.Plus:    ir.OpAdd,
	token.Minus:   ir.OpSub,
	token.Star:    ir.OpMul,
	token.Slash:   ir.OpDiv,
	token.Percent: ir.OpMod,
	token.Amp:     ir.OpAnd,
	token.Pipe:    ir.OpOr,
	token.Caret:   ir.OpXor,
	token.Shl:     ir.OpShl,
	token.Shr:     ir.OpShr,
	token.EqEq:    ir.OpEq,
	token.Ne:      ir.OpNe,
	token.Lt:      ir.OpLt,
	token.Le:      ir.OpLe,
	token.Gt:      ir.OpGt,
	token.Ge:      ir.OpGe,
}

var assignOpMap = map[token.Kind]ir.Op{
	token.PlusEq:    ir.OpAdd,
	token.MinusEq:   ir.OpSub,
	token.StarEq:    ir.OpMul,
	token.SlashEq:   ir.OpDiv,
	token.PercentEq: ir.OpMod,
	token.AmpEq:     ir.OpAnd,
	token.PipeEq:    ir.OpOr,
	token.CaretEq:   ir.OpXor,
	token.ShlEq:     ir.OpShl,
	token.ShrEq:     ir.OpShr,
}

// lowerRValue lowers e to a value-producing var. Aggregate/array-typed
// expressions yield their ADDRESS (see lowerAggregateAddr's doc comment)
// except where lowerCallArg intercepts them directly.
func (b *builder) lowerRValue(e Expr) ir.VarID {
	if isMemKind(e.GetType()) {
		return b.lowerAggregateAddr(e)
	}
	switch x := e.(type) {
	case *ConstExpr:
		if x.IsFloat {
			return b.constFloat(x.FloatVal, x.Typ)
		}
		return b.constInt(x.IntVal, x.Typ)
	case *StringExpr:
		return b.labelPtr(x.Label, x.Typ)
	case *VarRefExpr:
		if x.Sym.Kind == SymGlobalVar {
			ptrT := b.arena.Ptr(x.Sym.Ty)
			addr := b.labelPtr(x.Sym.Label, ptrT)
			res := b.newTemp(x.Typ)
			b.emit(ir.Instr{Op: ir.OpLoadBase, Arg0: addr, HasArg0: true, Result: res, HasResult: true})
			return res
		}
		return b.varID(x.Sym)
	case *DecayExpr:
		return b.lowerDecay(x)
	case *DerefExpr:
		addr := b.lowerRValue(x.X)
		res := b.newTemp(x.Typ)
		b.emit(ir.Instr{Op: ir.OpLoadBase, Arg0: addr, HasArg0: true, Result: res, HasResult: true})
		return res
	case *AddrExpr:
		return b.lowerAddrOf(x.X)
	case *MemberExpr:
		base := b.lowerMemberBase(x)
		res := b.newTemp(x.Typ)
		b.emit(ir.Instr{Op: ir.OpLoadOff, Arg0: base, HasArg0: true, Result: res, HasResult: true, Offset: int64(x.Offset)})
		return res
	case *UnaryExpr:
		return b.lowerUnary(x)
	case *BinaryExpr:
		return b.lowerBinary(x)
	case *PointerAddExpr:
		return b.lowerPointerAdd(x)
	case *PointerDiffExpr:
		return b.lowerPointerDiff(x)
	case *LogicalExpr:
		return b.lowerLogical(x)
	case *CondExpr:
		return b.lowerCond(x)
	case *CommaExpr:
		b.lowerDiscard(x.Left)
		return b.lowerRValue(x.Right)
	case *CastExpr:
		val := b.lowerRValue(x.X)
		return b.emitCast(val, x.X.GetType(), x.Typ)
	case *AssignExpr:
		return b.lowerAssign(x)
	case *AssignOpExpr:
		return b.lowerAssignOp(x)
	case *AssignPointerAddExpr:
		return b.lowerAssignPointerAdd(x)
	case *IncDecExpr:
		return b.lowerIncDec(x)
	case *CallExpr:
		return b.lowerCall(x)
	case *CompoundLiteralExpr:
		return b.materializeCompoundLiteral(x)
	case *VaStartExpr:
		return b.lowerVaStart(x)
	case *VaArgExpr:
		return b.lowerVaArg(x)
	case *VaEndExpr:
		b.emit(ir.Instr{Op: ir.OpVaEnd, Arg0: b.vaListSlot(x.ApExpr), HasArg0: true})
		return b.constInt(0, b.intType())
	case *VaCopyExpr:
		dst := b.vaListSlot(x.Dst)
		src := b.vaListSlot(x.Src)
		b.emit(ir.Instr{Op: ir.OpVaCopy, Arg0: dst, Arg1: src, HasArg0: true, HasArg1: true})
		return b.constInt(0, b.intType())
	default:
		diag.ICE(e.GetPos(), "unhandled expression kind %T", e)
		return 0
	}
}

// lowerDecay materializes a pointer value from an array- or
// function-typed expression. Arrays decay to the address of their first
// element (numerically identical to the array's own address); functions
// decay to their call-symbol's address (spec.md glossary "Decay").
func (b *builder) lowerDecay(x *DecayExpr) ir.VarID {
	if vr, ok := x.X.(*VarRefExpr); ok && vr.Sym.Kind == SymFunc {
		return b.labelPtr(vr.Name, x.Typ)
	}
	addr := b.lowerAggregateAddr(x.X)
	res := b.newTemp(x.Typ)
	b.emit(ir.Instr{Op: ir.OpCast, Arg0: addr, HasArg0: true, Result: res, HasResult: true, CastTyp: x.Typ})
	return res
}

func (b *builder) lowerUnary(x *UnaryExpr) ir.VarID {
	val := b.lowerRValue(x.X)
	res := b.newTemp(x.Typ)
	switch x.Op {
	case token.Minus:
		op := ir.OpNeg
		if x.Typ.IsFloating() {
			op = ir.OpNegF
		}
		b.emit(ir.Instr{Op: op, Arg0: val, HasArg0: true, Result: res, HasResult: true})
	case token.Tilde:
		b.emit(ir.Instr{Op: ir.OpNot, Arg0: val, HasArg0: true, Result: res, HasResult: true})
	case token.Bang:
		boolVal := b.toBool(val, b.intType())
		zero := b.constInt(0, b.intType())
		b.emit(ir.Instr{Op: ir.OpEq, Arg0: boolVal, Arg1: zero, HasArg0: true, HasArg1: true, Result: res, HasResult: true})
	default:
		diag.ICE(x.Pos, "unhandled unary operator")
	}
	return res
}

func (b *builder) lowerBinary(x *BinaryExpr) ir.VarID {
	op, ok := binOpMap[x.Op]
	if !ok {
		diag.ICE(x.Pos, "unhandled binary operator")
	}
	left := b.lowerRValue(x.Left)
	right := b.lowerRValue(x.Right)
	res := b.newTemp(x.Typ)
	b.emit(ir.Instr{Op: op, Arg0: left, Arg1: right, HasArg0: true, HasArg1: true, Result: res, HasResult: true})
	return res
}

func (b *builder) lowerPointerAdd(x *PointerAddExpr) ir.VarID {
	ptr := b.lowerRValue(x.Ptr)
	idx := b.lowerRValue(x.Idx)
	longT := b.arena.SimpleType(types.Long)
	idx = b.emitCast(idx, x.Idx.GetType(), longT)
	elemSizeVar := b.constInt(x.ElemSize, longT)
	bytes := b.newTemp(longT)
	b.emit(ir.Instr{Op: ir.OpMul, Arg0: idx, Arg1: elemSizeVar, HasArg0: true, HasArg1: true, Result: bytes, HasResult: true})
	if x.Neg {
		zero := b.constInt(0, longT)
		neg := b.newTemp(longT)
		b.emit(ir.Instr{Op: ir.OpSub, Arg0: zero, Arg1: bytes, HasArg0: true, HasArg1: true, Result: neg, HasResult: true})
		bytes = neg
	}
	res := b.newTemp(x.Typ)
	b.emit(ir.Instr{Op: ir.OpAdd, Arg0: ptr, Arg1: bytes, HasArg0: true, HasArg1: true, Result: res, HasResult: true})
	return res
}

func (b *builder) lowerPointerDiff(x *PointerDiffExpr) ir.VarID {
	left := b.lowerRValue(x.Left)
	right := b.lowerRValue(x.Right)
	longT := b.arena.SimpleType(types.Long)
	diffBytes := b.newTemp(longT)
	b.emit(ir.Instr{Op: ir.OpSub, Arg0: left, Arg1: right, HasArg0: true, HasArg1: true, Result: diffBytes, HasResult: true})
	elemSizeVar := b.constInt(x.ElemSize, longT)
	res := b.newTemp(x.Typ)
	b.emit(ir.Instr{Op: ir.OpDiv, Arg0: diffBytes, Arg1: elemSizeVar, HasArg0: true, HasArg1: true, Result: res, HasResult: true})
	return res
}

// lowerLogical desugars `&&`/`||` to nested conditionals, normalizing the
// observable result to a canonical 0/1 int with OpBool (spec.md §4.3
// "Logical operators").
func (b *builder) lowerLogical(x *LogicalExpr) ir.VarID {
	resultVar := b.newSpanningTemp(x.Typ)
	rightBlk := b.fn.NewBlock("logical_rhs")
	shortBlk := b.fn.NewBlock("logical_short")
	endBlk := b.fn.NewBlock("logical_end")

	leftVal := b.lowerRValue(x.Left)
	if x.Op == token.AmpAmp {
		b.cur.SetTerminator(ir.IfExit(leftVal, rightBlk.ID, shortBlk.ID))
	} else {
		b.cur.SetTerminator(ir.IfExit(leftVal, shortBlk.ID, rightBlk.ID))
	}

	b.cur = rightBlk
	rightVal := b.lowerRValue(x.Right)
	rightBool := b.toBool(rightVal, x.Typ)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: resultVar, Arg1: rightBool, HasArg0: true, HasArg1: true})
	b.cur.SetTerminator(ir.JumpExit(endBlk.ID))

	b.cur = shortBlk
	shortVal := b.constInt(boolOf(x.Op == token.PipePipe), x.Typ)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: resultVar, Arg1: shortVal, HasArg0: true, HasArg1: true})
	b.cur.SetTerminator(ir.JumpExit(endBlk.ID))

	b.cur = endBlk
	return resultVar
}

func boolOf(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (b *builder) lowerCond(x *CondExpr) ir.VarID {
	resultVar := b.newSpanningTemp(x.Typ)
	thenBlk := b.fn.NewBlock("cond_then")
	elseBlk := b.fn.NewBlock("cond_else")
	endBlk := b.fn.NewBlock("cond_end")

	condVal := b.lowerRValue(x.Cond)
	b.cur.SetTerminator(ir.IfExit(condVal, thenBlk.ID, elseBlk.ID))

	b.cur = thenBlk
	thenVal := b.lowerRValue(x.Then)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: resultVar, Arg1: thenVal, HasArg0: true, HasArg1: true})
	b.cur.SetTerminator(ir.JumpExit(endBlk.ID))

	b.cur = elseBlk
	elseVal := b.lowerRValue(x.Else)
	b.emit(ir.Instr{Op: ir.OpStore, Arg0: resultVar, Arg1: elseVal, HasArg0: true, HasArg1: true})
	b.cur.SetTerminator(ir.JumpExit(endBlk.ID))

	b.cur = endBlk
	return resultVar
}

func (b *builder) lowerAssign(x *AssignExpr) ir.VarID {
	if isMemKind(x.Typ) {
		destAddr := b.lowerAggregateAddr(x.Left)
		srcAddr := b.lowerAggregateAddr(x.Right)
		b.emit(ir.Instr{Op: ir.OpCopyMem, Arg0: destAddr, Arg1: srcAddr, HasArg0: true, HasArg1: true, Offset: int64(x.Typ.Size())})
		return destAddr
	}
	val := b.lowerRValue(x.Right)
	return b.storeLValue(x.Left, val)
}

// lowerAssignOp and lowerIncDec both compute the lvalue's address once via
// lowerAddrOf, then load/arith/store through it uniformly for every lvalue
// kind (including plain locals, which could use a cheaper direct
// load/store pair). This is a deliberate simplicity-over-optimization
// choice: it guarantees any side-effecting subexpression inside the
// lvalue (an index, a member chain) is evaluated exactly once.
func (b *builder) lowerAssignOp(x *AssignOpExpr) ir.VarID {
	op, ok := binOpMap[x.Op]
	if !ok {
		diag.ICE(x.Pos, "unhandled compound-assignment operator")
	}
	addr := b.lowerAddrOf(x.Left)
	cur := b.newTemp(x.Left.GetType())
	b.emit(ir.Instr{Op: ir.OpLoadBase, Arg0: addr, HasArg0: true, Result: cur, HasResult: true})
	rhs := b.lowerRValue(x.Right)
	rhs = b.emitCast(rhs, x.Right.GetType(), x.Left.GetType())
	res := b.newTemp(x.Left.GetType())
	b.emit(ir.Instr{Op: op, Arg0: cur, Arg1: rhs, HasArg0: true, HasArg1: true, Result: res, HasResult: true})
	b.emit(ir.Instr{Op: ir.OpStoreBase, Arg0: addr, Arg1: res, HasArg0: true, HasArg1: true})
	return res
}

// lowerAssignPointerAdd lowers `ptr += n` / `ptr -= n`; AssignPointerAddExpr
// carries no ElemSize field (unlike PointerAddExpr), so the element size is
// recovered from the lvalue's own pointer type.
func (b *builder) lowerAssignPointerAdd(x *AssignPointerAddExpr) ir.VarID {
	elemSize := int64(x.Left.GetType().Elem.Size())
	addr := b.lowerAddrOf(x.Left)
	cur := b.newTemp(x.Left.GetType())
	b.emit(ir.Instr{Op: ir.OpLoadBase, Arg0: addr, HasArg0: true, Result: cur, HasResult: true})

	longT := b.arena.SimpleType(types.Long)
	n := b.lowerRValue(x.Right)
	n = b.emitCast(n, x.Right.GetType(), longT)
	elemSizeVar := b.constInt(elemSize, longT)
	bytes := b.newTemp(longT)
	b.emit(ir.Instr{Op: ir.OpMul, Arg0: n, Arg1: elemSizeVar, HasArg0: true, HasArg1: true, Result: bytes, HasResult: true})
	if x.Neg {
		zero := b.constInt(0, longT)
		neg := b.newTemp(longT)
		b.emit(ir.Instr{Op: ir.OpSub, Arg0: zero, Arg1: bytes, HasArg0: true, HasArg1: true, Result: neg, HasResult: true})
		bytes = neg
	}
	res := b.newTemp(x.Left.GetType())
	b.emit(ir.Instr{Op: ir.OpAdd, Arg0: cur, Arg1: bytes, HasArg0: true, HasArg1: true, Result: res, HasResult: true})
	b.emit(ir.Instr{Op: ir.OpStoreBase, Arg0: addr, Arg1: res, HasArg0: true, HasArg1: true})
	return res
}

// lowerIncDec lowers `++x`/`x++`/`--x`/`x--`, retargeting pointer operands
// to pointer-add-by-one-element for symmetry with `+=` (spec.md §9 Design
// Notes).
func (b *builder) lowerIncDec(x *IncDecExpr) ir.VarID {
	addr := b.lowerAddrOf(x.X)
	xt := x.X.GetType()
	old := b.newTemp(xt)
	b.emit(ir.Instr{Op: ir.OpLoadBase, Arg0: addr, HasArg0: true, Result: old, HasResult: true})

	var delta int64 = 1
	if xt.IsPointer() {
		delta = int64(xt.Elem.Size())
	}
	var stepT *types.Type = xt
	if xt.IsPointer() {
		stepT = b.arena.SimpleType(types.Long)
	}
	if x.IsDec {
		delta = -delta
	}
	deltaVar := b.constInt(delta, stepT)
	updated := b.newTemp(xt)
	b.emit(ir.Instr{Op: ir.OpAdd, Arg0: old, Arg1: deltaVar, HasArg0: true, HasArg1: true, Result: updated, HasResult: true})
	b.emit(ir.Instr{Op: ir.OpStoreBase, Arg0: addr, Arg1: updated, HasArg0: true, HasArg1: true})

	if x.Prefix {
		return updated
	}
	return old
}

// ----------------------------------------------------------------------
// Calls

// directCallName reports the callee's direct-call symbol name when callee
// is a bare function reference (decayed function-to-pointer), so
// lowerCall can emit a direct `call name` instead of an indirect call
// through a loaded function-pointer value.
func directCallName(callee Expr) (string, bool) {
	dec, ok := callee.(*DecayExpr)
	if !ok {
		return "", false
	}
	vr, ok := dec.X.(*VarRefExpr)
	if !ok || vr.Sym.Kind != SymFunc {
		return "", false
	}
	return vr.Name, true
}

// lowerCallArg lowers one call argument. Aggregate-typed arguments resolve
// to the VarID of an actual struct/union-typed variable (directly when the
// source expression already names one, otherwise via a freshly
// materialized copy) rather than the address-returning convention every
// other aggregate rvalue uses: internal/codegen's ArgByPointer case takes
// the address of the argument var's OWN slot (e.varMem), not a pointer it
// dereferences.
func (b *builder) lowerCallArg(e Expr) ir.VarID {
	if !isMemKind(e.GetType()) {
		return b.lowerRValue(e)
	}
	if vr, ok := e.(*VarRefExpr); ok && vr.Sym.Kind != SymGlobalVar {
		return b.varID(vr.Sym)
	}
	srcAddr := b.lowerAggregateAddr(e)
	tempVar := b.newSpanningTemp(e.GetType())
	destAddr := b.addrOfVar(tempVar)
	b.emit(ir.Instr{Op: ir.OpCopyMem, Arg0: destAddr, Arg1: srcAddr, HasArg0: true, HasArg1: true, Offset: int64(e.GetType().Size())})
	return tempVar
}

func (b *builder) lowerCall(x *CallExpr) ir.VarID {
	args := make([]ir.VarID, len(x.Args))
	for i, a := range x.Args {
		args[i] = b.lowerCallArg(a)
	}

	call := &ir.CallPayload{
		Args:       args,
		ResultTyp:  x.Typ,
		IsVariadic: x.FuncType.IsVariadic,
		FixedArgc:  len(x.FuncType.Params),
	}

	instr := ir.Instr{Op: ir.OpCall, Call: call}
	if name, ok := directCallName(x.Callee); ok {
		call.Callee = name
	} else {
		call.Indirect = true
		instr.Arg0 = b.lowerRValue(x.Callee)
		instr.HasArg0 = true
	}

	if !x.Typ.IsVoid() {
		res := b.newTemp(x.Typ)
		if isMemKind(x.Typ) {
			res = b.newSpanningTemp(x.Typ)
		}
		instr.Result = res
		instr.HasResult = true
		b.emit(instr)
		if isMemKind(x.Typ) {
			return b.addrOfVar(res)
		}
		return res
	}
	b.emit(instr)
	return b.constInt(0, b.intType())
}

// ----------------------------------------------------------------------
// Variadic builtins

// vaListSlot resolves a va_list argument to the VarID of its own backing
// variable (never a computed address): OpVaStart/OpVaArg's codegen
// lowering takes the address of Arg0's OWN frame slot (`leaq
// varMem(Arg0), scratch`), so handing it an already-computed pointer temp
// would address that temp's slot instead of the va_list itself.
func (b *builder) vaListSlot(e Expr) ir.VarID {
	vr, ok := e.(*VarRefExpr)
	if !ok || vr.Sym.Kind == SymGlobalVar {
		diag.ICE(e.GetPos(), "va_list argument must be a local variable")
	}
	return b.varID(vr.Sym)
}

func (b *builder) lowerVaStart(x *VaStartExpr) ir.VarID {
	ap := b.vaListSlot(x.ApExpr)
	b.emit(ir.Instr{Op: ir.OpVaStart, Arg0: ap, HasArg0: true})
	return b.constInt(0, b.intType())
}

func (b *builder) lowerVaArg(x *VaArgExpr) ir.VarID {
	ap := b.vaListSlot(x.ApExpr)
	res := b.newTemp(x.Typ)
	b.emit(ir.Instr{Op: ir.OpVaArg, Arg0: ap, HasArg0: true, Result: res, HasResult: true, CastTyp: x.Typ})
	return res
}
