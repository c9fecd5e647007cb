package matches

import (
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

type scopeID int

type dropKind int

const (
	dropStorage dropKind = iota
	dropValue
)

type scheduledDrop struct {
	local mir.Local
	kind  dropKind
}

// scope is a region whose scheduled drops run, innermost first, when
// control leaves it.
type scope struct {
	id    scopeID
	drops []scheduledDrop
}

// ifThenScope collects the blocks that continue on the else path of a
// condition. Leaving to the else path drops every scope inside boundary.
type ifThenScope struct {
	boundary   scopeID
	elseBlocks []*mir.BasicBlock
}

func (b *Builder) pushScope() scopeID {
	b.nextScope++
	b.scopes = append(b.scopes, &scope{id: b.nextScope})
	return b.nextScope
}

func (b *Builder) topScope() scopeID {
	diag.Assert(len(b.scopes) != 0, diag.CodeLowerUnsupported, "no scope")
	return b.scopes[len(b.scopes)-1].id
}

// popScope leaves the innermost scope, which must be id, on block.
func (b *Builder) popScope(id scopeID, block *mir.BasicBlock) {
	top := b.scopes[len(b.scopes)-1]
	diag.Assert(top.id == id, diag.CodeLowerUnsupported, "pop scope %d, top is %d", id, top.id)

	b.emitDrops(block, top)
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *Builder) emitDrops(block *mir.BasicBlock, s *scope) {
	for i := len(s.drops) - 1; i >= 0; i-- {
		d := s.drops[i]
		switch d.kind {
		case dropValue:
			b.cfg.Push(block, &mir.Drop{Place: mir.PlaceOf(d.local)})
		case dropStorage:
			b.cfg.Push(block, &mir.StorageDead{Local: d.local})
		}
	}
}

// exitAllScopes runs the drops of every open scope, as a return does.
func (b *Builder) exitAllScopes(block *mir.BasicBlock) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		b.emitDrops(block, b.scopes[i])
	}
}

func (b *Builder) findScope(id scopeID) *scope {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if b.scopes[i].id == id {
			return b.scopes[i]
		}
	}
	diag.Bugf(diag.CodeLowerUnsupported, "scope %d is not open", id)
	return nil
}

func (b *Builder) scheduleDrop(id scopeID, local mir.Local, kind dropKind) {
	if kind == dropValue && types.IsCopy(b.cfg.LocalDecl(local).Type) {
		return
	}

	s := b.findScope(id)
	for _, d := range s.drops {
		if d.local == local && d.kind == kind {
			return
		}
	}
	s.drops = append(s.drops, scheduledDrop{local: local, kind: kind})
}

// clearTopScope forgets the drops scheduled so far in the innermost
// scope, which must be id.
func (b *Builder) clearTopScope(id scopeID) {
	top := b.scopes[len(b.scopes)-1]
	diag.Assert(top.id == id, diag.CodeLowerUnsupported, "clear scope %d, top is %d", id, top.id)

	top.drops = top.drops[:0]
}

// inIfThenScope lowers a condition with f, which returns the block for
// the then path. Every block passed to breakForElse meanwhile joins the
// returned else block.
func (b *Builder) inIfThenScope(boundary scopeID, f func() *mir.BasicBlock) (then, els *mir.BasicBlock) {
	prev := b.ifThen
	it := &ifThenScope{boundary: boundary}
	b.ifThen = it

	then = f()

	b.ifThen = prev

	els = b.cfg.NewBlock()
	for _, src := range it.elseBlocks {
		b.cfg.Goto(src, els)
	}

	tlog.V("scope").Printw("if-then scope", "then", then.Label, "else", els.Label, "sources", len(it.elseBlocks))

	return then, els
}

// breakForElse leaves block towards the else path of the innermost
// if-then scope.
func (b *Builder) breakForElse(block *mir.BasicBlock) {
	it := b.ifThen
	diag.Assert(it != nil, diag.CodeLowerUnsupported, "break for else outside of a condition")

	for i := len(b.scopes) - 1; i >= 0 && b.scopes[i].id != it.boundary; i-- {
		b.emitDrops(block, b.scopes[i])
	}
	it.elseBlocks = append(it.elseBlocks, block)
}
