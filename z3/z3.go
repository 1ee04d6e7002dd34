package z3

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/hwverif/ctrd"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ ctrd.Solver = (*Solver)(nil)

// ErrNoScope is returned when popping a solver without an open scope.
var ErrNoScope = errors.New("z3: no scope to pop")

// Solver represents an incremental solver that uses an embedded Z3 solver.
type Solver struct {
	ctx   *Context
	raw   C.Z3_solver
	stats Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	ctx := NewContext()
	raw := C.Z3_mk_solver(ctx.raw)
	C.Z3_solver_inc_ref(ctx.raw, raw)
	return &Solver{ctx: ctx, raw: raw}
}

// Close deletes the underlying Z3 solver and context.
func (s *Solver) Close() error {
	C.Z3_solver_dec_ref(s.ctx.raw, s.raw)
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// SetTimeout bounds every subsequent check. A zero duration removes the bound.
func (s *Solver) SetTimeout(d time.Duration) error {
	params := C.Z3_mk_params(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_params"); err != nil {
		return err
	}
	C.Z3_params_inc_ref(s.ctx.raw, params)
	defer C.Z3_params_dec_ref(s.ctx.raw, params)

	cname := C.CString("timeout")
	defer C.free(unsafe.Pointer(cname))
	sym := C.Z3_mk_string_symbol(s.ctx.raw, cname)

	ms := uint64(d / time.Millisecond)
	if d <= 0 || ms > uint64(^uint32(0)) {
		ms = uint64(^uint32(0))
	}
	C.Z3_params_set_uint(s.ctx.raw, params, sym, C.uint(ms))
	C.Z3_solver_set_params(s.ctx.raw, s.raw, params)
	return s.ctx.err("Z3_solver_set_params")
}

// Assert adds a boolean fact to the current scope.
func (s *Solver) Assert(expr ctrd.Expr) error {
	if w := ctrd.ExprWidth(expr); w != ctrd.WidthBool {
		return fmt.Errorf("z3.Solver.Assert: non-boolean expression width: %d", w)
	}
	ast, err := s.ctx.toAST(expr)
	if err != nil {
		return err
	}
	C.Z3_solver_assert(s.ctx.raw, s.raw, ast)
	return s.ctx.err("Z3_solver_assert")
}

// Push opens a new scope.
func (s *Solver) Push() error {
	C.Z3_solver_push(s.ctx.raw, s.raw)
	return s.ctx.err("Z3_solver_push")
}

// Pop discards the innermost scope.
func (s *Solver) Pop() error {
	if C.Z3_solver_get_num_scopes(s.ctx.raw, s.raw) == 0 {
		return ErrNoScope
	}
	C.Z3_solver_pop(s.ctx.raw, s.raw, 1)
	return s.ctx.err("Z3_solver_pop")
}

// Check returns the satisfiability of all asserted facts.
func (s *Solver) Check() (status ctrd.Status, err error) {
	t := time.Now()
	defer func() {
		s.stats.CheckN++
		s.stats.CheckTime += time.Since(t)
	}()

	// Exit immediately if the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return ctrd.Unknown, err
	} else if ret == C.Z3_L_FALSE {
		return ctrd.Unsat, nil
	} else if ret == C.Z3_L_TRUE {
		return ctrd.Sat, nil
	}

	reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, s.raw))
	switch {
	case strings.Contains(reason, "timeout"):
		return ctrd.Unknown, ctrd.ErrSolverTimeout
	case strings.Contains(reason, "canceled"):
		return ctrd.Unknown, ctrd.ErrSolverCanceled
	case strings.Contains(reason, "(resource limits reached)"):
		return ctrd.Unknown, ctrd.ErrSolverResourceLimit
	case strings.Contains(reason, "unknown"):
		return ctrd.Unknown, ctrd.ErrSolverUnknown
	default:
		return ctrd.Unknown, fmt.Errorf("z3: %s", reason)
	}
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw  C.Z3_context
	vars map[uint64]C.Z3_ast
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw, vars: make(map[uint64]C.Z3_ast)}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return ctx.err("Z3_del_context")
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a new instance of Z3_ast from an expression.
func (ctx *Context) toAST(expr ctrd.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *ctrd.ConstantExpr:
		return ctx.toConstantAST(expr)
	case *ctrd.VarExpr:
		return ctx.toVarAST(expr)
	case *ctrd.NotExpr:
		return ctx.toNotAST(expr)
	case *ctrd.BinaryExpr:
		return ctx.toBinaryAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

func (ctx *Context) toConstantAST(expr *ctrd.ConstantExpr) (C.Z3_ast, error) {
	if expr.Width == 1 {
		if expr.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	} else if expr.Width <= 64 {
		return ctx.makeUint64(expr.Width, expr.Value)
	}
	return nil, fmt.Errorf("z3.Context.toConstantAST: invalid expression width: %d", expr.Width)
}

// toVarAST returns the boolean constant for a variable. Variables are
// interned by id so every reference shares one declaration.
func (ctx *Context) toVarAST(expr *ctrd.VarExpr) (C.Z3_ast, error) {
	if ast, ok := ctx.vars[expr.ID]; ok {
		return ast, nil
	}

	cname := C.CString(varName(expr))
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	boolSort := C.Z3_mk_bool_sort(ctx.raw)
	if err := ctx.err("Z3_mk_bool_sort"); err != nil {
		return nil, err
	}
	ast := C.Z3_mk_const(ctx.raw, nameSymbol, boolSort)
	if err := ctx.err("Z3_mk_const"); err != nil {
		return nil, err
	}
	ctx.vars[expr.ID] = ast
	return ast, nil
}

func (ctx *Context) toNotAST(expr *ctrd.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	// If boolean, use boolean NOT operation.
	if ctrd.ExprWidth(expr.Expr) == 1 {
		return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
}

func (ctx *Context) toBinaryAST(expr *ctrd.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	isBool := ctrd.ExprWidth(expr.LHS) == 1

	switch expr.Op {
	case ctrd.AND:
		if isBool {
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
		}
		return C.Z3_mk_bvand(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvand")
	case ctrd.OR:
		if isBool {
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
		}
		return C.Z3_mk_bvor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvor")
	case ctrd.XOR:
		if isBool {
			return C.Z3_mk_xor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_xor")
		}
		return C.Z3_mk_bvxor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvxor")
	case ctrd.EQ:
		if isBool {
			return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
		}
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), t), ctx.err("Z3_mk_unsigned_int64")
}

func varName(expr *ctrd.VarExpr) string {
	return fmt.Sprintf("V%d", expr.ID)
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats holds counters for solver checks.
type Stats struct {
	CheckN    int
	CheckTime time.Duration
}
