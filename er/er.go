// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package er implements this repository's error convention: every
// exported function in the core packages returns er.R rather than a bare
// error, carrying a type/code pair, a captured stack, and a chain of
// added context messages.
package er

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"runtime/debug"
	"strings"
)

// GenericErrorType is for packages with only one or two error codes which
// don't make sense having their own error type.
var GenericErrorType = NewErrorType("er.GenericErrorType")

var ErrUnexpectedEOF = GenericErrorType.CodeWithDefault("ErrUnexpectedEOF", io.ErrUnexpectedEOF)
var EOF = GenericErrorType.CodeWithDefault("EOF", io.EOF)

// ErrorCode identifies a particular type of fault within an ErrorType.
type ErrorCode struct {
	Detail         string
	Number         int
	Type           *ErrorType
	defaultWrapped error
}

type typedErr struct {
	messages []string
	errType  *ErrorType
	code     *ErrorCode
	err      R
}

// ErrorType is a generic type of error; each type can have many error codes.
type ErrorType struct {
	Name       string
	codeLookup map[int]*ErrorCode
	Codes      []*ErrorCode
}

// NewErrorType creates a new error type, identified by name.
func NewErrorType(ident string) ErrorType {
	return ErrorType{
		Name:       ident,
		codeLookup: make(map[int]*ErrorCode),
	}
}

func (c *ErrorCode) Is(err R) bool {
	if err == nil {
		return c == nil
	}
	if te, ok := err.(typedErr); ok {
		return te.code == c
	}
	return false
}

func (c *ErrorCode) new(info string, err R, bstack []byte) R {
	var messages []string
	if info == "" {
		messages = []string{c.Detail}
	} else {
		messages = []string{c.Detail, info}
	}
	if err == nil {
		if bstack == nil {
			bstack = captureStack()
		}
		err = newR("", bstack)
	} else if te, ok := err.(typedErr); ok {
		if te.code == c {
			if info != "" {
				te.messages = append(messages, te.messages...)
			}
			return te
		}
	}
	return typedErr{
		messages: messages,
		errType:  c.Type,
		code:     c,
		err:      err,
	}
}

func (c *ErrorCode) New(info string, err R) R {
	if err == nil {
		return c.new(info, nil, captureStack())
	}
	return c.new(info, err, nil)
}

func (c *ErrorCode) Default() R {
	if c.defaultWrapped != nil {
		return c.new("", ee(c.defaultWrapped), nil)
	}
	return c.new("", nil, captureStack())
}

func (e *ErrorType) Is(err R) bool {
	if err == nil {
		return false
	}
	if te, ok := err.(typedErr); ok {
		return te.errType == e
	}
	return false
}

func (e *ErrorType) Decode(err R) *ErrorCode {
	if err == nil {
		return nil
	}
	if te, ok := err.(typedErr); ok {
		return te.code
	}
	return nil
}

func (e *ErrorType) newErrorCode(number int, hasNumber bool, info string, detail string) *ErrorCode {
	var header string
	if hasNumber {
		header = fmt.Sprintf("%s(%d)", info, number)
	} else {
		header = info
	}
	if detail != "" {
		header = header + ": " + detail
	}
	result := &ErrorCode{
		Detail: header,
		Type:   e,
		Number: number,
	}
	if hasNumber {
		e.codeLookup[number] = result
	}
	e.Codes = append(e.Codes, result)
	return result
}

// Code constructs a new unnumbered error code.
func (e *ErrorType) Code(info string) *ErrorCode {
	return e.newErrorCode(0, false, info, "")
}

// CodeWithDefault constructs a code that wraps defaultError when New is
// called with a nil err.
func (e *ErrorType) CodeWithDefault(info string, defaultError error) *ErrorCode {
	ec := e.newErrorCode(0, false, info, "")
	ec.defaultWrapped = defaultError
	return ec
}

// CodeWithDetail constructs a code carrying a fixed detail string.
func (e *ErrorType) CodeWithDetail(info string, detail string) *ErrorCode {
	return e.newErrorCode(0, false, info, detail)
}

func (te typedErr) AddMessage(m string) {
	te.messages = append([]string{m}, te.messages...)
}

func (te typedErr) Message() string {
	tem := te.err.Message()
	if tem == "" {
		return strings.Join(te.messages, ": ")
	}
	return fmt.Sprintf("%s: %s", strings.Join(te.messages, ": "), tem)
}

func (te typedErr) HasStack() bool { return te.err.HasStack() }
func (te typedErr) Stack() []string { return te.err.Stack() }

func (te typedErr) String() string {
	s := ""
	if te.err.HasStack() {
		s = "\n\n" + strings.Join(te.err.Stack(), "\n") + "\n"
	}
	return te.Message() + s
}

func (te typedErr) Error() string    { return te.String() }
func (te typedErr) Wrapped0() error  { return te.err.Wrapped0() }

type typedErrAsNative struct{ e typedErr }

func (ten typedErrAsNative) Error() string { return ten.e.String() }
func (te typedErr) Native() error          { return typedErrAsNative{e: te} }

// R is the error interface returned by every exported function in this
// repository's core packages.
type R interface {
	Message() string
	Stack() []string
	HasStack() bool
	String() string
	Wrapped0() error
	Native() error
	AddMessage(m string)
}

type errT struct {
	messages []string
	e        error
	bstack   []byte
	stack    []string
}

type errAsNative struct{ e errT }

func (e errAsNative) Error() string { return e.e.String() }
func (e errT) HasStack() bool       { return e.bstack != nil }

var argumentsRegex = regexp.MustCompile(`\([0-9a-fx, \.]*\)$`)
var prefixRegex = regexp.MustCompile(`^.*/nelsontodd/bitcoin-iterate/`)
var goFileRegex = regexp.MustCompile(`\.go:[0-9]+ `)

func (e errT) Stack() []string {
	if e.stack == nil {
		s := strings.Split(string(e.bstack), "\n")
		if len(s) > 5 {
			s = s[5:]
		}
		var stack []string
		fun := ""
		for i := range s {
			x := argumentsRegex.ReplaceAllString(s[i], "()")
			x = prefixRegex.ReplaceAllString(x, "")
			x = "  " + strings.TrimSpace(x)
			if !goFileRegex.MatchString(x) {
				fun = x
			} else {
				stack = append(stack, x+"\t"+fun)
			}
		}
		e.stack = stack
	}
	return e.stack
}

func (e errT) AddMessage(m string) {
	if e.messages == nil {
		e.messages = []string{m, e.e.Error()}
	} else {
		e.messages = append([]string{m}, e.messages...)
	}
}

func (e errT) Message() string {
	if e.messages == nil {
		return e.e.Error()
	}
	return strings.Join(e.messages, ", ")
}

func (e errT) String() string {
	s := ""
	if e.bstack != nil {
		s = "\n\n" + strings.Join(e.Stack(), "\n") + "\n"
	}
	return e.Message() + s
}

func (e errT) Error() string   { return e.String() }
func (e errT) Wrapped0() error { return e.e }
func (e errT) Native() error   { return errAsNative{e: e} }

func captureStack() []byte { return debug.Stack() }

// Wrapped returns the stdlib error wrapped by err, if any.
func Wrapped(err R) error {
	if err == nil {
		return nil
	}
	return err.Wrapped0()
}

// Native turns an er.R into a stdlib error whose Error() matches String().
func Native(err R) error {
	if err == nil {
		return nil
	}
	return err.Native()
}

func newR(s string, bstack []byte) R {
	return errT{e: errors.New(s), bstack: bstack}
}

// New creates an untyped error with a captured stack.
func New(s string) R {
	return newR(s, captureStack())
}

// Errorf creates an untyped, formatted error with a captured stack.
func Errorf(format string, a ...interface{}) R {
	return errT{e: fmt.Errorf(format, a...), bstack: captureStack()}
}

func ee(e error) R {
	return errT{e: e, bstack: captureStack()}
}

// E lifts a stdlib error into an er.R, special-casing io.EOF and
// io.ErrUnexpectedEOF so downstream Is()/Equals() checks work uniformly.
func E(e error) R {
	if e == nil {
		return nil
	}
	if en, ok := e.(errAsNative); ok {
		return en.e
	}
	if en, ok := e.(typedErrAsNative); ok {
		return en.e
	}
	switch e {
	case io.ErrUnexpectedEOF:
		return ErrUnexpectedEOF.Default()
	case io.EOF:
		return EOF.Default()
	default:
		return ee(e)
	}
}

func equals(e, r R, fuzzy bool) bool {
	if e == nil || r == nil {
		return e == nil && r == nil
	}
	if te, ok := e.(typedErr); ok {
		if tr, ok := r.(typedErr); ok {
			return te.code == tr.code
		}
		return false
	}
	if ee, ok := e.(errT); ok {
		if rr, ok := r.(errT); ok {
			if ee.e != nil && rr.e != nil {
				if ee.e == rr.e {
					return true
				}
				if fuzzy {
					return reflect.TypeOf(ee.e) == reflect.TypeOf(rr.e)
				}
			}
			return false
		}
		return false
	}
	panic("unknown er.R implementation: " + reflect.TypeOf(e).Name())
}

// Equals reports whether two er.R values are the same typed error code,
// or wrap the identical underlying error.
func Equals(e, r R) bool { return equals(e, r, false) }

// FuzzyEquals is like Equals but considers two untyped errors equal if
// they wrap the same Go error type (not necessarily the same value).
func FuzzyEquals(e, r R) bool { return equals(e, r, true) }

var errLoopBreak = errors.New("loop break (if you're seeing this, it escaped its ForEach)")

// LoopBreak is a sentinel, non-fatal error used to end a ForEach-style
// iteration early without treating it as a genuine failure.
var LoopBreak = E(errLoopBreak)

// IsLoopBreak reports whether err is the LoopBreak sentinel.
func IsLoopBreak(e R) bool {
	en, ok := e.(errT)
	return ok && en.e == errLoopBreak
}

// Cis is a nil-safe shorthand for code.Is(e).
func Cis(code *ErrorCode, e R) bool {
	if code == nil {
		return e == nil
	}
	return code.Is(e)
}
