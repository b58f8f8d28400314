/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package vm

import (
	"fmt"
	"strconv"
	"strings"

	"devt.de/krotik/mpk/mk/comp"
)

/*
Tag is the type discriminant of a runtime value.
*/
type Tag byte

/*
Available runtime value tags. Scalars are held inline, everything else
lives on the heap. The signed integer tag backs the language's default
number type; the unsigned tags exist for codec interop values.
*/
const (
	TagUnit Tag = iota
	TagBool
	TagChar
	TagDur
	TagInt
	TagFloat
	TagU8
	TagU16
	TagU32
	TagU64
	TagU128
	TagList
	TagMap
	TagVec
	TagStr
	TagSym
	TagFn
	TagBoxFn
	TagClosure
	TagCustom
)

/*
tagNames maps tags to their type name.
*/
var tagNames = map[Tag]string{
	TagUnit: "unit", TagBool: "bool", TagChar: "char", TagDur: "dur",
	TagInt: "int", TagFloat: "float", TagU8: "u8", TagU16: "u16",
	TagU32: "u32", TagU64: "u64", TagU128: "u128", TagList: "list",
	TagMap: "map", TagVec: "vec", TagStr: "str", TagSym: "sym",
	TagFn: "fn", TagBoxFn: "fn", TagClosure: "closure", TagCustom: "custom",
}

/*
NativeFn is a built-in function.
*/
type NativeFn func(m *Machine, args []Obj) (Obj, error)

/*
Custom is an opaque value with a type name and a deterministic finalizer.
*/
type Custom interface {

	/*
	   TypeName returns the type name of the value.
	*/
	TypeName() string

	/*
	   Finalize releases resources held by the value. Called exactly once
	   when the value becomes unreachable.
	*/
	Finalize()
}

/*
List is a heap allocated list of values.
*/
type List struct {
	Items []Obj
	mark  bool
}

/*
Map is a heap allocated ordered association of keys to values. A map
whose values are equal-length lists and which carries the table flag is
a table.
*/
type Map struct {
	Keys  []Obj
	Vals  []Obj
	Table bool
	mark  bool
}

/*
Get looks up a key in a map.
*/
func (mp *Map) Get(key Obj) (Obj, bool) {
	for i, k := range mp.Keys {
		if Equal(k, key) {
			return mp.Vals[i], true
		}
	}

	return Obj{}, false
}

/*
Set writes a key in a map preserving insertion order.
*/
func (mp *Map) Set(key Obj, val Obj) {
	for i, k := range mp.Keys {
		if Equal(k, key) {
			mp.Vals[i] = val
			return
		}
	}

	mp.Keys = append(mp.Keys, key)
	mp.Vals = append(mp.Vals, val)
}

/*
Closure is a compiled function bound to its captured upvalues.
*/
type Closure struct {
	Lam  *comp.Lambda
	Ups  []*UpValue
	mark bool
}

/*
Obj is a runtime value. Which fields carry meaning depends on the tag.
*/
type Obj struct {
	T  Tag
	I  int64
	F  float64
	S  string
	L  *List
	M  *Map
	Fn NativeFn
	C  *Closure
	X  Custom
}

/*
Unit is the unit value.
*/
var Unit = Obj{T: TagUnit}

/*
Int returns an integer value.
*/
func Int(v int64) Obj { return Obj{T: TagInt, I: v} }

/*
Float returns a float value.
*/
func Float(v float64) Obj { return Obj{T: TagFloat, F: v} }

/*
Bool returns a boolean value.
*/
func Bool(v bool) Obj {
	if v {
		return Obj{T: TagBool, I: 1}
	}
	return Obj{T: TagBool}
}

/*
Str returns a string value.
*/
func Str(s string) Obj { return Obj{T: TagStr, S: s} }

/*
Sym returns a symbol value.
*/
func Sym(s string) Obj { return Obj{T: TagSym, S: s} }

/*
Char returns a character value.
*/
func Char(s string) Obj { return Obj{T: TagChar, S: s} }

/*
Dur returns a duration value in nanoseconds.
*/
func Dur(v int64) Obj { return Obj{T: TagDur, I: v} }

/*
Truthy returns the truthiness of a value: false, unit and the empty list
are falsy, everything else is truthy.
*/
func Truthy(o Obj) bool {
	switch o.T {

	case TagUnit:
		return false

	case TagBool:
		return o.I != 0

	case TagInt, TagChar, TagDur, TagU8, TagU16, TagU32, TagU64, TagU128:
		return o.I != 0

	case TagFloat:
		return o.F != 0

	case TagList, TagVec:
		return o.L != nil && len(o.L.Items) > 0
	}

	return true
}

/*
IsNumeric checks if a value is a number.
*/
func IsNumeric(o Obj) bool {
	switch o.T {
	case TagInt, TagFloat, TagBool, TagChar, TagDur,
		TagU8, TagU16, TagU32, TagU64, TagU128:
		return true
	}

	return false
}

/*
NumFloat returns the float value of a numeric object.
*/
func NumFloat(o Obj) float64 {
	if o.T == TagFloat {
		return o.F
	}

	return float64(o.I)
}

/*
Equal checks two values for equality. Data values compare structurally,
functions and closures compare by identity.
*/
func Equal(a Obj, b Obj) bool {
	if IsNumeric(a) && IsNumeric(b) {
		if a.T == TagFloat || b.T == TagFloat {
			return NumFloat(a) == NumFloat(b)
		}
		return a.I == b.I
	}

	if a.T != b.T {
		return false
	}

	switch a.T {

	case TagUnit:
		return true

	case TagStr, TagSym:
		return a.S == b.S

	case TagList, TagVec:
		if len(a.L.Items) != len(b.L.Items) {
			return false
		}
		for i := range a.L.Items {
			if !Equal(a.L.Items[i], b.L.Items[i]) {
				return false
			}
		}
		return true

	case TagMap:
		if len(a.M.Keys) != len(b.M.Keys) || a.M.Table != b.M.Table {
			return false
		}
		for i := range a.M.Keys {
			bv, ok := b.M.Get(a.M.Keys[i])
			if !ok || !Equal(a.M.Vals[i], bv) {
				return false
			}
		}
		return true

	case TagFn, TagBoxFn:
		return fmt.Sprintf("%p", a.Fn) == fmt.Sprintf("%p", b.Fn)

	case TagClosure:
		return a.C == b.C

	case TagCustom:
		return a.X == b.X
	}

	return false
}

/*
HashKey returns a hashable representation of a value. Floats are not
hashable.
*/
func HashKey(o Obj) (string, error) {
	switch o.T {

	case TagFloat:
		return "", &RuntimeError{Type: ErrTypeMismatch, Detail: "float is not hashable"}

	case TagUnit:
		return "u", nil

	case TagBool, TagInt, TagChar, TagDur, TagU8, TagU16, TagU32, TagU64, TagU128:
		return "i" + strconv.FormatInt(o.I, 16), nil

	case TagStr:
		return "s" + o.S, nil

	case TagSym:
		return "y" + o.S, nil

	case TagList, TagVec:
		var b strings.Builder
		b.WriteString("l")
		for _, item := range o.L.Items {
			k, err := HashKey(item)
			if err != nil {
				return "", err
			}
			b.WriteString(k)
			b.WriteString("|")
		}
		return b.String(), nil

	case TagMap:
		var b strings.Builder
		b.WriteString("m")
		for i := range o.M.Keys {
			k, err := HashKey(o.M.Keys[i])
			if err != nil {
				return "", err
			}
			v, err := HashKey(o.M.Vals[i])
			if err != nil {
				return "", err
			}
			b.WriteString(k + ":" + v + "|")
		}
		return b.String(), nil

	case TagClosure:
		return fmt.Sprintf("c%p", o.C), nil
	}

	return "", &RuntimeError{Type: ErrTypeMismatch,
		Detail: fmt.Sprintf("%v is not hashable", tagNames[o.T])}
}

/*
Display returns the display form of a value. Lists of atoms render space
separated (3 4 5), nested structures use parentheses.
*/
func Display(o Obj) string {
	switch o.T {

	case TagUnit:
		return "::"

	case TagBool:
		if o.I != 0 {
			return "1b"
		}
		return "0b"

	case TagInt, TagU8, TagU16, TagU32, TagU64, TagU128:
		return strconv.FormatInt(o.I, 10)

	case TagDur:
		return strconv.FormatInt(o.I, 10)

	case TagFloat:
		if o.F == float64(int64(o.F)) {
			return strconv.FormatFloat(o.F, 'f', 1, 64)
		}
		return strconv.FormatFloat(o.F, 'g', -1, 64)

	case TagChar:
		return "'" + o.S + "'"

	case TagStr:
		return strconv.Quote(o.S)

	case TagSym:
		return "`" + o.S

	case TagList, TagVec:
		items := make([]string, len(o.L.Items))
		nested := false

		for i, item := range o.L.Items {
			items[i] = Display(item)
			if item.T == TagList || item.T == TagVec || item.T == TagMap {
				nested = true
			}
		}

		if len(items) == 0 {
			return "()"
		}

		if nested {
			return "(" + strings.Join(items, ";") + ")"
		}

		return strings.Join(items, " ")

	case TagMap:
		var pairs []string
		for i := range o.M.Keys {
			pairs = append(pairs, Display(o.M.Keys[i])+":"+Display(o.M.Vals[i]))
		}

		if o.M.Table {
			return "+[" + strings.Join(pairs, " ") + "]"
		}

		return "[" + strings.Join(pairs, " ") + "]"

	case TagFn, TagBoxFn:
		return "fn"

	case TagClosure:
		return fmt.Sprintf("lambda/%v", o.C.Lam.Arity)

	case TagCustom:
		return o.X.TypeName()
	}

	return "?"
}

/*
TypeName returns the type name of a value.
*/
func TypeName(o Obj) string {
	return tagNames[o.T]
}
