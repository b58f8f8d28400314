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
	"math"
	"sort"
	"strconv"
	"strings"

	"devt.de/krotik/mpk/mk/comp"
)

/*
installVerbs binds the built-in verb and adverb functions. Dyadic verbs
are bound under their glyph, monadic verbs under the glyph with a
trailing colon.
*/
func (m *Machine) installVerbs() {
	native := func(name string, f NativeFn) {
		m.SetGlobal(name, Obj{T: TagFn, Fn: f})
	}

	// Dyadic verbs

	native("+", verbAdd)
	native("-", verbSub)
	native("*", verbMul)
	native("%", verbDiv)
	native("!", verbMod)
	native("&", verbMin)
	native("|", verbMax)
	native("<", verbLess)
	native(">", verbMore)
	native("=", verbEqual)
	native("~", verbMatch)
	native(",", verbConcat)
	native("^", verbExcept)
	native("#", verbTake)
	native("_", verbDrop)
	native("$", verbCast)
	native("?", verbFind)
	native("@", verbAt)
	native(".", verbApply)

	// Monadic verbs

	native("+:", verbFlip)
	native("-:", verbNegate)
	native("*:", verbFirst)
	native("%:", verbSqrt)
	native("!:", verbEnum)
	native("&:", verbWhere)
	native("|:", verbReverse)
	native("<:", verbAsc)
	native(">:", verbDesc)
	native("=:", verbGroup)
	native("~:", verbNot)
	native(",:", verbEnlist)
	native("^:", verbNull)
	native("#:", verbCount)
	native("_:", verbFloor)
	native("$:", verbString)
	native("?:", verbDistinct)
	native("@:", verbType)
	native(".:", verbEvalStr)

	// Adverbs

	native("'", adverbEach)
	native("/", adverbOver)
	native("\\", adverbScan)
	native("':", adverbEachPrior)
	native("/:", adverbEachRight)
	native("\\:", adverbEachLeft)
}

// Helpers
// =======

/*
itemsOf returns the items of a list value.
*/
func itemsOf(o Obj) ([]Obj, bool) {
	if o.T == TagList || o.T == TagVec {
		return o.L.Items, true
	}

	return nil, false
}

/*
enlist returns a value as an item slice (lists stay, atoms wrap).
*/
func enlist(o Obj) []Obj {
	if items, ok := itemsOf(o); ok {
		return items
	}

	return []Obj{o}
}

/*
typeErr builds a type mismatch error for a verb.
*/
func typeErr(verb string, args ...Obj) error {
	var kinds []string
	for _, a := range args {
		kinds = append(kinds, TypeName(a))
	}

	return &RuntimeError{Type: ErrTypeMismatch,
		Detail: fmt.Sprintf("%v on %v", verb, strings.Join(kinds, ", "))}
}

/*
arity checks the argument count of a verb.
*/
func arity(verb string, args []Obj, n int) error {
	if len(args) != n {
		return &RuntimeError{Type: ErrRank,
			Detail: fmt.Sprintf("%v expects %v arguments, got %v", verb, n, len(args))}
	}

	return nil
}

/*
dyadNumeric applies a numeric operation element-wise with scalar
broadcasting. Lists must have equal length.
*/
func dyadNumeric(m *Machine, verb string, a Obj, b Obj,
	intOp func(int64, int64) (Obj, error), fltOp func(float64, float64) (Obj, error)) (Obj, error) {

	aItems, aList := itemsOf(a)
	bItems, bList := itemsOf(b)

	recurse := func(x Obj, y Obj) (Obj, error) {
		return dyadNumeric(m, verb, x, y, intOp, fltOp)
	}

	switch {

	case aList && bList:
		if len(aItems) != len(bItems) {
			return Obj{}, &RuntimeError{Type: ErrLength,
				Detail: fmt.Sprintf("%v on lists of length %v and %v", verb, len(aItems), len(bItems))}
		}

		items := make([]Obj, len(aItems))
		for i := range aItems {
			r, err := recurse(aItems[i], bItems[i])
			if err != nil {
				return Obj{}, err
			}
			items[i] = r
		}

		return m.allocList(items)

	case aList:
		items := make([]Obj, len(aItems))
		for i := range aItems {
			r, err := recurse(aItems[i], b)
			if err != nil {
				return Obj{}, err
			}
			items[i] = r
		}

		return m.allocList(items)

	case bList:
		items := make([]Obj, len(bItems))
		for i := range bItems {
			r, err := recurse(a, bItems[i])
			if err != nil {
				return Obj{}, err
			}
			items[i] = r
		}

		return m.allocList(items)
	}

	if !IsNumeric(a) || !IsNumeric(b) {
		return Obj{}, typeErr(verb, a, b)
	}

	if a.T == TagFloat || b.T == TagFloat {
		return fltOp(NumFloat(a), NumFloat(b))
	}

	return intOp(a.I, b.I)
}

/*
monadNumeric applies a numeric operation element-wise.
*/
func monadNumeric(m *Machine, verb string, a Obj, op func(Obj) (Obj, error)) (Obj, error) {
	if items, ok := itemsOf(a); ok {
		ret := make([]Obj, len(items))

		for i, item := range items {
			r, err := monadNumeric(m, verb, item, op)
			if err != nil {
				return Obj{}, err
			}
			ret[i] = r
		}

		return m.allocList(ret)
	}

	if !IsNumeric(a) {
		return Obj{}, typeErr(verb, a)
	}

	return op(a)
}

// Dyadic verbs
// ============

func verbAdd(m *Machine, args []Obj) (Obj, error) {
	if err := arity("+", args, 2); err != nil {
		return Obj{}, err
	}

	return dyadNumeric(m, "+", args[0], args[1],
		func(a, b int64) (Obj, error) { return Int(a + b), nil },
		func(a, b float64) (Obj, error) { return Float(a + b), nil })
}

func verbSub(m *Machine, args []Obj) (Obj, error) {
	if err := arity("-", args, 2); err != nil {
		return Obj{}, err
	}

	return dyadNumeric(m, "-", args[0], args[1],
		func(a, b int64) (Obj, error) { return Int(a - b), nil },
		func(a, b float64) (Obj, error) { return Float(a - b), nil })
}

func verbMul(m *Machine, args []Obj) (Obj, error) {
	if err := arity("*", args, 2); err != nil {
		return Obj{}, err
	}

	return dyadNumeric(m, "*", args[0], args[1],
		func(a, b int64) (Obj, error) { return Int(a * b), nil },
		func(a, b float64) (Obj, error) { return Float(a * b), nil })
}

func verbDiv(m *Machine, args []Obj) (Obj, error) {
	if err := arity("%", args, 2); err != nil {
		return Obj{}, err
	}

	div := func(a, b float64) (Obj, error) {
		if b == 0 {
			return Obj{}, &RuntimeError{Type: ErrConversion, Detail: "division by zero"}
		}
		return Float(a / b), nil
	}

	return dyadNumeric(m, "%", args[0], args[1],
		func(a, b int64) (Obj, error) { return div(float64(a), float64(b)) }, div)
}

func verbMod(m *Machine, args []Obj) (Obj, error) {
	if err := arity("!", args, 2); err != nil {
		return Obj{}, err
	}

	return dyadNumeric(m, "!", args[0], args[1],
		func(a, b int64) (Obj, error) {
			if b == 0 {
				return Obj{}, &RuntimeError{Type: ErrConversion, Detail: "modulo by zero"}
			}
			return Int(a % b), nil
		},
		func(a, b float64) (Obj, error) {
			if b == 0 {
				return Obj{}, &RuntimeError{Type: ErrConversion, Detail: "modulo by zero"}
			}
			return Float(math.Mod(a, b)), nil
		})
}

func verbMin(m *Machine, args []Obj) (Obj, error) {
	if err := arity("&", args, 2); err != nil {
		return Obj{}, err
	}

	return dyadNumeric(m, "&", args[0], args[1],
		func(a, b int64) (Obj, error) {
			if a < b {
				return Int(a), nil
			}
			return Int(b), nil
		},
		func(a, b float64) (Obj, error) { return Float(math.Min(a, b)), nil })
}

func verbMax(m *Machine, args []Obj) (Obj, error) {
	if err := arity("|", args, 2); err != nil {
		return Obj{}, err
	}

	return dyadNumeric(m, "|", args[0], args[1],
		func(a, b int64) (Obj, error) {
			if a > b {
				return Int(a), nil
			}
			return Int(b), nil
		},
		func(a, b float64) (Obj, error) { return Float(math.Max(a, b)), nil })
}

/*
compare builds a comparison verb. Strings compare lexicographically,
numbers numerically.
*/
func compare(verb string, cmp func(int) bool) NativeFn {
	return func(m *Machine, args []Obj) (Obj, error) {
		if err := arity(verb, args, 2); err != nil {
			return Obj{}, err
		}

		a, b := args[0], args[1]

		if a.T == TagStr && b.T == TagStr {
			return Bool(cmp(strings.Compare(a.S, b.S))), nil
		}

		return dyadNumeric(m, verb, a, b,
			func(x, y int64) (Obj, error) {
				switch {
				case x < y:
					return Bool(cmp(-1)), nil
				case x > y:
					return Bool(cmp(1)), nil
				}
				return Bool(cmp(0)), nil
			},
			func(x, y float64) (Obj, error) {
				switch {
				case x < y:
					return Bool(cmp(-1)), nil
				case x > y:
					return Bool(cmp(1)), nil
				}
				return Bool(cmp(0)), nil
			})
	}
}

var verbLess = compare("<", func(c int) bool { return c < 0 })
var verbMore = compare(">", func(c int) bool { return c > 0 })
var verbEqual = compare("=", func(c int) bool { return c == 0 })

func verbMatch(m *Machine, args []Obj) (Obj, error) {
	if err := arity("~", args, 2); err != nil {
		return Obj{}, err
	}

	return Bool(Equal(args[0], args[1])), nil
}

func verbConcat(m *Machine, args []Obj) (Obj, error) {
	if err := arity(",", args, 2); err != nil {
		return Obj{}, err
	}

	a, b := args[0], args[1]

	if a.T == TagStr && b.T == TagStr {
		return Str(a.S + b.S), nil
	}

	items := append(append([]Obj{}, enlist(a)...), enlist(b)...)

	return m.allocList(items)
}

func verbExcept(m *Machine, args []Obj) (Obj, error) {
	if err := arity("^", args, 2); err != nil {
		return Obj{}, err
	}

	drop := enlist(args[1])

	var items []Obj

	for _, item := range enlist(args[0]) {
		found := false
		for _, d := range drop {
			if Equal(item, d) {
				found = true
				break
			}
		}

		if !found {
			items = append(items, item)
		}
	}

	return m.allocList(items)
}

func verbTake(m *Machine, args []Obj) (Obj, error) {
	if err := arity("#", args, 2); err != nil {
		return Obj{}, err
	}

	if args[0].T != TagInt {
		return Obj{}, typeErr("#", args[0], args[1])
	}

	n := args[0].I
	src := enlist(args[1])

	if len(src) == 0 {
		return m.allocList(nil)
	}

	count := n
	if count < 0 {
		count = -count
	}

	items := make([]Obj, 0, count)

	// Take cycles over the source; a negative count takes from the end

	for i := int64(0); i < count; i++ {
		if n >= 0 {
			items = append(items, src[i%int64(len(src))])
		} else {
			idx := int64(len(src)) - 1 - i%int64(len(src))
			items = append([]Obj{src[idx]}, items...)
		}
	}

	return m.allocList(items)
}

func verbDrop(m *Machine, args []Obj) (Obj, error) {
	if err := arity("_", args, 2); err != nil {
		return Obj{}, err
	}

	if args[0].T != TagInt {
		return Obj{}, typeErr("_", args[0], args[1])
	}

	n := args[0].I
	src := enlist(args[1])

	switch {

	case n >= int64(len(src)), -n >= int64(len(src)):
		return m.allocList(nil)

	case n >= 0:
		return m.allocList(append([]Obj{}, src[n:]...))
	}

	return m.allocList(append([]Obj{}, src[:int64(len(src))+n]...))
}

func verbCast(m *Machine, args []Obj) (Obj, error) {
	if err := arity("$", args, 2); err != nil {
		return Obj{}, err
	}

	if args[0].T != TagSym {
		return Obj{}, typeErr("$", args[0], args[1])
	}

	target := args[0].S
	val := args[1]

	conv := &RuntimeError{Type: ErrConversion,
		Detail: fmt.Sprintf("cannot cast %v to %v", TypeName(val), target)}

	switch target {

	case "int":
		switch val.T {
		case TagInt:
			return val, nil
		case TagFloat:
			return Int(int64(val.F)), nil
		case TagStr:
			v, err := strconv.ParseInt(strings.TrimSpace(val.S), 10, 64)
			if err != nil {
				return Obj{}, conv
			}
			return Int(v), nil
		}

	case "float":
		switch val.T {
		case TagFloat:
			return val, nil
		case TagInt:
			return Float(float64(val.I)), nil
		case TagStr:
			v, err := strconv.ParseFloat(strings.TrimSpace(val.S), 64)
			if err != nil {
				return Obj{}, conv
			}
			return Float(v), nil
		}

	case "str":
		if val.T == TagStr {
			return val, nil
		}
		return Str(Display(val)), nil

	case "sym":
		switch val.T {
		case TagSym:
			return val, nil
		case TagStr:
			return Sym(val.S), nil
		}
	}

	return Obj{}, conv
}

func verbFind(m *Machine, args []Obj) (Obj, error) {
	if err := arity("?", args, 2); err != nil {
		return Obj{}, err
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return Obj{}, typeErr("?", args[0], args[1])
	}

	find := func(needle Obj) Obj {
		for i, item := range src {
			if Equal(item, needle) {
				return Int(int64(i))
			}
		}
		return Int(int64(len(src)))
	}

	if needles, ok := itemsOf(args[1]); ok {
		items := make([]Obj, len(needles))
		for i, n := range needles {
			items[i] = find(n)
		}
		return m.allocList(items)
	}

	return find(args[1]), nil
}

func verbAt(m *Machine, args []Obj) (Obj, error) {
	if err := arity("@", args, 2); err != nil {
		return Obj{}, err
	}

	a, b := args[0], args[1]

	if a.T == TagMap {
		if v, ok := a.M.Get(b); ok {
			return v, nil
		}
		return Unit, nil
	}

	src, ok := itemsOf(a)
	if !ok {
		return Obj{}, typeErr("@", a, b)
	}

	index := func(idx Obj) (Obj, error) {
		if idx.T != TagInt {
			return Obj{}, typeErr("@", a, idx)
		}

		if idx.I < 0 || idx.I >= int64(len(src)) {
			return Obj{}, &RuntimeError{Type: ErrLength,
				Detail: fmt.Sprintf("index %v out of range %v", idx.I, len(src))}
		}

		return src[idx.I], nil
	}

	if idxs, ok := itemsOf(b); ok {
		items := make([]Obj, len(idxs))
		for i, idx := range idxs {
			v, err := index(idx)
			if err != nil {
				return Obj{}, err
			}
			items[i] = v
		}
		return m.allocList(items)
	}

	return index(b)
}

func verbApply(m *Machine, args []Obj) (Obj, error) {
	if err := arity(".", args, 2); err != nil {
		return Obj{}, err
	}

	return m.Apply(args[0], enlist(args[1]))
}

// Monadic verbs
// =============

func verbFlip(m *Machine, args []Obj) (Obj, error) {
	if err := arity("+:", args, 1); err != nil {
		return Obj{}, err
	}

	a := args[0]

	// Flipping a map of equal-length columns yields a table

	if a.T == TagMap {
		width := -1

		for _, v := range a.M.Vals {
			items, ok := itemsOf(v)
			if !ok {
				return Obj{}, typeErr("+:", a)
			}

			if width >= 0 && len(items) != width {
				return Obj{}, &RuntimeError{Type: ErrLength, Detail: "ragged table columns"}
			}
			width = len(items)
		}

		return m.allocMap(append([]Obj{}, a.M.Keys...),
			append([]Obj{}, a.M.Vals...), !a.M.Table)
	}

	rows, ok := itemsOf(a)
	if !ok {
		return a, nil
	}

	// Transpose a list of equal-length rows

	width := -1
	for _, row := range rows {
		items, ok := itemsOf(row)
		if !ok {
			return a, nil
		}

		if width >= 0 && len(items) != width {
			return Obj{}, &RuntimeError{Type: ErrLength, Detail: "ragged rows"}
		}
		width = len(items)
	}

	cols := make([]Obj, width)

	for c := 0; c < width; c++ {
		col := make([]Obj, len(rows))
		for r, row := range rows {
			col[r] = row.L.Items[c]
		}

		v, err := m.allocList(col)
		if err != nil {
			return Obj{}, err
		}
		cols[c] = v
	}

	return m.allocList(cols)
}

func verbNegate(m *Machine, args []Obj) (Obj, error) {
	if err := arity("-:", args, 1); err != nil {
		return Obj{}, err
	}

	return monadNumeric(m, "-:", args[0], func(o Obj) (Obj, error) {
		if o.T == TagFloat {
			return Float(-o.F), nil
		}
		return Int(-o.I), nil
	})
}

func verbFirst(m *Machine, args []Obj) (Obj, error) {
	if err := arity("*:", args, 1); err != nil {
		return Obj{}, err
	}

	if items, ok := itemsOf(args[0]); ok {
		if len(items) == 0 {
			return Unit, nil
		}
		return items[0], nil
	}

	if args[0].T == TagStr && args[0].S != "" {
		return Char(string([]rune(args[0].S)[0])), nil
	}

	return args[0], nil
}

func verbSqrt(m *Machine, args []Obj) (Obj, error) {
	if err := arity("%:", args, 1); err != nil {
		return Obj{}, err
	}

	return monadNumeric(m, "%:", args[0], func(o Obj) (Obj, error) {
		return Float(math.Sqrt(NumFloat(o))), nil
	})
}

func verbEnum(m *Machine, args []Obj) (Obj, error) {
	if err := arity("!:", args, 1); err != nil {
		return Obj{}, err
	}

	a := args[0]

	// Enumerating a map yields its keys

	if a.T == TagMap {
		return m.allocList(append([]Obj{}, a.M.Keys...))
	}

	if a.T != TagInt || a.I < 0 {
		return Obj{}, typeErr("!:", a)
	}

	items := make([]Obj, a.I)
	for i := int64(0); i < a.I; i++ {
		items[i] = Int(i)
	}

	return m.allocList(items)
}

func verbWhere(m *Machine, args []Obj) (Obj, error) {
	if err := arity("&:", args, 1); err != nil {
		return Obj{}, err
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return Obj{}, typeErr("&:", args[0])
	}

	var items []Obj

	for i, item := range src {
		if !IsNumeric(item) {
			return Obj{}, typeErr("&:", item)
		}

		for c := int64(0); c < item.I; c++ {
			items = append(items, Int(int64(i)))
		}
	}

	return m.allocList(items)
}

func verbReverse(m *Machine, args []Obj) (Obj, error) {
	if err := arity("|:", args, 1); err != nil {
		return Obj{}, err
	}

	if args[0].T == TagStr {
		runes := []rune(args[0].S)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return Str(string(runes)), nil
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return args[0], nil
	}

	items := make([]Obj, len(src))
	for i, item := range src {
		items[len(src)-1-i] = item
	}

	return m.allocList(items)
}

/*
sortItems sorts values ascending. Numbers sort before strings.
*/
func sortItems(src []Obj) ([]Obj, error) {
	items := append([]Obj{}, src...)

	var failed error

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		switch {

		case IsNumeric(a) && IsNumeric(b):
			return NumFloat(a) < NumFloat(b)

		case IsNumeric(a):
			return true

		case IsNumeric(b):
			return false

		case (a.T == TagStr || a.T == TagSym) && (b.T == TagStr || b.T == TagSym):
			return a.S < b.S
		}

		failed = typeErr("<:", a, b)
		return false
	})

	return items, failed
}

func verbAsc(m *Machine, args []Obj) (Obj, error) {
	if err := arity("<:", args, 1); err != nil {
		return Obj{}, err
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return args[0], nil
	}

	items, err := sortItems(src)
	if err != nil {
		return Obj{}, err
	}

	return m.allocList(items)
}

func verbDesc(m *Machine, args []Obj) (Obj, error) {
	if err := arity(">:", args, 1); err != nil {
		return Obj{}, err
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return args[0], nil
	}

	items, err := sortItems(src)
	if err != nil {
		return Obj{}, err
	}

	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return m.allocList(items)
}

func verbGroup(m *Machine, args []Obj) (Obj, error) {
	if err := arity("=:", args, 1); err != nil {
		return Obj{}, err
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return Obj{}, typeErr("=:", args[0])
	}

	var keys []Obj
	var vals []Obj

	index := make(map[string]int)

	for i, item := range src {
		hk, err := HashKey(item)
		if err != nil {
			return Obj{}, err
		}

		if at, ok := index[hk]; ok {
			vals[at].L.Items = append(vals[at].L.Items, Int(int64(i)))
			continue
		}

		group, err := m.allocList([]Obj{Int(int64(i))})
		if err != nil {
			return Obj{}, err
		}

		index[hk] = len(keys)
		keys = append(keys, item)
		vals = append(vals, group)
	}

	return m.allocMap(keys, vals, false)
}

func verbNot(m *Machine, args []Obj) (Obj, error) {
	if err := arity("~:", args, 1); err != nil {
		return Obj{}, err
	}

	if items, ok := itemsOf(args[0]); ok {
		ret := make([]Obj, len(items))
		for i, item := range items {
			ret[i] = Bool(!Truthy(item))
		}
		return m.allocList(ret)
	}

	return Bool(!Truthy(args[0])), nil
}

func verbEnlist(m *Machine, args []Obj) (Obj, error) {
	if err := arity(",:", args, 1); err != nil {
		return Obj{}, err
	}

	return m.allocList([]Obj{args[0]})
}

func verbNull(m *Machine, args []Obj) (Obj, error) {
	if err := arity("^:", args, 1); err != nil {
		return Obj{}, err
	}

	a := args[0]

	null := a.T == TagUnit ||
		(a.T == TagStr && a.S == "") ||
		((a.T == TagList || a.T == TagVec) && len(a.L.Items) == 0)

	return Bool(null), nil
}

func verbCount(m *Machine, args []Obj) (Obj, error) {
	if err := arity("#:", args, 1); err != nil {
		return Obj{}, err
	}

	a := args[0]

	switch a.T {

	case TagList, TagVec:
		return Int(int64(len(a.L.Items))), nil

	case TagStr:
		return Int(int64(len([]rune(a.S)))), nil

	case TagMap:
		return Int(int64(len(a.M.Keys))), nil
	}

	return Int(1), nil
}

func verbFloor(m *Machine, args []Obj) (Obj, error) {
	if err := arity("_:", args, 1); err != nil {
		return Obj{}, err
	}

	return monadNumeric(m, "_:", args[0], func(o Obj) (Obj, error) {
		if o.T == TagFloat {
			return Int(int64(math.Floor(o.F))), nil
		}
		return o, nil
	})
}

func verbString(m *Machine, args []Obj) (Obj, error) {
	if err := arity("$:", args, 1); err != nil {
		return Obj{}, err
	}

	if args[0].T == TagStr {
		return args[0], nil
	}

	return Str(Display(args[0])), nil
}

func verbDistinct(m *Machine, args []Obj) (Obj, error) {
	if err := arity("?:", args, 1); err != nil {
		return Obj{}, err
	}

	src, ok := itemsOf(args[0])
	if !ok {
		return args[0], nil
	}

	var items []Obj

	for _, item := range src {
		found := false
		for _, seen := range items {
			if Equal(item, seen) {
				found = true
				break
			}
		}

		if !found {
			items = append(items, item)
		}
	}

	return m.allocList(items)
}

func verbType(m *Machine, args []Obj) (Obj, error) {
	if err := arity("@:", args, 1); err != nil {
		return Obj{}, err
	}

	return Sym(TypeName(args[0])), nil
}

func verbEvalStr(m *Machine, args []Obj) (Obj, error) {
	if err := arity(".:", args, 1); err != nil {
		return Obj{}, err
	}

	if args[0].T != TagStr {
		return Obj{}, typeErr(".:", args[0])
	}

	results, err := m.Eval(args[0].S, comp.OptZero)
	if err != nil {
		return Obj{}, err
	}

	if len(results) == 0 {
		return Unit, nil
	}

	return results[len(results)-1], nil
}

// Adverbs
// =======

/*
adverbEach maps a function over its operands. With two operands the
function is applied pairwise with scalar broadcasting.
*/
func adverbEach(m *Machine, args []Obj) (Obj, error) {
	if len(args) == 2 {
		f, x := args[0], args[1]

		items, ok := itemsOf(x)
		if !ok {
			return m.Apply(f, []Obj{x})
		}

		ret := make([]Obj, len(items))
		for i, item := range items {
			r, err := m.Apply(f, []Obj{item})
			if err != nil {
				return Obj{}, err
			}
			ret[i] = r
		}

		return m.allocList(ret)
	}

	if err := arity("'", args, 3); err != nil {
		return Obj{}, err
	}

	f, x, y := args[0], args[1], args[2]

	xItems, xList := itemsOf(x)
	yItems, yList := itemsOf(y)

	switch {

	case xList && yList:
		if len(xItems) != len(yItems) {
			return Obj{}, &RuntimeError{Type: ErrLength,
				Detail: fmt.Sprintf("' on lists of length %v and %v", len(xItems), len(yItems))}
		}

		ret := make([]Obj, len(xItems))
		for i := range xItems {
			r, err := m.Apply(f, []Obj{xItems[i], yItems[i]})
			if err != nil {
				return Obj{}, err
			}
			ret[i] = r
		}

		return m.allocList(ret)

	case xList:
		ret := make([]Obj, len(xItems))
		for i := range xItems {
			r, err := m.Apply(f, []Obj{xItems[i], y})
			if err != nil {
				return Obj{}, err
			}
			ret[i] = r
		}
		return m.allocList(ret)

	case yList:
		ret := make([]Obj, len(yItems))
		for i := range yItems {
			r, err := m.Apply(f, []Obj{x, yItems[i]})
			if err != nil {
				return Obj{}, err
			}
			ret[i] = r
		}
		return m.allocList(ret)
	}

	return m.Apply(f, []Obj{x, y})
}

/*
foldArgs normalizes the over / scan argument forms: (f, x) folds over x,
(f, init, x) folds over x starting from init.
*/
func foldArgs(verb string, args []Obj) (Obj, []Obj, *Obj, error) {
	switch len(args) {

	case 2:
		return args[0], enlist(args[1]), nil, nil

	case 3:
		init := args[1]
		return args[0], enlist(args[2]), &init, nil
	}

	return Obj{}, nil, nil, &RuntimeError{Type: ErrRank,
		Detail: fmt.Sprintf("%v expects 2 or 3 arguments, got %v", verb, len(args))}
}

func adverbOver(m *Machine, args []Obj) (Obj, error) {
	f, items, init, err := foldArgs("/", args)
	if err != nil {
		return Obj{}, err
	}

	var acc Obj

	switch {

	case init != nil:
		acc = *init

	case len(items) == 0:
		return Unit, nil

	default:
		acc = items[0]
		items = items[1:]
	}

	for _, item := range items {
		if acc, err = m.Apply(f, []Obj{acc, item}); err != nil {
			return Obj{}, err
		}
	}

	return acc, nil
}

func adverbScan(m *Machine, args []Obj) (Obj, error) {
	f, items, init, err := foldArgs("\\", args)
	if err != nil {
		return Obj{}, err
	}

	var acc Obj
	var ret []Obj

	switch {

	case init != nil:
		acc = *init

	case len(items) == 0:
		return m.allocList(nil)

	default:
		acc = items[0]
		items = items[1:]
		ret = append(ret, acc)
	}

	for _, item := range items {
		if acc, err = m.Apply(f, []Obj{acc, item}); err != nil {
			return Obj{}, err
		}
		ret = append(ret, acc)
	}

	return m.allocList(ret)
}

func adverbEachPrior(m *Machine, args []Obj) (Obj, error) {
	f, items, seed, err := foldArgs("':", args)
	if err != nil {
		return Obj{}, err
	}

	if len(items) == 0 {
		return m.allocList(nil)
	}

	ret := make([]Obj, len(items))

	if seed != nil {
		r, aerr := m.Apply(f, []Obj{items[0], *seed})
		if aerr != nil {
			return Obj{}, aerr
		}
		ret[0] = r
	} else {
		ret[0] = items[0]
	}

	for i := 1; i < len(items); i++ {
		r, aerr := m.Apply(f, []Obj{items[i], items[i-1]})
		if aerr != nil {
			return Obj{}, aerr
		}
		ret[i] = r
	}

	return m.allocList(ret)
}

func adverbEachRight(m *Machine, args []Obj) (Obj, error) {
	if len(args) == 2 {
		return adverbEach(m, args)
	}

	if err := arity("/:", args, 3); err != nil {
		return Obj{}, err
	}

	f, x := args[0], args[1]

	ret := make([]Obj, 0, 8)

	for _, yi := range enlist(args[2]) {
		r, err := m.Apply(f, []Obj{x, yi})
		if err != nil {
			return Obj{}, err
		}
		ret = append(ret, r)
	}

	return m.allocList(ret)
}

func adverbEachLeft(m *Machine, args []Obj) (Obj, error) {
	if len(args) == 2 {
		return adverbEach(m, args)
	}

	if err := arity("\\:", args, 3); err != nil {
		return Obj{}, err
	}

	f, y := args[0], args[2]

	ret := make([]Obj, 0, 8)

	for _, xi := range enlist(args[1]) {
		r, err := m.Apply(f, []Obj{xi, y})
		if err != nil {
			return Obj{}, err
		}
		ret = append(ret, r)
	}

	return m.allocList(ret)
}
