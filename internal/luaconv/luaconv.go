// Package luaconv converts Lua stack values into native Go data.
package luaconv

import (
	"fmt"

	"github.com/Shopify/go-lua"
)

// ToGo converts the Lua value at index into a Go value. Tables with
// contiguous 1..n integer keys become []any sequences; other tables become
// string-keyed mappings.
func ToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeNil:
		return nil
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeNumber:
		number, _ := state.ToNumber(index)
		if number == float64(int(number)) {
			return int(number)
		}
		return number
	case lua.TypeString:
		text, _ := state.ToString(index)
		return text
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	state.PushValue(index)
	defer state.Pop(1)

	var sequence []any
	mapping := make(map[string]any)
	isSequence := true

	state.PushNil()
	for state.Next(-2) {
		value := ToGo(state, -1)
		if state.TypeOf(-2) == lua.TypeNumber {
			key, _ := state.ToNumber(-2)
			if isSequence && key == float64(len(sequence)+1) {
				sequence = append(sequence, value)
			} else {
				isSequence = false
				mapping[fmt.Sprint(key)] = value
			}
		} else {
			isSequence = false
			if key, ok := state.ToString(-2); ok {
				mapping[key] = value
			}
		}
		state.Pop(1)
	}
	if isSequence && len(mapping) == 0 {
		return sequence
	}
	for i, value := range sequence {
		mapping[fmt.Sprint(i+1)] = value
	}
	return mapping
}
