package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toLValue converts a Go value for delivery to Lua. Maps and slices
// convert deeply; values with no Lua rendering become their string form.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// fromLValue converts a Lua value for publication: booleans, numbers
// (always float64), strings, and tables as []any or map[string]any.
func fromLValue(v lua.LValue) any {
	if v == nil || v == lua.LNil {
		return nil
	}
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return fromTable(val)
	default:
		return v.String()
	}
}

// fromTable renders a table as a slice when every key is numeric, else
// as a string-keyed map.
func fromTable(tbl *lua.LTable) any {
	isArray := true
	maxIdx := 0
	tbl.ForEach(func(k, _ lua.LValue) {
		num, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		if idx := int(num); idx > maxIdx {
			maxIdx = idx
		}
	})

	if isArray && maxIdx > 0 {
		arr := make([]any, maxIdx)
		tbl.ForEach(func(k, v lua.LValue) {
			if num, ok := k.(lua.LNumber); ok {
				if idx := int(num) - 1; idx >= 0 && idx < maxIdx {
					arr[idx] = fromLValue(v)
				}
			}
		})
		return arr
	}

	out := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		out[key] = fromLValue(v)
	})
	return out
}
