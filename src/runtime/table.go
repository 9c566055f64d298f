package runtime

import (
	"errors"
	"math"
)

type (
	// Table is the associative container of the runtime. Keys 1..n are kept in
	// an array part so that length queries and sequential access are cheap,
	// every other key lives in the hash part.
	Table struct {
		array     []Value
		hashtable map[Value]Value
		keyCache  []Value
		keyPos    map[Value]int
		dead      int
		metatable *Table
	}
	// UserData is host data exposed to scripts. It carries its own metatable
	// the same way a table does.
	UserData interface {
		Metatable() *Table
		SetMetatable(mt *Table)
	}
	// GoUserData is a UserData wrapping an arbitrary go value.
	GoUserData struct {
		Data      any
		metatable *Table
	}
)

var (
	errNilIndex = errors.New("table index is nil")
	errNaNIndex = errors.New("table index is NaN")
)

// NewTable creates a table from an array part and a hash part. Hash entries
// that a table cannot hold are skipped: nil values, nil keys and NaN keys.
// Use Set to have those reported as errors.
func NewTable(arr []Value, hash map[Value]Value) *Table {
	tbl := NewSizedTable(len(arr), len(hash))
	tbl.array = append(tbl.array, arr...)
	tbl.trimArray()
	for key, val := range hash {
		_ = tbl.Set(key, val)
	}
	return tbl
}

// NewSizedTable creates an empty table with preallocated parts.
func NewSizedTable(arraySize, tableSize int) *Table {
	return &Table{
		array:     make([]Value, 0, arraySize),
		hashtable: make(map[Value]Value, tableSize),
		keyPos:    make(map[Value]int, tableSize),
	}
}

// Metatable returns the metatable of the table or nil.
func (t *Table) Metatable() *Table { return t.metatable }

// SetMetatable replaces the metatable of the table, nil removes it.
func (t *Table) SetMetatable(mt *Table) { t.metatable = mt }

// Get is a raw get of a key.
func (t *Table) Get(key Value) Value {
	if i, ok := t.arrayIndex(key); ok && i < len(t.array) {
		return t.array[i]
	}
	return t.hashtable[key]
}

// GetString is a raw get with a string key.
func (t *Table) GetString(key string) Value {
	return t.hashtable[StringValue(key)]
}

// Set is a raw set of a key. Setting a nil value removes the key.
func (t *Table) Set(key, val Value) error {
	switch key.typ {
	case TypeNil:
		return errNilIndex
	case TypeNumber:
		if math.IsNaN(key.num) {
			return errNaNIndex
		}
	}

	if i, ok := t.arrayIndex(key); ok {
		if i < len(t.array) {
			t.array[i] = val
			if i == len(t.array)-1 {
				t.trimArray()
			}
			return nil
		} else if i == len(t.array) && !val.IsNil() {
			t.array = append(t.array, val)
			t.removeHashKey(key)
			t.migrateHash()
			return nil
		}
	}

	if val.IsNil() {
		t.removeHashKey(key)
		return nil
	}
	if _, exists := t.hashtable[key]; !exists {
		if _, known := t.keyPos[key]; known {
			t.dead--
		} else {
			t.compactKeys()
			t.keyPos[key] = len(t.keyCache)
			t.keyCache = append(t.keyCache, key)
		}
	}
	t.hashtable[key] = val
	return nil
}

// SetString is a raw set with a string key.
func (t *Table) SetString(key string, val Value) {
	_ = t.Set(StringValue(key), val)
}

// Append adds values at the end of the array part.
func (t *Table) Append(vals ...Value) {
	for _, val := range vals {
		_ = t.Set(NumberValue(float64(len(t.array)+1)), val)
	}
}

// Len returns the border of the array part.
func (t *Table) Len() int {
	return len(t.array)
}

// Next returns the key/value pair following key in iteration order. Iteration
// starts with a nil key and ends when a nil key is returned.
func (t *Table) Next(key Value) (Value, Value, error) {
	start := 0
	if !key.IsNil() {
		i, isIdx := t.arrayIndex(key)
		_, inHash := t.hashtable[key]
		switch {
		case isIdx && i < len(t.array):
			start = i + 1
		case isIdx && !inHash:
			// the array shrank while iterating, continue with the hash part.
			start = len(t.array)
		default:
			pos, known := t.keyPos[key]
			if !known {
				return Nil, Nil, errors.New("invalid key to 'next'")
			}
			start = len(t.array) + pos + 1
		}
	}
	for i := start; i < len(t.array); i++ {
		if !t.array[i].IsNil() {
			return NumberValue(float64(i + 1)), t.array[i], nil
		}
	}
	for j := max(start-len(t.array), 0); j < len(t.keyCache); j++ {
		k := t.keyCache[j]
		if val, ok := t.hashtable[k]; ok {
			return k, val, nil
		}
	}
	return Nil, Nil, nil
}

// arrayIndex returns the zero based array slot for integral keys >= 1.
func (t *Table) arrayIndex(key Value) (int, bool) {
	if key.typ != TypeNumber {
		return 0, false
	}
	idx, ok := floatToInt(key.num)
	if !ok || idx < 1 || idx > math.MaxInt32 {
		return 0, false
	}
	return int(idx - 1), true
}

// removed keys keep their iteration slot so that clearing fields while
// traversing with Next stays valid.
func (t *Table) removeHashKey(key Value) {
	if _, exists := t.hashtable[key]; !exists {
		return
	}
	delete(t.hashtable, key)
	t.dead++
}

// compactKeys drops removed keys from the iteration order. It only runs when a
// new key is added, which invalidates any traversal anyway.
func (t *Table) compactKeys() {
	if t.dead == 0 || t.dead < len(t.keyCache)/2 {
		return
	}
	live := t.keyCache[:0]
	for _, k := range t.keyCache {
		if _, ok := t.hashtable[k]; ok {
			t.keyPos[k] = len(live)
			live = append(live, k)
		} else {
			delete(t.keyPos, k)
		}
	}
	clear(t.keyCache[len(live):])
	t.keyCache = live
	t.dead = 0
}

// pulls following integer keys out of the hash once the array part reaches them.
func (t *Table) migrateHash() {
	for {
		next := NumberValue(float64(len(t.array) + 1))
		val, ok := t.hashtable[next]
		if !ok {
			return
		}
		t.removeHashKey(next)
		t.array = append(t.array, val)
	}
}

func (t *Table) trimArray() {
	end := len(t.array)
	for end > 0 && t.array[end-1].IsNil() {
		end--
	}
	clear(t.array[end:])
	t.array = t.array[:end]
}

// NewUserData wraps a go value so that it can be passed to scripts.
func NewUserData(data any, mt *Table) *GoUserData {
	return &GoUserData{Data: data, metatable: mt}
}

// Metatable returns the metatable of the userdata.
func (ud *GoUserData) Metatable() *Table { return ud.metatable }

// SetMetatable replaces the metatable of the userdata.
func (ud *GoUserData) SetMetatable(mt *Table) { ud.metatable = mt }
