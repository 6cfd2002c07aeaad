package property

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// cell is the immutable heap payload shared by String, Binary and Map
// properties. It is never mutated after construction, so copying a Property
// copies only the pointer and the garbage collector owns the cell's
// lifetime — no refcounting needed for "cheap copy, shared payload"
// semantics (see DESIGN.md).
type cell struct {
	str string
	bin []byte
	m   Map
}

// Property is a tagged-union value: exactly one of its scalar fields or its
// cell pointer is meaningful, selected by typ. Constructing, copying and
// destroying a Property never mutates a shared cell — new values replace,
// they do not edit.
type Property struct {
	info *Info
	typ  Type
	num  uint64 // raw bits for Bool/Int32/UInt32/Int64/UInt64/Double
	c    *cell
}

// NewEmpty returns the zero Property (type Empty, no descriptor).
func NewEmpty() Property { return Property{typ: Empty} }

func mustMatch(info *Info, t Type) {
	if info.Type != t {
		panic(fmt.Sprintf("property: info %q has type %s, constructing %s", info.Name, info.Type, t))
	}
}

func NewBool(info *Info, v bool) Property {
	mustMatch(info, Bool)
	n := uint64(0)
	if v {
		n = 1
	}
	return Property{info: info, typ: Bool, num: n}
}

func NewInt32(info *Info, v int32) Property {
	mustMatch(info, Int32)
	return Property{info: info, typ: Int32, num: uint64(uint32(v))}
}

func NewUInt32(info *Info, v uint32) Property {
	mustMatch(info, UInt32)
	return Property{info: info, typ: UInt32, num: uint64(v)}
}

func NewInt64(info *Info, v int64) Property {
	mustMatch(info, Int64)
	return Property{info: info, typ: Int64, num: uint64(v)}
}

func NewUInt64(info *Info, v uint64) Property {
	mustMatch(info, UInt64)
	return Property{info: info, typ: UInt64, num: v}
}

func NewDouble(info *Info, v float64) Property {
	mustMatch(info, Double)
	return Property{info: info, typ: Double, num: math.Float64bits(v)}
}

func NewString(info *Info, v string) Property {
	mustMatch(info, String)
	return Property{info: info, typ: String, c: &cell{str: v}}
}

func NewBinary(info *Info, v []byte) Property {
	mustMatch(info, Binary)
	cp := make([]byte, len(v))
	copy(cp, v)
	return Property{info: info, typ: Binary, c: &cell{bin: cp}}
}

func NewMap(info *Info, v Map) Property {
	mustMatch(info, Map)
	return Property{info: info, typ: Map, c: &cell{m: v.clone()}}
}

func (p Property) Type() Type  { return p.typ }
func (p Property) Info() *Info { return p.info }
func (p Property) Empty() bool { return p.typ == Empty }

func (p Property) Name() string {
	if p.info == nil {
		return ""
	}
	return p.info.Name
}

func (p Property) GetBool() (bool, bool) {
	if p.typ != Bool {
		return false, false
	}
	return p.num != 0, true
}

func (p Property) GetInt32() (int32, bool) {
	if p.typ != Int32 {
		return 0, false
	}
	return int32(uint32(p.num)), true
}

func (p Property) GetUInt32() (uint32, bool) {
	if p.typ != UInt32 {
		return 0, false
	}
	return uint32(p.num), true
}

func (p Property) GetInt64() (int64, bool) {
	if p.typ != Int64 {
		return 0, false
	}
	return int64(p.num), true
}

func (p Property) GetUInt64() (uint64, bool) {
	if p.typ != UInt64 {
		return 0, false
	}
	return p.num, true
}

func (p Property) GetDouble() (float64, bool) {
	if p.typ != Double {
		return 0, false
	}
	return math.Float64frombits(p.num), true
}

func (p Property) GetString() (string, bool) {
	if p.typ != String || p.c == nil {
		return "", false
	}
	return p.c.str, true
}

func (p Property) GetBinary() ([]byte, bool) {
	if p.typ != Binary || p.c == nil {
		return nil, false
	}
	return p.c.bin, true
}

func (p Property) GetMap() (Map, bool) {
	if p.typ != Map || p.c == nil {
		return Map{}, false
	}
	return p.c.m, true
}

// Take implements the source's "move leaves the source Empty" invariant.
// Go has no destructive move; callers that need the invariant for a test or
// for an API that models hand-off call Take on the Property they own.
func (p *Property) Take() Property {
	v := *p
	*p = NewEmpty()
	return v
}

// Equal reports deep equality: types must match and payloads must compare
// equal (deep for containers).
func (p Property) Equal(other Property) bool {
	if p.typ != other.typ {
		return false
	}
	switch p.typ {
	case Empty:
		return true
	case Bool, Int32, UInt32, Int64, UInt64, Double:
		return p.num == other.num
	case String:
		return p.c.str == other.c.str
	case Binary:
		return string(p.c.bin) == string(other.c.bin)
	case Map:
		return p.c.m.equal(other.c.m)
	default:
		return false
	}
}

// Hash is consistent with Equal.
func (p Property) Hash() uint64 {
	h := xxhash.New()
	var tb [4]byte
	tb[0] = byte(p.typ)
	tb[1] = byte(p.typ >> 8)
	tb[2] = byte(p.typ >> 16)
	tb[3] = byte(p.typ >> 24)
	_, _ = h.Write(tb[:])
	switch p.typ {
	case Empty:
	case Bool, Int32, UInt32, Int64, UInt64, Double:
		var nb [8]byte
		for i := 0; i < 8; i++ {
			nb[i] = byte(p.num >> (8 * i))
		}
		_, _ = h.Write(nb[:])
	case String:
		_, _ = h.Write([]byte(p.c.str))
	case Binary:
		_, _ = h.Write(p.c.bin)
	case Map:
		_, _ = h.Write([]byte(p.c.m.canonicalBytes()))
	}
	return h.Sum64()
}

// Str renders a human-readable form of the value, independent of Info.
func (p Property) Str() string {
	switch p.typ {
	case Empty:
		return "<empty>"
	case Bool:
		v, _ := p.GetBool()
		return fmt.Sprintf("%t", v)
	case Int32:
		v, _ := p.GetInt32()
		return fmt.Sprintf("%d", v)
	case UInt32:
		v, _ := p.GetUInt32()
		return fmt.Sprintf("%d", v)
	case Int64:
		v, _ := p.GetInt64()
		return fmt.Sprintf("%d", v)
	case UInt64:
		v, _ := p.GetUInt64()
		return fmt.Sprintf("%d", v)
	case Double:
		v, _ := p.GetDouble()
		return fmt.Sprintf("%g", v)
	case String:
		v, _ := p.GetString()
		return fmt.Sprintf("%q", v)
	case Binary:
		v, _ := p.GetBinary()
		var sb strings.Builder
		for _, b := range v {
			fmt.Fprintf(&sb, "%02x", b)
		}
		return sb.String()
	case Map:
		m, _ := p.GetMap()
		return m.str()
	default:
		return "<unknown>"
	}
}

// Map is the unordered map value carried by a Map-typed Property, keyed by
// Property using Property's own Hash/Equal.
type Map struct {
	buckets map[uint64][]mapEntry
}

type mapEntry struct {
	key Property
	val Property
}

func NewMapValue() Map {
	return Map{buckets: make(map[uint64][]mapEntry)}
}

func (m Map) Set(key, val Property) Map {
	out := m.clone()
	out.set(key, val)
	return out
}

func (m *Map) set(key, val Property) {
	if m.buckets == nil {
		m.buckets = make(map[uint64][]mapEntry)
	}
	h := key.Hash()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(key) {
			bucket[i].val = val
			return
		}
	}
	m.buckets[h] = append(bucket, mapEntry{key: key, val: val})
}

func (m Map) Get(key Property) (Property, bool) {
	if m.buckets == nil {
		return Property{}, false
	}
	for _, e := range m.buckets[key.Hash()] {
		if e.key.Equal(key) {
			return e.val, true
		}
	}
	return Property{}, false
}

func (m Map) Len() int {
	n := 0
	for _, b := range m.buckets {
		n += len(b)
	}
	return n
}

func (m Map) Range(f func(key, val Property) bool) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if !f(e.key, e.val) {
				return
			}
		}
	}
}

func (m Map) clone() Map {
	out := Map{buckets: make(map[uint64][]mapEntry, len(m.buckets))}
	for h, bucket := range m.buckets {
		cp := make([]mapEntry, len(bucket))
		copy(cp, bucket)
		out.buckets[h] = cp
	}
	return out
}

func (m Map) equal(other Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	eq := true
	m.Range(func(k, v Property) bool {
		ov, ok := other.Get(k)
		if !ok || !v.Equal(ov) {
			eq = false
			return false
		}
		return true
	})
	return eq
}

// canonicalBytes produces a deterministic byte encoding for hashing: map
// iteration order is randomized in Go, so entries are sorted by key hash
// (with a tie-break on key.Str()) before encoding.
func (m Map) canonicalBytes() []byte {
	type kv struct {
		k Property
		v Property
	}
	entries := make([]kv, 0, m.Len())
	m.Range(func(k, v Property) bool {
		entries = append(entries, kv{k, v})
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		hi, hj := entries[i].k.Hash(), entries[j].k.Hash()
		if hi != hj {
			return hi < hj
		}
		return entries[i].k.Str() < entries[j].k.Str()
	})
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.k.Str())
		sb.WriteByte(0)
		sb.WriteString(e.v.Str())
		sb.WriteByte(0)
	}
	return []byte(sb.String())
}

func (m Map) str() string {
	type kv struct {
		k Property
		v Property
	}
	entries := make([]kv, 0, m.Len())
	m.Range(func(k, v Property) bool {
		entries = append(entries, kv{k, v})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].k.Str() < entries[j].k.Str() })
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.k.Str())
		sb.WriteString(": ")
		sb.WriteString(e.v.Str())
	}
	sb.WriteByte('}')
	return sb.String()
}
