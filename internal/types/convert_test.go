package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsualArithmeticConversion(t *testing.T) {
	ar := NewArena()

	cases := []struct {
		a, b Simple
		want Simple
	}{
		{Int, Int, Int},
		{Int, Double, Double},
		{Float, Double, Double},
		{LDouble, Float, LDouble},
		{Char, Short, Int},       // both promote to int
		{Int, UInt, UInt},        // same rank, unsigned wins
		{Int, ULong, ULong},      // unsigned has higher rank
		{Long, UInt, Long},       // long can represent every unsigned int
		{ULLong, Long, ULLong},
	}
	for _, c := range cases {
		got := ar.UsualArithmeticConversion(ar.SimpleType(c.a), ar.SimpleType(c.b))
		assert.Equalf(t, c.want, got.Simple, "UAC(%v,%v)", c.a, c.b)
	}
}

func TestPromoteNarrowerThanInt(t *testing.T) {
	ar := NewArena()
	for _, s := range []Simple{Bool, Char, SChar, UChar, Short, UShort} {
		got := ar.Promote(ar.SimpleType(s))
		assert.Equal(t, Int, got.Simple)
	}
	// int and wider are unaffected by promotion.
	for _, s := range []Simple{Int, UInt, Long, ULong, Float, Double} {
		got := ar.Promote(ar.SimpleType(s))
		assert.Equal(t, s, got.Simple)
	}
}

func TestTypeInterning(t *testing.T) {
	ar := NewArena()
	p1 := ar.Ptr(ar.SimpleType(Int))
	p2 := ar.Ptr(ar.SimpleType(Int))
	assert.Same(t, p1, p2, "equal pointer types must share identity")

	a1 := ar.ArrayOf(ar.SimpleType(Char), 4)
	a2 := ar.ArrayOf(ar.SimpleType(Char), 4)
	assert.Same(t, a1, a2)

	a3 := ar.ArrayOf(ar.SimpleType(Char), 5)
	assert.NotSame(t, a1, a3)
}

func TestStructSelfReference(t *testing.T) {
	ar := NewArena()
	node := ar.NewStructTag("node")
	ptr := ar.Ptr(node)
	node.DefineMembers([]Member{
		{Name: "value", Type: ar.SimpleType(Int)},
		{Name: "next", Type: ptr},
	}, false)

	assert.Equal(t, 16, node.Size()) // int (4, padded to 8) + pointer (8)
	assert.Same(t, node, ptr.Elem)
	assert.Equal(t, 8, node.Member("next").Offset)
}

func TestStructLayoutSysVAlignment(t *testing.T) {
	// struct S { int a; char b; double c; }; -> 24 bytes on LP64
	// (spec.md concrete scenario 4).
	ar := NewArena()
	s := ar.NewStructTag("S")
	s.DefineMembers([]Member{
		{Name: "a", Type: ar.SimpleType(Int)},
		{Name: "b", Type: ar.SimpleType(Char)},
		{Name: "c", Type: ar.SimpleType(Double)},
	}, false)
	assert.Equal(t, 24, s.Size())
	assert.Equal(t, 0, s.Member("a").Offset)
	assert.Equal(t, 4, s.Member("b").Offset)
	assert.Equal(t, 8, s.Member("c").Offset)
}
