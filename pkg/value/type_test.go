package value

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionOf(t *testing.T) {
	t.Run("empty is NOTHING", func(t *testing.T) {
		assert.True(t, UnionOf().Equal(Nothing))
	})

	t.Run("singleton collapses", func(t *testing.T) {
		assert.True(t, UnionOf(StringType).Equal(StringType))
	})

	t.Run("flattens nested unions", func(t *testing.T) {
		u := UnionOf(UnionOf(BooleanType, StringType), NumberType)
		require.Equal(t, KindUnion, u.Kind())
		assert.Len(t, u.Members(), 3)
	})

	t.Run("drops subsumed members", func(t *testing.T) {
		assert.True(t, UnionOf(BooleanType, Any).Equal(Any))
		assert.True(t, UnionOf(Nothing, StringType).Equal(StringType))

		inner := UnionOf(StringType, NumberType)
		assert.True(t, UnionOf(StringType, inner).Equal(inner))
	})

	t.Run("drops duplicates", func(t *testing.T) {
		assert.True(t, UnionOf(StringType, StringType).Equal(StringType))
	})

	t.Run("sorts by kind rank", func(t *testing.T) {
		a := UnionOf(NumberType, BooleanType, StringType)
		b := UnionOf(StringType, NumberType, BooleanType)
		require.True(t, a.Equal(b))
		members := a.Members()
		require.Len(t, members, 3)
		assert.Equal(t, KindBoolean, members[0].Kind())
		assert.Equal(t, KindString, members[1].Kind())
		assert.Equal(t, KindNumber, members[2].Kind())
	})

	t.Run("covariant list members stay distinct", func(t *testing.T) {
		u := UnionOf(ListOf(StringType), ListOf(NumberType))
		require.Equal(t, KindUnion, u.Kind())
		assert.Len(t, u.Members(), 2)

		// LIST<STRING> is subsumed by LIST<STRING|NUMBER>.
		wide := ListOf(UnionOf(StringType, NumberType))
		assert.True(t, UnionOf(ListOf(StringType), wide).Equal(wide))
	})
}

func TestIsSubtype(t *testing.T) {
	t.Run("NOTHING is the bottom", func(t *testing.T) {
		for _, parent := range sampleTypes() {
			assert.True(t, IsSubtype(Nothing, parent), "NOTHING <: %s", parent)
		}
	})

	t.Run("ANY is the top", func(t *testing.T) {
		for _, child := range sampleTypes() {
			assert.True(t, IsSubtype(child, Any), "%s <: ANY", child)
		}
	})

	t.Run("primitives require identical kind", func(t *testing.T) {
		assert.True(t, IsSubtype(StringType, StringType))
		assert.False(t, IsSubtype(StringType, NumberType))
		assert.False(t, IsSubtype(NodeRefType, EdgeRefType))
	})

	t.Run("lists are covariant", func(t *testing.T) {
		assert.True(t, IsSubtype(ListOf(StringType), ListOf(Any)))
		assert.True(t, IsSubtype(ListOf(Nothing), ListOf(StringType)))
		assert.False(t, IsSubtype(ListOf(Any), ListOf(StringType)))
		assert.False(t, IsSubtype(ListOf(StringType), StringType))
	})

	t.Run("union parent accepts any member", func(t *testing.T) {
		u := UnionOf(StringType, NumberType)
		assert.True(t, IsSubtype(StringType, u))
		assert.True(t, IsSubtype(NumberType, u))
		assert.False(t, IsSubtype(BooleanType, u))
	})

	t.Run("union child needs a home for every member", func(t *testing.T) {
		small := UnionOf(StringType, NumberType)
		big := UnionOf(StringType, NumberType, BooleanType)
		assert.True(t, IsSubtype(small, big))
		assert.False(t, IsSubtype(big, small))
	})
}

func sampleTypes() []Type {
	return []Type{
		Nothing, Any, BooleanType, StringType, NumberType,
		NodeRefType, EdgeRefType,
		ListOf(StringType), ListOf(Any), ListOf(ListOf(NumberType)),
		UnionOf(StringType, NumberType),
		UnionOf(BooleanType, ListOf(StringType)),
	}
}

func randomType(rng *rand.Rand, depth int) Type {
	if depth <= 0 {
		prims := []Type{Nothing, Any, BooleanType, StringType, NumberType, NodeRefType, EdgeRefType}
		return prims[rng.Intn(len(prims))]
	}
	switch rng.Intn(4) {
	case 0:
		return ListOf(randomType(rng, depth-1))
	case 1:
		n := 1 + rng.Intn(3)
		members := make([]Type, n)
		for i := range members {
			members[i] = randomType(rng, depth-1)
		}
		return UnionOf(members...)
	default:
		return randomType(rng, 0)
	}
}

func TestLatticeLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("reflexivity", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			x := randomType(rng, 3)
			assert.True(t, IsSubtype(x, x), "%s <: %s", x, x)
		}
	})

	t.Run("transitivity", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			a := randomType(rng, 2)
			b := randomType(rng, 2)
			c := randomType(rng, 2)
			if IsSubtype(a, b) && IsSubtype(b, c) {
				assert.True(t, IsSubtype(a, c), "%s <: %s <: %s", a, b, c)
			}
		}
	})

	t.Run("bottom and top", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			x := randomType(rng, 3)
			assert.True(t, IsSubtype(Nothing, x))
			assert.True(t, IsSubtype(x, Any))
		}
	})

	t.Run("list covariance", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			a := randomType(rng, 2)
			b := randomType(rng, 2)
			assert.Equal(t, IsSubtype(a, b), IsSubtype(ListOf(a), ListOf(b)), "%s vs %s", a, b)
		}
	})

	t.Run("union membership equivalence", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			x := randomType(rng, 1)
			members := make([]Type, 1+rng.Intn(3))
			for j := range members {
				members[j] = randomType(rng, 1)
			}
			any := false
			for _, m := range members {
				if IsSubtype(x, m) {
					any = true
					break
				}
			}
			if x.Kind() != KindUnion {
				assert.Equal(t, any, IsSubtype(x, UnionOf(members...)), "%s vs union%v", x, members)
			} else if any {
				// A union child can be a subtype of the union without being
				// a subtype of any single member.
				assert.True(t, IsSubtype(x, UnionOf(members...)), "%s <: union%v", x, members)
			}
		}
	})

	t.Run("normalization is idempotent", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			members := make([]Type, 1+rng.Intn(4))
			for j := range members {
				members[j] = randomType(rng, 2)
			}
			once := UnionOf(members...)
			twice := UnionOf(once)
			assert.True(t, once.Equal(twice), "union%v", members)
		}
	})
}
