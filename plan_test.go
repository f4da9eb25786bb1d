package relo

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanClassification(t *testing.T) {
	ti, err := planFor(reflect.TypeFor[String]())
	require.NoError(t, err)
	assert.Equal(t, kindString, ti.kind)
	assert.True(t, ti.hasRelocs)

	ti, err = planFor(reflect.TypeFor[Vector[uint32]]())
	require.NoError(t, err)
	assert.Equal(t, kindVector, ti.kind)
	require.NotNil(t, ti.elem)
	assert.Equal(t, kindScalar, ti.elem.kind)
	assert.Equal(t, uint64(4), ti.elem.size)

	ti, err = planFor(reflect.TypeFor[UniquePtr[point]]())
	require.NoError(t, err)
	assert.Equal(t, kindUniquePtr, ti.kind)
	assert.Equal(t, kindStruct, ti.elem.kind)

	ti, err = planFor(reflect.TypeFor[*point]())
	require.NoError(t, err)
	assert.Equal(t, kindPtr, ti.kind)

	ti, err = planFor(reflect.TypeFor[float64]())
	require.NoError(t, err)
	assert.Equal(t, kindScalar, ti.kind)
	assert.False(t, ti.hasRelocs)
}

func TestPlanPrunesScalarFields(t *testing.T) {
	type scalarOnly struct {
		A uint64
		B [4]int32
		C bool
	}
	ti, err := planFor(reflect.TypeFor[scalarOnly]())
	require.NoError(t, err)
	assert.Equal(t, kindStruct, ti.kind)
	assert.False(t, ti.hasRelocs)
	assert.Empty(t, ti.fields)

	type mixed struct {
		A uint64
		S String
		B [4]int32
	}
	ti, err = planFor(reflect.TypeFor[mixed]())
	require.NoError(t, err)
	assert.True(t, ti.hasRelocs)
	// Only the String field needs visiting; the raw copy covers the rest.
	require.Len(t, ti.fields, 1)
	assert.Equal(t, "S", ti.fields[0].name)
}

func TestPlanArrays(t *testing.T) {
	ti, err := planFor(reflect.TypeFor[[3][2]uint8]())
	require.NoError(t, err)
	assert.Equal(t, kindScalar, ti.kind, "arrays without slots collapse to scalar leaves")

	ti, err = planFor(reflect.TypeFor[[3]String]())
	require.NoError(t, err)
	assert.Equal(t, kindArray, ti.kind)
	assert.Equal(t, uint64(3), ti.arrayLen)
	assert.Equal(t, kindString, ti.elem.kind)
}

func TestPlanRecursiveTypes(t *testing.T) {
	ti, err := planFor(reflect.TypeFor[cnode]())
	require.NoError(t, err)
	assert.Equal(t, kindStruct, ti.kind)
	require.Len(t, ti.fields, 1)
	// The owning pointer's pointee plan is the node plan itself.
	assert.Same(t, ti, ti.fields[0].typ.elem)
}

func TestPlanUnsupportedRollback(t *testing.T) {
	type bad struct {
		A uint64
		M map[int]int
	}
	_, err := planFor(reflect.TypeFor[bad]())
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "bad.M")

	// A failed build must not leave a half-built plan behind.
	planMu.RLock()
	_, cached := plans[reflect.TypeFor[bad]()]
	planMu.RUnlock()
	assert.False(t, cached)

	// And it must still fail the same way on retry.
	_, err = planFor(reflect.TypeFor[bad]())
	require.ErrorIs(t, err, ErrUnsupported)
}
