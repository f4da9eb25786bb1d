package relo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var ErrUnsupported = errors.New("unsupported type")

// kind is the dispatch tag for the traversal handlers.
type kind uint8

const (
	kindScalar kind = iota
	kindStruct
	kindArray
	kindPtr       // weak/raw pointer, *T
	kindVector    // Vector[T]
	kindString    // String
	kindUniquePtr // UniquePtr[T]
)

type fieldInfo struct {
	name string
	off  uint64
	typ  *typeInfo
}

// typeInfo is the per-type traversal plan shared by the serializer and the
// deserializer. Plans are immutable once built.
type typeInfo struct {
	rt    reflect.Type
	kind  kind
	size  uint64
	align uint64

	// fields lists only the fields that carry relocatable slots; the raw
	// byte copy already covers everything else.
	fields   []fieldInfo
	elem     *typeInfo // vector/unique-ptr pointee, array element
	arrayLen uint64

	// hasRelocs is true when encoding this type touches at least one slot.
	hasRelocs bool
}

var (
	planMu sync.RWMutex
	plans  = make(map[reflect.Type]*typeInfo)
)

var relocPkgPath = reflect.TypeFor[String]().PkgPath()

// planFor returns the cached traversal plan for rt, building it on first
// use. Safe for concurrent use; double-checked like the encoder plan cache
// it grew out of.
func planFor(rt reflect.Type) (*typeInfo, error) {
	planMu.RLock()
	ti, ok := plans[rt]
	planMu.RUnlock()
	if ok {
		return ti, nil
	}

	planMu.Lock()
	defer planMu.Unlock()
	if ti, ok := plans[rt]; ok {
		return ti, nil
	}

	b := &planBuilder{}
	ti, err := b.build(rt)
	if err != nil {
		// Roll back everything inserted during this failed build so a
		// later registration does not see half-built plans.
		for _, t := range b.added {
			delete(plans, t)
		}
		return nil, err
	}
	return ti, nil
}

type planBuilder struct {
	added []reflect.Type
}

func (b *planBuilder) build(rt reflect.Type) (*typeInfo, error) {
	if ti, ok := plans[rt]; ok {
		return ti, nil
	}

	ti := &typeInfo{
		rt:    rt,
		size:  uint64(rt.Size()),
		align: uint64(rt.Align()),
	}
	// Insert before descending: cycles through container pointees resolve
	// against this entry instead of recursing forever.
	plans[rt] = ti
	b.added = append(b.added, rt)

	switch {
	case rt == reflect.TypeFor[String]():
		ti.kind = kindString
		ti.hasRelocs = true

	case isContainer(rt, "Vector["):
		ti.kind = kindVector
		ti.hasRelocs = true
		elem, err := b.build(rt.Field(0).Type.Elem())
		if err != nil {
			return nil, err
		}
		ti.elem = elem

	case isContainer(rt, "UniquePtr["):
		ti.kind = kindUniquePtr
		ti.hasRelocs = true
		elem, err := b.build(rt.Field(0).Type.Elem())
		if err != nil {
			return nil, err
		}
		ti.elem = elem

	case rt.Kind() == reflect.Pointer:
		ti.kind = kindPtr
		ti.hasRelocs = true
		// The weak handler never dereferences, so the pointee type does
		// not need a plan of its own here.

	case rt.Kind() == reflect.Struct:
		ti.kind = kindStruct
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			ft, err := b.build(sf.Type)
			if err != nil {
				return nil, fmt.Errorf("%w (field %s.%s)", err, rt, sf.Name)
			}
			if !ft.hasRelocs {
				continue
			}
			ti.hasRelocs = true
			ti.fields = append(ti.fields, fieldInfo{
				name: sf.Name,
				off:  uint64(sf.Offset),
				typ:  ft,
			})
		}

	case rt.Kind() == reflect.Array:
		elem, err := b.build(rt.Elem())
		if err != nil {
			return nil, err
		}
		if elem.hasRelocs {
			ti.kind = kindArray
			ti.elem = elem
			ti.arrayLen = uint64(rt.Len())
			ti.hasRelocs = true
		} else {
			ti.kind = kindScalar
		}

	case isScalarKind(rt.Kind()):
		ti.kind = kindScalar

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, rt)
	}

	return ti, nil
}

// isContainer matches the package's own generic container instantiations by
// name prefix; generics leave no other reflect-visible marker.
func isContainer(rt reflect.Type, prefix string) bool {
	return rt.Kind() == reflect.Struct &&
		rt.PkgPath() == relocPkgPath &&
		strings.HasPrefix(rt.Name(), prefix)
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}
