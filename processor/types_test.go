package processor

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/autoserv/registry"
)

func TestGoTypes(t *testing.T) {
	l := newTestLoader(t)
	pkg := l.load("example.com/test", `package test

type Plain interface {
	Do()
}

type Pair[K comparable, V any] interface {
	Key() K
	Value() V
}

type Conv[T any] interface {
	Convert(T) T
}

type Number[T int | float64] interface {
	Get() T
}

type Phantom[T any] interface {
	Do()
}

type Nested[T any] interface {
	All() map[string][]T
}

type Entry struct{}

func (Entry) Key() string   { return "" }
func (Entry) Value() []int  { return nil }
func (Entry) Do()           {}
func (Entry) Get() string   { return "" }
func (Entry) Convert(s string) string { return s }
func (Entry) All() map[string][]*Entry { return nil }

type PtrEntry struct{}

func (*PtrEntry) Key() int    { return 0 }
func (*PtrEntry) Value() bool { return false }
func (*PtrEntry) Get() int    { return 0 }

type Half struct{}

func (Half) Key() string { return "" }

type BadConv struct{}

func (BadConv) Convert(string) int { return 0 }

type Box[T any] struct{}

func (Box[T]) Do() {}
`)
	ctx := l.context(pkg)
	scope := pkg.Types.Scope()
	typ := func(name string) registry.DeclaredType {
		return ctx.host.typeElement(scope.Lookup(name).(*types.TypeName))
	}

	testCases := []struct {
		impl, iface string
		exact       bool
		erased      bool
	}{
		{impl: "Entry", iface: "Plain", exact: true, erased: true},
		{impl: "Half", iface: "Plain"},
		{impl: "Entry", iface: "Pair", erased: true},
		{impl: "PtrEntry", iface: "Pair", erased: true},
		{impl: "Half", iface: "Pair"},
		{impl: "Entry", iface: "Conv", erased: true},
		{impl: "BadConv", iface: "Conv"},
		{impl: "PtrEntry", iface: "Number", erased: true},
		{impl: "Entry", iface: "Number"},
		{impl: "Entry", iface: "Phantom"},
		{impl: "Entry", iface: "Nested", erased: true},
		{impl: "Box", iface: "Plain", exact: true, erased: true},
		{impl: "Box", iface: "Phantom"},
		{impl: "Box", iface: "Pair"},
		{impl: "Entry", iface: "Entry"},
	}
	for _, tc := range testCases {
		t.Run(tc.impl+"/"+tc.iface, func(t *testing.T) {
			exact, err := goTypes{}.IsSubtype(typ(tc.impl), typ(tc.iface))
			require.NoError(t, err)
			assert.Equal(t, tc.exact, exact, "IsSubtype")
			erased, err := goTypes{}.IsSubtypeOfErasure(typ(tc.impl), typ(tc.iface))
			require.NoError(t, err)
			assert.Equal(t, tc.erased, erased, "IsSubtypeOfErasure")
		})
	}
}
