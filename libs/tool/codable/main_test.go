package main

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmitsSizeCheckedDecode(t *testing.T) {
	out, err := render("model", []codableType{{Name: "Bar"}})
	require.NoError(t, err)

	src := string(out)
	assert.Contains(t, src, "// Code generated by codable; DO NOT EDIT.")
	assert.Contains(t, src, `import "unsafe"`)
	assert.Contains(t, src, "func (b Bar) SizeInByte() int")
	assert.Contains(t, src, "func (Bar) Decode(src []byte) (Bar, bool)")
	assert.Contains(t, src, "if len(src) != size")
}

func TestIsCopyable(t *testing.T) {
	i64 := types.Typ[types.Int64]
	str := types.Typ[types.String]

	flat := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "A", i64, false),
		types.NewField(0, nil, "B", types.NewArray(i64, 4), false),
	}, nil)
	withString := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "A", i64, false),
		types.NewField(0, nil, "S", str, false),
	}, nil)
	withSlice := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "B", types.NewSlice(i64), false),
	}, nil)

	cases := []struct {
		name string
		typ  types.Type
		want bool
	}{
		{"flat", flat, true},
		{"string", withString, false},
		{"slice", withSlice, false},
		{"pointer", types.NewPointer(i64), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := isCopyable(tc.typ, map[types.Type]bool{}, map[types.Type]bool{})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReceiverName(t *testing.T) {
	assert.Equal(t, "s", receiverName("Snapshot"))
	assert.Equal(t, "v", receiverName(""))
	assert.Equal(t, "v", receiverName("_x"))
}
