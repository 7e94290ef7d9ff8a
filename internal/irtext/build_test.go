package irtext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sccp-opt/internal/ir"
	"sccp-opt/internal/irtext"
)

func TestParseAndBuildStraightLineFunction(t *testing.T) {
	source := `
func @add(%a: I32, %b: I32) -> I32 {
entry:
  %c = add %a, %b
  return %c
}`

	parsed, err := irtext.ParseString("test.ir", source)
	require.NoError(t, err)

	program, err := irtext.Build("test", parsed)
	require.NoError(t, err)
	require.Len(t, program.Functions, 1)

	fn := program.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.False(t, fn.External)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, ir.I32, fn.Params[0].Type)
	require.NotNil(t, fn.Entry)
	assert.Same(t, fn.Blocks[0], fn.Entry)

	require.Len(t, fn.Blocks[0].Instructions, 1)
	bin, ok := fn.Blocks[0].Instructions[0].(*ir.BinaryInstruction)
	require.True(t, ok)
	assert.Equal(t, ir.OpAdd, bin.Op)

	// Every instruction built through the Builder must carry a valid
	// GetBlock(), not a zero-valued embedded base.
	assert.Same(t, fn.Blocks[0], bin.GetBlock())

	ret, ok := fn.Blocks[0].Terminator.(*ir.ReturnTerminator)
	require.True(t, ok)
	assert.Same(t, fn.Blocks[0], ret.GetBlock())
}

func TestParseAndBuildExternalFunction(t *testing.T) {
	source := `extern func @imported(%x: I32) -> I32`

	parsed, err := irtext.ParseString("test.ir", source)
	require.NoError(t, err)

	program, err := irtext.Build("test", parsed)
	require.NoError(t, err)
	require.Len(t, program.Functions, 1)

	fn := program.Functions[0]
	assert.True(t, fn.External)
	assert.Nil(t, fn.Entry)
	assert.Empty(t, fn.Blocks)
}

func TestParseAndBuildPhiAndBranches(t *testing.T) {
	source := `
func @merge(%cond: Bool) -> I32 {
entry:
  br %cond, left, right
left:
  %a = const I32 1
  br join
right:
  %b = const I32 2
  br join
join:
  %m = phi [left: %a, right: %b]
  return %m
}`

	parsed, err := irtext.ParseString("test.ir", source)
	require.NoError(t, err)

	program, err := irtext.Build("test", parsed)
	require.NoError(t, err)

	fn := program.Functions[0]
	var join *ir.BasicBlock
	for _, b := range fn.Blocks {
		if b.Label == "join" {
			join = b
		}
	}
	require.NotNil(t, join)
	require.Len(t, join.Predecessors, 2)

	phi, ok := join.Instructions[0].(*ir.PhiInstruction)
	require.True(t, ok)
	assert.Len(t, phi.Inputs, 2)
}

func TestParseRejectsMalformedSource(t *testing.T) {
	_, err := irtext.ParseString("test.ir", `func @broken( {`)
	assert.Error(t, err)
}
