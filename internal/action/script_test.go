package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/types"
)

func runCustom(t *testing.T, e *Executor, code string) Outcome {
	t.Helper()
	out := e.Run(context.Background(), []types.ButtonAction{
		act("c", types.ActionCustom, map[string]any{"code": code}),
	}, "btn")
	require.Len(t, out, 1)
	return out[0]
}

func TestCustom_MessagesAndConsole(t *testing.T) {
	ui := &fakeUI{}
	out := runCustom(t, New(catalog(), ui), `message.Success("saved"); console.Log("count", 2); 1 + 2`)

	require.NoError(t, out.Err)
	assert.Equal(t, ScriptResult{Value: 3, Console: []string{"count 2"}}, out.Result)
	assert.Equal(t, []Notification{{Level: LevelSuccess, Message: "saved"}}, ui.notes)
}

func TestCustom_CollectsPageState(t *testing.T) {
	e := New(catalog(), &fakeUI{}, WithDOM(page(t)))

	out := runCustom(t, e, `collect.Form("")["keyword"] + ":" + collect.TableID() + ":" + source`)
	require.NoError(t, out.Err)
	assert.Equal(t, "abc:tbl:btn", out.Result.(ScriptResult).Value)

	out = runCustom(t, e, `collect.FormID()`)
	require.NoError(t, out.Err)
	assert.Equal(t, "f", out.Result.(ScriptResult).Value)
}

func TestCustom_NoDOM(t *testing.T) {
	out := runCustom(t, New(catalog(), &fakeUI{}), `len(collect.Form("f"))`)
	require.NoError(t, out.Err)
	assert.Equal(t, 0, out.Result.(ScriptResult).Value)
}

func TestCustom_OnlySeesItsEnvironment(t *testing.T) {
	ui := &fakeUI{}
	out := runCustom(t, New(catalog(), ui), `os.Exit(1)`)
	assert.ErrorContains(t, out.Err, "compile custom code")
	assert.Equal(t, []Level{LevelError}, ui.levels())
}

func TestCustom_RuntimeError(t *testing.T) {
	out := runCustom(t, New(catalog(), &fakeUI{}), `1 % (len(source) - 3)`)
	assert.ErrorContains(t, out.Err, "run custom code")
}

func TestCustom_EmptyCode(t *testing.T) {
	out := runCustom(t, New(catalog(), &fakeUI{}), "   ")
	assert.ErrorContains(t, out.Err, "custom action has no code")
}
