package action

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
)

// Messenger shows notifications from a custom expression.
type Messenger struct {
	ctx context.Context
	ui  UI
}

func (m *Messenger) notify(l Level, msg string) bool {
	m.ui.Notify(m.ctx, Notification{Level: l, Message: msg})
	return true
}

func (m *Messenger) Success(msg string) bool { return m.notify(LevelSuccess, msg) }
func (m *Messenger) Error(msg string) bool   { return m.notify(LevelError, msg) }
func (m *Messenger) Info(msg string) bool    { return m.notify(LevelInfo, msg) }
func (m *Messenger) Warning(msg string) bool { return m.notify(LevelWarning, msg) }

// Console captures log lines written by a custom expression.
type Console struct {
	mu    sync.Mutex
	lines []string
}

func (c *Console) Log(args ...any) bool {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	c.mu.Lock()
	c.lines = append(c.lines, strings.Join(parts, " "))
	c.mu.Unlock()
	return true
}

func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Collector reads page state from a custom expression. An empty id means
// the form or table nearest to the triggering element.
type Collector struct {
	e    *Executor
	from string
}

func (c *Collector) Form(id string) map[string]any {
	formID, err := c.e.form(id, c.from)
	if err != nil {
		return map[string]any{}
	}
	return c.e.dom.FormValues(formID)
}

func (c *Collector) FormID() string {
	id, _ := c.e.form("", c.from)
	return id
}

func (c *Collector) TableID() string {
	id, _ := c.e.table("", c.from)
	return id
}

// ScriptResult is what a custom action evaluated to.
type ScriptResult struct {
	Value   any      `json:"value,omitempty"`
	Console []string `json:"console,omitempty"`
}

// custom evaluates cfg.code as an expression. It sees message, console,
// collect and source (the triggering node id) and nothing else.
func (e *Executor) custom(ctx context.Context, cfg map[string]any, from string) (any, error) {
	code := strings.TrimSpace(str(cfg, "code"))
	if code == "" {
		return nil, fmt.Errorf("custom action has no code")
	}

	console := &Console{}
	env := map[string]any{
		"message": &Messenger{ctx: ctx, ui: e.ui},
		"console": console,
		"collect": &Collector{e: e, from: from},
		"source":  from,
	}
	prog, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile custom code: %w", err)
	}
	v, err := expr.Run(prog, env)
	for _, l := range console.Lines() {
		e.log.Info("custom action console", "source", from, "line", l)
	}
	if err != nil {
		return nil, fmt.Errorf("run custom code: %w", err)
	}
	return ScriptResult{Value: v, Console: console.Lines()}, nil
}
