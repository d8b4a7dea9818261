// Package preview renders a component tree into preview HTML and answers
// DOM questions about the rendered page: which form or table is nearest
// to an element, and what values a form currently holds.
//
// Every rendered component carries data-node-id and data-type attributes.
// A node whose renderer fails or panics is replaced by an inline error
// placeholder; the rest of the page still renders.
package preview

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// State is the runtime state the preview reflects.
type State struct {
	OpenModals map[string]bool // modal or drawer ids opened by actions
	ShowHidden bool            // canvas editing shows closed modals too
}

// strategy renders one node. slot receives the node's children; a nil
// slot renders them as following siblings.
type strategy func(r *Renderer, n types.ComponentNode) (out, slot *html.Node, err error)

// Renderer turns component nodes into HTML.
type Renderer struct {
	reg        *registry.Registry
	strict     *bluemonday.Policy
	ugc        *bluemonday.Policy
	strategies map[string]strategy
}

// New creates a renderer for the registry's render strategies.
func New(reg *registry.Registry) *Renderer {
	return &Renderer{
		reg:    reg,
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
		strategies: map[string]strategy{
			"container":    renderContainer,
			"button":       renderButton,
			"text":         renderText("span"),
			"paragraph":    renderText("p"),
			"heading":      renderHeading,
			"input":        renderInput,
			"textarea":     renderTextArea,
			"select":       renderSelect,
			"choice":       renderChoice,
			"switch":       renderSwitch,
			"date":         renderDate,
			"upload":       renderUpload,
			"table":        renderTable,
			"dialog":       renderDialog,
			"image":        renderImage,
			"richtext":     renderRichText,
			"descriptions": renderDescriptions,
			"divider":      renderDivider,
			"tag":          renderTag,
			"alert":        renderAlert,
			"statistic":    renderStatistic,
			"progress":     renderProgress,
			"placeholder":  renderPlaceholder,
		},
	}
}

// Render renders nodes into a live document.
func (r *Renderer) Render(nodes []types.ComponentNode, st State) *Document {
	root := element("div", "class", "fd-page")
	r.renderAll(root, tree.Nest(nodes), st)
	return newDocument(root)
}

// HTML renders nodes and serializes the result.
func (r *Renderer) HTML(nodes []types.ComponentNode, st State) (string, error) {
	return r.Render(nodes, st).HTML()
}

func (r *Renderer) renderAll(parent *html.Node, els []*tree.Element, st State) {
	for _, e := range els {
		out, slot := r.renderNode(e.Node, st)
		parent.AppendChild(out)
		if slot != nil {
			r.renderAll(slot, e.Children, st)
		} else {
			r.renderAll(parent, e.Children, st)
		}
	}
}

func (r *Renderer) renderNode(n types.ComponentNode, st State) (out, slot *html.Node) {
	defer func() {
		if p := recover(); p != nil {
			out, slot = r.placeholder(n, fmt.Sprint(p)), nil
		}
	}()

	def, ok := r.reg.Lookup(n.Type)
	if !ok {
		return r.placeholder(n, "unknown component type "+n.Type), nil
	}
	if scaffold, ok := codegen.Expand(r.reg, n); ok {
		return r.renderScaffold(n.ID, scaffold, st), nil
	}
	fn, ok := r.strategies[def.Render]
	if !ok {
		return r.placeholder(n, "no renderer for "+def.Render), nil
	}
	out, slot, err := fn(r, n)
	if err != nil {
		return r.placeholder(n, err.Error()), nil
	}

	setAttr(out, "data-node-id", n.ID)
	setAttr(out, "data-type", n.Type)
	visible := n.IsVisible
	if def.HiddenByDefault {
		open := st.OpenModals[n.ID] || truthy(n.Props["open"]) || truthy(n.Props["visible"])
		setAttr(out, "data-open", strconv.FormatBool(open))
		visible = open || st.ShowHidden
	}
	if !visible {
		setAttr(out, "hidden", "")
	}
	return out, slot
}

// renderScaffold renders a template's expansion inside a wrapper that
// carries the template node's id. Scaffold elements get derived ids.
func (r *Renderer) renderScaffold(id string, scaffold *tree.Element, st State) *html.Node {
	wrap := element("div", "class", "fd-template", "data-node-id", id)
	var assign func(e *tree.Element, path string)
	assign = func(e *tree.Element, path string) {
		e.Node.ID = path
		e.Node.IsVisible = true
		for i, c := range e.Children {
			assign(c, path+"."+strconv.Itoa(i))
		}
	}
	assign(scaffold, id+":0")
	r.renderAll(wrap, []*tree.Element{scaffold}, st)
	return wrap
}

func (r *Renderer) placeholder(n types.ComponentNode, msg string) *html.Node {
	slog.Warn("preview render failed", "node_id", n.ID, "type", n.Type, "error", msg)
	div := element("div", "class", "fd-render-error", "role", "alert", "data-node-id", n.ID, "data-type", n.Type)
	return withText(div, fmt.Sprintf("%s failed to render: %s", n.Type, msg))
}

// plain returns a prop as text with any markup stripped.
func (r *Renderer) plain(n types.ComponentNode, key string) string {
	v, ok := n.Props[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return html.UnescapeString(r.strict.Sanitize(s))
}

// ── Strategies ──────────────────────────────────────────────────────────────

func renderContainer(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	switch n.Type {
	case "Form":
		form := element("form", "class", "fd-form")
		if layout := r.plain(n, "layout"); layout != "" {
			setAttr(form, "data-layout", layout)
		}
		if name := r.plain(n, "name"); name != "" {
			setAttr(form, "name", name)
		}
		return form, form, nil
	case "Card":
		card := element("div", "class", "fd-card")
		if title := r.plain(n, "title"); title != "" {
			card.AppendChild(withText(element("div", "class", "fd-card-head"), title))
		}
		body := element("div", "class", "fd-card-body")
		card.AppendChild(body)
		return card, body, nil
	case "Spin":
		div := element("div", "class", "fd-spin")
		if b, ok := n.Props["spinning"].(bool); !ok || b {
			setAttr(div, "aria-busy", "true")
		}
		return div, div, nil
	}
	div := element("div", "class", "fd-"+strings.ToLower(n.Type))
	return div, div, nil
}

func renderButton(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	class := "fd-btn"
	if t := r.plain(n, "type"); t != "" {
		class += " fd-btn-" + t
	}
	if b, _ := n.Props["danger"].(bool); b {
		class += " fd-btn-danger"
	}
	typ := "button"
	if ht := r.plain(n, "htmlType"); ht == "submit" || ht == "reset" {
		typ = ht
	}
	btn := element("button", "type", typ, "class", class)
	if b, _ := n.Props["disabled"].(bool); b {
		setAttr(btn, "disabled", "")
	}
	return withText(btn, r.plain(n, "children")), nil, nil
}

func renderText(tag string) strategy {
	return func(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
		return withText(element(tag, "class", "fd-text"), r.plain(n, "children")), nil, nil
	}
}

func renderHeading(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	level := 4
	if v, ok := n.Props["level"]; ok {
		l, err := number(v)
		if err != nil || l < 1 || l > 5 {
			return nil, nil, fmt.Errorf("level must be 1 to 5, got %v", v)
		}
		level = int(l)
	}
	return withText(element("h"+strconv.Itoa(level), "class", "fd-title"), r.plain(n, "children")), nil, nil
}

// formItem wraps a control in a labelled form item when the node has a
// label.
func (r *Renderer) formItem(n types.ComponentNode, control *html.Node) *html.Node {
	label := r.plain(n, "label")
	if label == "" {
		return control
	}
	item := element("div", "class", "fd-form-item")
	item.AppendChild(withText(element("label"), label))
	item.AppendChild(control)
	return item
}

func renderInput(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	typ := "text"
	if strings.Contains(n.Type, "Number") {
		typ = "number"
	}
	in := element("input", "type", typ, "class", "fd-input")
	setControlAttrs(r, n, in)
	if v := r.plain(n, "value"); v != "" {
		setAttr(in, "value", v)
	}
	return r.formItem(n, in), nil, nil
}

func renderTextArea(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	ta := element("textarea", "class", "fd-textarea")
	setControlAttrs(r, n, ta)
	return r.formItem(n, withText(ta, r.plain(n, "value"))), nil, nil
}

func renderSelect(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	sel := element("select", "class", "fd-select")
	setControlAttrs(r, n, sel)
	opts, err := options(n.Props["options"])
	if err != nil {
		return nil, nil, err
	}
	current := r.plain(n, "value")
	for _, o := range opts {
		opt := element("option", "value", o.value)
		if o.value == current {
			setAttr(opt, "selected", "")
		}
		sel.AppendChild(withText(opt, o.label))
	}
	return r.formItem(n, sel), nil, nil
}

func renderChoice(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	typ := "radio"
	if strings.Contains(n.Type, "Checkbox") {
		typ = "checkbox"
	}
	opts, err := options(n.Props["options"])
	if err != nil {
		return nil, nil, err
	}
	group := element("div", "class", "fd-choice", "role", "group")
	name := r.plain(n, "name")
	for _, o := range opts {
		lbl := element("label")
		lbl.AppendChild(element("input", "type", typ, "name", name, "value", o.value))
		group.AppendChild(withText(lbl, o.label))
	}
	return r.formItem(n, group), nil, nil
}

func renderSwitch(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	in := element("input", "type", "checkbox", "role", "switch", "class", "fd-switch")
	setControlAttrs(r, n, in)
	if b, _ := n.Props["checked"].(bool); b {
		setAttr(in, "checked", "")
	}
	return r.formItem(n, in), nil, nil
}

func renderDate(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	in := element("input", "type", "date", "class", "fd-date")
	setControlAttrs(r, n, in)
	if strings.Contains(n.Type, "Range") {
		setAttr(in, "data-range", "true")
	}
	return r.formItem(n, in), nil, nil
}

func renderUpload(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	in := element("input", "type", "file", "class", "fd-upload")
	setControlAttrs(r, n, in)
	return r.formItem(n, in), nil, nil
}

func setControlAttrs(r *Renderer, n types.ComponentNode, el *html.Node) {
	if name := r.plain(n, "name"); name != "" {
		setAttr(el, "name", name)
	}
	if ph := r.plain(n, "placeholder"); ph != "" {
		setAttr(el, "placeholder", ph)
	}
	if b, _ := n.Props["disabled"].(bool); b {
		setAttr(el, "disabled", "")
	}
}

func renderTable(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	cols, err := list(n.Props["columns"], "columns")
	if err != nil {
		return nil, nil, err
	}
	rows, err := list(n.Props["dataSource"], "dataSource")
	if err != nil {
		return nil, nil, err
	}

	table := element("table", "class", "fd-table")
	if api := r.plain(n, "api"); api != "" {
		setAttr(table, "data-api", api)
	}
	head := element("tr")
	var keys []string
	for _, c := range cols {
		m, _ := c.(map[string]any)
		keys = append(keys, fmt.Sprint(m["dataIndex"]))
		head.AppendChild(withText(element("th"), fmt.Sprint(m["title"])))
	}
	thead := element("thead")
	thead.AppendChild(head)
	table.AppendChild(thead)

	tbody := element("tbody")
	for _, row := range rows {
		m, _ := row.(map[string]any)
		tr := element("tr")
		for _, k := range keys {
			cell := ""
			if v, ok := m[k]; ok && v != nil {
				cell = fmt.Sprint(v)
			}
			tr.AppendChild(withText(element("td"), cell))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table, nil, nil
}

func renderDialog(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	dlg := element("div", "class", "fd-"+strings.ToLower(n.Type), "role", "dialog")
	dlg.AppendChild(withText(element("div", "class", "fd-dialog-head"), r.plain(n, "title")))
	body := element("div", "class", "fd-dialog-body")
	dlg.AppendChild(body)
	return dlg, body, nil
}

func renderImage(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	img := element("img", "class", "fd-image", "src", r.plain(n, "src"), "alt", r.plain(n, "alt"))
	if w := r.plain(n, "width"); w != "" {
		setAttr(img, "width", w)
	}
	return img, nil, nil
}

func renderRichText(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	div := element("div", "class", "fd-richtext")
	src, _ := n.Props["content"].(string)
	clean := r.ugc.Sanitize(src)
	frag, err := html.ParseFragment(strings.NewReader(clean), div)
	if err != nil {
		return nil, nil, fmt.Errorf("content: %w", err)
	}
	for _, c := range frag {
		div.AppendChild(c)
	}
	return div, nil, nil
}

func renderDescriptions(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	items, err := list(n.Props["items"], "items")
	if err != nil {
		return nil, nil, err
	}
	div := element("div", "class", "fd-descriptions")
	if title := r.plain(n, "title"); title != "" {
		div.AppendChild(withText(element("div", "class", "fd-descriptions-title"), title))
	}
	dl := element("dl")
	for _, it := range items {
		m, _ := it.(map[string]any)
		dl.AppendChild(withText(element("dt"), fmt.Sprint(m["label"])))
		dl.AppendChild(withText(element("dd"), fmt.Sprint(m["children"])))
	}
	div.AppendChild(dl)
	return div, nil, nil
}

func renderDivider(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	if label := r.plain(n, "children"); label != "" {
		return withText(element("div", "class", "fd-divider", "role", "separator"), label), nil, nil
	}
	return element("hr", "class", "fd-divider"), nil, nil
}

func renderTag(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	span := element("span", "class", "fd-tag")
	if color := r.plain(n, "color"); color != "" {
		setAttr(span, "data-color", color)
	}
	return withText(span, r.plain(n, "children")), nil, nil
}

func renderAlert(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	typ := r.plain(n, "type")
	if typ == "" {
		typ = "info"
	}
	div := element("div", "class", "fd-alert fd-alert-"+typ, "role", "alert")
	div.AppendChild(withText(element("div", "class", "fd-alert-message"), r.plain(n, "message")))
	if d := r.plain(n, "description"); d != "" {
		div.AppendChild(withText(element("div", "class", "fd-alert-description"), d))
	}
	return div, nil, nil
}

func renderStatistic(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	v, err := number(n.Props["value"])
	if err != nil {
		return nil, nil, fmt.Errorf("value: %w", err)
	}
	prec := -1
	if p, ok := n.Props["precision"]; ok {
		f, err := number(p)
		if err != nil {
			return nil, nil, fmt.Errorf("precision: %w", err)
		}
		prec = int(f)
	}
	div := element("div", "class", "fd-statistic")
	div.AppendChild(withText(element("div", "class", "fd-statistic-title"), r.plain(n, "title")))
	div.AppendChild(withText(element("div", "class", "fd-statistic-value"), strconv.FormatFloat(v, 'f', prec, 64)))
	return div, nil, nil
}

func renderProgress(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	p, err := number(n.Props["percent"])
	if err != nil {
		return nil, nil, fmt.Errorf("percent: %w", err)
	}
	if p < 0 || p > 100 {
		return nil, nil, fmt.Errorf("percent out of range: %v", p)
	}
	s := strconv.FormatFloat(p, 'f', -1, 64)
	div := element("div", "class", "fd-progress", "role", "progressbar",
		"aria-valuemin", "0", "aria-valuemax", "100", "aria-valuenow", s)
	return withText(div, s+"%"), nil, nil
}

func renderPlaceholder(r *Renderer, n types.ComponentNode) (*html.Node, *html.Node, error) {
	div := element("div", "class", "fd-placeholder fd-"+strings.ToLower(n.Type))
	for _, k := range []string{"title", "description", "subTitle"} {
		if s := r.plain(n, k); s != "" {
			return withText(div, s), nil, nil
		}
	}
	return withText(div, n.Type), nil, nil
}

// ── Value helpers ───────────────────────────────────────────────────────────

type option struct{ label, value string }

// options accepts ["a", "b"] or [{label, value}].
func options(v any) ([]option, error) {
	items, err := list(v, "options")
	if err != nil {
		return nil, err
	}
	out := make([]option, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case map[string]any:
			val := fmt.Sprint(x["value"])
			lbl := val
			if l, ok := x["label"]; ok {
				lbl = fmt.Sprint(l)
			}
			out = append(out, option{lbl, val})
		default:
			s := fmt.Sprint(x)
			out = append(out, option{s, s})
		}
	}
	return out, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	}
	return false
}

func list(v any, name string) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	}
	return nil, fmt.Errorf("%s must be a list, got %T", name, v)
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
