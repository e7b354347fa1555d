package filters

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// Builtins returns the built-in filters.
func Builtins() []Filter {
	return []Filter{
		Func{FilterName: "identity", Fn: func(_ *Context, s string, _ ir.IRObject) (string, error) { return s, nil }},
		Func{FilterName: "upcase", Fn: upcase},
		Func{FilterName: "title", Fn: title},
		Func{FilterName: "replace", Fn: replace},
		Func{FilterName: "template", Fn: renderTemplate},
		copyBinary{},
		textToBinary{},
	}
}

func upcase(_ *Context, s string, _ ir.IRObject) (string, error) {
	return cases.Upper(language.Und).String(s), nil
}

func title(_ *Context, s string, params ir.IRObject) (string, error) {
	tag := language.Und
	if lang, ok := params.String("lang"); ok {
		parsed, err := language.Parse(lang)
		if err != nil {
			return "", fmt.Errorf("title: %w", err)
		}
		tag = parsed
	}
	return cases.Title(tag).String(s), nil
}

func replace(_ *Context, s string, params ir.IRObject) (string, error) {
	from, ok := params.String("from")
	if !ok || from == "" {
		return "", fmt.Errorf("replace: param %q is required", "from")
	}
	to, _ := params.String("to")
	return strings.ReplaceAll(s, from, to), nil
}

// templateDot is the dot of the template filter.
type templateDot struct {
	Item    *site.ItemView
	Rep     *site.RepView
	Layout  *site.LayoutView
	Items   *site.ItemCollectionView
	Layouts *site.LayoutCollectionView
	Config  *site.ConfigView
	Params  map[string]any
	// Content is the rep's content while laying out, "" otherwise.
	Content string
}

// renderTemplate evaluates the content as a text/template. Reading another
// item's compiled content may suspend the rep until that item is compiled.
func renderTemplate(fctx *Context, src string, params ir.IRObject) (string, error) {
	view := fctx.View
	name := "template"
	if fctx.Item != nil {
		name = string(fctx.Item.Identifier())
	}
	if fctx.Layout != nil {
		name = string(fctx.Layout.Identifier())
	}

	lookup := func(id string) (*site.ItemView, error) {
		it, ok := view.Items().Get(ir.Identifier(id))
		if !ok {
			return nil, fmt.Errorf("no item %s", id)
		}
		return it, nil
	}

	tmpl, err := template.New(name).Option("missingkey=zero").Funcs(template.FuncMap{
		"item": lookup,
		"compiledContent": func(id string, snapshot ...string) (string, error) {
			it, err := lookup(id)
			if err != nil {
				return "", err
			}
			snap := ""
			if len(snapshot) > 0 {
				snap = snapshot[0]
			}
			return it.CompiledContent(snap)
		},
		"pathOf": func(id string) (string, error) {
			it, err := lookup(id)
			if err != nil {
				return "", err
			}
			return it.Path()
		},
		"attr": func(id, key string) (any, error) {
			it, err := lookup(id)
			if err != nil {
				return nil, err
			}
			v, _ := it.Attribute(key)
			return ir.ToAny(v), nil
		},
		"config": func(key string) any {
			v, _ := view.Config().Get(key)
			return ir.ToAny(v)
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}).Parse(src)
	if err != nil {
		return "", fmt.Errorf("template: %w", err)
	}

	dot := templateDot{
		Item:    fctx.Item,
		Rep:     fctx.Rep,
		Layout:  fctx.Layout,
		Items:   view.Items(),
		Layouts: view.Layouts(),
		Config:  view.Config(),
		Params:  ir.ToAny(paramsOrEmpty(params)).(map[string]any),
		Content: fctx.Content,
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, dot); err != nil {
		return "", fmt.Errorf("template: %w", err)
	}
	return b.String(), nil
}

func paramsOrEmpty(p ir.IRObject) ir.IRObject {
	if p == nil {
		return ir.IRObject{}
	}
	return p
}

// copyBinary copies a binary input to a new file, standing in for binary
// processors such as image resizers.
type copyBinary struct{}

func (copyBinary) Name() string { return "copy_binary" }
func (copyBinary) From() Kind   { return Binary }
func (copyBinary) To() Kind     { return Binary }

func (copyBinary) Run(fctx *Context, content ir.Content, _ ir.IRObject) (ir.Content, error) {
	in, err := os.Open(content.Filename())
	if err != nil {
		return ir.Content{}, fmt.Errorf("copy_binary: %w", err)
	}
	defer in.Close()

	out, err := fctx.TempFile("copy-*")
	if err != nil {
		return ir.Content{}, fmt.Errorf("copy_binary: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return ir.Content{}, fmt.Errorf("copy_binary: %w", err)
	}
	if err := out.Close(); err != nil {
		return ir.Content{}, fmt.Errorf("copy_binary: %w", err)
	}
	return ir.NewBinaryContent(out.Name()), nil
}

// textToBinary writes textual content to a file, producing binary content.
type textToBinary struct{}

func (textToBinary) Name() string { return "text_to_binary" }
func (textToBinary) From() Kind   { return Text }
func (textToBinary) To() Kind     { return Binary }

func (textToBinary) Run(fctx *Context, content ir.Content, _ ir.IRObject) (ir.Content, error) {
	text, err := content.Text()
	if err != nil {
		return ir.Content{}, err
	}
	out, err := fctx.TempFile("text-*")
	if err != nil {
		return ir.Content{}, fmt.Errorf("text_to_binary: %w", err)
	}
	if _, err := out.WriteString(text); err != nil {
		out.Close()
		return ir.Content{}, fmt.Errorf("text_to_binary: %w", err)
	}
	if err := out.Close(); err != nil {
		return ir.Content{}, fmt.Errorf("text_to_binary: %w", err)
	}
	return ir.NewBinaryContent(out.Name()), nil
}
