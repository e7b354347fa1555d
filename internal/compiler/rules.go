package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/rules"
	"github.com/roach88/folio/internal/site"
)

// LoadRulesFile compiles a CUE rules file into a rule collection. The file
// contents become the collection's code snippet, so editing the rules file
// outdates every rep.
//
// A rules file looks like:
//
//	compile: [
//		{pattern: "/**/*.md", actions: [{filter: "template"}, {layout: "/default.*"}]},
//		{pattern: "/**/*", actions: []},
//	]
//	route: [
//		{pattern: "/**/*.md", path: "{{.WithoutExt}}.html"},
//		{pattern: "/**/*", path: "{{.Identifier}}"},
//	]
//	layout: [
//		{pattern: "/**/*.html", filter: "template"},
//	]
func LoadRulesFile(path string) (*rules.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return CompileRulesSource(filepath.Base(path), data)
}

// CompileRulesSource compiles rules from CUE source. name is used for
// positions in errors and as the code snippet name.
func CompileRulesSource(name string, src []byte) (*rules.Collection, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c, err := CompileRules(v)
	if err != nil {
		return nil, err
	}
	c.Snippets = []rules.CodeSnippet{{Name: name, Source: string(src)}}
	return c, nil
}

// CompileRules converts a CUE value into a rule collection. The value is
// validated first; every validation error is reported together.
func CompileRules(v cue.Value) (*rules.Collection, error) {
	if errs := ValidateRules(v); len(errs) > 0 {
		return nil, &ValidationErrors{Errors: errs}
	}

	c := rules.NewCollection()

	if err := eachListItem(v, "compile", func(rv cue.Value) error {
		return compileCompileRule(c, rv)
	}); err != nil {
		return nil, err
	}
	if err := eachListItem(v, "route", func(rv cue.Value) error {
		return compileRoutingRule(c, rv)
	}); err != nil {
		return nil, err
	}
	if err := eachListItem(v, "layout", func(rv cue.Value) error {
		params, err := optionalParams(rv)
		if err != nil {
			return err
		}
		return c.Layout(stringField(rv, "pattern"), stringField(rv, "filter"), params)
	}); err != nil {
		return nil, err
	}

	pre, err := compilePreprocess(v)
	if err != nil {
		return nil, err
	}
	c.PreprocessFunc = pre

	return c, nil
}

// recordedAction is one entry of a compile rule's action list.
type recordedAction struct {
	kind   string
	name   string
	path   string
	routed bool
	params ir.IRObject
}

func compileCompileRule(c *rules.Collection, rv cue.Value) error {
	var actions []recordedAction
	err := eachListItem(rv, "actions", func(av cue.Value) error {
		a, err := compileAction(av)
		if err != nil {
			return err
		}
		actions = append(actions, a)
		return nil
	})
	if err != nil {
		return err
	}

	body := func(ctx *rules.RecordingContext, _ *site.ItemView) error {
		for _, a := range actions {
			switch a.kind {
			case "filter":
				ctx.Filter(a.name, a.params)
			case "layout":
				ctx.Layout(a.name, a.params)
			case "snapshot":
				var opts []rules.SnapshotOption
				switch {
				case a.path != "":
					opts = append(opts, rules.WithPath(a.path))
				case !a.routed:
					opts = append(opts, rules.WithoutPath())
				}
				if err := ctx.Snapshot(a.name, opts...); err != nil {
					return err
				}
			case "write":
				if err := ctx.Write(a.path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return c.Compile(stringField(rv, "pattern"), stringField(rv, "rep"), body)
}

func compileAction(av cue.Value) (recordedAction, error) {
	params, err := optionalParams(av)
	if err != nil {
		return recordedAction{}, err
	}
	switch {
	case av.LookupPath(cue.ParsePath("filter")).Exists():
		return recordedAction{kind: "filter", name: stringField(av, "filter"), params: params}, nil
	case av.LookupPath(cue.ParsePath("layout")).Exists():
		return recordedAction{kind: "layout", name: stringField(av, "layout"), params: params}, nil
	case av.LookupPath(cue.ParsePath("snapshot")).Exists():
		a := recordedAction{kind: "snapshot", name: stringField(av, "snapshot"), routed: true}
		if pv := av.LookupPath(cue.ParsePath("path")); pv.Exists() {
			a.path, _ = pv.String()
			a.routed = false
		}
		return a, nil
	case av.LookupPath(cue.ParsePath("write")).Exists():
		return recordedAction{kind: "write", path: stringField(av, "write")}, nil
	}
	return recordedAction{}, &CompileError{Field: "actions", Message: "unknown action", Pos: av.Pos()}
}

// routeData is what a routing path template sees.
type routeData struct {
	item     *site.ItemView
	Rep      string
	Snapshot string
}

func (d routeData) Identifier() string  { return d.item.Identifier().String() }
func (d routeData) WithoutExt() string  { return d.item.Identifier().WithoutExt() }
func (d routeData) WithoutExts() string { return d.item.Identifier().WithoutExts() }
func (d routeData) Ext() string         { return d.item.Identifier().Ext() }
func (d routeData) Attr(key string) string {
	return d.item.AttributeString(key)
}

func compileRoutingRule(c *rules.Collection, rv cue.Value) error {
	src := stringField(rv, "path")
	tmpl, err := template.New("route").Option("missingkey=error").Parse(src)
	if err != nil {
		return &CompileError{Field: "route.path", Message: err.Error(), Pos: rv.Pos()}
	}

	route := func(item *site.ItemView, rep, snapshot string) (string, error) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, routeData{item: item, Rep: rep, Snapshot: snapshot}); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return c.Route(stringField(rv, "pattern"), stringField(rv, "rep"), stringField(rv, "snapshot"), route)
}

// compilePreprocess builds the preprocess hook from:
//
//	preprocess: {
//		delete: ["/drafts/**"]
//		attributes: [{pattern: "/blog/**", set: {kind: "article"}}]
//	}
func compilePreprocess(v cue.Value) (func(context.Context, *site.Draft) error, error) {
	pv := v.LookupPath(cue.ParsePath("preprocess"))
	if !pv.Exists() {
		return nil, nil
	}

	var deletes []ir.Pattern
	if err := eachListItem(pv, "delete", func(dv cue.Value) error {
		s, err := dv.String()
		if err != nil {
			return formatCUEError(err)
		}
		p, err := ir.CompilePattern(s)
		if err != nil {
			return &CompileError{Field: "preprocess.delete", Message: err.Error(), Pos: dv.Pos()}
		}
		deletes = append(deletes, p)
		return nil
	}); err != nil {
		return nil, err
	}

	type setRule struct {
		pattern ir.Pattern
		set     ir.IRObject
	}
	var sets []setRule
	if err := eachListItem(pv, "attributes", func(av cue.Value) error {
		p, err := ir.CompilePattern(stringField(av, "pattern"))
		if err != nil {
			return &CompileError{Field: "preprocess.attributes.pattern", Message: err.Error(), Pos: av.Pos()}
		}
		obj, err := cueToIR(av.LookupPath(cue.ParsePath("set")))
		if err != nil {
			return err
		}
		set, ok := obj.(ir.IRObject)
		if !ok {
			return &CompileError{Field: "preprocess.attributes.set", Message: "must be a struct", Pos: av.Pos()}
		}
		sets = append(sets, setRule{pattern: p, set: set})
		return nil
	}); err != nil {
		return nil, err
	}

	return func(_ context.Context, d *site.Draft) error {
		for _, it := range d.Items() {
			for _, p := range deletes {
				if p.Match(it.Identifier) {
					d.DeleteItem(it.Identifier)
					break
				}
			}
		}
		for _, it := range d.Items() {
			for _, s := range sets {
				if s.pattern.Match(it.Identifier) {
					for k, val := range s.set {
						it.Attributes[k] = ir.CloneValue(val)
					}
				}
			}
		}
		return nil
	}, nil
}

// eachListItem calls fn for every element of the optional list at field.
func eachListItem(v cue.Value, field string, fn func(cue.Value) error) error {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil
	}
	iter, err := lv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// stringField returns the string at field, or "" when absent.
func stringField(v cue.Value, field string) string {
	s, err := v.LookupPath(cue.ParsePath(field)).String()
	if err != nil {
		return ""
	}
	return s
}

func optionalParams(v cue.Value) (ir.IRObject, error) {
	pv := v.LookupPath(cue.ParsePath("params"))
	if !pv.Exists() {
		return nil, nil
	}
	val, err := cueToIR(pv)
	if err != nil {
		return nil, err
	}
	obj, ok := val.(ir.IRObject)
	if !ok {
		return nil, &CompileError{Field: "params", Message: "params must be a struct", Pos: pv.Pos()}
	}
	return obj, nil
}

// cueToIR converts a concrete CUE value into an IRValue. Floats are
// rejected, as everywhere else.
func cueToIR(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			e, err := cueToIR(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, e)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			e, err := cueToIR(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = e
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: "value", Message: "float values are forbidden, use int or string", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: "value", Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}
