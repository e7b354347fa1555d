package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/folio/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownField      = "E100" // unknown top-level or rule field
	ErrPatternMissing    = "E101" // rule has no pattern
	ErrPatternInvalid    = "E102" // pattern does not compile
	ErrUnknownAction     = "E103" // action is not filter/layout/snapshot/write
	ErrActionNameEmpty   = "E104" // filter, layout or snapshot name is empty
	ErrPathNoSlash       = "E105" // explicit path does not start with "/"
	ErrFloatForbidden    = "E106" // float values are not allowed in params
	ErrLayoutNoFilter    = "E107" // layout rule without filter
	ErrRouteTemplate     = "E108" // routing path template does not parse
	ErrDuplicateSnapshot = "E109" // snapshot name recorded twice in one rule
	ErrWrongType         = "E110" // field has the wrong CUE kind
	ErrParamsNotConcrete = "E111" // params contain non-concrete values
	ErrReservedSnapshot  = "E112" // raw is implicit and cannot be recorded
	ErrUnknownFilter     = "E113" // filter name is not registered
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	topLevelFields = []string{"compile", "route", "layout", "preprocess"}
	actionKinds    = []string{"filter", "layout", "snapshot", "write"}
)

// ValidateRules checks a rules value. Returns all errors found (does not
// fail fast).
func ValidateRules(v cue.Value) []ValidationError {
	var errs []ValidationError
	add := func(field, code string, pos cue.Value, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    pos.Pos().Line(),
		})
	}

	iter, err := v.Fields()
	if err != nil {
		add("", ErrWrongType, v, "rules must be a struct")
		return errs
	}
	for iter.Next() {
		if !contains(topLevelFields, iter.Label()) {
			add(iter.Label(), ErrUnknownField, iter.Value(), "unknown field %q, expected one of %s", iter.Label(), strings.Join(topLevelFields, ", "))
		}
	}

	forEach := func(field string, fn func(path string, rv cue.Value)) {
		lv := v.LookupPath(cue.ParsePath(field))
		if !lv.Exists() {
			return
		}
		li, err := lv.List()
		if err != nil {
			add(field, ErrWrongType, lv, "must be a list")
			return
		}
		for i := 0; li.Next(); i++ {
			fn(fmt.Sprintf("%s[%d]", field, i), li.Value())
		}
	}

	checkPattern := func(path string, rv cue.Value) {
		pv := rv.LookupPath(cue.ParsePath("pattern"))
		s, err := pv.String()
		if !pv.Exists() || err != nil || s == "" {
			add(path+".pattern", ErrPatternMissing, rv, "pattern is required")
			return
		}
		if _, err := ir.CompilePattern(s); err != nil {
			add(path+".pattern", ErrPatternInvalid, pv, "%v", err)
		}
	}

	checkParams := func(path string, rv cue.Value) {
		pv := rv.LookupPath(cue.ParsePath("params"))
		if !pv.Exists() {
			return
		}
		if pv.IncompleteKind() != cue.StructKind {
			add(path+".params", ErrWrongType, pv, "params must be a struct")
			return
		}
		if _, err := cueToIR(pv); err != nil {
			code := ErrParamsNotConcrete
			if strings.Contains(err.Error(), "float") {
				code = ErrFloatForbidden
			}
			add(path+".params", code, pv, "%v", err)
		}
	}

	forEach("compile", func(path string, rv cue.Value) {
		checkPattern(path, rv)
		seen := map[string]bool{}
		forEachIn(rv, "actions", func(i int, av cue.Value) {
			apath := fmt.Sprintf("%s.actions[%d]", path, i)
			var kinds []string
			for _, k := range actionKinds {
				if av.LookupPath(cue.ParsePath(k)).Exists() {
					kinds = append(kinds, k)
				}
			}
			if len(kinds) != 1 {
				add(apath, ErrUnknownAction, av, "action must set exactly one of %s", strings.Join(actionKinds, ", "))
				return
			}
			kind := kinds[0]
			name := stringField(av, kind)
			if kind != "write" && name == "" {
				add(apath+"."+kind, ErrActionNameEmpty, av, "%s name must be a non-empty string", kind)
			}
			checkParams(apath, av)

			var target string
			switch kind {
			case "write":
				target = name
				if target == "" {
					add(apath+".write", ErrPathNoSlash, av, "write path must be a non-empty string")
					return
				}
			case "snapshot":
				target = stringField(av, "path")
				if name == "raw" {
					add(apath+".snapshot", ErrReservedSnapshot, av, "the raw snapshot is implicit")
				} else if name != "" && seen[name] {
					add(apath+".snapshot", ErrDuplicateSnapshot, av, "snapshot %q already recorded", name)
				}
				seen[name] = true
			}
			if target != "" && !strings.HasPrefix(target, "/") {
				add(apath, ErrPathNoSlash, av, "path %q must start with a slash", target)
			}
		})
	})

	forEach("route", func(path string, rv cue.Value) {
		checkPattern(path, rv)
		src := stringField(rv, "path")
		if _, err := template.New("route").Parse(src); err != nil {
			add(path+".path", ErrRouteTemplate, rv, "%v", err)
		}
	})

	forEach("layout", func(path string, rv cue.Value) {
		checkPattern(path, rv)
		if stringField(rv, "filter") == "" {
			add(path+".filter", ErrLayoutNoFilter, rv, "layout rule requires a filter")
		}
		checkParams(path, rv)
	})

	return errs
}

// CheckFilterNames reports every filter action and layout rule naming a
// filter not in known.
func CheckFilterNames(v cue.Value, known []string) []ValidationError {
	var errs []ValidationError
	check := func(path string, fv cue.Value, name string) {
		if name != "" && !contains(known, name) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unknown filter %q", name),
				Code:    ErrUnknownFilter,
				Line:    fv.Pos().Line(),
			})
		}
	}
	forEachIn(v, "compile", func(i int, rv cue.Value) {
		forEachIn(rv, "actions", func(j int, av cue.Value) {
			check(fmt.Sprintf("compile[%d].actions[%d].filter", i, j), av, stringField(av, "filter"))
		})
	})
	forEachIn(v, "layout", func(i int, rv cue.Value) {
		check(fmt.Sprintf("layout[%d].filter", i), rv, stringField(rv, "filter"))
	})
	return errs
}

// ValidateRulesFile parses and validates a rules file without building a
// rule collection. Syntax errors are returned as a CompileError; schema
// problems, and filters missing from known when known is non-nil, are
// returned as validation errors.
func ValidateRulesFile(path string, known []string) ([]ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(filepath.Base(path)))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	errs := ValidateRules(v)
	if known != nil {
		errs = append(errs, CheckFilterNames(v, known)...)
	}
	return errs, nil
}

func forEachIn(v cue.Value, field string, fn func(int, cue.Value)) {
	li, err := v.LookupPath(cue.ParsePath(field)).List()
	if err != nil {
		return
	}
	for i := 0; li.Next(); i++ {
		fn(i, li.Value())
	}
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
