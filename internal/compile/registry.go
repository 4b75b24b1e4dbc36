package compile

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Apply evaluates a bound primitive. Each entry of inputs is the value list
// of one input; the result is the value list of the step.
type Apply func(inputs [][]string) ([]string, error)

// Primitive is a named function that can be bound to literal arguments.
type Primitive struct {
	Name string
	// Params lists the literal arguments the primitive understands.
	Params []string
	Bind   func(args map[string]string) (Apply, error)
}

// Registry resolves function names to primitives.
type Registry struct {
	prims map[string]Primitive
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{prims: make(map[string]Primitive)}
}

// Register adds or replaces a primitive.
func (r *Registry) Register(p Primitive) {
	r.prims[p.Name] = p
}

// Lookup finds a primitive by function name.
func (r *Registry) Lookup(name string) (Primitive, bool) {
	p, ok := r.prims[name]
	return p, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.prims))
	for n := range r.prims {
		names = append(names, n)
	}

	slices.Sort(names)

	return names
}

// DefaultRegistry returns a registry holding the built-in primitives.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, p := range []Primitive{
		each("identity", nil, func(map[string]string) (func(string) (string, bool), error) {
			return func(v string) (string, bool) { return v, true }, nil
		}),
		each("trim", nil, func(map[string]string) (func(string) (string, bool), error) {
			return func(v string) (string, bool) { return strings.TrimSpace(v), true }, nil
		}),
		each("lowercase", nil, func(map[string]string) (func(string) (string, bool), error) {
			return func(v string) (string, bool) { return strings.ToLower(v), true }, nil
		}),
		each("uppercase", nil, func(map[string]string) (func(string) (string, bool), error) {
			return func(v string) (string, bool) { return strings.ToUpper(v), true }, nil
		}),
		each("case", []string{"to"}, bindCase),
		each("replace", []string{"pattern", "with"}, bindReplace),
		each("regexp", []string{"match", "format"}, bindRegexp),
		each("substring", []string{"start", "end"}, bindSubstring),
		each("compose", []string{"prefix", "postfix"}, bindCompose),
		each("equals", []string{"string"}, func(args map[string]string) (func(string) (string, bool), error) {
			want := args["string"]
			return func(v string) (string, bool) { return v, v == want }, nil
		}),
		each("not_equals", []string{"string"}, func(args map[string]string) (func(string) (string, bool), error) {
			want := args["string"]
			return func(v string) (string, bool) { return v, v != want }, nil
		}),
		each("whitelist", []string{"values"}, bindList(true)),
		each("blacklist", []string{"values"}, bindList(false)),
		whole("concat", []string{"delimiter", "prefix", "postfix"}, bindConcat),
		whole("constant", []string{"value"}, bindConstant),
		whole("default", []string{"string"}, bindDefault),
		whole("count", nil, func(map[string]string) (Apply, error) {
			return func(in [][]string) ([]string, error) {
				return []string{strconv.Itoa(len(flatten(in)))}, nil
			}, nil
		}),
		whole("first", nil, func(map[string]string) (Apply, error) {
			return func(in [][]string) ([]string, error) {
				vs := flatten(in)
				if len(vs) == 0 {
					return nil, nil
				}

				return vs[:1], nil
			}, nil
		}),
		whole("last", nil, func(map[string]string) (Apply, error) {
			return func(in [][]string) ([]string, error) {
				vs := flatten(in)
				if len(vs) == 0 {
					return nil, nil
				}

				return vs[len(vs)-1:], nil
			}, nil
		}),
	} {
		r.Register(p)
	}

	return r
}

// each builds a primitive applied value by value; the bound function may
// drop a value by returning false.
func each(
	name string,
	params []string,
	bind func(args map[string]string) (func(string) (string, bool), error),
) Primitive {
	return Primitive{
		Name:   name,
		Params: params,
		Bind: func(args map[string]string) (Apply, error) {
			f, err := bind(args)
			if err != nil {
				return nil, errors.Wrapf(err, "function %s", name)
			}

			return func(in [][]string) ([]string, error) {
				var out []string

				for _, v := range flatten(in) {
					if r, ok := f(v); ok {
						out = append(out, r)
					}
				}

				return out, nil
			}, nil
		},
	}
}

// whole builds a primitive that sees all input values at once.
func whole(name string, params []string, bind func(args map[string]string) (Apply, error)) Primitive {
	return Primitive{
		Name:   name,
		Params: params,
		Bind: func(args map[string]string) (Apply, error) {
			f, err := bind(args)
			if err != nil {
				return nil, errors.Wrapf(err, "function %s", name)
			}

			return f, nil
		},
	}
}

func flatten(in [][]string) []string {
	if len(in) == 1 {
		return in[0]
	}

	var out []string
	for _, vs := range in {
		out = append(out, vs...)
	}

	return out
}

func bindCase(args map[string]string) (func(string) (string, bool), error) {
	switch strings.ToLower(args["to"]) {
	case "upper":
		return func(v string) (string, bool) { return strings.ToUpper(v), true }, nil
	case "lower", "":
		return func(v string) (string, bool) { return strings.ToLower(v), true }, nil
	default:
		return nil, errors.Newf("unknown case %q", args["to"])
	}
}

func bindReplace(args map[string]string) (func(string) (string, bool), error) {
	re, err := regexp.Compile(args["pattern"])
	if err != nil {
		return nil, errors.Wrap(err, "pattern")
	}

	with := args["with"]

	return func(v string) (string, bool) { return re.ReplaceAllString(v, with), true }, nil
}

func bindRegexp(args map[string]string) (func(string) (string, bool), error) {
	re, err := regexp.Compile(args["match"])
	if err != nil {
		return nil, errors.Wrap(err, "match")
	}

	format := args["format"]

	return func(v string) (string, bool) {
		m := re.FindStringSubmatchIndex(v)
		if m == nil {
			return "", false
		}

		if format == "" {
			return v[m[0]:m[1]], true
		}

		return string(re.ExpandString(nil, format, v, m)), true
	}, nil
}

func bindSubstring(args map[string]string) (func(string) (string, bool), error) {
	start, err := optionalInt(args, "start", 0)
	if err != nil {
		return nil, err
	}

	end, err := optionalInt(args, "end", -1)
	if err != nil {
		return nil, err
	}

	if start < 0 || (end >= 0 && end < start) {
		return nil, errors.Newf("invalid range [%d, %d)", start, end)
	}

	return func(v string) (string, bool) {
		n := utf8.RuneCountInString(v)
		if start >= n {
			return "", true
		}

		stop := n
		if end >= 0 && end < n {
			stop = end
		}

		runes := []rune(v)

		return string(runes[start:stop]), true
	}, nil
}

func bindCompose(args map[string]string) (func(string) (string, bool), error) {
	prefix, postfix := args["prefix"], args["postfix"]
	return func(v string) (string, bool) { return prefix + v + postfix, true }, nil
}

func bindList(keep bool) func(args map[string]string) (func(string) (string, bool), error) {
	return func(args map[string]string) (func(string) (string, bool), error) {
		set := make(map[string]bool)

		for v := range strings.SplitSeq(args["values"], ",") {
			if v = strings.TrimSpace(v); v != "" {
				set[v] = true
			}
		}

		return func(v string) (string, bool) { return v, set[v] == keep }, nil
	}
}

func bindConcat(args map[string]string) (Apply, error) {
	delimiter, prefix, postfix := args["delimiter"], args["prefix"], args["postfix"]

	return func(in [][]string) ([]string, error) {
		vs := flatten(in)
		if len(vs) == 0 {
			return nil, nil
		}

		return []string{prefix + strings.Join(vs, delimiter) + postfix}, nil
	}, nil
}

func bindConstant(args map[string]string) (Apply, error) {
	value, ok := args["value"]
	if !ok {
		return nil, errors.New("missing argument value")
	}

	return func(in [][]string) ([]string, error) {
		n := max(len(flatten(in)), 1)

		out := make([]string, n)
		for i := range out {
			out[i] = value
		}

		return out, nil
	}, nil
}

func bindDefault(args map[string]string) (Apply, error) {
	fallback := args["string"]

	return func(in [][]string) ([]string, error) {
		if vs := flatten(in); len(vs) > 0 {
			return vs, nil
		}

		return []string{fallback}, nil
	}, nil
}

func optionalInt(args map[string]string, key string, fallback int) (int, error) {
	s, ok := args[key]
	if !ok || strings.TrimSpace(s) == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "argument %s", key)
	}

	return n, nil
}
