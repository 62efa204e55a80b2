package natives

import (
	"regexp"

	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

// The re module exposes POSIX-extended matching: patterns compile in the
// regexp package's POSIX mode (ERE syntax, leftmost-longest matching); a
// compile failure raises a regex error.
func registerRe(th *vm.Thread) {
	defineModule(th, "re", []moduleEntry{
		{"match", 2, reMatchFn},
		{"search", 2, reSearchFn},
		{"find_all", 2, reFindAllFn},
		{"replace", 3, reReplaceFn},
		{"split", 2, reSplitFn},
	}, nil)
}

func reCompile(pattern string) (*regexp.Regexp, error) {
	rx, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, vm.Raisef("regex", "Invalid regex pattern")
	}
	return rx, nil
}

func reArgs(name string, args []value.Value) (pattern, s string, err error) {
	p, ok1 := argString(args, 0)
	str, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return "", "", vm.Raisef("type", "re.%s requires string arguments", name)
	}
	return p, str, nil
}

func reMatchFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pattern, s, err := reArgs("match", args)
	if err != nil {
		return value.False, err
	}
	rx, err := reCompile(pattern)
	if err != nil {
		return value.False, err
	}
	return value.Bool(rx.MatchString(s)), nil
}

// reSearchFn returns nil on no match, otherwise a map
// {matched, start, end[, groups]} for the first match.
func reSearchFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pattern, s, err := reArgs("search", args)
	if err != nil {
		return value.Nil, err
	}
	rx, err := reCompile(pattern)
	if err != nil {
		return value.Nil, err
	}
	loc := rx.FindStringSubmatchIndex(s)
	if loc == nil {
		return value.Nil, nil
	}

	m, mv := th.NewMap()
	th.Protect(mv)
	th.SetField(m, "matched", th.StringValue(s[loc[0]:loc[1]]))
	th.SetField(m, "start", value.Int(int64(loc[0])))
	th.SetField(m, "end", value.Int(int64(loc[1])))

	if rx.NumSubexp() > 0 {
		groups := make([]value.Value, 0, rx.NumSubexp())
		protected := 0
		for i := 1; i <= rx.NumSubexp(); i++ {
			if loc[2*i] == -1 {
				groups = append(groups, value.Nil)
			} else {
				g := th.StringValue(s[loc[2*i]:loc[2*i+1]])
				th.Protect(g)
				protected++
				groups = append(groups, g)
			}
		}
		gl := th.NewList(groups)
		th.Unprotect(protected)
		th.SetField(m, "groups", gl)
	}
	th.Unprotect(1)
	return mv, nil
}

func reFindAllFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pattern, s, err := reArgs("find_all", args)
	if err != nil {
		return value.Nil, err
	}
	rx, err := reCompile(pattern)
	if err != nil {
		return value.Nil, err
	}
	var elems []value.Value
	for _, match := range rx.FindAllString(s, -1) {
		v := th.StringValue(match)
		th.Protect(v)
		elems = append(elems, v)
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}

func reReplaceFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pattern, s, err := reArgs("replace", args)
	if err != nil {
		return value.Nil, err
	}
	repl, ok := argString(args, 2)
	if !ok {
		return value.Nil, vm.Raisef("type", "re.replace requires string arguments")
	}
	rx, err := reCompile(pattern)
	if err != nil {
		return value.Nil, err
	}
	return th.StringValue(rx.ReplaceAllLiteralString(s, repl)), nil
}

func reSplitFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pattern, s, err := reArgs("split", args)
	if err != nil {
		return value.Nil, err
	}
	rx, err := reCompile(pattern)
	if err != nil {
		return value.Nil, err
	}
	parts := rx.Split(s, -1)
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = th.StringValue(p)
		th.Protect(elems[i])
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}
