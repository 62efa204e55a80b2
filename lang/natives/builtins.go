package natives

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/glipt-org/glipt/lang/permission"
	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

var processStart = time.Now()

func registerBuiltins(th *vm.Thread) {
	define(th, "print", -1, printFn)
	define(th, "println", -1, printFn)
	define(th, "input", -1, inputFn)
	define(th, "exit", -1, exitFn)
	define(th, "clock", 0, clockFn)
	define(th, "len", 1, lenFn)
	define(th, "type", 1, typeFn)
	define(th, "str", 1, strFn)
	define(th, "append", 2, appendFn)
	define(th, "pop", 1, popFn)
	define(th, "keys", 1, keysFn)
	define(th, "values", 1, valuesFn)
	define(th, "contains", 2, containsFn)
	define(th, "range", -1, rangeFn)
	define(th, "join", -1, joinFn)
	define(th, "exec", -1, execFn)
	define(th, "parse_json", 1, parseJSONFn)
	define(th, "to_json", 1, toJSONFn)
	define(th, "read", 1, readFileFn)
	define(th, "write", 2, writeFileFn)
	define(th, "env", 1, envFn)
	define(th, "sleep", 1, sleepFn)
	define(th, "assert", -1, assertFn)
	define(th, "split", 2, splitFn)
	define(th, "trim", 1, trimFn)
	define(th, "replace", 3, replaceFn)
	define(th, "upper", 1, upperFn)
	define(th, "lower", 1, lowerFn)
	define(th, "starts_with", 2, startsWithFn)
	define(th, "ends_with", 2, endsWithFn)
	define(th, "sort", 1, sortFn)
	define(th, "map_fn", 2, mapFnFn)
	define(th, "filter", 2, filterFn)
	define(th, "reduce", -1, reduceFn)
	define(th, "num", 1, numFn)
	define(th, "bool", 1, boolFn)
	define(th, "format", -1, formatFn)
	define(th, "debug", -1, debugFn)
	define(th, "parallel_exec", 1, parallelExecFn)
}

func printFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(th.Stdout, " ")
		}
		fmt.Fprint(th.Stdout, vm.ToString(a))
	}
	fmt.Fprintln(th.Stdout)
	return value.Nil, nil
}

func inputFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if prompt, ok := argString(args, 0); ok {
		fmt.Fprint(th.Stdout, prompt)
	}
	r := bufio.NewReader(th.Stdin)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return value.Nil, nil
	}
	line = strings.TrimRight(line, "\n")
	return th.StringValue(line), nil
}

func exitFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if len(args) > 0 {
		if n, ok := argNumber(args, 0); ok {
			return value.Nil, &vm.Exit{Code: int(n)}
		}
		if msg, ok := argString(args, 0); ok {
			fmt.Fprintln(th.Stderr, msg)
			return value.Nil, &vm.Exit{Code: 1}
		}
	}
	return value.Nil, &vm.Exit{Code: 0}
}

func clockFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Number(time.Since(processStart).Seconds()), nil
}

func lenFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if s, ok := argString(args, 0); ok {
		return value.Int(int64(len(s))), nil
	}
	if l, ok := argList(args, 0); ok {
		return value.Int(int64(len(l.Elems))), nil
	}
	if m, ok := argMap(args, 0); ok {
		return value.Int(int64(m.Len())), nil
	}
	return value.Nil, nil
}

func typeFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return th.StringValue(vm.TypeName(args[0])), nil
}

func strFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if _, ok := argString(args, 0); ok {
		return args[0], nil
	}
	return th.StringValue(vm.ToString(args[0])), nil
}

func appendFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok {
		return value.Nil, nil
	}
	l.Elems = append(l.Elems, args[1])
	return args[0], nil
}

func popFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok || len(l.Elems) == 0 {
		return value.Nil, nil
	}
	last := l.Elems[len(l.Elems)-1]
	l.Elems = l.Elems[:len(l.Elems)-1]
	return last, nil
}

func keysFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	m, ok := argMap(args, 0)
	if !ok {
		return value.Nil, nil
	}
	keys := m.Keys()
	elems := make([]value.Value, 0, len(keys))
	for _, k := range keys {
		elems = append(elems, value.ObjValue(k))
	}
	return th.NewList(elems), nil
}

func valuesFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	m, ok := argMap(args, 0)
	if !ok {
		return value.Nil, nil
	}
	keys := m.Keys()
	elems := make([]value.Value, 0, len(keys))
	for _, k := range keys {
		if v, ok := m.Get(k); ok {
			elems = append(elems, v)
		}
	}
	return th.NewList(elems), nil
}

func containsFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if l, ok := argList(args, 0); ok {
		for _, el := range l.Elems {
			if value.Equal(el, args[1]) {
				return value.True, nil
			}
		}
		return value.False, nil
	}
	if s, ok := argString(args, 0); ok {
		if sub, ok := argString(args, 1); ok {
			return value.Bool(strings.Contains(s, sub)), nil
		}
		return value.False, nil
	}
	if m, ok := argMap(args, 0); ok {
		if k, ok := argString(args, 1); ok {
			_, found := m.Get(th.Intern(k))
			return value.Bool(found), nil
		}
	}
	return value.False, nil
}

func rangeFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	start, ok1 := argNumber(args, 0)
	end, ok2 := argNumber(args, 1)
	if !ok1 || !ok2 {
		return value.Nil, nil
	}
	step := 1.0
	if s, ok := argNumber(args, 2); ok {
		step = s
	}
	if step == 0 {
		return value.Nil, nil
	}
	var elems []value.Value
	if step > 0 {
		for i := start; i < end; i += step {
			elems = append(elems, value.Number(i))
		}
	} else {
		for i := start; i > end; i += step {
			elems = append(elems, value.Number(i))
		}
	}
	return th.NewList(elems), nil
}

func joinFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok {
		return th.StringValue(""), nil
	}
	sep := ""
	if s, ok := argString(args, 1); ok {
		sep = s
	}
	parts := make([]string, len(l.Elems))
	for i, el := range l.Elems {
		parts[i] = vm.ToString(el)
	}
	return th.StringValue(strings.Join(parts, sep)), nil
}

func sleepFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if s, ok := argNumber(args, 0); ok && s > 0 {
		time.Sleep(time.Duration(s * float64(time.Second)))
	}
	return value.Nil, nil
}

func assertFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if len(args) < 1 {
		return value.Nil, nil
	}
	if args[0].IsFalsey() {
		if msg, ok := argString(args, 1); ok {
			fmt.Fprintf(th.Stderr, "Assertion failed: %s\n", msg)
		} else {
			fmt.Fprintln(th.Stderr, "Assertion failed")
		}
		return value.Nil, &vm.Exit{Code: 1}
	}
	return value.True, nil
}

func splitFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok1 := argString(args, 0)
	delim, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return value.Nil, nil
	}
	var parts []string
	if delim == "" {
		parts = make([]string, len(s))
		for i := 0; i < len(s); i++ {
			parts[i] = s[i : i+1]
		}
	} else {
		parts = strings.Split(s, delim)
	}
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = th.StringValue(p)
		th.Protect(elems[i]) // rooted until the list owns it
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}

func trimFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return th.StringValue(strings.Trim(s, " \t\n\r")), nil
}

func replaceFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok1 := argString(args, 0)
	old, ok2 := argString(args, 1)
	repl, ok3 := argString(args, 2)
	if !ok1 || !ok2 || !ok3 {
		return value.Nil, nil
	}
	if old == "" {
		return args[0], nil
	}
	return th.StringValue(strings.ReplaceAll(s, old, repl)), nil
}

func upperFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return th.StringValue(strings.ToUpper(s)), nil
}

func lowerFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return th.StringValue(strings.ToLower(s)), nil
}

func startsWithFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok1 := argString(args, 0)
	prefix, ok2 := argString(args, 1)
	return value.Bool(ok1 && ok2 && strings.HasPrefix(s, prefix)), nil
}

func endsWithFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok1 := argString(args, 0)
	suffix, ok2 := argString(args, 1)
	return value.Bool(ok1 && ok2 && strings.HasSuffix(s, suffix)), nil
}

// sortFn sorts in place and returns its argument: numerically when every
// element is a number, lexically when every element is a string, and not at
// all for mixed lists.
func sortFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok {
		return value.Nil, nil
	}
	allNums, allStrs := true, true
	for _, el := range l.Elems {
		if !el.IsNumber() {
			allNums = false
		}
		if _, isStr := asString(el); !isStr {
			allStrs = false
		}
	}
	switch {
	case allNums:
		slices.SortStableFunc(l.Elems, func(a, b value.Value) int {
			x, y := a.AsNumber(), b.AsNumber()
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		})
	case allStrs:
		slices.SortStableFunc(l.Elems, func(a, b value.Value) int {
			x, _ := asString(a)
			y, _ := asString(b)
			return strings.Compare(x, y)
		})
	}
	return args[0], nil
}

func asString(v value.Value) (string, bool) {
	if !v.IsObj() {
		return "", false
	}
	s, ok := v.AsObj().(*value.StringObj)
	if !ok {
		return "", false
	}
	return s.Chars, true
}

func mapFnFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok {
		return value.Nil, nil
	}
	fn := args[1]
	var out []value.Value
	for _, el := range l.Elems {
		res, err := th.CallFunction(fn, []value.Value{el})
		if err != nil {
			th.Unprotect(len(out))
			return value.Nil, err
		}
		if th.HasError() {
			th.Unprotect(len(out))
			return value.Nil, nil
		}
		th.Protect(res) // callback results stay rooted across later calls
		out = append(out, res)
	}
	lv := th.NewList(out)
	th.Unprotect(len(out))
	return lv, nil
}

func filterFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok {
		return value.Nil, nil
	}
	fn := args[1]
	var out []value.Value
	for _, el := range l.Elems {
		res, err := th.CallFunction(fn, []value.Value{el})
		if err != nil {
			return value.Nil, err
		}
		if th.HasError() {
			return value.Nil, nil
		}
		if !res.IsFalsey() {
			out = append(out, el)
		}
	}
	return th.NewList(out), nil
}

func reduceFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok || len(args) < 2 {
		return value.Nil, nil
	}
	fn := args[1]
	if len(l.Elems) == 0 {
		if len(args) >= 3 {
			return args[2], nil
		}
		return value.Nil, nil
	}
	var acc value.Value
	start := 0
	if len(args) >= 3 {
		acc = args[2]
	} else {
		acc = l.Elems[0]
		start = 1
	}
	for i := start; i < len(l.Elems); i++ {
		res, err := th.CallFunction(fn, []value.Value{acc, l.Elems[i]})
		if err != nil {
			return value.Nil, err
		}
		if th.HasError() {
			return value.Nil, nil
		}
		acc = res
	}
	return acc, nil
}

func numFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	if args[0].IsNumber() {
		return args[0], nil
	}
	if s, ok := argString(args, 0); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.Nil, nil
		}
		return value.Number(f), nil
	}
	if args[0].IsBool() {
		if args[0].AsBool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	}
	return value.Nil, nil
}

func boolFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Bool(!args[0].IsFalsey()), nil
}

// formatFn substitutes {} placeholders with the remaining arguments in
// order; extra placeholders are dropped.
func formatFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	f, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	var sb strings.Builder
	argIdx := 1
	for i := 0; i < len(f); i++ {
		if i+1 < len(f) && f[i] == '{' && f[i+1] == '}' {
			if argIdx < len(args) {
				sb.WriteString(vm.ToString(args[argIdx]))
				argIdx++
			}
			i++
			continue
		}
		sb.WriteByte(f[i])
	}
	return th.StringValue(sb.String()), nil
}

func debugFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(th.Stderr, " ")
		}
		fmt.Fprint(th.Stderr, "[DEBUG] ")
		fmt.Fprint(th.Stderr, vm.ToString(a))
	}
	fmt.Fprintln(th.Stderr)
	return value.Nil, nil
}

func envFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	name, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if !th.Perms.Has(permission.Env, name) {
		return value.Nil, vm.Raisef("permission", "Permission denied: env %q", name)
	}
	v, found := os.LookupEnv(name)
	if !found {
		return value.Nil, nil
	}
	return th.StringValue(v), nil
}

func readFileFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if !th.Perms.Has(permission.Read, path) {
		return value.Nil, vm.Raisef("permission", "Permission denied: read %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Nil, nil
	}
	if strings.HasSuffix(path, ".json") {
		return parseJSON(th, string(data)), nil
	}
	return th.StringValue(string(data)), nil
}

func writeFileFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok1 := argString(args, 0)
	content, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return value.False, nil
	}
	if !th.Perms.Has(permission.Write, path) {
		return value.False, vm.Raisef("permission", "Permission denied: write %q", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return value.False, nil
	}
	return value.True, nil
}

func parseJSONFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	s, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return parseJSON(th, s), nil
}

func toJSONFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return th.StringValue(writeJSON(args[0])), nil
}
