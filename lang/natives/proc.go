package natives

import (
	"bytes"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/glipt-org/glipt/lang/permission"
	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

// execResult holds the raw byte output of one subprocess, produced off the
// VM thread by parallel_exec workers and materialized into Values only
// after joining.
type execResult struct {
	code           int
	stdout, stderr string
}

// runCommand shells out cmd and blocks until it completes. The exit code is
// -1 when the command could not be started at all.
func runCommand(cmd string) execResult {
	c := exec.Command("sh", "-c", cmd)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	err := c.Run()
	code := 0
	if err != nil {
		code = -1
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		} else {
			errBuf.WriteString(err.Error())
		}
	}
	return execResult{code: code, stdout: outBuf.String(), stderr: errBuf.String()}
}

// execFn is the builtin exec global: run a command, return
// {stdout, stderr, exitCode, output}, raising an exec error on non-zero
// exit (after the result map is built, so a handler can still see it via
// retry patterns).
func execFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	cmd, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if !th.Perms.Has(permission.Exec, cmd) {
		return value.Nil, vm.Raisef("permission", "Permission denied: exec %q", cmd)
	}

	r := runCommand(cmd)
	m, mv := th.NewMap()
	th.Protect(mv)
	th.SetField(m, "stdout", th.StringValue(r.stdout))
	th.SetField(m, "stderr", th.StringValue(r.stderr))
	th.SetField(m, "exitCode", value.Int(int64(r.code)))
	th.SetField(m, "output", th.StringValue(strings.TrimSuffix(r.stdout, "\n")))
	th.Unprotect(1)

	if r.code != 0 {
		return mv, vm.Raisef("exec", "Command failed with exit code %d: %s", r.code, cmd)
	}
	return mv, nil
}

// parallelExecFn spawns one worker per command, each running a blocking
// subprocess; results come back in command order, not completion order. No
// Values are shared with workers -- each holds raw byte buffers that are
// materialized on the VM thread after every worker has joined.
func parallelExecFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	l, ok := argList(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if len(l.Elems) == 0 {
		return th.NewList(nil), nil
	}

	cmds := make([]string, len(l.Elems))
	for i, el := range l.Elems {
		s, ok := asString(el)
		if !ok {
			return value.Nil, nil
		}
		if !th.Perms.Has(permission.Exec, s) {
			return value.Nil, vm.Raisef("permission", "Permission denied: exec %q", s)
		}
		cmds[i] = s
	}

	results := make([]execResult, len(cmds))
	var wg sync.WaitGroup
	for i, cmd := range cmds {
		wg.Add(1)
		go func(i int, cmd string) {
			defer wg.Done()
			results[i] = runCommand(cmd)
		}(i, cmd)
	}
	wg.Wait()

	elems := make([]value.Value, 0, len(results))
	for _, r := range results {
		m, mv := th.NewMap()
		th.Protect(mv)
		th.SetField(m, "output", th.StringValue(strings.TrimSuffix(r.stdout, "\n")))
		th.SetField(m, "exitCode", value.Int(int64(r.code)))
		th.SetField(m, "stderr", th.StringValue(r.stderr))
		elems = append(elems, mv)
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}

func registerProc(th *vm.Thread) {
	defineModule(th, "proc", []moduleEntry{
		{"exec", -1, procExecFn},
		{"kill", -1, procKillFn},
		{"running", 1, procRunningFn},
		{"pid", 0, procPidFn},
		{"retry", -1, procRetryFn},
		{"sleep", 1, sleepFn},
	}, nil)
}

// procExecFn is proc.exec: like the exec builtin but the result map uses
// the key `code`, and a second timeout argument is accepted syntactically
// but not enforced -- the subprocess always runs to completion (see
// DESIGN.md on this documented limitation).
func procExecFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	cmd, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if !th.Perms.Has(permission.Exec, cmd) {
		return value.Nil, vm.Raisef("permission", "Permission denied: exec %q", cmd)
	}
	_, _ = argNumber(args, 1) // timeout: accepted, ignored

	r := runCommand(cmd)
	m, mv := th.NewMap()
	th.Protect(mv)
	th.SetField(m, "code", value.Int(int64(r.code)))
	th.SetField(m, "stdout", th.StringValue(r.stdout))
	th.SetField(m, "output", th.StringValue(strings.TrimRight(r.stdout, "\r\n")))
	th.SetField(m, "stderr", th.StringValue(r.stderr))
	th.Unprotect(1)

	if r.code != 0 {
		return value.Nil, vm.Raisef("exec", "Command failed with exit code %d: %s", r.code, cmd)
	}
	return mv, nil
}

func procKillFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pid, ok := argNumber(args, 0)
	if !ok {
		return value.Nil, nil
	}
	sig := syscall.SIGTERM
	if s, ok := argNumber(args, 1); ok {
		sig = syscall.Signal(int(s))
	}
	return value.Bool(syscall.Kill(int(pid), sig) == nil), nil
}

func procRunningFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	pid, ok := argNumber(args, 0)
	if !ok {
		return value.Nil, nil
	}
	// signal 0 probes for existence without delivering anything
	return value.Bool(syscall.Kill(int(pid), 0) == nil), nil
}

func procPidFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Int(int64(os.Getpid())), nil
}

// procRetryFn is proc.retry(n, [backoffBase,] fn): call fn up to n times,
// clearing any raised error between attempts and sleeping
// backoffBase * 2^attempt seconds after each failure. If every attempt
// fails the last error (or a generic retry error) is left for the caller's
// handler.
func procRetryFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	attempts, ok := argNumber(args, 0)
	if !ok || len(args) < 2 {
		return value.Nil, nil
	}
	backoff := 1.0
	fn := value.Nil
	for i := 1; i < len(args); i++ {
		if isCallable(args[i]) {
			fn = args[i]
		} else if n, ok := argNumber(args, i); ok && i == 1 {
			backoff = n
		}
	}
	if fn.IsNil() {
		return value.Nil, vm.Raisef("type", "retry requires a function argument")
	}

	n := int(attempts)
	for i := 0; i < n; i++ {
		th.ClearError()
		res, err := th.CallFunction(fn, nil)
		if err != nil {
			return value.Nil, err
		}
		if !th.HasError() {
			return res, nil
		}
		if i < n-1 {
			wait := backoff * math.Pow(2, float64(i))
			if wait > 0 {
				time.Sleep(time.Duration(wait * float64(time.Second)))
			}
		}
	}
	if !th.HasError() {
		return value.Nil, vm.Raisef("retry", "All retry attempts failed")
	}
	return value.Nil, nil
}
