package natives

import (
	"os"
	"os/user"
	"runtime"
	"time"

	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

func registerSys(th *vm.Thread) {
	defineModule(th, "sys", []moduleEntry{
		{"pid", 0, sysPidFn},
		{"ppid", 0, sysPpidFn},
		{"uid", 0, sysUIDFn},
		{"gid", 0, sysGIDFn},
		{"hostname", 0, sysHostnameFn},
		{"username", 0, sysUsernameFn},
		{"platform", 0, sysPlatformFn},
		{"arch", 0, sysArchFn},
		{"cpu_count", 0, sysCPUCountFn},
		{"clock", 0, clockFn},
		{"time", 0, sysTimeFn},
		{"cwd", 0, sysCwdFn},
		{"args", 0, sysArgsFn},
	}, nil)
}

func sysPidFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Int(int64(os.Getpid())), nil
}

func sysPpidFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Int(int64(os.Getppid())), nil
}

func sysUIDFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Int(int64(os.Getuid())), nil
}

func sysGIDFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Int(int64(os.Getgid())), nil
}

func sysHostnameFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	h, err := os.Hostname()
	if err != nil {
		return value.Nil, nil
	}
	return th.StringValue(h), nil
}

func sysUsernameFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	u, err := user.Current()
	if err != nil {
		return value.Nil, nil
	}
	return th.StringValue(u.Username), nil
}

func sysPlatformFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return th.StringValue(runtime.GOOS), nil
}

func sysArchFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return th.StringValue(runtime.GOARCH), nil
}

func sysCPUCountFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Int(int64(runtime.NumCPU())), nil
}

func sysTimeFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func sysCwdFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	wd, err := os.Getwd()
	if err != nil {
		return value.Nil, nil
	}
	return th.StringValue(wd), nil
}

func sysArgsFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	elems := make([]value.Value, 0, len(th.Args))
	for _, a := range th.Args {
		v := th.StringValue(a)
		th.Protect(v)
		elems = append(elems, v)
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}
