package natives

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/glipt-org/glipt/lang/permission"
	"github.com/glipt-org/glipt/lang/value"
	"github.com/glipt-org/glipt/lang/vm"
)

func registerFS(th *vm.Thread) {
	defineModule(th, "fs", []moduleEntry{
		{"list", 1, fsListFn},
		{"exists", 1, fsExistsFn},
		{"isfile", 1, fsIsfileFn},
		{"isdir", 1, fsIsdirFn},
		{"stat", 1, fsStatFn},
		{"size", 1, fsSizeFn},
		{"mkdir", 1, fsMkdirFn},
		{"rmdir", 1, fsRmdirFn},
		{"remove", 1, fsRemoveFn},
		{"copy", 2, fsCopyFn},
		{"move", 2, fsMoveFn},
		{"join", -1, fsJoinFn},
		{"dirname", 1, fsDirnameFn},
		{"basename", 1, fsBasenameFn},
		{"extname", 1, fsExtnameFn},
		{"absolute", 1, fsAbsoluteFn},
	}, nil)
}

func needRead(th *vm.Thread, path string) error {
	if !th.Perms.Has(permission.Read, path) {
		return vm.Raisef("permission", "Permission denied: read")
	}
	return nil
}

func needWrite(th *vm.Thread, path string) error {
	if !th.Perms.Has(permission.Write, path) {
		return vm.Raisef("permission", "Permission denied: write")
	}
	return nil
}

func fsListFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if err := needRead(th, path); err != nil {
		return value.Nil, err
	}
	dents, err := os.ReadDir(path)
	if err != nil {
		return value.Nil, vm.Raisef("io", "Could not open directory")
	}
	elems := make([]value.Value, 0, len(dents))
	for _, d := range dents {
		v := th.StringValue(d.Name())
		th.Protect(v)
		elems = append(elems, v)
	}
	lv := th.NewList(elems)
	th.Unprotect(len(elems))
	return lv, nil
}

func fsExistsFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.False, nil
	}
	_, err := os.Stat(path)
	return value.Bool(err == nil), nil
}

func fsIsfileFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.False, nil
	}
	fi, err := os.Stat(path)
	return value.Bool(err == nil && fi.Mode().IsRegular()), nil
}

func fsIsdirFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.False, nil
	}
	fi, err := os.Stat(path)
	return value.Bool(err == nil && fi.IsDir()), nil
}

func fsStatFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if err := needRead(th, path); err != nil {
		return value.Nil, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return value.Nil, vm.Raisef("io", "Could not stat %q", path)
	}
	m, mv := th.NewMap()
	th.Protect(mv)
	th.SetField(m, "size", value.Int(fi.Size()))
	th.SetField(m, "mtime", value.Int(fi.ModTime().Unix()))
	th.SetField(m, "mode", value.Int(int64(fi.Mode())))
	th.SetField(m, "isFile", value.Bool(fi.Mode().IsRegular()))
	th.SetField(m, "isDir", value.Bool(fi.IsDir()))
	th.Unprotect(1)
	return mv, nil
}

func fsSizeFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if err := needRead(th, path); err != nil {
		return value.Nil, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return value.Nil, nil
	}
	return value.Int(fi.Size()), nil
}

func fsMkdirFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if err := needWrite(th, path); err != nil {
		return value.Nil, err
	}
	return value.Bool(os.Mkdir(path, 0o755) == nil), nil
}

func fsRmdirFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if err := needWrite(th, path); err != nil {
		return value.Nil, err
	}
	return value.Bool(os.Remove(path) == nil), nil
}

func fsRemoveFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	if err := needWrite(th, path); err != nil {
		return value.Nil, err
	}
	return value.Bool(os.Remove(path) == nil), nil
}

func fsCopyFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	src, ok1 := argString(args, 0)
	dst, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return value.Nil, nil
	}
	if err := needRead(th, src); err != nil {
		return value.Nil, err
	}
	if err := needWrite(th, dst); err != nil {
		return value.Nil, err
	}
	in, err := os.Open(src)
	if err != nil {
		return value.False, nil
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return value.False, nil
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return value.False, nil
	}
	return value.True, nil
}

func fsMoveFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	src, ok1 := argString(args, 0)
	dst, ok2 := argString(args, 1)
	if !ok1 || !ok2 {
		return value.Nil, nil
	}
	if err := needWrite(th, src); err != nil {
		return value.Nil, err
	}
	if err := needWrite(th, dst); err != nil {
		return value.Nil, err
	}
	return value.Bool(os.Rename(src, dst) == nil), nil
}

func fsJoinFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	parts := make([]string, 0, len(args))
	for i := range args {
		if s, ok := argString(args, i); ok {
			parts = append(parts, s)
		}
	}
	return th.StringValue(filepath.Join(parts...)), nil
}

func fsDirnameFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return th.StringValue(filepath.Dir(path)), nil
}

func fsBasenameFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	return th.StringValue(filepath.Base(path)), nil
}

func fsExtnameFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	ext := filepath.Ext(path)
	if strings.HasPrefix(filepath.Base(path), ".") && ext == filepath.Base(path) {
		ext = ""
	}
	return th.StringValue(ext), nil
}

func fsAbsoluteFn(th *vm.Thread, args []value.Value) (value.Value, error) {
	path, ok := argString(args, 0)
	if !ok {
		return value.Nil, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return value.Nil, nil
	}
	return th.StringValue(abs), nil
}
