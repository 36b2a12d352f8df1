package basil

import (
	"fmt"
	"os"
	"path/filepath"
)

// File builtins are thin wrappers over the host filesystem. Failures carry
// IOException so structured handlers can match on them.

func ioError(err error) error {
	return &RaisedError{Number: 53, TypeName: "IOException", Message: err.Error()}
}

func registerFileBuiltins(ip *Interpreter) {
	ip.RegisterNative("ReadAllText", 1, 1, func(c *CallCtx) (Value, error) {
		data, err := os.ReadFile(c.Str(0))
		if err != nil {
			return Nothing, ioError(err)
		}
		return StrVal(string(data)), nil
	})
	ip.RegisterNative("WriteAllText", 2, 2, func(c *CallCtx) (Value, error) {
		if err := os.WriteFile(c.Str(0), []byte(c.Str(1)), 0o644); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	})
	ip.RegisterNative("AppendAllText", 2, 2, func(c *CallCtx) (Value, error) {
		f, err := os.OpenFile(c.Str(0), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return Nothing, ioError(err)
		}
		defer f.Close()
		if _, err := f.WriteString(c.Str(1)); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	})
	ip.RegisterNative("ReadAllLines", 1, 1, func(c *CallCtx) (Value, error) {
		data, err := os.ReadFile(c.Str(0))
		if err != nil {
			return Nothing, ioError(err)
		}
		lines := splitLines(string(data))
		arr := NewArray([]int{len(lines)})
		for i, l := range lines {
			arr.Elems[i] = StrVal(l)
		}
		return ArrVal(arr), nil
	})

	ip.RegisterNative("FileExists", 1, 1, func(c *CallCtx) (Value, error) {
		fi, err := os.Stat(c.Str(0))
		return BoolVal(err == nil && !fi.IsDir()), nil
	})
	ip.RegisterNative("DirectoryExists", 1, 1, func(c *CallCtx) (Value, error) {
		fi, err := os.Stat(c.Str(0))
		return BoolVal(err == nil && fi.IsDir()), nil
	})
	ip.RegisterNative("FileLen", 1, 1, func(c *CallCtx) (Value, error) {
		fi, err := os.Stat(c.Str(0))
		if err != nil {
			return Nothing, ioError(err)
		}
		return LngVal(fi.Size()), nil
	})

	kill := func(c *CallCtx) (Value, error) {
		if err := os.Remove(c.Str(0)); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	}
	ip.RegisterNative("Kill", 1, 1, kill)
	ip.RegisterNative("FileDelete", 1, 1, kill)
	ip.RegisterNative("FileCopy", 2, 2, func(c *CallCtx) (Value, error) {
		data, err := os.ReadFile(c.Str(0))
		if err != nil {
			return Nothing, ioError(err)
		}
		if err := os.WriteFile(c.Str(1), data, 0o644); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	})
	ip.RegisterNative("MkDir", 1, 1, func(c *CallCtx) (Value, error) {
		if err := os.MkdirAll(c.Str(0), 0o755); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	})
	ip.RegisterNative("RmDir", 1, 1, func(c *CallCtx) (Value, error) {
		if err := os.Remove(c.Str(0)); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	})
	ip.RegisterNative("CurDir", 0, 0, func(c *CallCtx) (Value, error) {
		dir, err := os.Getwd()
		if err != nil {
			return Nothing, ioError(err)
		}
		return StrVal(dir), nil
	})
	ip.RegisterNative("ChDir", 1, 1, func(c *CallCtx) (Value, error) {
		if err := os.Chdir(c.Str(0)); err != nil {
			return Nothing, ioError(err)
		}
		return Nothing, nil
	})

	// Dir(pattern) lists matching names, newest semantics kept simple: the
	// result is a List of base names.
	ip.RegisterNative("Dir", 1, 1, func(c *CallCtx) (Value, error) {
		matches, err := filepath.Glob(c.Str(0))
		if err != nil {
			return Nothing, ioError(fmt.Errorf("pattern is not valid: %w", err))
		}
		out := NewList()
		for _, m := range matches {
			out.Add(StrVal(filepath.Base(m)))
		}
		return ObjVal(out), nil
	})

	// The File namespace mirrors the free functions.
	for _, name := range []string{
		"ReadAllText", "WriteAllText", "AppendAllText", "ReadAllLines",
		"FileExists", "FileLen",
	} {
		if cell, ok := ip.Core.Lookup(name); ok {
			ip.Core.DefineConst("File."+name, cell.V)
		}
	}
	if cell, ok := ip.Core.Lookup("DirectoryExists"); ok {
		ip.Core.DefineConst("Directory.Exists", cell.V)
	}
}

// splitLines splits on LF, tolerating CRLF, without a trailing empty line.
func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			out = append(out, line)
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
