package basil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	src := fmt.Sprintf(`
WriteAllText("%s", "hello")
AppendAllText("%s", " world")
ReadAllText("%s")
`, path, path, path)
	wantStr(t, evalSrc(t, src), "hello world")
}

func TestReadAllLinesToleratesCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	if err := os.WriteFile(path, []byte("a\r\nb\nc"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := fmt.Sprintf(`
Dim lines = ReadAllLines("%s")
lines(0) & lines(1) & lines(2) & UBound(lines)
`, path)
	wantStr(t, evalSrc(t, src), "abc2")
}

func TestFileExistsAndLen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	wantBool(t, evalSrc(t, fmt.Sprintf(`FileExists("%s")`, path)), true)
	wantBool(t, evalSrc(t, fmt.Sprintf(`FileExists("%s")`, dir)), false)
	wantBool(t, evalSrc(t, fmt.Sprintf(`DirectoryExists("%s")`, dir)), true)
	wantInt(t, evalSrc(t, fmt.Sprintf(`FileLen("%s")`, path)), 5)
}

func TestKillRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	src := fmt.Sprintf(`
Kill("%s")
FileExists("%s")
`, path, path)
	wantBool(t, evalSrc(t, src), false)
}

func TestMkDirRmDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub")
	src := fmt.Sprintf(`
MkDir("%s")
Dim existed = DirectoryExists("%s")
RmDir("%s")
existed & ":" & DirectoryExists("%s")
`, path, path, path, path)
	wantStr(t, evalSrc(t, src), "True:False")
}

func TestDirGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bas", "b.bas", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src := fmt.Sprintf(`Dir("%s").Count`, filepath.Join(dir, "*.bas"))
	wantInt(t, evalSrc(t, src), 2)
}

func TestMissingFileRaisesIOException(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.txt")
	src := fmt.Sprintf(`
Dim caught = ""
Try
    Dim text = ReadAllText("%s")
Catch ex As IOException
    caught = "io:" & Err.Number
End Try
caught
`, path)
	wantStr(t, evalSrc(t, src), "io:53")
}

func TestFileNamespaceMirrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ns.txt")
	src := fmt.Sprintf(`
File.WriteAllText("%s", "x")
File.ReadAllText("%s") & ":" & File.FileExists("%s") & ":" & Directory.Exists("%s")
`, path, path, path, filepath.Dir(path))
	wantStr(t, evalSrc(t, src), "x:True:True")
}
