package demofs

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
)

//
// Demo file lookup with basic path validation.
//

var (
	searchPath = []string{"demos", "replays"}
)

// Perform path clean and basic security validation.
func BasePath(base string, name string) (string, error) {
	if base == "" {
		base = "."
	}
	fullName := filepath.Join(base, filepath.Clean(string(os.PathSeparator)+name))
	if filepath.IsAbs(fullName) ||
		(len(fullName) >= 1 && (fullName[0] == '\\' || fullName[0] == '/')) ||
		(len(fullName) >= 2 && (fullName[1] == ':')) {
		return "", fmt.Errorf("absolute path is not allowed: %s", fullName)
	}
	if len(fullName) > 0 && fullName[0] == '.' {
		return "", fmt.Errorf("leading dot in file name is not allowed: %s", fullName)
	}
	return fullName, nil
}

func open(base string, name string) (*os.File, error) {
	fullName, err := BasePath(base, name)
	if err != nil {
		return nil, err
	}
	return os.Open(fullName)
}

// Attempt to open file for reading from 'base' and then from the default search path.
// Empty 'base' allows the working directory.
func Open(base string, name string) (*os.File, int64, error) {
	var mErr error
	sp := make([]string, 0, 1+len(searchPath))
	sp = append(sp, base)
	sp = append(sp, searchPath...)
	for i, v := range sp {
		if i > 0 && v == base {
			continue
		}
		f, err := open(v, name)
		if err != nil {
			mErr = multierror.Append(mErr, err)
			continue
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			mErr = multierror.Append(mErr, err)
			continue
		}
		if fi.IsDir() {
			f.Close()
			mErr = multierror.Append(mErr, fmt.Errorf("is a directory: %s", f.Name()))
			continue
		}
		// Return file, ignore previous errors inside mErr if any.
		return f, fi.Size(), nil
	}
	return nil, 0, multierror.Prefix(mErr, "Open:")
}

// Attempt to read file from 'base' or the default search path.
func Read(base string, name string) ([]byte, error) {
	f, _, err := Open(base, name)
	if err != nil {
		return nil, multierror.Prefix(err, "Read:")
	}
	defer f.Close()
	return io.ReadAll(f)
}

var gzipMagic = []byte{0x1f, 0x8b}

// ReadDemo reads a demo by file system path, gzip compressed demos are inflated.
func ReadDemo(path string) (b []byte, err error) {
	defer func() { err = multierror.Prefix(err, "ReadDemo:") }()

	if b, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	return Inflate(b)
}

// Inflate returns b uncompressed when it carries a gzip stream, b itself otherwise.
func Inflate(b []byte) ([]byte, error) {
	if !bytes.HasPrefix(b, gzipMagic) {
		return b, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// IsSimplePath reports whether s is made of letters, digits, underscores and dashes only.
func IsSimplePath(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

// DemoStem returns name without its demo extensions: "a.dem.gz" gives "a".
func DemoStem(name string) string {
	for _, ext := range []string{".gz", ".dem"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
		}
	}
	return name
}

// DemoPath joins dir with the plain demo file name.
func DemoPath(dir string, name string) (string, error) {
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("not a plain file name: %s", name)
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("leading dot in file name is not allowed: %s", name)
	}
	if !IsDemoName(name) {
		return "", fmt.Errorf("not a demo file name: %s", name)
	}
	return filepath.Join(dir, name), nil
}

// IsDemoName reports whether name has a demo extension, optionally gzip compressed.
func IsDemoName(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	return filepath.Ext(name) == ".dem"
}
