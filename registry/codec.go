package registry

import (
	"bufio"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

// ServicesDir is the directory, relative to the output root, that holds
// registry files.
const ServicesDir = "META-INF/services"

// Path returns the output-root relative path of the registry file for the
// interface with the given binary name.
func Path(interfaceName string) string {
	return ServicesDir + "/" + interfaceName
}

var lineSeparators = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Read decodes a registry file. Everything after the first '#' on a line is a
// comment. Lines are trimmed and blank lines are ignored. Any of "\n", "\r\n",
// or "\r" ends a line. Anything else that decodes is kept as is, including a
// leading byte order mark. Content that is not valid UTF-8 results in an
// *IOError.
func Read(r io.Reader) (map[string]struct{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &IOError{Op: "decode", Err: errInvalidUTF8}
	}
	names := map[string]struct{}{}
	for _, line := range strings.Split(lineSeparators.Replace(string(data)), "\n") {
		if pos := strings.IndexByte(line, '#'); pos >= 0 {
			line = line[:pos]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			names[line] = struct{}{}
		}
	}
	return names, nil
}

// Write encodes names as a registry file: each name followed by "\n", UTF-8,
// with no comments. Names are written in the order given.
func Write(names []string, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, n := range names {
		if _, err := bw.WriteString(n); err != nil {
			return &IOError{Op: "write", Err: err}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return &IOError{Op: "write", Err: err}
		}
	}
	if err := bw.Flush(); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// SortedNames returns the members of the given set in sorted order.
func SortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
