package mruntime

import (
	"fmt"
	"io"
	"strings"
)

var keywordUsage = []struct {
	name string
	text string
}{
	{"filter", `filter: keeps or drops the current record in the output stream.
  Example: mlrdsl -e 'filter (NR == 2 || $x > 5.4)'
  Use -q instead of 'filter false' to keep only emitted records:
  mlrdsl -q -e '@running_sum += $x * $y; emit @running_sum'`},
	{"unset", `unset: removes fields from the current record, or out-of-stream variables.
  Example: mlrdsl -e 'unset $x'
  Example: mlrdsl -e 'unset $*'
  Example: mlrdsl -e 'for (k, v in $*) { if (k =~ "a.*") { unset $[k] } }'
  Example: mlrdsl -e '...; unset @sums'
  Example: mlrdsl -e '...; unset @sums["green"]'
  Example: mlrdsl -e '...; unset @*'`},
	{"emit", `emit: sends an out-of-stream variable into the output record stream. Map
  levels not named by emit arguments are split into separate records.
  Example: mlrdsl -e '... ; emit @sums'
  Example: mlrdsl -e '... ; emit @sums, "index1", "index2"'
  Example: mlrdsl -e '... ; emit @*, "index1", "index2"'
  Example: mlrdsl -e '... ; emit (@count, @sum), "a"'
  Example: mlrdsl -e '... ; emit > "out.dat", @sums'`},
	{"emitp", `emitp: sends an out-of-stream variable into the output record stream. Map
  levels not named by emitp arguments are joined into prefixed field names
  with the flatten separator (default ":").
  Example: mlrdsl -e '... ; emitp @sums'
  Example: mlrdsl -e '... ; emitp @sums, "index1", "index2"'
  Example: mlrdsl -e '... ; emitp @*, "index1", "index2"'`},
	{"emitf", `emitf: sends non-indexed out-of-stream variables side by side as one record.
  Example: mlrdsl -e '... ; emitf @count'
  Example: mlrdsl -e '... ; emitf @count, @sum, @mean'`},
	{"dump", `dump: prints all out-of-stream variables to stdout as JSON.
  Example: mlrdsl -q -e '@sum[$a][$b] += $x; end { dump }'
  Example: mlrdsl -q -e '... ; end { dump > "vars.json" }'`},
	{"edump", `edump: prints all out-of-stream variables to stderr as JSON.`},
	{"print", `print: prints an expression and a newline to stdout. printn omits the newline.
  Example: mlrdsl -q -e 'print "The sum of x and y is " . string($x + $y)'
  Example: mlrdsl -q -e 'for (k, v in $*) { print string(k) . " => " . string(v) }'
  Example: mlrdsl -q -e 'print > $a . ".txt", $b'`},
	{"eprint", `eprint: prints an expression and a newline to stderr. eprintn omits the newline.
  Example: mlrdsl -q -e 'eprint "The sum of x and y is " . string($x + $y)'`},
	{"tee", `tee: writes the current record to a file.
  Example: mlrdsl -q -e 'tee > $a . ".csv", $*'
  Example: mlrdsl -q -e 'tee >> "all.dat", $*'`},
}

// KeywordUsage returns the help text for a DSL keyword.
func KeywordUsage(name string) (string, bool) {
	for _, k := range keywordUsage {
		if k.name == name {
			return k.text + "\n", true
		}
	}
	return "", false
}

// Keywords lists the keywords that have help text.
func Keywords() []string {
	names := make([]string, len(keywordUsage))
	for i, k := range keywordUsage {
		names[i] = k.name
	}
	return names
}

// WriteKeywordUsage writes help for name, or for every keyword when name is
// empty.
func WriteKeywordUsage(w io.Writer, name string) error {
	if name == "" {
		parts := make([]string, len(keywordUsage))
		for i, k := range keywordUsage {
			parts[i] = k.text + "\n"
		}
		_, err := io.WriteString(w, strings.Join(parts, "\n"))
		return err
	}
	text, ok := KeywordUsage(name)
	if !ok {
		if fn, ok := FunctionUsage(name); ok {
			_, err := fmt.Fprintln(w, fn)
			return err
		}
		return fmt.Errorf("unrecognized keyword %q", name)
	}
	_, err := io.WriteString(w, text)
	return err
}
