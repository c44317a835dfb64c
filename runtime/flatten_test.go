package mruntime

import (
	"strings"
	"testing"
)

func sumTree() *VariableTree {
	tree := NewVariableTree()
	tree.PutTerminal(keys("sum", "pan", "x"), Int(1))
	tree.PutTerminal(keys("sum", "pan", "y"), Int(2))
	tree.PutTerminal(keys("sum", "eks", "x"), Int(3))
	tree.PutTerminal(keys("count"), Int(3))
	return tree
}

func joinRecords(recs []*Record) string {
	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

func TestToRecords(t *testing.T) {
	tests := []struct {
		name     string
		path     []Value
		names    []string
		prefixed bool
		want     string
	}{
		{"terminal", keys("count"), nil, false, "count=3"},
		{"terminal prefixed", keys("count"), nil, true, "count=3"},
		{"split", keys("sum"), nil, false, "x=1,y=2\nx=3"},
		{"joined", keys("sum"), nil, true, "sum:pan:x=1,sum:pan:y=2,sum:eks:x=3"},
		{"named", keys("sum"), []string{"a"}, false, "a=pan,x=1,y=2\na=eks,x=3"},
		{"named prefixed", keys("sum"), []string{"a"}, true, "a=pan,sum:pan:x=1,sum:pan:y=2\na=eks,sum:eks:x=3"},
		{"two names", keys("sum"), []string{"a", "b"}, false, "a=pan,b=x,sum=1\na=pan,b=y,sum=2\na=eks,b=x,sum=3"},
		{"two names prefixed", keys("sum"), []string{"a", "b"}, true, "a=pan,b=x,sum:pan:x=1\na=pan,b=y,sum:pan:y=2\na=eks,b=x,sum:eks:x=3"},
		{"too shallow for names", keys("sum"), []string{"a", "b", "c"}, false, ""},
		{"indexed", keys("sum", "pan"), nil, false, "x=1,y=2"},
		{"indexed prefixed", keys("sum", "pan"), nil, true, "sum:pan:x=1,sum:pan:y=2"},
		{"missing", keys("nothing"), nil, false, ""},
		{"empty path", nil, nil, false, ""},
	}
	tree := sumTree()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := joinRecords(tree.ToRecords(tt.path, tt.names, tt.prefixed, ":"))
			if got != tt.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestToRecordsSeparator(t *testing.T) {
	got := joinRecords(sumTree().ToRecords(keys("sum"), []string{"a"}, true, "."))
	want := "a=pan,sum.pan.x=1,sum.pan.y=2\na=eks,sum.eks.x=3"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestMixedLevelKeepsTerminalsWithSplitRecords(t *testing.T) {
	tree := NewVariableTree()
	tree.PutTerminal(keys("v", "n"), Int(5))
	tree.PutTerminal(keys("v", "sub", "a"), Int(1))
	got := joinRecords(tree.ToRecords(keys("v"), nil, false, ":"))
	if got != "n=5,a=1" {
		t.Fatalf("unexpected records:\n%s", got)
	}
	got = joinRecords(tree.ToRecords(keys("v"), nil, true, ":"))
	if got != "v:n=5,v:sub:a=1" {
		t.Fatalf("unexpected records:\n%s", got)
	}
}

func TestAllToRecords(t *testing.T) {
	got := joinRecords(sumTree().AllToRecords(nil, true, ":"))
	want := "sum:pan:x=1,sum:pan:y=2,sum:eks:x=3\ncount=3"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func lashedTree() *VariableTree {
	tree := NewVariableTree()
	tree.PutTerminal(keys("count", "pan"), Int(1))
	tree.PutTerminal(keys("count", "eks"), Int(2))
	tree.PutTerminal(keys("count", "wye"), Int(7))
	tree.PutTerminal(keys("sum", "pan"), Int(10))
	tree.PutTerminal(keys("sum", "eks"), Int(20))
	return tree
}

func TestLashedToRecords(t *testing.T) {
	tree := lashedTree()
	paths := [][]Value{keys("count"), keys("sum")}

	got := joinRecords(tree.LashedToRecords(paths, []string{"a"}, false, ":"))
	if want := "a=pan,count=1,sum=10\na=eks,count=2,sum=20"; got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	got = joinRecords(tree.LashedToRecords(paths, []string{"a"}, true, ":"))
	if want := "a=pan,count:pan=1,sum:pan=10\na=eks,count:eks=2,sum:eks=20"; got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	got = joinRecords(tree.LashedToRecords(paths, nil, true, ":"))
	if want := "count:pan=1,sum:pan=10,count:eks=2,sum:eks=20"; got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestLashedMissingTreeProducesNothing(t *testing.T) {
	tree := lashedTree()
	recs := tree.LashedToRecords([][]Value{keys("count"), keys("nothing")}, []string{"a"}, false, ":")
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}
