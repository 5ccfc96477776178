package pack

import (
	"testing"
)

func graphModules(t *testing.T, n int) (*Builder, []*Module) {
	t.Helper()
	files := map[string]string{}
	names := []string{"/m/a.js", "/m/b.js", "/m/c.js", "/m/d.js", "/m/e.js"}
	if n > len(names) {
		t.Fatalf("too many modules requested: %d", n)
	}
	b := testBuilder(files, nil)
	modules := make([]*Module, n)
	for i := 0; i < n; i++ {
		modules[i] = b.newModule(NewFile(names[i], nil), b.options)
	}
	return b, modules
}

func TestRequireDedupAndSelf(t *testing.T) {
	_, ms := graphModules(t, 2)
	a, b := ms[0], ms[1]
	a.Require(a.File, 0, b, "b")
	a.Require(a.File, 0, b, "b")
	a.Require(a.File, 0, a, "a")
	if len(a.Requires()) != 1 || a.Requires()[0] != b {
		t.Fatalf("requires = %v", a.Requires())
	}
	a.External(a.File, 0, a, "a")
	if len(a.Externals()) != 0 {
		t.Fatal("self external recorded")
	}
}

func TestIncludeCycleRefused(t *testing.T) {
	_, ms := graphModules(t, 3)
	a, b, c := ms[0], ms[1], ms[2]
	if !a.Include(a.File, 0, b, "b.js") {
		t.Fatal("a.include(b) refused")
	}
	if !b.Include(b.File, 0, c, "c.js") {
		t.Fatal("b.include(c) refused")
	}
	// direct cycle
	if b.Include(b.File, 0, a, "a.js") {
		t.Fatal("b.include(a) accepted")
	}
	// transitive cycle
	if c.Include(c.File, 0, a, "a.js") {
		t.Fatal("c.include(a) accepted")
	}
	// self include
	if a.Include(a.File, 0, a, "a.js") {
		t.Fatal("a.include(a) accepted")
	}
	if len(b.Includes()) != 1 {
		t.Fatalf("refused edge recorded: %v", b.Includes())
	}
	warned := false
	for _, d := range b.File.Diagnostics {
		warned = warned || d.Severity == SeverityWarning
	}
	if !warned {
		t.Fatal("refused include did not warn")
	}
}

func TestGetAllRequiresPostOrder(t *testing.T) {
	// a -> b -> c, a -> c: post-order puts callees first and self last,
	// each module once
	_, ms := graphModules(t, 3)
	a, b, c := ms[0], ms[1], ms[2]
	a.Require(a.File, 0, b, "b")
	a.Require(a.File, 0, c, "c")
	b.Require(b.File, 0, c, "c")
	got := a.GetAllRequires()
	want := []*Module{c, b, a}
	if len(got) != len(want) {
		t.Fatalf("closure size = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("closure[%d] wrong", i)
		}
	}
}

func TestGetAllRequiresCycleTerminates(t *testing.T) {
	_, ms := graphModules(t, 2)
	a, b := ms[0], ms[1]
	a.Require(a.File, 0, b, "b")
	b.Require(b.File, 0, a, "a")
	got := a.GetAllRequires()
	if len(got) != 2 {
		t.Fatalf("closure size = %d", len(got))
	}
	if got[len(got)-1] != a {
		t.Fatal("self is not last")
	}
}

func TestExternalsPropagate(t *testing.T) {
	// a requires b requires c; a.external(b) excludes b and, transitively,
	// c
	_, ms := graphModules(t, 3)
	a, b, c := ms[0], ms[1], ms[2]
	a.Require(a.File, 0, b, "b")
	b.Require(b.File, 0, c, "c")
	a.External(a.File, 0, b, "b")
	externals := a.GetAllExternals()
	if len(externals) != 2 {
		t.Fatalf("externals = %d modules", len(externals))
	}
	requires := a.GetAllRequires()
	if len(requires) != 1 || requires[0] != a {
		t.Fatalf("closure = %d modules, want just self", len(requires))
	}
}

func TestExternalsSticky(t *testing.T) {
	// exclusions of an external are excluded too
	_, ms := graphModules(t, 4)
	a, b, c, d := ms[0], ms[1], ms[2], ms[3]
	a.Require(a.File, 0, b, "b")
	a.Require(a.File, 0, d, "d")
	b.External(b.File, 0, c, "c")
	a.External(a.File, 0, b, "b")
	externals := a.GetAllExternals()
	seen := map[*Module]bool{}
	for _, m := range externals {
		seen[m] = true
	}
	if !seen[b] || !seen[c] {
		t.Fatalf("externals missing b or c")
	}
	if seen[d] {
		t.Fatal("unrelated module excluded")
	}
	requires := a.GetAllRequires()
	if len(requires) != 2 || requires[0] != d || requires[1] != a {
		t.Fatalf("closure wrong: %d modules", len(requires))
	}
}

func TestClosureInvariants(t *testing.T) {
	_, ms := graphModules(t, 4)
	a, b, c, d := ms[0], ms[1], ms[2], ms[3]
	a.Require(a.File, 0, b, "b")
	b.Require(b.File, 0, c, "c")
	c.Require(c.File, 0, a, "a")
	a.External(a.File, 0, d, "d")

	requires := a.GetAllRequires()
	counts := map[*Module]int{}
	for _, m := range requires {
		counts[m]++
	}
	for m, n := range counts {
		if n > 1 {
			t.Fatalf("%s appears %d times", m.File.Path, n)
		}
	}
	if requires[len(requires)-1] != a {
		t.Fatal("self is not last")
	}
	externals := a.GetAllExternals()
	for _, e := range externals {
		if counts[e] > 0 {
			t.Fatalf("excluded module %s in closure", e.File.Path)
		}
	}
}
