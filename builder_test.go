// SPDX-License-Identifier: MIT
package treebuild

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type item struct {
	ID        int
	Parent    int
	HasParent bool
	Name      string
}

type childItem struct {
	ID       string
	Children []string
}

func root(id int) item          { return item{ID: id} }
func child(id, parent int) item { return item{ID: id, Parent: parent, HasParent: true} }

func parentConfig() *Config[item, int, item] {
	return &Config[item, int, item]{
		Key:       func(i item) int { return i.ID },
		ParentKey: func(i item) (int, bool) { return i.Parent, i.HasParent },
	}
}

func childConfig() *Config[childItem, string, childItem] {
	return &Config[childItem, string, childItem]{
		Key:       func(i childItem) string { return i.ID },
		ChildKeys: func(i childItem) ([]string, error) { return i.Children, nil },
	}
}

// shape renders a forest as nested keys, e.g. `[1[2 3] 5]`.
func shape[K comparable, V any](list List[K, V]) string {
	out := "["
	for index, node := range list {
		if index > 0 {
			out += " "
		}
		out += fmt.Sprint(node.Key())
		if len(node.Children()) > 0 {
			out += shape(node.Children())
		}
	}

	return out + "]"
}

func TestBuild_ParentMode(t *testing.T) {
	type args struct {
		items []item
		cfg   func(*Config[item, int, item])
	}

	tests := []struct {
		name      string
		args      args
		wantShape string
		wantKeys  []int
		wantErr   error
	}{
		{
			name:      "basic tree",
			args:      args{items: []item{root(1), child(2, 1), child(3, 1)}},
			wantShape: "[1[2 3]]",
			wantKeys:  []int{1, 2, 3},
		},
		{
			name:      "forward references",
			args:      args{items: []item{child(2, 99), child(3, 99), root(99)}},
			wantShape: "[99[2 3]]",
			wantKeys:  []int{2, 3, 99},
		},
		{
			name:      "children after & before their parent",
			args:      args{items: []item{child(2, 1), root(1), child(3, 1), child(4, 2)}},
			wantShape: "[1[2[4] 3]]",
			wantKeys:  []int{2, 1, 3, 4},
		},
		{
			name:      "roots ordered by bucket",
			args:      args{items: []item{root(1), child(2, 1), child(5, 9), root(3), child(6, 9)}},
			wantShape: "[1[2] 3 5 6]",
			wantKeys:  []int{1, 2, 5, 3, 6},
		},
		{
			name:      "missing parent becomes root",
			args:      args{items: []item{child(1, 99)}},
			wantShape: "[1]",
			wantKeys:  []int{1},
		},
		{
			name:      "empty input",
			args:      args{items: []item{}},
			wantShape: "[]",
			wantKeys:  []int{},
		},
		{
			name:    "duplicate identifier",
			args:    args{items: []item{root(1), root(1)}},
			wantErr: ErrDuplicateIdentifier,
		},
		{
			name: "referential integrity",
			args: args{
				items: []item{child(1, 99)},
				cfg:   func(c *Config[item, int, item]) { c.ValidateReferences = true },
			},
			wantErr: ErrReferentialIntegrity,
		},
		{
			name: "referential integrity accepts records without parent",
			args: args{
				items: []item{root(1), child(2, 1)},
				cfg:   func(c *Config[item, int, item]) { c.ValidateReferences = true },
			},
			wantShape: "[1[2]]",
			wantKeys:  []int{1, 2},
		},
		{
			name: "root parent allow-list",
			args: args{
				items: []item{child(1, 0), child(2, 1), child(3, 7)},
				cfg:   func(c *Config[item, int, item]) { c.RootParents = []int{0} },
			},
			wantErr: ErrReferentialIntegrity,
		},
		{
			name: "root parent allow-list accepts listed keys",
			args: args{
				items: []item{child(1, 0), child(2, 1), child(3, 7)},
				cfg:   func(c *Config[item, int, item]) { c.RootParents = []int{0, 7} },
			},
			wantShape: "[1[2] 3]",
			wantKeys:  []int{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parentConfig()
			if tt.args.cfg != nil {
				tt.args.cfg(cfg)
			}

			gotF, err := Build(context.Background(), tt.args.items, cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				if !errors.Is(err, ErrBuildForest) {
					t.Errorf("Build() error = %v, want wrapped in %v", err, ErrBuildForest)
				}
				if gotF != nil {
					t.Errorf("Build() = %v, want nil on error", gotF)
				}
				return
			}

			if got := shape(gotF.Roots()); got != tt.wantShape {
				t.Errorf("Build() shape = %v, want %v", got, tt.wantShape)
			}
			if got := gotF.Keys(); !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("Forest.Keys() = %v, want %v", got, tt.wantKeys)
			}
			if gotF.Len() != len(tt.args.items) {
				t.Errorf("Forest.Len() = %d, want %d", gotF.Len(), len(tt.args.items))
			}
		})
	}
}

func TestBuild_ParentLinks(t *testing.T) {
	items := []item{child(2, 1), root(1), child(3, 2)}

	f, err := Build(context.Background(), items, parentConfig())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, link := range [][2]int{{2, 1}, {3, 2}} {
		node, _ := f.Node(link[0])
		parent, _ := f.Node(link[1])
		if node.Parent() != parent {
			t.Errorf("Node(%d).Parent() = %v, want %d", link[0], node.Parent(), link[1])
		}
	}

	if r, _ := f.Node(1); r.Parent() != nil {
		t.Errorf("Node(1).Parent() = %v, want nil", r.Parent())
	}

	cfg := parentConfig()
	cfg.Layout.ParentKey = Omit
	if f, err = Build(context.Background(), items, cfg); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, node := range f.Nodes() {
		if node.Parent() != nil {
			t.Errorf("Node(%d).Parent() = %v, want nil with parent links omitted", node.Key(), node.Parent())
		}
	}
	if got := shape(f.Roots()); got != "[1[2[3]]]" {
		t.Errorf("Build() shape = %v, want [1[2[3]]]", got)
	}
}

func TestBuild_Values(t *testing.T) {
	items := []item{{ID: 1, Name: "root"}, {ID: 2, Parent: 1, HasParent: true, Name: "leaf"}}

	cfg := &Config[item, int, string]{
		Key:       func(i item) int { return i.ID },
		ParentKey: func(i item) (int, bool) { return i.Parent, i.HasParent },
		Value:     func(i item) string { return i.Name },
	}

	f, err := Build(context.Background(), items, cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := f.Roots()[0].Value(); got != "root" {
		t.Errorf("root Value() = %v, want root", got)
	}
	if got := f.Roots()[0].Children()[0].Value(); got != "leaf" {
		t.Errorf("child Value() = %v, want leaf", got)
	}

	// Identity needs the record to be assignable to the value type.
	cfg.Value = nil
	if _, err = Build(context.Background(), items, cfg); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Build() error = %v, want %v", err, ErrConfiguration)
	}

	anyCfg := &Config[item, int, any]{
		Key:       func(i item) int { return i.ID },
		ParentKey: func(i item) (int, bool) { return i.Parent, i.HasParent },
	}
	g, err := Build(context.Background(), items, anyCfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := g.Roots()[0].Value(); !reflect.DeepEqual(got, items[0]) {
		t.Errorf("root Value() = %v, want %v", got, items[0])
	}
}

func TestBuild_Configuration(t *testing.T) {
	key := func(i item) int { return i.ID }
	parent := func(i item) (int, bool) { return i.Parent, i.HasParent }
	children := func(i item) ([]int, error) { return nil, nil }

	tests := []struct {
		name string
		cfg  *Config[item, int, item]
	}{
		{"missing config", nil},
		{"missing key", &Config[item, int, item]{ParentKey: parent}},
		{"parent & children", &Config[item, int, item]{Key: key, ParentKey: parent, ChildKeys: children}},
		{"neither parent nor children", &Config[item, int, item]{Key: key}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), []item{root(1)}, tt.cfg)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Build() error = %v, wantErr %v", err, ErrConfiguration)
			}
		})
	}
}

func TestBuild_ChildMode(t *testing.T) {
	type args struct {
		items []childItem
		cfg   func(*Config[childItem, string, childItem])
	}

	tests := []struct {
		name      string
		args      args
		wantShape string
		wantErr   error
	}{
		{
			name: "basic tree",
			args: args{items: []childItem{
				{ID: "a", Children: []string{"b", "c"}}, {ID: "b"}, {ID: "c"},
			}},
			wantShape: "[a[b c]]",
		},
		{
			name: "declared order kept across forward & backward references",
			args: args{items: []childItem{
				{ID: "b"}, {ID: "a", Children: []string{"c", "b"}}, {ID: "c"},
			}},
			wantShape: "[a[c b]]",
		},
		{
			name: "roots in input order",
			args: args{items: []childItem{
				{ID: "x"}, {ID: "a", Children: []string{"b"}}, {ID: "b"}, {ID: "y"},
			}},
			wantShape: "[x a[b] y]",
		},
		{
			name: "repeated child key",
			args: args{items: []childItem{
				{ID: "a", Children: []string{"b", "b"}}, {ID: "b"},
			}},
			wantShape: "[a[b]]",
		},
		{
			name: "unresolved children pruned",
			args: args{items: []childItem{
				{ID: "a", Children: []string{"b", "zz", "c"}}, {ID: "b"}, {ID: "c"},
			}},
			wantShape: "[a[b c]]",
		},
		{
			name:      "children dropped when all unresolved",
			args:      args{items: []childItem{{ID: "a", Children: []string{"zz"}}}},
			wantShape: "[a]",
		},
		{
			name: "existing child with a different parent",
			args: args{items: []childItem{
				{ID: "c"}, {ID: "a", Children: []string{"c"}}, {ID: "b", Children: []string{"c"}},
			}},
			wantErr: ErrConflict,
		},
		{
			name: "unresolved child claimed twice",
			args: args{items: []childItem{
				{ID: "a", Children: []string{"c"}}, {ID: "b", Children: []string{"c"}},
			}},
			wantErr: ErrConflict,
		},
		{
			name: "unresolved child claimed twice without parent links",
			args: args{
				items: []childItem{
					{ID: "a", Children: []string{"c"}}, {ID: "b", Children: []string{"c"}}, {ID: "c"},
				},
				cfg: func(c *Config[childItem, string, childItem]) { c.Layout.ParentKey = Omit },
			},
			wantErr: ErrConflict,
		},
		{
			name: "late parent conflict",
			args: args{items: []childItem{
				{ID: "a", Children: []string{"c"}}, {ID: "c"}, {ID: "b", Children: []string{"c"}},
			}},
			wantErr: ErrConflict,
		},
		{
			name: "multiple parents without parent links",
			args: args{
				items: []childItem{
					{ID: "c"}, {ID: "a", Children: []string{"c"}}, {ID: "b", Children: []string{"c"}},
				},
				cfg: func(c *Config[childItem, string, childItem]) { c.Layout.ParentKey = Omit },
			},
			wantShape: "[a[c] b[c]]",
		},
		{
			name: "referential integrity",
			args: args{
				items: []childItem{{ID: "a", Children: []string{"zz"}}},
				cfg:   func(c *Config[childItem, string, childItem]) { c.ValidateReferences = true },
			},
			wantErr: ErrReferentialIntegrity,
		},
		{
			name:    "duplicate identifier",
			args:    args{items: []childItem{{ID: "a", Children: []string{"b"}}, {ID: "a"}, {ID: "b"}}},
			wantErr: ErrDuplicateIdentifier,
		},
		{
			name: "child accessor failure",
			args: args{
				items: []childItem{{ID: "a"}},
				cfg: func(c *Config[childItem, string, childItem]) {
					c.ChildKeys = func(childItem) ([]string, error) { return nil, errors.New("not a list") }
				},
			},
			wantErr: ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := childConfig()
			if tt.args.cfg != nil {
				tt.args.cfg(cfg)
			}

			gotF, err := Build(context.Background(), tt.args.items, cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}

			if got := shape(gotF.Roots()); got != tt.wantShape {
				t.Errorf("Build() shape = %v, want %v", got, tt.wantShape)
			}
			if gotF.Len() != len(tt.args.items) {
				t.Errorf("Forest.Len() = %d, want %d", gotF.Len(), len(tt.args.items))
			}
		})
	}
}

func TestBuild_ChildModeParents(t *testing.T) {
	items := []childItem{{ID: "b"}, {ID: "a", Children: []string{"c", "b"}}, {ID: "c"}}

	f, err := Build(context.Background(), items, childConfig())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	a, _ := f.Node("a")
	for _, key := range []string{"b", "c"} {
		if node, _ := f.Node(key); node.Parent() != a {
			t.Errorf("Node(%s).Parent() = %v, want a", key, node.Parent())
		}
	}
}

func TestBuild_Panicked(t *testing.T) {
	cfg := parentConfig()
	cfg.Key = func(i item) int { panic("broken accessor") }

	f, err := Build(context.Background(), []item{root(1)}, cfg, WithDebug(true))
	if !errors.Is(err, ErrPanicked) {
		t.Errorf("Build() error = %v, wantErr %v", err, ErrPanicked)
	}
	if f != nil {
		t.Errorf("Build() = %v, want nil", f)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Build(ctx, []item{root(1)}, parentConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, wantErr %v", err, context.Canceled)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	items := []item{child(3, 2), root(1), child(2, 1), child(4, 1), child(5, 8)}

	builder := NewBuilder(parentConfig())
	first, err := builder.Build(context.Background(), items)
	if err != nil {
		t.Fatalf("Builder.Build() error = %v", err)
	}
	second, err := builder.Build(context.Background(), items)
	if err != nil {
		t.Fatalf("Builder.Build() error = %v", err)
	}

	if first == second {
		t.Fatalf("Builder.Build() returned the same Forest twice")
	}
	if shape(first.Roots()) != shape(second.Roots()) {
		t.Errorf("Builder.Build() shapes differ: %v, %v", shape(first.Roots()), shape(second.Roots()))
	}

	firstJSON, err := first.MarshalJSON()
	if err != nil {
		t.Fatalf("Forest.MarshalJSON() error = %v", err)
	}
	secondJSON, err := second.MarshalJSON()
	if err != nil {
		t.Fatalf("Forest.MarshalJSON() error = %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("Forest.MarshalJSON() differ: %s, %s", firstJSON, secondJSON)
	}
}
