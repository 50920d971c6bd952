// SPDX-License-Identifier: MIT
package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// fileConfig mirrors the build flags in a TOML file:
//
//	format = "yaml"
//	children = "members"
//	output = "text"
//
//	[layout]
//	value_key = "-"
type fileConfig struct {
	Format   string `toml:"format"`
	ID       string `toml:"id"`
	Parent   string `toml:"parent"`
	Children string `toml:"children"`

	ValidateTree       bool     `toml:"validate_tree"`
	ValidateReferences bool     `toml:"validate_references"`
	RootParents        []string `toml:"root_parents"`

	Output  string `toml:"output"`
	Workers int    `toml:"workers"`

	Layout struct {
		ValueKey    string `toml:"value_key"`
		ParentKey   string `toml:"parent_key"`
		ChildrenKey string `toml:"children_key"`
		DepthKey    string `toml:"depth_key"`
	} `toml:"layout"`
}

// applyConfigFile populates the options whose flags were not set on the command line.
func applyConfigFile(cmd *cobra.Command, path string, opts *buildOpts) error {
	var fc fileConfig

	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}

	set := func(flag string, key []string, apply func()) {
		if !cmd.Flags().Changed(flag) && md.IsDefined(key...) {
			apply()
		}
	}

	set("format", []string{"format"}, func() { opts.format = fc.Format })
	set("id", []string{"id"}, func() { opts.id = fc.ID })
	set("parent", []string{"parent"}, func() { opts.parent = fc.Parent })
	set("children", []string{"children"}, func() { opts.children = fc.Children })
	set("validate-tree", []string{"validate_tree"}, func() { opts.validateTree = fc.ValidateTree })
	set("validate-references", []string{"validate_references"}, func() { opts.validateRefs = fc.ValidateReferences })
	set("root-parent", []string{"root_parents"}, func() { opts.rootParents = fc.RootParents })
	set("output", []string{"output"}, func() { opts.output = fc.Output })
	set("workers", []string{"workers"}, func() { opts.workers = fc.Workers })
	set("value-key", []string{"layout", "value_key"}, func() { opts.valueKey = fc.Layout.ValueKey })
	set("parent-key", []string{"layout", "parent_key"}, func() { opts.parentKey = fc.Layout.ParentKey })
	set("children-key", []string{"layout", "children_key"}, func() { opts.childrenKey = fc.Layout.ChildrenKey })
	set("depth-key", []string{"layout", "depth_key"}, func() { opts.depthKey = fc.Layout.DepthKey })

	return nil
}
