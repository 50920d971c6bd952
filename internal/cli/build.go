// SPDX-License-Identifier: MIT
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gitlab.com/fisherprime/treebuild"
	"gitlab.com/fisherprime/treebuild/internal/batch"
	"gitlab.com/fisherprime/treebuild/record"
	"gitlab.com/fisherprime/treebuild/render"
)

// Output formats.
const (
	outputJSON = "json" // forest as a JSON array of root trees
	outputText = "text" // terminal tree drawing
	outputTree = "tree" // bracket serialization
	outputDOT  = "dot"  // Graphviz DOT
	outputSVG  = "svg"  // Graphviz SVG
)

// stdinName selects standard input as the record source.
const stdinName = "-"

var validOutputs = map[string]bool{outputJSON: true, outputText: true, outputTree: true, outputDOT: true, outputSVG: true}

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	config string // TOML file supplying flags left unset

	format   string // record format, guessed from the file extension when empty
	id       string // identifier field
	parent   string // parent reference field
	children string // child references field

	valueKey    string
	parentKey   string
	childrenKey string
	depthKey    string

	validateTree bool
	validateRefs bool
	rootParents  []string

	output  string
	workers int
}

func (c *CLI) buildCommand() *cobra.Command {
	opts := buildOpts{
		id:          record.DefaultIDField,
		valueKey:    treebuild.DefaultValueKey,
		parentKey:   treebuild.DefaultParentKey,
		childrenKey: treebuild.DefaultChildrenKey,
		depthKey:    treebuild.Omit,
		output:      outputJSON,
	}

	cmd := &cobra.Command{
		Use:   "build [files...]",
		Short: "Build a forest from flat records",
		Long: `Build links the records of every file (standard input when none are given) into a forest.

Records reference either their parent (--parent, the default) or their ordered children
(--children). Output field names are set with the --*-key flags, "-" omits a field.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.config != "" {
				if err := applyConfigFile(cmd, opts.config, &opts); err != nil {
					return err
				}
			}
			if err := opts.validate(args); err != nil {
				return err
			}

			return c.runBuild(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.config, "config", "c", "", "TOML file with defaults for unset flags")
	flags.StringVarP(&opts.format, "format", "f", "", "record format: json, yaml, toml, tree (default: from extension, json for stdin)")
	flags.StringVar(&opts.id, "id", opts.id, "identifier field")
	flags.StringVar(&opts.parent, "parent", "", "parent reference field (default \"parent\" unless --children is set)")
	flags.StringVar(&opts.children, "children", "", "child references field")
	flags.StringVar(&opts.valueKey, "value-key", opts.valueKey, "output field holding the record, \"-\" merges it into the node")
	flags.StringVar(&opts.parentKey, "parent-key", opts.parentKey, "output field holding the parent identifier, \"-\" drops parent links")
	flags.StringVar(&opts.childrenKey, "children-key", opts.childrenKey, "output field holding the children")
	flags.StringVar(&opts.depthKey, "depth-key", opts.depthKey, "output field holding the node depth, \"-\" disables depths")
	flags.BoolVar(&opts.validateTree, "validate-tree", false, "reject cycles & nodes with multiple parents")
	flags.BoolVar(&opts.validateRefs, "validate-references", false, "reject references to missing records")
	flags.StringArrayVar(&opts.rootParents, "root-parent", nil, "parent identifier accepted for roots (repeatable)")
	flags.StringVarP(&opts.output, "output", "o", opts.output, "output format: json, text, tree, dot, svg")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "files built concurrently (default: CPU count)")

	return cmd
}

// validate checks option values & input names before any input is read.
func (o *buildOpts) validate(files []string) error {
	if !validOutputs[o.output] {
		return fmt.Errorf("invalid output: %s (must be 'json', 'text', 'tree', 'dot' or 'svg')", o.output)
	}
	if o.format != "" {
		if _, err := record.ParseFormat(o.format); err != nil {
			return err
		}
	}
	if o.workers < 0 {
		return fmt.Errorf("invalid workers: %d", o.workers)
	}

	// Standard input is consumed by its first reader.
	stdin := 0
	for _, name := range files {
		if name == stdinName {
			stdin++
		}
	}
	if stdin > 1 {
		return fmt.Errorf("invalid inputs: standard input (%s) given %d times", stdinName, stdin)
	}

	return nil
}

// sourceFormat resolves the record format of an input.
func (o *buildOpts) sourceFormat(name string) (record.Format, error) {
	switch {
	case o.format != "":
		return record.ParseFormat(o.format)
	case name == stdinName:
		return record.JSON, nil
	default:
		return record.FormatFromPath(name)
	}
}

// treeConfig translates the options to a [treebuild.Config] over map records.
func (o *buildOpts) treeConfig() *treebuild.Config[record.Record, any, record.Record] {
	fields := record.Fields{ID: o.id, Parent: o.parent, Children: o.children}
	if fields.Parent == "" && fields.Children == "" {
		fields.Parent = record.DefaultParentField
	}

	cfg := record.NewConfig(fields)
	cfg.Layout = treebuild.Layout{
		ValueKey:    o.valueKey,
		ParentKey:   o.parentKey,
		ChildrenKey: o.childrenKey,
		DepthKey:    o.depthKey,
	}
	cfg.ValidateTree = o.validateTree
	cfg.ValidateReferences = o.validateRefs
	for _, key := range o.rootParents {
		cfg.RootParents = append(cfg.RootParents, record.ParseKey(key))
	}

	return cfg
}

// runBuild builds every input on the worker pool & writes the outputs in argument order.
func (c *CLI) runBuild(ctx context.Context, stdin io.Reader, out io.Writer, files []string, opts *buildOpts) error {
	if len(files) < 1 {
		files = []string{stdinName}
	}

	job := func(ctx context.Context, name string) ([]byte, error) {
		return c.buildFile(ctx, stdin, name, opts)
	}

	results, err := batch.Run(ctx, files, job, batch.WithWorkers(opts.workers), batch.WithLogger(c.Logger))
	if err != nil {
		return err
	}

	for index, result := range results {
		if result.Err != nil {
			c.Logger.WithField("file", files[index]).Error(result.Err)
			continue
		}

		if _, err = out.Write(result.Value); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	return batch.Errors(results)
}

// buildFile reads, builds & renders a single input.
func (c *CLI) buildFile(ctx context.Context, stdin io.Reader, name string, opts *buildOpts) (output []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
		}
	}()

	p := newProgress(c.Logger.WithField("file", name))

	format, err := opts.sourceFormat(name)
	if err != nil {
		return
	}

	src := stdin
	if name != stdinName {
		var file *os.File
		if file, err = os.Open(name); err != nil {
			return
		}
		defer file.Close()

		src = bufio.NewReader(file)
	}

	records, err := record.Decode(ctx, src, format)
	if err != nil {
		return
	}

	forest, err := treebuild.Build(ctx, records, opts.treeConfig(),
		treebuild.WithLogger(c.Logger), treebuild.WithDebug(c.Logger.IsLevelEnabled(logrus.DebugLevel)))
	if err != nil {
		return
	}

	if output, err = renderForest(ctx, forest, opts.output); err != nil {
		return
	}
	p.done(fmt.Sprintf("built %d node(s) into %d tree(s)", forest.Len(), len(forest.Roots())))

	return
}

// renderForest encodes a forest in an output format.
func renderForest[K comparable, V any](ctx context.Context, forest *treebuild.Forest[K, V], output string) ([]byte, error) {
	switch output {
	case outputJSON:
		raw, err := json.MarshalIndent(forest, "", "  ")
		if err != nil {
			return nil, err
		}

		return append(raw, '\n'), nil
	case outputText:
		return []byte(render.Text(forest)), nil
	case outputTree:
		text, err := forest.Serialize(ctx, nil)
		if err != nil {
			return nil, err
		}

		return []byte(text + "\n"), nil
	case outputDOT:
		return []byte(render.DOT(forest)), nil
	case outputSVG:
		return render.SVG(ctx, render.DOT(forest))
	default:
		return nil, fmt.Errorf("invalid output: %s", output)
	}
}
