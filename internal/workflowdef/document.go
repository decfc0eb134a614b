// Package workflowdef parses a Serverless Workflow DSL 1.0.0 document
// (YAML or JSON) and compiles it once into an internal/node.Tree of
// internal/tasks configs, caching the result by (name, version). This
// is the engine's only contact with the textual workflow definition;
// everything past compilation operates on the typed tree.
package workflowdef

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// DocumentMeta is the DSL's required `document` block.
type DocumentMeta struct {
	DSL       string `yaml:"dsl" validate:"required"`
	Namespace string `yaml:"namespace" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
	Version   string `yaml:"version" validate:"required"`
}

// rawDoc mirrors the DSL's top level loosely typed, for dispatch-by-key
// decoding of the polymorphic task tree (grounded on the SDK's own
// key-presence task dispatch in model/task.go's unmarshalTask, and the
// teacher's convertWorkflowNode type-switch in compiler/ir.go).
type rawDoc struct {
	Document DocumentMeta   `yaml:"document"`
	Input    map[string]any `yaml:"input"`
	Use      struct {
		Errors  map[string]map[string]any `yaml:"errors"`
		Retries map[string]map[string]any `yaml:"retries"`
	} `yaml:"use"`
	Do     []map[string]any `yaml:"do"`
	Output map[string]any   `yaml:"output"`
}

// Compiled is a fully compiled workflow definition ready for the
// executor: its node tree plus workflow-level input/output specs.
type Compiled struct {
	Name    string
	Version string
	Tree    *node.Tree
	Input   tasks.InputSpec
	Output  tasks.OutputSpec
}

// ParseAndCompile decodes a YAML or JSON document (both are valid YAML)
// and compiles it into a Compiled workflow.
func ParseAndCompile(doc []byte) (*Compiled, error) {
	var raw rawDoc
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("parse workflow document: %w", err)
	}
	if err := validateMeta(raw.Document); err != nil {
		return nil, err
	}

	catalogue, err := compileErrorCatalogue(raw.Use.Errors)
	if err != nil {
		return nil, err
	}
	retryCatalogue, err := compileRetryCatalogue(raw.Use.Retries)
	if err != nil {
		return nil, err
	}

	c := &compiler{errors: catalogue, retries: retryCatalogue}
	root, err := c.compileDo(raw.Do, nil, node.Root)
	if err != nil {
		return nil, err
	}
	if err := validateTree(root); err != nil {
		return nil, fmt.Errorf("validate workflow %s: %w", raw.Document.Name, err)
	}

	tree := node.NewTree(raw.Document.Name, raw.Document.Version, root)

	return &Compiled{
		Name:    raw.Document.Name,
		Version: raw.Document.Version,
		Tree:    tree,
		Input:   tasks.InputSpec{Schema: raw.Input["schema"], From: raw.Input["from"]},
		Output:  tasks.OutputSpec{Schema: raw.Output["schema"], As: raw.Output["as"]},
	}, nil
}

func compileErrorCatalogue(raw map[string]map[string]any) (map[string]werrors.Error, error) {
	out := make(map[string]werrors.Error, len(raw))
	for name, fields := range raw {
		out[name] = werrors.Error{
			Type:   werrors.Type(getString(fields, "type")),
			Status: getInt(fields, "status"),
			Title:  getString(fields, "title"),
			Detail: getString(fields, "detail"),
		}
	}
	return out, nil
}

func compileRetryCatalogue(raw map[string]map[string]any) (map[string]*werrors.RetryPolicy, error) {
	out := make(map[string]*werrors.RetryPolicy, len(raw))
	for name, fields := range raw {
		out[name] = compileRetryPolicy(fields)
	}
	return out, nil
}
