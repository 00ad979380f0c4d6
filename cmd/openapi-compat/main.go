// Command openapi-compat fails when a revision of the API document would
// break clients written against a baseline.
package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Ding-Dongen/filesharingapp1--2/docs"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var httpMethods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

type parameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required"`
}

func (p parameter) key() string { return p.In + "." + p.Name }

type operation struct {
	Parameters []parameter           `yaml:"parameters"`
	Responses  map[string]*yaml.Node `yaml:"responses"`
}

// apiDoc keeps only what compatibility depends on: operations per path.
type apiDoc struct {
	Paths map[string]map[string]operation
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var basePath, revisionPath string
	cmd := &cobra.Command{
		Use:           "openapi-compat --base swagger.yaml [--revision swagger.json]",
		Short:         "Check an API document for breaking changes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := loadDoc(basePath)
			if err != nil {
				return fmt.Errorf("base: %w", err)
			}
			var revision apiDoc
			if revisionPath == "" {
				revision, err = parseDoc([]byte(docs.SwaggerInfo.ReadDoc()))
			} else {
				revision, err = loadDoc(revisionPath)
			}
			if err != nil {
				return fmt.Errorf("revision: %w", err)
			}

			if problems := breakingChanges(base, revision); len(problems) > 0 {
				return fmt.Errorf("%d breaking change(s):\n  %s", len(problems), strings.Join(problems, "\n  "))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no breaking changes")
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base", "", "baseline document (YAML or JSON)")
	cmd.Flags().StringVar(&revisionPath, "revision", "", "revised document; defaults to the compiled-in docs")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func loadDoc(path string) (apiDoc, error) {
	// #nosec G304: operator-supplied path
	raw, err := os.ReadFile(path)
	if err != nil {
		return apiDoc{}, err
	}
	return parseDoc(raw)
}

// parseDoc reads a Swagger or OpenAPI document. JSON parses as YAML.
func parseDoc(raw []byte) (apiDoc, error) {
	var top struct {
		Paths yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &top); err != nil {
		return apiDoc{}, err
	}
	if top.Paths.Kind == 0 {
		return apiDoc{}, errors.New("document has no paths")
	}

	// Path items mix operations with shared keys such as "parameters",
	// so operations are decoded one method at a time.
	var items map[string]map[string]yaml.Node
	if err := top.Paths.Decode(&items); err != nil {
		return apiDoc{}, fmt.Errorf("paths: %w", err)
	}

	doc := apiDoc{Paths: make(map[string]map[string]operation, len(items))}
	for path, item := range items {
		ops := make(map[string]operation)
		for _, method := range httpMethods {
			node, ok := item[method]
			if !ok {
				continue
			}
			var op operation
			if err := node.Decode(&op); err != nil {
				return apiDoc{}, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			ops[method] = op
		}
		if len(ops) > 0 {
			doc.Paths[path] = ops
		}
	}
	return doc, nil
}

// breakingChanges lists what a client of base would trip over in revision:
// removed paths, operations and response codes, and newly required
// non-path parameters.
func breakingChanges(base, revision apiDoc) []string {
	var out []string
	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			out = append(out, "removed path "+path)
			continue
		}
		for method, baseOp := range baseOps {
			name := strings.ToUpper(method) + " " + path
			revOp, ok := revOps[method]
			if !ok {
				out = append(out, "removed operation "+name)
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					out = append(out, fmt.Sprintf("removed response %s from %s", code, name))
				}
			}

			known := make(map[string]bool, len(baseOp.Parameters))
			for _, p := range baseOp.Parameters {
				known[p.key()] = true
			}
			for _, p := range revOp.Parameters {
				if p.Required && p.In != "path" && !known[p.key()] {
					out = append(out, fmt.Sprintf("new required parameter %s on %s", p.key(), name))
				}
			}
		}
	}
	sort.Strings(out)
	return out
}
