// Command modelview-lint statically checks HTML template files without
// needing the application's model descriptors. It synthesises a permissive
// descriptor from the placeholders each template actually uses, so every
// structural finding (placeholder in a script, event-handler attribute,
// unterminated placeholder) is a real defect.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/template"
	"github.com/goliatone/go-modelview/pkg/urlpolicy"
)

type finding struct {
	file    string
	message string
}

func main() {
	var listPlaceholders bool
	flag.BoolVar(&listPlaceholders, "placeholders", false, "print each template's placeholder inventory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] template.html...\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(flag.CommandLine.Output(), "\nLint model-view HTML templates for unsafe placeholder contexts.\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var findings []finding
	for _, path := range paths {
		linted, err := lintFile(path, listPlaceholders)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", path, err)
			os.Exit(1)
		}
		findings = append(findings, linted...)
	}

	if len(findings) > 0 {
		sort.Slice(findings, func(i, j int) bool {
			if findings[i].file == findings[j].file {
				return findings[i].message < findings[j].message
			}
			return findings[i].file < findings[j].file
		})
		for _, f := range findings {
			fmt.Fprintf(os.Stderr, "%s: %s\n", f.file, f.message)
		}
		os.Exit(1)
	}
}

func lintFile(path string, listPlaceholders bool) ([]finding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmpl, err := template.Parse(name, string(raw))
	if err != nil {
		return []finding{{file: path, message: err.Error()}}, nil
	}

	placeholders, formIDs := inventory(tmpl)
	if listPlaceholders {
		for _, p := range placeholders {
			fmt.Printf("%s: ${%s}\n", path, p)
		}
	}

	desc, err := syntheticDescriptor(name, placeholders, formIDs)
	if err != nil {
		return nil, err
	}

	var findings []finding
	if err := template.Validate(tmpl, desc, urlpolicy.New()); err != nil {
		verr, ok := err.(*template.ValidationError)
		if !ok {
			return nil, err
		}
		for _, issue := range verr.Issues {
			findings = append(findings, finding{file: path, message: issue})
		}
	}
	return findings, nil
}

// inventory walks the parsed tree collecting placeholder names and form
// ids, in first-use order without duplicates.
func inventory(tmpl *template.Template) (placeholders, formIDs []string) {
	seen := make(map[string]bool)
	forms := make(map[string]bool)

	var visit func(n *template.Node)
	collect := func(segments []template.Segment) {
		for _, seg := range segments {
			if seg.Placeholder && !seen[seg.Text] {
				seen[seg.Text] = true
				placeholders = append(placeholders, seg.Text)
			}
		}
	}
	visit = func(n *template.Node) {
		collect(n.Segments)
		for _, attr := range n.Attrs {
			collect(attr.Segments)
		}
		if n.Type == template.ElementNode && n.Tag == "form" {
			if id, ok := n.Attr("id"); ok && id != "" && !forms[id] {
				forms[id] = true
				formIDs = append(formIDs, id)
			}
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, root := range tmpl.Roots {
		visit(root)
	}
	return placeholders, formIDs
}

// lintModel satisfies model.Model for the synthetic descriptor; the lint
// never instantiates field values.
type lintModel struct{}

var lintDescriptor *model.Descriptor

func (lintModel) Descriptor() *model.Descriptor { return lintDescriptor }

// syntheticDescriptor declares every placeholder as a plain bindable text
// field and every form id as a nested-model field, so only context
// violations surface from validation.
func syntheticDescriptor(name string, placeholders, formIDs []string) (*model.Descriptor, error) {
	b := model.Describe[lintModel](name)
	declared := make(map[string]bool)
	for _, p := range placeholders {
		declared[p] = true
		b.String(p, func(lintModel) string { return "" }, func(lintModel, string) {})
	}
	for _, id := range formIDs {
		if declared[id] {
			// Leave the clash to the validator's form-id check.
			continue
		}
		b.ModelField(id, func(lintModel) model.Model { return nil })
	}
	return b.Build()
}
