/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package threads

import "os"
import "fmt"
import "sort"
import "strings"
import "path/filepath"
import "github.com/launix-de/blockvm/blocks"

/* Fn of a Declaration is one of:

	func(...any) any                pure, the result goes to the caller
	func(Receiver, ...any) any      needs the receiver of the running script
	func(*Process, ...any) any      needs the process, the result goes to the caller
	func(*Process, ...any)          control: arranges the context stack itself
	specialForm                     evaluated inline, inputs are evaluated lazily

Returns "nil" marks a command: its result is discarded.
*/
type Declaration struct {
	Name         string
	Desc         string
	MinParameter int
	MaxParameter int
	Params       []DeclarationParameter
	Returns      string // any | text | number | bool | list | ring | nil
	Fn           any
}

type DeclarationParameter struct {
	Name string
	Type string // any | text | number | bool | list | ring | script | upvar | names | unevaluated
	Desc string
}

type specialForm int

const (
	formNone specialForm = iota
	formIfElse
	formAnd
	formOr
	formReport
)

type handlerKind int

const (
	pureHandler handlerKind = iota
	receiverHandler
	valueHandler
	controlHandler
	formHandler
)

type operation struct {
	def     *Declaration
	kind    handlerKind
	command bool
	form    specialForm
	pure    func(...any) any
	rcvr    func(Receiver, ...any) any
	value   func(*Process, ...any) any
	control func(*Process, ...any)
}

// paramType returns the declared type of input i; variadic inputs repeat the last parameter.
func (o *operation) paramType(i int) string {
	params := o.def.Params
	if len(params) == 0 {
		return "any"
	}
	if i >= len(params) {
		i = len(params) - 1
	}
	return params[i].Type
}

var declaration_titles []string
var declarations map[string]*Declaration = make(map[string]*Declaration)
var dispatch map[string]*operation = make(map[string]*operation)

func DeclareTitle(title string) {
	declaration_titles = append(declaration_titles, "#"+title)
}

// Declare registers a primitive. Redeclaring a name replaces it.
func Declare(def *Declaration) {
	op := &operation{def: def, command: def.Returns == "nil"}
	switch fn := def.Fn.(type) {
	case func(...any) any:
		op.kind, op.pure = pureHandler, fn
	case func(Receiver, ...any) any:
		op.kind, op.rcvr = receiverHandler, fn
	case func(*Process, ...any) any:
		op.kind, op.value = valueHandler, fn
	case func(*Process, ...any):
		op.kind, op.control = controlHandler, fn
	case specialForm:
		op.kind, op.form = formHandler, fn
	default:
		panic(fmt.Sprintf("declaration %s: unsupported handler type %T", def.Name, def.Fn))
	}
	if _, exists := declarations[def.Name]; !exists {
		declaration_titles = append(declaration_titles, def.Name)
	}
	declarations[def.Name] = def
	dispatch[def.Name] = op
}

func DeclarationFor(selector string) *Declaration {
	return declarations[selector]
}

// Selectors lists all primitive names in alphabetical order.
func Selectors() []string {
	result := make([]string, 0, len(declarations))
	for name := range declarations {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// slugify makes a filesystem-safe, lowercase slug from a chapter title.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chapter"
	}
	return b.String()
}

// WriteDocumentation generates Markdown docs: index.md plus one file per chapter.
func WriteDocumentation(folder string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", folder, err)
	}

	type Chapter struct {
		Title string
		Slug  string
		Defs  []*Declaration
	}
	var chapters []*Chapter
	current := &Chapter{Title: "General", Slug: "general"}
	chapters = append(chapters, current)
	for _, t := range declaration_titles {
		if t[0] == '#' {
			current = &Chapter{Title: t[1:], Slug: slugify(t[1:])}
			chapters = append(chapters, current)
			continue
		}
		if def, ok := declarations[t]; ok {
			current.Defs = append(current.Defs, def)
		}
	}

	indexPath := filepath.Join(folder, "index.md")
	index, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", indexPath, err)
	}
	defer index.Close()
	fmt.Fprint(index, "# Blocks\n\n")
	for _, ch := range chapters {
		if len(ch.Defs) == 0 {
			continue
		}
		fmt.Fprintf(index, "- [%s](%s.md)\n", ch.Title, ch.Slug)

		fp := filepath.Join(folder, ch.Slug+".md")
		f, err := os.Create(fp)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", fp, err)
		}
		fmt.Fprintf(f, "# %s\n\n", ch.Title)
		for _, def := range ch.Defs {
			fmt.Fprintf(f, "## %s\n\n", def.Name)
			if def.Desc != "" {
				fmt.Fprintf(f, "%s\n\n", def.Desc)
			}
			fmt.Fprintf(f, "**Allowed number of inputs:** %d–%d\n\n", def.MinParameter, def.MaxParameter)
			if len(def.Params) == 0 {
				fmt.Fprint(f, "_This block has no inputs._\n\n")
			} else {
				for _, p := range def.Params {
					fmt.Fprintf(f, "- **%s** (`%s`): %s\n", p.Name, p.Type, p.Desc)
				}
				fmt.Fprintln(f)
			}
			if def.Returns == "nil" {
				fmt.Fprint(f, "### Command\n\n")
			} else {
				fmt.Fprintf(f, "### Reports\n\n`%s`\n\n", def.Returns)
			}
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Help prints the block index or the description of one block.
func Help(selector string) {
	if selector == "" {
		fmt.Println("Available blocks:")
		for _, title := range declaration_titles {
			if title[0] == '#' {
				fmt.Println("")
				fmt.Println("-- " + title[1:] + " --")
			} else {
				fmt.Println("  " + title + ": " + strings.Split(declarations[title].Desc, "\n")[0])
			}
		}
		fmt.Println("")
		fmt.Println("get further information by typing :help selector")
		return
	}
	def := declarations[selector]
	if def == nil {
		panic("block not found: " + selector)
	}
	fmt.Println("Help for: " + def.Name)
	fmt.Println("===")
	fmt.Println("")
	fmt.Println(def.Desc)
	fmt.Println("")
	fmt.Println("Allowed nø of inputs: ", def.MinParameter, "-", def.MaxParameter)
	fmt.Println("")
	for _, p := range def.Params {
		fmt.Println(" - " + p.Name + " (" + p.Type + "): " + p.Desc)
	}
	fmt.Println("")
}

// Validate checks input counts of all primitive blocks below n. Blocks with
// unknown selectors must be defined by resolve, which may be nil.
func Validate(n blocks.Node, resolve func(selector string) *blocks.Definition) error {
	var err error
	blocks.Walk(n, func(node blocks.Node) bool {
		b, ok := node.(*blocks.Block)
		if !ok {
			return true
		}
		if resolve != nil {
			if d := resolve(b.Selector); d != nil {
				if len(b.Inputs) > len(d.Params) {
					err = fmt.Errorf("%s: block %s expects at most %d inputs", b.Source, b.Selector, len(d.Params))
					return false
				}
				return true
			}
		}
		def, ok := declarations[b.Selector]
		if !ok {
			err = fmt.Errorf("%s: unknown block %s", b.Source, b.Selector)
			return false
		}
		if len(b.Inputs) < def.MinParameter {
			err = fmt.Errorf("%s: block %s expects at least %d inputs", b.Source, def.Name, def.MinParameter)
			return false
		}
		if len(b.Inputs) > def.MaxParameter {
			err = fmt.Errorf("%s: block %s expects at most %d inputs", b.Source, def.Name, def.MaxParameter)
			return false
		}
		return true
	})
	return err
}
