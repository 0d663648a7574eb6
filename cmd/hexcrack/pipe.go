package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RowanDark/hexcrack/internal/cipher"
	"github.com/RowanDark/hexcrack/internal/logging"
)

func (c *cli) runPipe(args []string) int {
	fs := flag.NewFlagSet("pipe", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	ops := fs.String("ops", "", "comma separated steps, e.g. hex_decode,single_byte_xor:key=88")
	recipeName := fs.String("recipe", "", "run a saved recipe instead of --ops")
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*ops == "") == (*recipeName == "") {
		fmt.Fprintln(c.stderr, "pipe requires exactly one of --ops or --recipe")
		return 2
	}

	var pipeline *cipher.Pipeline
	if *ops != "" {
		steps, err := parseOps(*ops)
		if err != nil {
			fmt.Fprintf(c.stderr, "invalid --ops: %v\n", err)
			return 2
		}
		pipeline = &cipher.Pipeline{Operations: steps, Reversible: true}
	} else {
		rm, err := c.recipes()
		if err != nil {
			fmt.Fprintf(c.stderr, "load recipes: %v\n", err)
			return 1
		}
		recipe, ok := rm.GetRecipe(*recipeName)
		if !ok {
			fmt.Fprintf(c.stderr, "%v: %s\n", cipher.ErrRecipeNotFound, *recipeName)
			return 1
		}
		p := recipe.Pipeline
		pipeline = &p
	}
	if *reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(c.stderr, "reverse pipeline: %v\n", err)
			return 1
		}
		pipeline = reversed
	}

	input, err := io.ReadAll(c.stdin)
	if err != nil {
		fmt.Fprintf(c.stderr, "read stdin: %v\n", err)
		return 1
	}
	out, err := pipeline.Execute(context.Background(), input)
	if err != nil {
		_ = c.logger.Error(logging.EventPipelineRun, "pipe", err, map[string]any{"steps": len(pipeline.Operations)})
		fmt.Fprintf(c.stderr, "pipe failed: %v\n", err)
		return 1
	}
	_ = c.logger.Emit(logging.Event{
		EventType: logging.EventPipelineRun,
		Operation: "pipe",
		Metadata:  map[string]any{"steps": len(pipeline.Operations), "bytes": len(out)},
	})
	if _, err := c.stdout.Write(out); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runRecipe(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "recipe subcommand required: save, list or delete")
		return 2
	}
	switch args[0] {
	case "save":
		return c.runRecipeSave(args[1:])
	case "list":
		return c.runRecipeList(args[1:])
	case "delete":
		return c.runRecipeDelete(args[1:])
	default:
		fmt.Fprintf(c.stderr, "unknown recipe subcommand: %s\n", args[0])
		return 2
	}
}

func (c *cli) runRecipeSave(args []string) int {
	fs := flag.NewFlagSet("recipe save", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	ops := fs.String("ops", "", "comma separated steps")
	description := fs.String("description", "", "what the recipe does")
	tags := fs.String("tags", "", "comma separated tags")
	reversible := fs.Bool("reversible", true, "allow pipe --reverse on this recipe")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *ops == "" {
		fmt.Fprintln(c.stderr, "usage: hexcrack recipe save --ops STEPS [--description D] [--tags T] NAME")
		return 2
	}
	steps, err := parseOps(*ops)
	if err != nil {
		fmt.Fprintf(c.stderr, "invalid --ops: %v\n", err)
		return 2
	}

	rm, err := c.recipes()
	if err != nil {
		fmt.Fprintf(c.stderr, "load recipes: %v\n", err)
		return 1
	}
	recipe := &cipher.Recipe{
		Name:        fs.Arg(0),
		Description: *description,
		Tags:        splitList(*tags),
		Pipeline:    cipher.Pipeline{Operations: steps, Reversible: *reversible},
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		fmt.Fprintf(c.stderr, "save recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "saved recipe %s\n", recipe.Name)
	return 0
}

func (c *cli) runRecipeList(args []string) int {
	fs := flag.NewFlagSet("recipe list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	query := fs.String("search", "", "only list recipes matching this text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rm, err := c.recipes()
	if err != nil {
		fmt.Fprintf(c.stderr, "load recipes: %v\n", err)
		return 1
	}
	recipes := rm.ListRecipes()
	if *query != "" {
		recipes = rm.SearchRecipes(*query)
	}
	for _, r := range recipes {
		names := make([]string, 0, len(r.Pipeline.Operations))
		for _, op := range r.Pipeline.Operations {
			names = append(names, op.Name)
		}
		fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", r.Name, strings.Join(names, ","), r.Description)
	}
	return 0
}

func (c *cli) runRecipeDelete(args []string) int {
	fs := flag.NewFlagSet("recipe delete", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "usage: hexcrack recipe delete NAME")
		return 2
	}
	rm, err := c.recipes()
	if err != nil {
		fmt.Fprintf(c.stderr, "load recipes: %v\n", err)
		return 1
	}
	if err := rm.DeleteRecipe(fs.Arg(0)); err != nil {
		fmt.Fprintf(c.stderr, "delete recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "deleted recipe %s\n", fs.Arg(0))
	return 0
}

// recipes opens the recipe store, defaulting to ~/.hexcrack/recipes.
func (c *cli) recipes() (*cipher.RecipeManager, error) {
	dir := c.cfg.Recipes.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".hexcrack", "recipes")
	}
	rm := cipher.NewRecipeManager(dir)
	if err := rm.LoadRecipes(); err != nil {
		return nil, err
	}
	return rm, nil
}

// parseOps reads "name[:param=value...]" steps separated by commas.
func parseOps(list string) ([]cipher.OperationConfig, error) {
	var steps []cipher.OperationConfig
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		step := cipher.OperationConfig{Name: parts[0]}
		if _, ok := cipher.GetOperation(step.Name); !ok {
			return nil, fmt.Errorf("unknown operation %q", step.Name)
		}
		for _, param := range parts[1:] {
			key, value, ok := strings.Cut(param, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("parameter %q of %s must be key=value", param, step.Name)
			}
			if step.Parameters == nil {
				step.Parameters = make(map[string]interface{})
			}
			step.Parameters[key] = value
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no operations given")
	}
	return steps, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
