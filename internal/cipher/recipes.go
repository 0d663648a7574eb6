package cipher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrRecipeNotFound is returned when a named recipe does not exist.
var ErrRecipeNotFound = errors.New("recipe not found")

// BuiltinRecipes returns the recipes every manager starts with.
func BuiltinRecipes() []*Recipe {
	return []*Recipe{
		{
			Name:        "crack-hex",
			Description: "Decode hex ciphertext and recover single-byte XOR plaintext",
			Tags:        []string{"xor", "analysis"},
			Pipeline: Pipeline{Operations: []OperationConfig{
				{Name: "hex_decode"},
				{Name: "crack_single_byte_xor"},
			}},
		},
		{
			Name:        "hex2b64",
			Description: "Re-encode hex text as Base64",
			Tags:        []string{"encoding"},
			Pipeline: Pipeline{
				Operations: []OperationConfig{{Name: "hex_to_base64"}},
				Reversible: true,
			},
		},
	}
}

// RecipeManager keeps recipes in memory and, when storePath is set, as one
// JSON file per recipe on disk.
type RecipeManager struct {
	recipes   map[string]*Recipe
	storePath string
	mu        sync.RWMutex
}

// NewRecipeManager creates a manager seeded with BuiltinRecipes.
func NewRecipeManager(storePath string) *RecipeManager {
	rm := &RecipeManager{
		recipes:   make(map[string]*Recipe),
		storePath: storePath,
	}
	for _, r := range BuiltinRecipes() {
		rm.recipes[r.Name] = r
	}
	return rm
}

// SaveRecipe validates and stores a recipe, stamping its timestamps.
func (rm *RecipeManager) SaveRecipe(recipe *Recipe) error {
	if recipe == nil || strings.TrimSpace(recipe.Name) == "" {
		return fmt.Errorf("recipe name cannot be empty")
	}
	if len(recipe.Pipeline.Operations) == 0 {
		return fmt.Errorf("recipe %s has no operations", recipe.Name)
	}
	for i, step := range recipe.Pipeline.Operations {
		if _, ok := GetOperation(step.Name); !ok {
			return fmt.Errorf("recipe %s step %d: unknown operation %s", recipe.Name, i, step.Name)
		}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if recipe.CreatedAt == "" {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now
	rm.recipes[recipe.Name] = recipe

	if rm.storePath != "" {
		return rm.persistRecipe(recipe)
	}
	return nil
}

// GetRecipe retrieves a recipe by name.
func (rm *RecipeManager) GetRecipe(name string) (*Recipe, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	recipe, exists := rm.recipes[name]
	return recipe, exists
}

// ListRecipes returns all recipes sorted by name.
func (rm *RecipeManager) ListRecipes() []*Recipe {
	rm.mu.RLock()
	recipes := make([]*Recipe, 0, len(rm.recipes))
	for _, recipe := range rm.recipes {
		recipes = append(recipes, recipe)
	}
	rm.mu.RUnlock()

	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Name < recipes[j].Name })
	return recipes
}

// DeleteRecipe removes a recipe from memory and disk.
func (rm *RecipeManager) DeleteRecipe(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.recipes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	delete(rm.recipes, name)

	if rm.storePath != "" {
		recipePath := filepath.Join(rm.storePath, sanitizeFilename(name)+".json")
		if err := os.Remove(recipePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete recipe file: %w", err)
		}
	}
	return nil
}

// LoadRecipes reads every *.json recipe under the store path. A missing
// directory is not an error.
func (rm *RecipeManager) LoadRecipes() error {
	if rm.storePath == "" {
		return nil
	}

	entries, err := os.ReadDir(rm.storePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read recipes directory: %w", err)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(rm.storePath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read recipe %s: %w", entry.Name(), err)
		}
		var recipe Recipe
		if err := json.Unmarshal(data, &recipe); err != nil {
			return fmt.Errorf("failed to parse recipe %s: %w", entry.Name(), err)
		}
		rm.recipes[recipe.Name] = &recipe
	}
	return nil
}

// Run executes the named recipe's pipeline on input.
func (rm *RecipeManager) Run(ctx context.Context, name string, input []byte) ([]byte, error) {
	recipe, ok := rm.GetRecipe(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	return recipe.Pipeline.Execute(ctx, input)
}

// SearchRecipes finds recipes whose name, description or tags contain
// query, ignoring case.
func (rm *RecipeManager) SearchRecipes(query string) []*Recipe {
	query = strings.ToLower(query)
	results := make([]*Recipe, 0)
	for _, recipe := range rm.ListRecipes() {
		if strings.Contains(strings.ToLower(recipe.Name), query) ||
			strings.Contains(strings.ToLower(recipe.Description), query) {
			results = append(results, recipe)
			continue
		}
		for _, tag := range recipe.Tags {
			if strings.Contains(strings.ToLower(tag), query) {
				results = append(results, recipe)
				break
			}
		}
	}
	return results
}

func (rm *RecipeManager) persistRecipe(recipe *Recipe) error {
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}
	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize recipe: %w", err)
	}
	recipePath := filepath.Join(rm.storePath, sanitizeFilename(recipe.Name)+".json")
	if err := os.WriteFile(recipePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

// sanitizeFilename keeps letters, digits, '-' and '_', maps spaces to '_'
// and drops everything else.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "recipe"
	}
	return b.String()
}
