package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// Catalog holds the static product, promo and prompt data loaded at startup.
// It is read-only after Load, so no locking is needed.
type Catalog struct {
	categories   map[string][]models.Product
	promos       map[string]models.Promo
	systemPrompt string
	contextJSON  string
}

// Load reads catalog data from disk. Paths default to the working directory
// when empty (data.json, promoData.json, SystemPrompt.txt).
func Load(dataPath, promoPath, promptPath string) (*Catalog, error) {
	if dataPath == "" {
		dataPath = "data.json"
	}
	if promoPath == "" {
		promoPath = "promoData.json"
	}
	if promptPath == "" {
		promptPath = "SystemPrompt.txt"
	}

	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog data: %w", err)
	}

	categories := make(map[string][]models.Product)
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse catalog data: %w", err)
	}

	promos := make(map[string]models.Promo)
	if promoRaw, err := os.ReadFile(promoPath); err == nil {
		if err := json.Unmarshal(promoRaw, &promos); err != nil {
			return nil, fmt.Errorf("failed to parse promo data: %w", err)
		}
	} else {
		log.Printf("⚠️  No promo data found at %s - promos disabled", promoPath)
	}

	prompt := ""
	if promptRaw, err := os.ReadFile(promptPath); err == nil {
		prompt = strings.TrimSpace(string(promptRaw))
	} else {
		log.Printf("⚠️  No system prompt found at %s - advisor will use default", promptPath)
	}

	total := 0
	for _, products := range categories {
		total += len(products)
	}
	log.Printf("✅ Catalog loaded: %d categories, %d products, %d promos", len(categories), total, len(promos))

	return &Catalog{
		categories:   categories,
		promos:       promos,
		systemPrompt: prompt,
		contextJSON:  string(raw),
	}, nil
}

// New builds a catalog directly from data, used by tests and seeding
func New(categories map[string][]models.Product, promos map[string]models.Promo, prompt string) *Catalog {
	contextJSON, _ := json.Marshal(categories)
	if promos == nil {
		promos = make(map[string]models.Promo)
	}
	return &Catalog{
		categories:   categories,
		promos:       promos,
		systemPrompt: prompt,
		contextJSON:  string(contextJSON),
	}
}

// Products returns the product list for a category key. A missing category
// yields an empty slice, never an error.
func (c *Catalog) Products(category string) []models.Product {
	return c.categories[strings.ToLower(strings.TrimSpace(category))]
}

// FindProduct looks a product up by code across every category
func (c *Catalog) FindProduct(code string) (models.Product, bool) {
	code = strings.TrimSpace(code)
	for _, products := range c.categories {
		for _, p := range products {
			if strings.EqualFold(p.Code, code) {
				return p, true
			}
		}
	}
	return models.Product{}, false
}

// Promo returns the promotional card for a product code, if any
func (c *Catalog) Promo(code string) (models.Promo, bool) {
	promo, ok := c.promos[strings.TrimSpace(code)]
	return promo, ok
}

// SystemPrompt returns the advisor instruction text combined with a JSON
// dump of the catalog, the same context the original prompt carried.
func (c *Catalog) SystemPrompt() string {
	prompt := c.systemPrompt
	if prompt == "" {
		prompt = "Eres el asesor de ventas de Tiendas Megan, una tienda de relojes. Responde de forma breve y amable."
	}
	return prompt + "\nDatos catálogo: " + c.contextJSON
}

// PromoCodes returns the product codes that carry a promo card, sorted
func (c *Catalog) PromoCodes() []string {
	codes := make([]string, 0, len(c.promos))
	for code := range c.promos {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Categories returns the known category keys (for the admin endpoint)
func (c *Catalog) Categories() []string {
	keys := make([]string, 0, len(c.categories))
	for k := range c.categories {
		keys = append(keys, k)
	}
	return keys
}
