package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

func fixtureCatalog() *Catalog {
	return New(map[string][]models.Product{
		models.CategoryCaballerosAuto: {
			{Code: "X1", Name: "Megan Classic", Description: "Automático acero", Price: 250, ImageURL: "https://img.example/x1.jpg"},
		},
		models.CategoryDamasCuarzo: {
			{Code: "D1", Name: "Megan Dama", Description: "Cuarzo elegante", Price: 180, ImageURL: "https://img.example/d1.jpg"},
		},
	}, map[string]models.Promo{
		"X1": {ImageURL: "https://img.example/promo.jpg", Description: "Oferta"},
	}, "Eres el asesor de Tiendas Megan.")
}

func TestProductsMissingCategoryIsEmpty(t *testing.T) {
	cat := fixtureCatalog()

	if got := cat.Products("no_such_category"); len(got) != 0 {
		t.Errorf("expected an empty slice, got %v", got)
	}
	if got := cat.Products(" Caballeros_Automaticos "); len(got) != 1 {
		t.Errorf("expected the lookup normalized, got %v", got)
	}
}

func TestFindProductCaseInsensitive(t *testing.T) {
	cat := fixtureCatalog()

	p, found := cat.FindProduct("x1")
	if !found || p.Name != "Megan Classic" {
		t.Errorf("expected X1 found case-insensitively, got %v %v", p, found)
	}

	if _, found := cat.FindProduct("Z9"); found {
		t.Error("expected Z9 to be absent")
	}
}

func TestPromoLookup(t *testing.T) {
	cat := fixtureCatalog()

	if _, ok := cat.Promo("X1"); !ok {
		t.Error("expected a promo for X1")
	}
	if _, ok := cat.Promo("D1"); ok {
		t.Error("expected no promo for D1")
	}
	if codes := cat.PromoCodes(); len(codes) != 1 || codes[0] != "X1" {
		t.Errorf("unexpected promo codes: %v", codes)
	}
}

func TestSystemPromptCarriesCatalogContext(t *testing.T) {
	cat := fixtureCatalog()

	prompt := cat.SystemPrompt()
	if !strings.HasPrefix(prompt, "Eres el asesor de Tiendas Megan.") {
		t.Errorf("expected the instruction text first, got %q", prompt)
	}
	if !strings.Contains(prompt, "Megan Classic") {
		t.Error("expected the catalog JSON embedded in the prompt")
	}
}

func TestSystemPromptDefault(t *testing.T) {
	cat := New(map[string][]models.Product{}, nil, "")
	if !strings.Contains(cat.SystemPrompt(), "asesor de ventas") {
		t.Error("expected the fallback instruction when no prompt file is loaded")
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "data.json")
	data := `{"caballeros_automaticos":[{"codigo":"X1","nombre":"Megan Classic","descripcion":"Acero","precio":250,"imagen":"https://img.example/x1.jpg"}]}`
	if err := os.WriteFile(dataPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	promoPath := filepath.Join(dir, "promoData.json")
	promo := `{"X1":{"imagen":"https://img.example/promo.jpg","descripcion":"Oferta"}}`
	if err := os.WriteFile(promoPath, []byte(promo), 0o644); err != nil {
		t.Fatal(err)
	}

	promptPath := filepath.Join(dir, "SystemPrompt.txt")
	if err := os.WriteFile(promptPath, []byte("Eres el asesor.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(dataPath, promoPath, promptPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	p, found := cat.FindProduct("X1")
	if !found || p.Price != 250 {
		t.Errorf("expected X1 loaded from disk, got %v %v", p, found)
	}
	if _, ok := cat.Promo("X1"); !ok {
		t.Error("expected the promo loaded")
	}
	if !strings.HasPrefix(cat.SystemPrompt(), "Eres el asesor.") {
		t.Error("expected the prompt trimmed and loaded")
	}
}

func TestLoadMissingPromosIsNotFatal(t *testing.T) {
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(dataPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(dataPath, filepath.Join(dir, "absent.json"), filepath.Join(dir, "absent.txt"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if codes := cat.PromoCodes(); len(codes) != 0 {
		t.Errorf("expected no promos, got %v", codes)
	}
}

func TestLoadMissingDataFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), "", ""); err == nil {
		t.Fatal("expected an error when the catalog data is missing")
	}
}
