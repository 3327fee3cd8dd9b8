package models

// Product represents one catalog entry (a watch)
type Product struct {
	Code        string  `json:"codigo"`
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	Price       float64 `json:"precio"`
	ImageURL    string  `json:"imagen"`
}

// Promo holds the promotional card bound to a product code
type Promo struct {
	ImageURL    string `json:"imagen"`
	Description string `json:"descripcion"`
}

// Catalog category keys as they appear in data.json
const (
	CategoryCaballerosAuto   = "caballeros_automaticos"
	CategoryCaballerosCuarzo = "caballeros_cuarzo"
	CategoryDamasAuto        = "damas_automaticos"
	CategoryDamasCuarzo      = "damas_cuarzo"
)
