// Package pantry holds helpers for the pantry inventory, including category
// suggestion for newly added products.
package pantry

import (
	"strings"

	"github.com/jmcampos/despensa/internal/model"
)

// SuggestCategory returns the likely category for the given product name.
// It performs case-insensitive matching: exact match first, then substring
// match. Falls back to "food", which covers most pantry entries.
func SuggestCategory(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return model.CategoryFood
	}

	if cat, ok := exactMatch[n]; ok {
		return cat
	}

	for _, entry := range substringMatches {
		if strings.Contains(n, entry.keyword) {
			return entry.category
		}
	}

	return model.CategoryFood
}

// exactMatch maps whole product names to a category, built from the
// per-category word lists below.
var exactMatch = make(map[string]string)

func init() {
	for cat, names := range map[string][]string{
		model.CategoryCleaning: {
			"lejía", "lejia", "amoniaco", "fregasuelos", "lavavajillas",
			"suavizante", "detergente", "estropajo", "estropajos",
			"bayeta", "bayetas", "multiusos",
		},
		model.CategoryHygiene: {
			"champú", "champu", "gel", "desodorante", "dentífrico",
			"dentifrico", "pasta de dientes", "cepillo de dientes",
			"compresas", "pañuelos", "cuchillas",
		},
		model.CategoryPets: {
			"pienso", "arena de gato", "antiparasitario",
		},
	} {
		for _, name := range names {
			exactMatch[name] = cat
		}
	}
}

type substringEntry struct {
	keyword  string
	category string
}

// Ordered with longer/more-specific keywords first for deterministic priority.
var substringMatches = []substringEntry{
	// Pets before cleaning so "champú para perros" lands with the pet.
	{"para perro", model.CategoryPets},
	{"para gato", model.CategoryPets},
	{"pienso", model.CategoryPets},
	{"arena de gato", model.CategoryPets},
	{"perro", model.CategoryPets},
	{"gato", model.CategoryPets},
	{"mascota", model.CategoryPets},

	// Cleaning
	{"papel higiénico", model.CategoryCleaning},
	{"papel higienico", model.CategoryCleaning},
	{"papel de cocina", model.CategoryCleaning},
	{"bolsas de basura", model.CategoryCleaning},
	{"lavavajillas", model.CategoryCleaning},
	{"friegasuelos", model.CategoryCleaning},
	{"fregasuelos", model.CategoryCleaning},
	{"limpiacristales", model.CategoryCleaning},
	{"limpiador", model.CategoryCleaning},
	{"detergente", model.CategoryCleaning},
	{"suavizante", model.CategoryCleaning},
	{"desinfectante", model.CategoryCleaning},
	{"lejía", model.CategoryCleaning},
	{"lejia", model.CategoryCleaning},
	{"amoniaco", model.CategoryCleaning},
	{"estropajo", model.CategoryCleaning},
	{"bayeta", model.CategoryCleaning},
	{"fregona", model.CategoryCleaning},
	{"insecticida", model.CategoryCleaning},
	{"ambientador", model.CategoryCleaning},

	// Hygiene
	{"pasta de dientes", model.CategoryHygiene},
	{"cepillo de dientes", model.CategoryHygiene},
	{"gel de baño", model.CategoryHygiene},
	{"gel de ducha", model.CategoryHygiene},
	{"crema hidratante", model.CategoryHygiene},
	{"protector solar", model.CategoryHygiene},
	{"champú", model.CategoryHygiene},
	{"champu", model.CategoryHygiene},
	{"acondicionador", model.CategoryHygiene},
	{"desodorante", model.CategoryHygiene},
	{"dentífrico", model.CategoryHygiene},
	{"dentifrico", model.CategoryHygiene},
	{"enjuague", model.CategoryHygiene},
	{"jabón de manos", model.CategoryHygiene},
	{"jabon de manos", model.CategoryHygiene},
	{"compresa", model.CategoryHygiene},
	{"tampones", model.CategoryHygiene},
	{"pañuelo", model.CategoryHygiene},
	{"cuchilla", model.CategoryHygiene},
	{"maquinilla", model.CategoryHygiene},
	{"colonia", model.CategoryHygiene},
	{"toallitas", model.CategoryHygiene},
}
