// Package products exposes the static product catalog. The dataset is fixed
// at compile time and only reachable through read-only accessors, so no
// shared mutable state exists.
package products

type Product struct {
	ID          int
	Name        string
	Description string
}

var catalog = [...]Product{
	{ID: 1, Name: "Lemon", Description: "A tart, yellow citrus fruit used for juice and zest."},
	{ID: 2, Name: "Apple", Description: "A sweet, crunchy fruit commonly eaten fresh or in desserts."},
	{ID: 3, Name: "Banana", Description: "A soft, sweet tropical fruit with a creamy texture."},
	{ID: 4, Name: "Orange", Description: "A juicy citrus fruit rich in vitamin C."},
}

// All returns a copy of the catalog in id order.
func All() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog[:])
	return out
}

// ByID returns the product with the given id, if any.
func ByID(id int) (Product, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
