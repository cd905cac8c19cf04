package services

import (
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ops/models"
)

type placeholderItem struct {
	name, description, price, category string
	available                          bool
	prepTime                           int
	image                              string
}

// Shown to customers when the catalog cannot be read or is empty.
var placeholderItems = []placeholderItem{
	{"Truffle Arancini", "Crispy risotto balls with black truffle and parmesan", "14.99", "Appetizers", true, 12, "https://images.unsplash.com/photo-1541014741259-de529411b96a"},
	{"Tuna Tartare", "Fresh yellowfin tuna with avocado, citrus and sesame", "18.99", "Appetizers", true, 8, "https://images.unsplash.com/photo-1546833999-b9f581a1996d"},
	{"Grilled Atlantic Salmon", "Herb-crusted salmon with seasonal vegetables and lemon butter", "28.99", "Main Courses", true, 18, "https://images.unsplash.com/photo-1467003909585-2f8a72700288"},
	{"Ribeye Steak", "12oz prime ribeye with garlic mashed potatoes and red wine jus", "42.99", "Main Courses", true, 22, "https://images.unsplash.com/photo-1546833999-b9f581a1996d"},
	{"Mushroom Risotto", "Creamy arborio rice with wild mushrooms and truffle oil", "24.99", "Main Courses", false, 25, "https://images.unsplash.com/photo-1476124369491-e7addf5db371"},
	{"Chocolate Lava Cake", "Warm chocolate cake with a molten center and vanilla ice cream", "12.99", "Desserts", true, 15, "https://images.unsplash.com/photo-1624353365286-3f8d62daad51"},
	{"Tiramisu", "Classic Italian dessert with espresso-soaked ladyfingers", "10.99", "Desserts", true, 5, "https://images.unsplash.com/photo-1571877227200-a0d98ea607e9"},
	{"Craft Beer Selection", "Rotating selection of local craft beers", "7.99", "Beverages", true, 2, "https://images.unsplash.com/photo-1608270586620-248524c67de9"},
	{"House Wine", "Red or white wine by the glass", "9.99", "Beverages", true, 2, "https://images.unsplash.com/photo-1510812431401-41d2bd2722f3"},
}

// PlaceholderMenu returns the static fallback catalog for a restaurant. Item ids are
// 1..9 and do not refer to stored rows.
func PlaceholderMenu(restaurantID uint) []models.MenuItem {
	items := make([]models.MenuItem, 0, len(placeholderItems))
	for i, p := range placeholderItems {
		items = append(items, models.MenuItem{
			ID:           uint(i + 1),
			RestaurantID: restaurantID,
			Name:         p.name,
			Description:  p.description,
			Price:        decimal.RequireFromString(p.price),
			Category:     p.category,
			IsAvailable:  p.available,
			PrepTime:     p.prepTime,
			ImageURL:     p.image,
		})
	}
	return items
}
