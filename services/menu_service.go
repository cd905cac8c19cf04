package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
)

const MenuPageSize = 12

type MenuService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewMenuService(db *gorm.DB, pub events.Publisher) *MenuService {
	if pub == nil {
		pub = events.Discard
	}
	return &MenuService{DB: db, Events: pub}
}

// Catalog is the customer-facing item list. Fallback marks placeholder data.
type Catalog struct {
	Items    []models.MenuItem `json:"items"`
	Fallback bool              `json:"fallback"`
}

// Available lists orderable items in no particular order. It never fails: read
// errors and empty menus degrade to the placeholder catalog.
func (s *MenuService) Available(ctx context.Context, restaurantID uint) Catalog {
	var items []models.MenuItem
	err := s.DB.WithContext(ctx).
		Where("restaurant_id = ? AND is_available = ?", restaurantID, true).
		Find(&items).Error
	if err != nil {
		utils.ErrorLogger.WithField("restaurant_id", restaurantID).
			Warnf("Menu read failed, serving placeholder menu: %v", err)
	}
	if err != nil || len(items) == 0 {
		var fallback []models.MenuItem
		for _, item := range PlaceholderMenu(restaurantID) {
			if item.IsAvailable {
				fallback = append(fallback, item)
			}
		}
		return Catalog{Items: fallback, Fallback: true}
	}
	return Catalog{Items: items}
}

type MenuFilter struct {
	Search   string
	Category string
	Price    string
	Page     int
}

type MenuPage struct {
	Items      []models.MenuItem `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Categories []string          `json:"categories"`
	Fallback   bool              `json:"fallback"`
}

type priceRange struct {
	min, max decimal.Decimal
	open     bool
}

// parsePriceRange accepts "", "all", "min-max" and "min+".
func parsePriceRange(raw string) (*priceRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "all" {
		return nil, nil
	}
	if strings.HasSuffix(raw, "+") {
		min, err := decimal.NewFromString(strings.TrimSuffix(raw, "+"))
		if err != nil {
			return nil, validationf("invalid price range %q", raw)
		}
		return &priceRange{min: min, open: true}, nil
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return nil, validationf("invalid price range %q", raw)
	}
	min, err1 := decimal.NewFromString(parts[0])
	max, err2 := decimal.NewFromString(parts[1])
	if err1 != nil || err2 != nil || max.LessThan(min) {
		return nil, validationf("invalid price range %q", raw)
	}
	return &priceRange{min: min, max: max}, nil
}

func (r *priceRange) contains(p decimal.Decimal) bool {
	if p.LessThan(r.min) {
		return false
	}
	return r.open || !p.GreaterThan(r.max)
}

// Browse filters and pages the customer catalog.
func (s *MenuService) Browse(ctx context.Context, restaurantID uint, f MenuFilter) (*MenuPage, error) {
	pr, err := parsePriceRange(f.Price)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(f.Category)
	if category == "all" {
		category = ""
	}
	if category != "" && !models.IsMenuCategory(category) {
		return nil, validationf("unknown category %q", category)
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	catalog := s.Available(ctx, restaurantID)

	present := map[string]bool{}
	var matched []models.MenuItem
	for _, item := range catalog.Items {
		present[item.Category] = true
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		if pr != nil && !pr.contains(item.Price) {
			continue
		}
		matched = append(matched, item)
	}

	total := len(matched)
	totalPages := (total + MenuPageSize - 1) / MenuPageSize
	page := f.Page
	if page < 1 {
		page = 1
	}
	// Pages past the end are empty.
	items := []models.MenuItem{}
	if page <= totalPages {
		start := (page - 1) * MenuPageSize
		items = append(items, matched[start:min(start+MenuPageSize, total)]...)
	}

	var categories []string
	for _, c := range models.MenuCategories {
		if present[c] {
			categories = append(categories, c)
		}
	}

	return &MenuPage{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		Categories: categories,
		Fallback:   catalog.Fallback,
	}, nil
}

// Manage lists every item, available or not, by category then name.
func (s *MenuService) Manage(ctx context.Context, sess *session.Context) ([]models.MenuItem, error) {
	if !sess.Can(session.CapManageMenu) {
		return nil, forbiddenf("menu management requires admin role")
	}
	var items []models.MenuItem
	if err := s.DB.WithContext(ctx).
		Where("restaurant_id = ?", sess.RestaurantID).
		Order("category ASC").Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, readErr(err, "menu items")
	}
	return items, nil
}

// Get returns a stored item of the restaurant.
func (s *MenuService) Get(ctx context.Context, restaurantID, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&item).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("menu item %d", id))
	}
	return &item, nil
}

type MenuItemInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	PrepTime    *int            `json:"prep_time"`
	IsAvailable *bool           `json:"is_available"`
	ImageURL    string          `json:"image_url"`
}

func (in *MenuItemInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return validationf("name is required")
	}
	if !in.Price.IsPositive() {
		return validationf("price must be greater than zero")
	}
	if !models.IsMenuCategory(in.Category) {
		return validationf("category must be one of %s", strings.Join(models.MenuCategories, ", "))
	}
	if in.PrepTime != nil && *in.PrepTime <= 0 {
		return validationf("prep_time must be a positive number of minutes")
	}
	return nil
}

func (in *MenuItemInput) apply(item *models.MenuItem) {
	item.Name = in.Name
	item.Description = strings.TrimSpace(in.Description)
	item.Price = in.Price.Round(2)
	item.Category = in.Category
	item.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.PrepTime != nil {
		item.PrepTime = *in.PrepTime
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
}

func (s *MenuService) Create(ctx context.Context, sess *session.Context, in MenuItemInput) (*models.MenuItem, error) {
	if !sess.Can(session.CapManageMenu) {
		return nil, forbiddenf("menu management requires admin role")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	item := models.MenuItem{
		RestaurantID: sess.RestaurantID,
		PrepTime:     models.DefaultPrepTime,
		IsAvailable:  true,
	}
	in.apply(&item)
	available := item.IsAvailable

	if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, writeErr(err, "create menu item")
	}
	// Create skips zero values for columns with a default and reads the default back.
	if !available {
		if err := s.DB.WithContext(ctx).Model(&item).Update("is_available", false).Error; err != nil {
			return nil, writeErr(err, "create menu item")
		}
		item.IsAvailable = false
	}
	s.publish(ctx, item, events.ActionInsert)
	return &item, nil
}

func (s *MenuService) Update(ctx context.Context, sess *session.Context, id uint, in MenuItemInput) (*models.MenuItem, error) {
	if !sess.Can(session.CapManageMenu) {
		return nil, forbiddenf("menu management requires admin role")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, sess.RestaurantID, id)
	if err != nil {
		return nil, err
	}
	in.apply(item)

	if err := s.DB.WithContext(ctx).Save(item).Error; err != nil {
		return nil, writeErr(err, "update menu item")
	}
	s.publish(ctx, *item, events.ActionUpdate)
	return item, nil
}

func (s *MenuService) SetAvailability(ctx context.Context, sess *session.Context, id uint, available bool) (*models.MenuItem, error) {
	if !sess.Can(session.CapManageMenu) {
		return nil, forbiddenf("menu management requires admin role")
	}
	item, err := s.Get(ctx, sess.RestaurantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(item).Update("is_available", available).Error; err != nil {
		return nil, writeErr(err, "update availability")
	}
	item.IsAvailable = available
	s.publish(ctx, *item, events.ActionUpdate)
	return item, nil
}

func (s *MenuService) Delete(ctx context.Context, sess *session.Context, id uint) error {
	if !sess.Can(session.CapManageMenu) {
		return forbiddenf("menu management requires admin role")
	}
	item, err := s.Get(ctx, sess.RestaurantID, id)
	if err != nil {
		return err
	}
	var used int64
	if err := s.DB.WithContext(ctx).Model(&models.OrderLine{}).Where("menu_item_id = ?", id).Count(&used).Error; err != nil {
		return readErr(err, "menu item usage")
	}
	if used > 0 {
		return fmt.Errorf("%w: menu item %d appears on %d orders; mark it unavailable instead", ErrConflict, id, used)
	}
	if err := s.DB.WithContext(ctx).Delete(item).Error; err != nil {
		return writeErr(err, "delete menu item")
	}
	s.publish(ctx, *item, events.ActionDelete)
	return nil
}

func (s *MenuService) publish(ctx context.Context, item models.MenuItem, action string) {
	s.Events.Publish(ctx, events.Notice{
		RestaurantID: item.RestaurantID,
		Collection:   events.CollectionMenuItems,
		Action:       action,
		RecordID:     item.ID,
	})
}

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
