package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/utils"
	"gorm.io/gorm"
)

// StaffRoles are the roles an admin can hand out. Ownership is never assigned.
var StaffRoles = []string{models.RoleAdmin, models.RoleChef, models.RoleWaiter}

func isStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

type RestaurantService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewRestaurantService(db *gorm.DB, pub events.Publisher) *RestaurantService {
	if pub == nil {
		pub = events.Discard
	}
	return &RestaurantService{DB: db, Events: pub}
}

type RestaurantInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	LogoURL     string `json:"logo_url"`
	Website     string `json:"website"`
	CuisineType string `json:"cuisine_type"`
}

func (in RestaurantInput) apply(r *models.Restaurant) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return validationf("restaurant name is required")
	}
	email := ""
	if strings.TrimSpace(in.Email) != "" {
		var err error
		if email, err = normalizeEmail(in.Email); err != nil {
			return err
		}
	}
	r.Name = name
	r.Description = strings.TrimSpace(in.Description)
	r.Phone = strings.TrimSpace(in.Phone)
	r.Email = email
	r.Address = strings.TrimSpace(in.Address)
	r.City = strings.TrimSpace(in.City)
	r.State = strings.TrimSpace(in.State)
	r.ZipCode = strings.TrimSpace(in.ZipCode)
	r.LogoURL = strings.TrimSpace(in.LogoURL)
	r.Website = strings.TrimSpace(in.Website)
	r.CuisineType = strings.TrimSpace(in.CuisineType)
	return nil
}

// Register creates a restaurant owned by ownerID together with the owner's staff row.
func (s *RestaurantService) Register(ctx context.Context, ownerID uint, in RestaurantInput) (*models.Restaurant, error) {
	restaurant := models.Restaurant{OwnerID: ownerID, IsActive: true}
	if err := in.apply(&restaurant); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&restaurant).Error; err != nil {
			return err
		}
		return tx.Create(&models.StaffAssignment{
			RestaurantID: restaurant.ID,
			UserID:       ownerID,
			Role:         models.RoleOwner,
			IsActive:     true,
		}).Error
	})
	if err != nil {
		return nil, writeErr(err, "register restaurant")
	}
	utils.InfoLogger.Printf("Restaurant registered: %s (id=%d, owner=%d)", restaurant.Name, restaurant.ID, ownerID)
	return &restaurant, nil
}

// Resolve builds the session for a user. An owned restaurant wins over staff
// assignments; preferred narrows the choice when the user works in several.
func (s *RestaurantService) Resolve(ctx context.Context, userID uint, email string, preferred uint) (*session.Context, error) {
	db := s.DB.WithContext(ctx)

	owned := db.Where("owner_id = ?", userID)
	if preferred != 0 {
		owned = owned.Where("id = ?", preferred)
	}
	var restaurant models.Restaurant
	err := owned.Order("id ASC").First(&restaurant).Error
	if err == nil {
		return &session.Context{
			UserID:         userID,
			Email:          email,
			RestaurantID:   restaurant.ID,
			RestaurantName: restaurant.Name,
			StoredRole:     models.RoleOwner,
			IsOwner:        true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, readErr(err, "owned restaurant")
	}

	staff := db.Preload("Restaurant").Where("user_id = ? AND is_active = ?", userID, true)
	if preferred != 0 {
		staff = staff.Where("restaurant_id = ?", preferred)
	}
	var assignment models.StaffAssignment
	if err := staff.Order("id ASC").First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, forbiddenf("user %d has no active restaurant assignment", userID)
		}
		return nil, readErr(err, "staff assignment")
	}
	return &session.Context{
		UserID:         userID,
		Email:          email,
		RestaurantID:   assignment.RestaurantID,
		RestaurantName: assignment.Restaurant.Name,
		StoredRole:     assignment.Role,
		IsOwner:        assignment.Role == models.RoleOwner,
	}, nil
}

// Get returns an active restaurant for public pages.
func (s *RestaurantService) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&restaurant).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("restaurant %d", id))
	}
	return &restaurant, nil
}

func (s *RestaurantService) Update(ctx context.Context, sess *session.Context, in RestaurantInput) (*models.Restaurant, error) {
	if !sess.Can(session.CapViewAdmin) {
		return nil, forbiddenf("restaurant settings require admin role")
	}
	var restaurant models.Restaurant
	if err := s.DB.WithContext(ctx).First(&restaurant, sess.RestaurantID).Error; err != nil {
		return nil, readErr(err, "restaurant")
	}
	if err := in.apply(&restaurant); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(&restaurant).Error; err != nil {
		return nil, writeErr(err, "update restaurant")
	}
	return &restaurant, nil
}

func (s *RestaurantService) ListStaff(ctx context.Context, sess *session.Context) ([]models.StaffAssignment, error) {
	if !sess.Can(session.CapManageStaff) {
		return nil, forbiddenf("staff management requires admin role")
	}
	var staff []models.StaffAssignment
	if err := s.DB.WithContext(ctx).Preload("User").
		Where("restaurant_id = ?", sess.RestaurantID).
		Order("id ASC").
		Find(&staff).Error; err != nil {
		return nil, readErr(err, "staff")
	}
	return staff, nil
}

// AddStaff assigns an existing user, found by email, to the session's restaurant.
func (s *RestaurantService) AddStaff(ctx context.Context, sess *session.Context, email, role string) (*models.StaffAssignment, error) {
	if !sess.Can(session.CapManageStaff) {
		return nil, forbiddenf("staff management requires admin role")
	}
	if !isStaffRole(role) {
		return nil, validationf("role must be one of %s", strings.Join(StaffRoles, ", "))
	}
	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.Where("email = ?", addr).First(&user).Error; err != nil {
		return nil, readErr(err, "user "+addr)
	}

	var existing int64
	if err := db.Model(&models.StaffAssignment{}).
		Where("restaurant_id = ? AND user_id = ?", sess.RestaurantID, user.ID).
		Count(&existing).Error; err != nil {
		return nil, readErr(err, "staff")
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: %s is already on staff", ErrConflict, addr)
	}

	assignment := models.StaffAssignment{
		RestaurantID: sess.RestaurantID,
		UserID:       user.ID,
		User:         user,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Omit("User", "Restaurant").Create(&assignment).Error; err != nil {
		return nil, writeErr(err, "add staff")
	}
	s.publish(ctx, assignment, events.ActionInsert)
	return &assignment, nil
}

type StaffUpdate struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (s *RestaurantService) UpdateStaff(ctx context.Context, sess *session.Context, id uint, in StaffUpdate) (*models.StaffAssignment, error) {
	if !sess.Can(session.CapManageStaff) {
		return nil, forbiddenf("staff management requires admin role")
	}
	db := s.DB.WithContext(ctx)
	var assignment models.StaffAssignment
	if err := db.Preload("User").
		Where("id = ? AND restaurant_id = ?", id, sess.RestaurantID).
		First(&assignment).Error; err != nil {
		return nil, readErr(err, fmt.Sprintf("staff %d", id))
	}
	if assignment.Role == models.RoleOwner {
		return nil, forbiddenf("the owner assignment cannot be changed")
	}

	updates := map[string]interface{}{}
	if in.Role != nil {
		if !isStaffRole(*in.Role) {
			return nil, validationf("role must be one of %s", strings.Join(StaffRoles, ", "))
		}
		updates["role"] = *in.Role
		assignment.Role = *in.Role
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
		assignment.IsActive = *in.IsActive
	}
	if len(updates) == 0 {
		return &assignment, nil
	}
	if err := db.Model(&models.StaffAssignment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, writeErr(err, "update staff")
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": sess.RestaurantID,
		"staff_id":      id,
		"by":            sess.UserID,
	}).Info("staff assignment updated")
	s.publish(ctx, assignment, events.ActionUpdate)
	return &assignment, nil
}

func (s *RestaurantService) publish(ctx context.Context, a models.StaffAssignment, action string) {
	s.Events.Publish(ctx, events.Notice{
		RestaurantID: a.RestaurantID,
		Collection:   events.CollectionStaff,
		Action:       action,
		RecordID:     a.ID,
	})
}
