// Package session carries the resolved staff identity for one request.
package session

import (
	"github.com/yeremiapane/restaurant-ops/models"
)

type Capability string

const (
	CapManageMenu   Capability = "manage_menu"
	CapManageTables Capability = "manage_tables"
	CapManageStaff  Capability = "manage_staff"
	CapViewAdmin    Capability = "view_admin"
	CapKitchen      Capability = "kitchen"
	CapServe        Capability = "serve"
)

var capabilityRoles = map[Capability][]string{
	CapManageMenu:   {models.RoleAdmin},
	CapManageTables: {models.RoleAdmin},
	CapManageStaff:  {models.RoleAdmin},
	CapViewAdmin:    {models.RoleAdmin},
	CapKitchen:      {models.RoleAdmin, models.RoleChef},
	CapServe:        {models.RoleAdmin, models.RoleWaiter},
}

// Context is built once per request and passed explicitly to service calls.
type Context struct {
	UserID         uint   `json:"user_id"`
	Email          string `json:"email"`
	RestaurantID   uint   `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name"`
	StoredRole     string `json:"stored_role"`
	IsOwner        bool   `json:"is_owner"`
}

// Role is the effective role; owners act as admins.
func (c *Context) Role() string {
	if c == nil {
		return ""
	}
	if c.IsOwner || c.StoredRole == models.RoleOwner {
		return models.RoleAdmin
	}
	return c.StoredRole
}

func (c *Context) Can(capability Capability) bool {
	role := c.Role()
	for _, r := range capabilityRoles[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// Capabilities lists what the context may do, in a stable order.
func (c *Context) Capabilities() []Capability {
	var out []Capability
	for _, cp := range []Capability{CapManageMenu, CapManageTables, CapManageStaff, CapViewAdmin, CapKitchen, CapServe} {
		if c.Can(cp) {
			out = append(out, cp)
		}
	}
	return out
}
