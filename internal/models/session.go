// Package models defines core domain types
package models

import (
	"errors"
	"fmt"
	"time"
)

// LoginChannel identifies which first-factor path a session used
type LoginChannel string

const (
	ChannelEmail LoginChannel = "email"
	ChannelPhone LoginChannel = "phone"
)

// Role names accepted by the upstream operations API
type Role string

const (
	RoleAdmin           Role = "Admin"
	RoleManager         Role = "Manager"
	RoleStoreClerk      Role = "Store Clerk"
	RoleGroceryAdmin    Role = "Grocery-Admin"
	RoleGroceryManager  Role = "Grocery-Manager"
	RolePharmacyAdmin   Role = "Pharmacy-Admin"
	RolePharmacyManager Role = "Pharmacy-Manager"
)

// BusinessType is a closed classification derived from a user's role
type BusinessType string

const (
	BusinessRestaurant BusinessType = "restaurant"
	BusinessGrocery    BusinessType = "grocery"
	BusinessPharmacy   BusinessType = "pharmacy"
)

// ErrUnknownRole is returned when a role is outside the allow-list
var ErrUnknownRole = errors.New("unknown role")

// roleBusinessTypes is the total mapping from allow-listed roles to business
// types. A role absent from this map cannot complete authentication.
var roleBusinessTypes = map[Role]BusinessType{
	RoleAdmin:           BusinessRestaurant,
	RoleManager:         BusinessRestaurant,
	RoleStoreClerk:      BusinessRestaurant,
	RoleGroceryAdmin:    BusinessGrocery,
	RoleGroceryManager:  BusinessGrocery,
	RolePharmacyAdmin:   BusinessPharmacy,
	RolePharmacyManager: BusinessPharmacy,
}

// DeriveBusinessType maps an allow-listed role to its business type. Roles
// outside the allow-list fail with ErrUnknownRole rather than defaulting.
func DeriveBusinessType(role Role) (BusinessType, error) {
	bt, ok := roleBusinessTypes[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return bt, nil
}

// RoleAllowed reports whether a role may complete authentication
func RoleAllowed(role Role) bool {
	_, ok := roleBusinessTypes[role]
	return ok
}

// UserProfile is the authenticated-profile record fetched from the upstream
// API after a successful OTP verification.
type UserProfile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Role         Role         `json:"role"`
	BranchID     string       `json:"branch_id"`
	RestaurantID string       `json:"restaurant_id"`
	BusinessType BusinessType `json:"business_type"`
}

// Session holds the dashboard operator's authentication state
type Session struct {
	AuthToken         string       `json:"auth_token"`
	TwoFactorVerified bool         `json:"two_factor_verified"`
	Profile           *UserProfile `json:"profile,omitempty"`
	Channel           LoginChannel `json:"channel"`
	CreatedAt         time.Time    `json:"created_at"`
}

// IsAuthenticated reports whether the session is fully authenticated: token
// present, second factor verified and profile attached.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AuthToken != "" && s.TwoFactorVerified && s.Profile != nil
}

// IsPendingSecondFactor reports whether the session holds a token but has not
// yet passed OTP verification. Such a session is permitted only on the 2FA
// route.
func (s *Session) IsPendingSecondFactor() bool {
	return s != nil && s.AuthToken != "" && !s.TwoFactorVerified
}
