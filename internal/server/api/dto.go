package api

import (
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
)

// -------- auth --------

type registerRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	FirstName   string  `json:"firstName" validate:"required,max=100"`
	LastName    string  `json:"lastName" validate:"required,max=100"`
	Password    string  `json:"password" validate:"required,min=8,max=50,password,pwbytes"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,phone"`
}

func (r registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		Email:       r.Email,
		Password:    r.Password,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=50,password,pwbytes"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=50,password,pwbytes"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	*models.User
	Permissions []string `json:"permissions"`
}

// -------- users --------

type createUserRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	FirstName   string             `json:"firstName" validate:"required,max=100"`
	LastName    string             `json:"lastName" validate:"required,max=100"`
	PhoneNumber *string            `json:"phoneNumber" validate:"omitempty,phone"`
	Status      *models.UserStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	RoleIDs     []string           `json:"roleIds" validate:"omitempty,dive,uuid"`
}

func (r createUserRequest) input() services.CreateUserInput {
	return services.CreateUserInput{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Status:      r.Status,
		RoleIDs:     r.RoleIDs,
	}
}

type updateUserRequest struct {
	Email       *string            `json:"email" validate:"omitempty,email"`
	FirstName   *string            `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName    *string            `json:"lastName" validate:"omitempty,min=1,max=100"`
	PhoneNumber *string            `json:"phoneNumber" validate:"omitempty,phone"`
	Avatar      *string            `json:"avatar" validate:"omitempty,max=500"`
	Status      *models.UserStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	RoleIDs     []string           `json:"roleIds" validate:"omitempty,dive,uuid"`
}

func (r updateUserRequest) input() services.UpdateUserInput {
	return services.UpdateUserInput{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Avatar:      r.Avatar,
		Status:      r.Status,
		RoleIDs:     r.RoleIDs,
	}
}

type updateProfileRequest struct {
	FirstName   *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,phone"`
	Avatar      *string `json:"avatar" validate:"omitempty,max=500"`
}

func (r updateProfileRequest) input() services.ProfileInput {
	return services.ProfileInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Avatar:      r.Avatar,
	}
}

type updateStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=ACTIVE INACTIVE SUSPENDED"`
}

type assignRolesRequest struct {
	RoleIDs []string `json:"roleIds" validate:"required,min=1,dive,uuid"`
}

// -------- roles --------

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=50"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
	IsActive    *bool    `json:"isActive"`
}

func (r createRoleRequest) input() services.CreateRoleInput {
	return services.CreateRoleInput{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsActive:    r.IsActive,
	}
}

type updateRoleRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=2,max=50"`
	Description *string  `json:"description" validate:"omitempty,max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
	IsActive    *bool    `json:"isActive"`
}

func (r updateRoleRequest) input() services.UpdateRoleInput {
	return services.UpdateRoleInput{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsActive:    r.IsActive,
	}
}

type assignPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

type initializeDefaultsResponse struct {
	Message string   `json:"message"`
	Created []string `json:"created"`
}
