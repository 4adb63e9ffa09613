package usergrp

import (
	"time"

	"github.com/ecoledger/ecoledger/business/core/user"
	"github.com/ecoledger/ecoledger/business/sys/validate"
)

// AppNewUser is the payload for registering a user.
type AppNewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Validate checks the data in the model is considered clean.
func (app AppNewUser) Validate() error {
	if err := validate.Check(app); err != nil {
		return err
	}
	return nil
}

// AppUser is the response model for a user profile.
type AppUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	DateCreated time.Time `json:"date_created"`
}

func toAppUser(usr user.User) AppUser {
	return AppUser{
		ID:          usr.ID,
		Name:        usr.Name,
		Email:       usr.Email,
		Role:        usr.Role,
		DateCreated: usr.DateCreated,
	}
}
