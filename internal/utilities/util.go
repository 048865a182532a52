// Package utilities contain utility code that use across the package
package utilities

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// ErrorResponse type for swagger docs
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse type for swagger docs
type MessageResponse struct {
	Message string `json:"message"`
}

// ContextUserKey is the gin context key holding the authenticated model.User
const ContextUserKey = "user"

// ContextClaimsKey is the gin context key holding the validated token claims
const ContextClaimsKey = "claims"

// ExtractUser extracts the user model from Gin context.
// It does not abort the request; it returns an error when missing/invalid.
func ExtractUser(c *gin.Context) (model.User, error) {
	u, _ := c.Get(ContextUserKey)
	if u == nil {
		return model.User{}, errors.New("User information not provided")
	}

	user, ok := u.(model.User)
	if !ok {
		return model.User{}, errors.New("Failed to assert type")
	}
	return user, nil
}

// CreateAdmin creates an admin user with the given password and username in the provided database.
func CreateAdmin(password string, username string, db *gorm.DB) (model.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := model.User{
		Username: username,
		Password: hashedPassword,
		Role:     model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return model.User{}, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

// MergeSent copies onto dst every field of src whose json name is a key of sent, zero values
// included, and returns those json names in field order.
func MergeSent(dst, src interface{}, sent map[string]json.RawMessage) []string {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()

	var merged []string
	for i := 0; i < sv.NumField(); i++ {
		name, _, _ := strings.Cut(sv.Type().Field(i).Tag.Get("json"), ",")
		if _, ok := sent[name]; !ok || name == "" || name == "-" {
			continue
		}
		df := dv.FieldByName(sv.Type().Field(i).Name)
		if df.IsValid() && df.CanSet() {
			df.Set(sv.Field(i))
			merged = append(merged, name)
		}
	}
	return merged
}
