// Package auth contains handler relate to log in and create user account
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/config"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// GoogleUserInfoEndpoint is the OpenID userinfo endpoint used after the code exchange
const GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOauthConfig builds the Google OAuth2 client configuration.
func GoogleOauthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"openid",
		},
		Endpoint:    google.Endpoint,
		RedirectURL: cfg.Auth.OauthRedirectURL,
	}
}

// OauthLoginHandler struct holds the database connection and OAuth2 configuration for handling OAuth login.
type OauthLoginHandler struct {
	DB               *database.DBinstanceStruct
	OauthConfig      *oauth2.Config
	UserInfoEndpoint string
	Tokens           *TokenIssuer
	Audit            *AuditLog
}

type code struct {
	Code string `json:"code" binding:"required"`
}

// NewOauthLoginHandler creates a new instance of OauthLoginHandler with the provided database connection and OAuth2 configuration.
func NewOauthLoginHandler(db *database.DBinstanceStruct, oauthConfig *oauth2.Config, userInfoEndpoint string, tokens *TokenIssuer, audit *AuditLog) *OauthLoginHandler {
	return &OauthLoginHandler{
		DB:               db,
		OauthConfig:      oauthConfig,
		UserInfoEndpoint: userInfoEndpoint,
		Tokens:           tokens,
		Audit:            audit,
	}
}

func (h *OauthLoginHandler) getUserInfo(c *gin.Context) (model.GoogleUserInfo, error) {

	var code code
	var uInfo model.GoogleUserInfo

	if err := c.ShouldBindJSON(&code); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("No authorization code provided: %v", err.Error()),
		})
		return uInfo, err
	}

	ctx := c.Request.Context()
	token, err := h.OauthConfig.Exchange(ctx, code.Code)
	if err != nil {
		h.Audit.Attempt(zerolog.WarnLevel, "Google", AuditFail, "", "code exchange failed")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to receive token: %v", err.Error()),
		})
		return uInfo, err
	}

	client := h.OauthConfig.Client(ctx, token)
	resp, err := client.Get(h.UserInfoEndpoint)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch user information: %v", err.Error()),
		})
		return uInfo, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close userinfo response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch user information: status=%d body=%s", resp.StatusCode, string(bodyBytes)),
		})
		return uInfo, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&uInfo); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to decode user info: %v", err.Error()),
		})
		return uInfo, err
	}
	if uInfo.GID == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Google user info has no id",
		})
		return uInfo, errors.New("empty google id")
	}
	return uInfo, nil
}

// SeekerGoogleLoginHandler handles Google login for the seeker role.
// @Summary Handles Google login authentication for seeker role
// @Description Exchanges code for user info, creates the account when missing and returns an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param Code body code true "Authentication code from google"
// @Success 200 {object} model.LoginResponse "Login success"
// @Success 201 {object} model.LoginResponse "Register success"
// @Failure 400 {object} utilities.ErrorResponse "Fail to receive token or fetch user info"
// @Failure 409 {object} utilities.ErrorResponse "Account registered with another role"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /auth/google/seeker [post]
func (h *OauthLoginHandler) SeekerGoogleLoginHandler(c *gin.Context) {
	uInfo, err := h.getUserInfo(c)
	if err != nil {
		return
	}
	h.loginOrRegisterUser(model.RoleSeeker, uInfo, c)
}

// EmployerGoogleLoginHandler handles Google login for the employer role.
// @Summary Handles Google login authentication for employer role
// @Description Exchanges code for user info, creates the account when missing and returns an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param Code body code true "Authentication code from google"
// @Success 200 {object} model.LoginResponse "Login success"
// @Success 201 {object} model.LoginResponse "Register success"
// @Failure 400 {object} utilities.ErrorResponse "Fail to receive token or fetch user info"
// @Failure 409 {object} utilities.ErrorResponse "Account registered with another role"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /auth/google/employer [post]
func (h *OauthLoginHandler) EmployerGoogleLoginHandler(c *gin.Context) {
	uInfo, err := h.getUserInfo(c)
	if err != nil {
		return
	}
	h.loginOrRegisterUser(model.RoleEmployer, uInfo, c)
}

// Callback returns the "code" query parameter, used as the OAuth redirect target during development.
// @Summary Retrieves a query parameter named "code" from the request and returns it in a JSON response
// @Tags Auth
// @Produce json
// @Param Code query string false "Authentication code from google"
// @Success 200 {object} code
// @Router /auth/google/callback [get]
func (h *OauthLoginHandler) Callback(c *gin.Context) {
	c.JSON(http.StatusOK, code{Code: c.Query("code")})
}

func (h *OauthLoginHandler) loginOrRegisterUser(role string, uinfo model.GoogleUserInfo, c *gin.Context) {
	var user model.User
	respStatus := http.StatusOK

	err := h.DB.Where("google_id = ?", uinfo.GID).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		gid, email := uinfo.GID, uinfo.Email
		user = model.User{
			Username: "google_" + gid,
			GoogleID: &gid,
			Role:     role,
		}
		if email != "" {
			user.Email = &email
		}

		err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if role != model.RoleSeeker {
				return nil
			}
			// Prefill the profile so the first load already shows the Google name
			return tx.Create(&model.UserProfile{
				UserID: user.ID,
				EditableProfileInfo: model.EditableProfileInfo{
					FullName: uinfo.FullName(),
					Email:    email,
				},
			}).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to create user: %v", err.Error()),
			})
			return
		}

		respStatus = http.StatusCreated
	case err == nil:
		if user.Role != role {
			h.Audit.Attempt(zerolog.WarnLevel, "Google", AuditFail, uinfo.Email, "role mismatch")
			c.JSON(http.StatusConflict, utilities.ErrorResponse{
				Error: "You already registered as a different user type",
			})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %v", err.Error()),
		})
		return
	}

	accessToken, _, err := h.Tokens.GenerateStandardToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to generate access token: %s", err.Error()),
		})
		return
	}

	h.Audit.Attempt(zerolog.InfoLevel, "Google", AuditSuccess, uinfo.Email, "")

	resp := model.LoginResponse{User: user}
	resp.SetAccessToken(accessToken)
	c.JSON(respStatus, resp)
}
