package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/collabify/backend/internal/config"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/internal/utils"
	"github.com/collabify/backend/pkg/response"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	provider  IdentityProvider
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, provider IdentityProvider, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:        db,
		provider:  provider,
		jwtConfig: jwtCfg,
	}
}

type LoginResult struct {
	Token    string
	ExpireAt time.Time
	User     *models.User
	Created  bool
}

// LoginURL returns the provider consent page for the given anti-forgery state
func (s *AuthService) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// CompleteLogin exchanges the authorization code, upserts the user and issues a session token
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, response.NewBadRequest("Missing authorization code")
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, response.NewUnauthorized("Sign-in failed")
	}

	user, created, err := s.SignIn(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, expireAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	action := "SignIn"
	if created {
		action = "SignUp"
	}
	LogInfo("Auth", action, fmt.Sprintf("User %s signed in", user.Email), &user.ID, "", "", nil)

	return &LoginResult{Token: token, ExpireAt: expireAt, User: user, Created: created}, nil
}

// SignIn finds the user for a verified identity or creates one on first sign-in.
// Name and image are refreshed from the provider on every sign-in.
func (s *AuthService) SignIn(ctx context.Context, identity *Identity) (*models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" || !identity.EmailVerified {
		return nil, false, response.NewUnauthorized("Email address is not verified")
	}

	var (
		user    models.User
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Email: email,
				Name:  identity.Name,
				Image: identity.Picture,
			}
			if identity.Subject != "" {
				subject := identity.Subject
				user.GoogleID = &subject
			}
			created = true
			return tx.Create(&user).Error
		} else if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if identity.Name != "" {
			updates["name"] = identity.Name
		}
		if identity.Picture != "" {
			updates["image"] = identity.Picture
		}
		if user.GoogleID == nil && identity.Subject != "" {
			updates["google_id"] = identity.Subject
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("sign in %s: %w", email, err)
	}
	return &user, created, nil
}

// IssueToken signs a session token carrying the user's id, email and username
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	hours := s.jwtConfig.ExpireHour
	token, err := utils.GenerateToken(user.ID, user.Email, user.HandleOrEmpty(), hours)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	return token, time.Now().Add(time.Duration(hours) * time.Hour), nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}
