package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/internal/utils"
	"github.com/collabify/backend/pkg/response"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxNameLength  = 100
	maxBioLength   = 500
	maxListEntries = 20
)

var fieldValidator = validator.New()

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type CheckUsernameRequest struct {
	Username string `json:"username"`
}

type OnboardingRequest struct {
	Username     string   `json:"username"`
	Bio          string   `json:"bio"`
	Skills       []string `json:"skills"`
	Interests    []string `json:"interests"`
	GithubURL    string   `json:"githubUrl"`
	LinkedinURL  string   `json:"linkedinUrl"`
	PortfolioURL string   `json:"portfolioUrl"`
}

type OnboardingState struct {
	Onboarded bool   `json:"onboarded"`
	Username  string `json:"username"`
}

type EditProfileRequest struct {
	Name         string   `json:"name"`
	Bio          string   `json:"bio"`
	Skills       []string `json:"skills"`
	Interests    []string `json:"interests"`
	GithubURL    string   `json:"githubUrl"`
	LinkedinURL  string   `json:"linkedinUrl"`
	PortfolioURL string   `json:"portfolioUrl"`
}

type ProfileStats struct {
	ProjectsCreated  int `json:"projectsCreated"`
	ProjectsJoined   int `json:"projectsJoined"`
	ProjectInterests int `json:"projectInterests"`
}

type ProfileProjects struct {
	Created    []ProjectListItem `json:"created"`
	Joined     []ProjectListItem `json:"joined"`
	Interested []ProjectListItem `json:"interested"`
}

type PublicProfile struct {
	User         *models.User    `json:"user"`
	Stats        ProfileStats    `json:"stats"`
	Projects     ProfileProjects `json:"projects"`
	IsOwnProfile bool            `json:"isOwnProfile"`
}

func validateUsername(username string) error {
	if len(username) < utils.MinUsernameLength {
		return response.NewBadRequest("Username must be at least 3 characters long")
	}
	if !utils.IsValidUsername(username) {
		return response.NewBadRequest("Username can only contain letters, numbers, hyphens and underscores")
	}
	return nil
}

func validateProfileURL(field, value string) error {
	if value == "" {
		return nil
	}
	if err := fieldValidator.Var(value, "url"); err != nil {
		return response.NewBadRequest("Invalid " + field + " URL")
	}
	return nil
}

func validateProfileURLs(github, linkedin, portfolio string) error {
	for _, check := range []error{
		validateProfileURL("GitHub", github),
		validateProfileURL("LinkedIn", linkedin),
		validateProfileURL("Portfolio", portfolio),
	} {
		if check != nil {
			return check
		}
	}
	return nil
}

func validateLists(skills, interests []string) error {
	if len(skills) > maxListEntries {
		return response.NewBadRequest("Too many skills")
	}
	if len(interests) > maxListEntries {
		return response.NewBadRequest("Too many interests")
	}
	return nil
}

func (s *UserService) usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

// CheckUsername reports availability: nil when free, 400 when malformed, 409 when taken
func (s *UserService) CheckUsername(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return err
	}
	taken, err := s.usernameTaken(s.db.WithContext(ctx), username)
	if err != nil {
		return err
	}
	if taken {
		return response.NewConflict("Username is already taken")
	}
	return nil
}

// GetByID returns the full record of a user, including the email
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if id == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// OnboardingState tells the frontend whether the user still has to pick a username
func (s *UserService) OnboardingState(ctx context.Context, userID uint) (*OnboardingState, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &OnboardingState{Onboarded: user.Onboarded(), Username: user.HandleOrEmpty()}, nil
}

// Onboard sets the username once, together with the initial profile
func (s *UserService) Onboard(ctx context.Context, userID uint, req *OnboardingRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.Bio) > maxBioLength {
		return nil, response.NewBadRequest("Bio too long")
	}
	if err := validateLists(req.Skills, req.Interests); err != nil {
		return nil, err
	}
	if err := validateProfileURLs(req.GithubURL, req.LinkedinURL, req.PortfolioURL); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Onboarded() {
		return nil, response.NewBadRequest("Username already set")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.usernameTaken(tx, username)
		if err != nil {
			return err
		}
		if taken {
			return response.NewBadRequest("Username already taken")
		}

		// The NULL check guards against a concurrent onboarding of the same account
		result := tx.Model(&models.User{}).
			Where("id = ? AND username IS NULL", userID).
			Updates(map[string]interface{}{
				"username":      username,
				"bio":           strings.TrimSpace(req.Bio),
				"skills":        datatypes.JSONSlice[string](utils.TrimAll(req.Skills)),
				"interests":     datatypes.JSONSlice[string](utils.TrimAll(req.Interests)),
				"github_url":    strings.TrimSpace(req.GithubURL),
				"linkedin_url":  strings.TrimSpace(req.LinkedinURL),
				"portfolio_url": strings.TrimSpace(req.PortfolioURL),
				"updated_at":    time.Now(),
			})
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return response.NewBadRequest("Username already taken")
			}
			return fmt.Errorf("onboard user %d: %w", userID, result.Error)
		}
		if result.RowsAffected == 0 {
			return response.NewBadRequest("Username already set")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	LogInfo("User", "Onboard", fmt.Sprintf("User %d chose username %s", userID, username), &userID, "", "", nil)
	return s.GetByID(ctx, userID)
}

// EditProfile replaces the editable profile fields. The username is not editable.
func (s *UserService) EditProfile(ctx context.Context, userID uint, req *EditProfileRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("Name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, response.NewBadRequest("Name too long")
	}
	if utf8.RuneCountInString(req.Bio) > maxBioLength {
		return nil, response.NewBadRequest("Bio too long")
	}
	if err := validateLists(req.Skills, req.Interests); err != nil {
		return nil, err
	}
	if err := validateProfileURLs(req.GithubURL, req.LinkedinURL, req.PortfolioURL); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"name":          name,
		"bio":           strings.TrimSpace(req.Bio),
		"skills":        datatypes.JSONSlice[string](utils.TrimAll(req.Skills)),
		"interests":     datatypes.JSONSlice[string](utils.TrimAll(req.Interests)),
		"github_url":    strings.TrimSpace(req.GithubURL),
		"linkedin_url":  strings.TrimSpace(req.LinkedinURL),
		"portfolio_url": strings.TrimSpace(req.PortfolioURL),
		"updated_at":    time.Now(),
	}).Error; err != nil {
		return nil, fmt.Errorf("update profile %d: %w", userID, err)
	}

	return s.GetByID(ctx, userID)
}

// PublicProfile returns a user's profile page. The email is only shown to the user themself.
// Joined projects exclude the user's own; interested projects are pending ones the user has
// not joined.
func (s *UserService) PublicProfile(ctx context.Context, username string, viewerID uint) (*PublicProfile, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("load user %s: %w", username, err)
	}

	own := viewerID != 0 && viewerID == user.ID
	if !own {
		user.Email = ""
	}

	var created []models.Project
	if err := db.Preload("Creator", models.SelectUserSummary).
		Where("created_by = ?", user.ID).
		Order("created_at DESC").Order("id DESC").
		Find(&created).Error; err != nil {
		return nil, fmt.Errorf("load created projects: %w", err)
	}

	var memberships []models.TeamMember
	if err := db.Preload("Project").
		Preload("Project.Creator", models.SelectUserSummary).
		Where("user_id = ?", user.ID).
		Order("joined_at DESC").Order("id DESC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	var pending []models.ProjectInterest
	if err := db.Preload("Project").
		Preload("Project.Creator", models.SelectUserSummary).
		Where("user_id = ? AND status = ?", user.ID, models.InterestStatusPending).
		Order("created_at DESC").Order("id DESC").
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("load interests: %w", err)
	}

	joinedIDs := make(map[uint]struct{}, len(memberships))
	joined := make([]models.Project, 0, len(memberships))
	for _, m := range memberships {
		joinedIDs[m.ProjectID] = struct{}{}
		if m.Project != nil && m.Project.CreatedBy != user.ID {
			joined = append(joined, *m.Project)
		}
	}

	interested := make([]models.Project, 0, len(pending))
	for _, pi := range pending {
		if pi.Project == nil || pi.Project.CreatedBy == user.ID {
			continue
		}
		if _, ok := joinedIDs[pi.ProjectID]; ok {
			continue
		}
		interested = append(interested, *pi.Project)
	}

	projects := ProfileProjects{}
	var err error
	if projects.Created, err = withCounts(db, created); err != nil {
		return nil, err
	}
	if projects.Joined, err = withCounts(db, joined); err != nil {
		return nil, err
	}
	if projects.Interested, err = withCounts(db, interested); err != nil {
		return nil, err
	}

	return &PublicProfile{
		User: &user,
		Stats: ProfileStats{
			ProjectsCreated:  len(projects.Created),
			ProjectsJoined:   len(projects.Joined),
			ProjectInterests: len(projects.Interested),
		},
		Projects:     projects,
		IsOwnProfile: own,
	}, nil
}
