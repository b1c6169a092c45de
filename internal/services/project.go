package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/collabify/backend/internal/metrics"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/internal/utils"
	"github.com/collabify/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	minTitleLength       = 3
	minDescriptionLength = 10
	minTeamSize          = 1
	maxTeamSize          = 20
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Tag      string `form:"tag"`
}

// ProjectCounts mirrors the relation counts shown on project cards.
type ProjectCounts struct {
	TeamMembers int64 `json:"teamMembers"`
	Interests   int64 `json:"interests"`
}

type ProjectListItem struct {
	models.Project
	Counts   ProjectCounts `json:"_count"`
	TeamSize int64         `json:"teamSize"`
}

type ProjectListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []ProjectListItem `json:"projects"`
}

// ViewerState describes the caller's relationship to a project.
type ViewerState struct {
	IsOwner            bool `json:"isOwner"`
	IsMember           bool `json:"isMember"`
	HasPendingInterest bool `json:"hasPendingInterest"`
}

type ProjectDetail struct {
	*models.Project
	Counts   ProjectCounts `json:"_count"`
	TeamSize int64         `json:"teamSize"`
	Viewer   ViewerState   `json:"viewer"`
}

type CreateProjectRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	TechStack         []string `json:"techStack"`
	Tags              []string `json:"tags"`
	GithubURL         string   `json:"githubUrl" binding:"githubrepo"`
	EstimatedTeamSize *int     `json:"estimatedTeamSize"`
	Goals             string   `json:"goals"`
	Requirements      string   `json:"requirements"`
}

// UpdateProjectRequest carries a partial update. Nil fields are left unchanged;
// an empty githubUrl or a zero estimatedTeamSize clears the value.
type UpdateProjectRequest struct {
	Title             *string  `json:"title"`
	Description       *string  `json:"description"`
	TechStack         []string `json:"techStack"`
	Tags              []string `json:"tags"`
	GithubURL         *string  `json:"githubUrl"`
	EstimatedTeamSize *int     `json:"estimatedTeamSize"`
	Status            *string  `json:"status"`
	Goals             *string  `json:"goals"`
	Requirements      *string  `json:"requirements"`
}

type UpdateStatusRequest struct {
	ProjectID uint   `json:"projectId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < minTitleLength {
		return response.NewBadRequest("Title must be at least 3 characters long")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) < minDescriptionLength {
		return response.NewBadRequest("Description must be at least 10 characters long")
	}
	return nil
}

func validateGithubURL(url string) error {
	if url != "" && !utils.IsGithubRepoURL(url) {
		return response.NewBadRequest("Please provide a valid GitHub repository URL")
	}
	return nil
}

func validateTeamSize(size *int) error {
	if size != nil && (*size < minTeamSize || *size > maxTeamSize) {
		return response.NewBadRequest("Team size must be between 1 and 20")
	}
	return nil
}

// normalizeTeamSize treats zero as "not set".
func normalizeTeamSize(size *int) *int {
	if size == nil || *size == 0 {
		return nil
	}
	v := *size
	return &v
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes s match literally inside a LIKE pattern using '!' as escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// List returns paginated projects with their creator and relation counts
func (s *ProjectService) List(ctx context.Context, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Project{})

	if req.Status != "" {
		status, ok := models.NormalizeProjectStatus(req.Status)
		if !ok {
			return nil, response.NewBadRequest("Invalid status")
		}
		query = query.Where("status = ?", status)
	}
	if req.Search != "" {
		like := "%" + escapeLike(req.Search) + "%"
		query = query.Where("title LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!'", like, like)
	}
	if req.Tag != "" {
		query = query.Where(datatypes.JSONArrayQuery("tags").Contains(req.Tag))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	if err := query.
		Preload("Creator", models.SelectUserSummary).
		Offset(offset).Limit(req.PageSize).
		Order("created_at DESC").Order("id DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	items, err := withCounts(db, projects)
	if err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// ListMine returns every project created by userID, newest first
func (s *ProjectService) ListMine(ctx context.Context, userID uint) ([]ProjectListItem, error) {
	if userID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}

	db := s.db.WithContext(ctx)
	var projects []models.Project
	if err := db.Where("created_by = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list own projects: %w", err)
	}
	return withCounts(db, projects)
}

func withCounts(db *gorm.DB, projects []models.Project) ([]ProjectListItem, error) {
	ids := make([]uint, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}

	members, err := countByProject(db, &models.TeamMember{}, ids)
	if err != nil {
		return nil, fmt.Errorf("count team members: %w", err)
	}
	interests, err := countByProject(db, &models.ProjectInterest{}, ids)
	if err != nil {
		return nil, fmt.Errorf("count interests: %w", err)
	}

	items := make([]ProjectListItem, len(projects))
	for i, p := range projects {
		items[i] = ProjectListItem{
			Project:  p,
			Counts:   ProjectCounts{TeamMembers: members[p.ID], Interests: interests[p.ID]},
			TeamSize: models.TeamSize(members[p.ID]),
		}
	}
	return items, nil
}

// Get returns a project with its creator, team, counts and the caller's relationship to it.
// Interest messages are only included for the owner.
func (s *ProjectService) Get(ctx context.Context, id, callerID uint) (*ProjectDetail, error) {
	project, err := loadAuthorizedProject(ctx, s.db, callerID, id, OpReadProject)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	query := db.
		Preload("Creator", models.SelectUserSummary).
		Preload("TeamMembers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("joined_at ASC").Order("id ASC")
		}).
		Preload("TeamMembers.User", models.SelectUserSummary)

	owner := project.IsOwnedBy(callerID)
	if owner {
		query = query.
			Preload("Interests", func(tx *gorm.DB) *gorm.DB {
				return tx.Order("created_at DESC").Order("id DESC")
			}).
			Preload("Interests.User", models.SelectUserSummary)
	}
	if err := query.First(project, id).Error; err != nil {
		return nil, fmt.Errorf("load project %d: %w", id, err)
	}

	var interestCount int64
	if err := db.Model(&models.ProjectInterest{}).Where("project_id = ?", id).Count(&interestCount).Error; err != nil {
		return nil, fmt.Errorf("count interests: %w", err)
	}

	viewer := ViewerState{IsOwner: owner}
	memberCount := int64(len(project.TeamMembers))
	for _, m := range project.TeamMembers {
		if m.UserID == callerID {
			viewer.IsMember = true
			break
		}
	}
	if !owner && !viewer.IsMember {
		viewer.HasPendingInterest, err = hasPendingInterest(db, id, callerID)
		if err != nil {
			return nil, fmt.Errorf("check pending interest: %w", err)
		}
	}

	return &ProjectDetail{
		Project:  project,
		Counts:   ProjectCounts{TeamMembers: memberCount, Interests: interestCount},
		TeamSize: models.TeamSize(memberCount),
		Viewer:   viewer,
	}, nil
}

// Create stores a new active project owned by userID
func (s *ProjectService) Create(ctx context.Context, userID uint, req *CreateProjectRequest) (*models.Project, error) {
	if userID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}

	teamSize := normalizeTeamSize(req.EstimatedTeamSize)
	for _, check := range []error{
		validateTitle(req.Title),
		validateDescription(req.Description),
		validateGithubURL(strings.TrimSpace(req.GithubURL)),
		validateTeamSize(teamSize),
	} {
		if check != nil {
			return nil, check
		}
	}

	project := models.Project{
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		TechStack:         utils.TrimAll(req.TechStack),
		Tags:              utils.TrimAll(req.Tags),
		GithubURL:         optionalText(req.GithubURL),
		EstimatedTeamSize: teamSize,
		Status:            models.ProjectStatusActive,
		Goals:             optionalText(req.Goals),
		Requirements:      optionalText(req.Requirements),
		CreatedBy:         userID,
	}

	db := s.db.WithContext(ctx)
	if err := db.Create(&project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if err := db.Preload("Creator", models.SelectUserSummary).First(&project, project.ID).Error; err != nil {
		return nil, fmt.Errorf("reload project: %w", err)
	}

	metrics.RecordProjectEvent("created")
	LogInfo("Project", "Create", fmt.Sprintf("Project %q created", project.Title), &userID, "", "", map[string]uint{"projectId": project.ID})
	return &project, nil
}

// Update applies a partial update from the owner
func (s *ProjectService) Update(ctx context.Context, id, callerID uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := loadAuthorizedProject(ctx, s.db, callerID, id, OpUpdateProject)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := map[string]interface{}{"updated_at": time.Now()}

	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return nil, err
		}
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.TechStack != nil {
		updates["tech_stack"] = datatypes.JSONSlice[string](utils.TrimAll(req.TechStack))
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](utils.TrimAll(req.Tags))
	}
	if req.GithubURL != nil {
		url := strings.TrimSpace(*req.GithubURL)
		if err := validateGithubURL(url); err != nil {
			return nil, err
		}
		updates["github_url"] = optionalText(url)
	}
	if req.EstimatedTeamSize != nil {
		size := normalizeTeamSize(req.EstimatedTeamSize)
		if err := validateTeamSize(size); err != nil {
			return nil, err
		}
		if size != nil {
			members, err := countMembers(db, id)
			if err != nil {
				return nil, fmt.Errorf("count team members: %w", err)
			}
			if current := models.TeamSize(members); int64(*size) < current {
				return nil, response.NewBadRequest(fmt.Sprintf("Team size cannot be smaller than the current team (%d members)", current))
			}
		}
		updates["estimated_team_size"] = size
	}
	if req.Status != nil {
		status, ok := models.NormalizeProjectStatus(*req.Status)
		if !ok {
			return nil, response.NewBadRequest("Invalid status")
		}
		updates["status"] = status
	}
	if req.Goals != nil {
		updates["goals"] = optionalText(*req.Goals)
	}
	if req.Requirements != nil {
		updates["requirements"] = optionalText(*req.Requirements)
	}

	if err := db.Model(project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	if err := db.Preload("Creator", models.SelectUserSummary).First(project, id).Error; err != nil {
		return nil, fmt.Errorf("reload project %d: %w", id, err)
	}

	metrics.RecordProjectEvent("updated")
	return project, nil
}

// Delete removes a project together with its interests and team members
func (s *ProjectService) Delete(ctx context.Context, id, callerID uint) error {
	project, err := loadAuthorizedProject(ctx, s.db, callerID, id, OpDeleteProject)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectInterest{}).Error; err != nil {
			return fmt.Errorf("delete interests: %w", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return fmt.Errorf("delete team members: %w", err)
		}
		result := tx.Delete(&models.Project{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete project: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return response.NewNotFound(msgProjectNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordProjectEvent("deleted")
	LogInfo("Project", "Delete", fmt.Sprintf("Project %q deleted", project.Title), &callerID, "", "", map[string]uint{"projectId": id})
	return nil
}

// UpdateStatus moves a project to another status. Any transition between known statuses is allowed.
func (s *ProjectService) UpdateStatus(ctx context.Context, callerID uint, req *UpdateStatusRequest) (*models.Project, error) {
	status, ok := models.NormalizeProjectStatus(req.Status)
	if !ok {
		return nil, response.NewBadRequest("Invalid status. Must be one of: " + strings.Join(models.ProjectStatuses, ", "))
	}

	project, err := loadAuthorizedProject(ctx, s.db, callerID, req.ProjectID, OpChangeStatus)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(project).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}
	if err := db.Preload("Creator", models.SelectUserSummary).First(project, project.ID).Error; err != nil {
		return nil, fmt.Errorf("reload project %d: %w", project.ID, err)
	}

	metrics.RecordProjectEvent("status_" + status)
	return project, nil
}
