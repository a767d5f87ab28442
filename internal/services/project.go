package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// ProjectService encapsulates project and membership use-cases.
type ProjectService struct {
	*CRUDService[types.Project]
	repo    *store.ProjectRepository
	members *store.MemberRepository
	users   *store.UserRepository
	events  EventPublisher
}

func NewProjectService(repo *store.ProjectRepository, members *store.MemberRepository, users *store.UserRepository, events EventPublisher) *ProjectService {
	return &ProjectService{
		CRUDService: NewCRUDService[types.Project]("Project", repo),
		repo:        repo,
		members:     members,
		users:       users,
		events:      events,
	}
}

// CreateForOwner creates a project and the owner's accepted membership
// in one transaction.
func (s *ProjectService) CreateForOwner(ctx context.Context, ownerID int, name, description string) (types.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Project{}, apperr.Validation("invalid project", apperr.Detail{
			Field: "name", Reason: "name is required", Code: "required",
		})
	}
	return s.repo.CreateWithOwner(ctx, name, description, ownerID)
}

// ListForUser pages through the projects the user is an accepted
// member of.
func (s *ProjectService) ListForUser(ctx context.Context, userID int, page pagination.Request) ([]types.Project, pagination.Meta, error) {
	projects, total, err := s.repo.ListForUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return projects, pagination.NewMeta(page.Page, page.Limit, total), nil
}

// Invite adds a user to the project in "invited" state. Inviting an
// existing member (or re-inviting) is a conflict.
func (s *ProjectService) Invite(ctx context.Context, projectID, actorID, userID int) (types.ProjectMember, error) {
	project, err := s.GetOrFail(ctx, projectID)
	if err != nil {
		return types.ProjectMember{}, err
	}
	if _, found, err := s.users.FindByID(ctx, userID); err != nil {
		return types.ProjectMember{}, err
	} else if !found {
		return types.ProjectMember{}, apperr.NotFound("User with ID %d not found", userID)
	}
	if _, exists, err := s.members.FindMembership(ctx, projectID, userID); err != nil {
		return types.ProjectMember{}, err
	} else if exists {
		return types.ProjectMember{}, apperr.Conflict("user %d is already a member of project %d", userID, projectID)
	}

	member, err := s.members.Create(ctx, store.Values{
		"project_id": projectID,
		"user_id":    userID,
		"status":     types.MemberInvited,
	})
	if err != nil {
		return types.ProjectMember{}, err
	}

	publish(ctx, s.events, types.Event{
		ID:           uuid.NewString(),
		Kind:         types.EventMemberInvited,
		ProjectID:    projectID,
		ActorID:      actorID,
		TargetUserID: userID,
		Message:      fmt.Sprintf("You were invited to project %q", project.Name),
		OccurredAt:   time.Now(),
	})
	return member, nil
}

// AcceptInvite flips the caller's invitation to accepted. Accepting an
// already-accepted membership is a no-op.
func (s *ProjectService) AcceptInvite(ctx context.Context, projectID, userID int) (types.ProjectMember, error) {
	project, err := s.GetOrFail(ctx, projectID)
	if err != nil {
		return types.ProjectMember{}, err
	}
	member, found, err := s.members.FindMembership(ctx, projectID, userID)
	if err != nil {
		return types.ProjectMember{}, err
	}
	if !found {
		return types.ProjectMember{}, apperr.NotFound("no invitation for project %d", projectID)
	}
	if member.Status == types.MemberAccepted {
		return member, nil
	}

	member, accepted, err := s.members.Update(ctx, member.ID, store.Values{"status": types.MemberAccepted})
	if err != nil {
		return types.ProjectMember{}, err
	}
	if !accepted {
		return types.ProjectMember{}, apperr.NotFound("no invitation for project %d", projectID)
	}

	publish(ctx, s.events, types.Event{
		ID:           uuid.NewString(),
		Kind:         types.EventMemberAccepted,
		ProjectID:    projectID,
		ActorID:      userID,
		TargetUserID: project.OwnerID,
		Message:      fmt.Sprintf("Your invitation to project %q was accepted", project.Name),
		OccurredAt:   time.Now(),
	})
	return member, nil
}

// Members lists the project's live memberships.
func (s *ProjectService) Members(ctx context.Context, projectID int) ([]types.ProjectMember, error) {
	if _, err := s.GetOrFail(ctx, projectID); err != nil {
		return nil, err
	}
	return s.members.FindAll(ctx, store.ListOptions{
		Where:     store.Values{"project_id": projectID},
		SortBy:    "created_at",
		SortOrder: "ASC",
	})
}

// RemoveMember drops a user from the project. The owner's membership
// cannot be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID int) error {
	project, err := s.GetOrFail(ctx, projectID)
	if err != nil {
		return err
	}
	if userID == project.OwnerID {
		return apperr.Validation("invalid member removal", apperr.Detail{
			Field: "user_id", Reason: "the project owner cannot be removed", Code: "owner_immutable",
		})
	}
	member, found, err := s.members.FindMembership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("user %d is not a member of project %d", userID, projectID)
	}
	removed, err := s.members.SoftDelete(ctx, member.ID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("user %d is not a member of project %d", userID, projectID)
	}
	return nil
}
