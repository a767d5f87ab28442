package services

import (
	"context"

	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// UserService encapsulates user use-cases.
type UserService struct {
	*CRUDService[types.User]
	repo *store.UserRepository
}

func NewUserService(repo *store.UserRepository) *UserService {
	return &UserService{
		CRUDService: NewCRUDService[types.User]("User", repo),
		repo:        repo,
	}
}

// FindByEmail fetches a live user by email. A miss is a value here;
// the auth handler decides whether it means "invalid credentials" or
// "free to register".
func (s *UserService) FindByEmail(ctx context.Context, email string) (types.User, bool, error) {
	return s.repo.FindByEmail(ctx, email)
}

// Search pages through users matching a name or email fragment.
func (s *UserService) Search(ctx context.Context, term string, page pagination.Request) ([]types.User, pagination.Meta, error) {
	users, total, err := s.repo.Search(ctx, term, page.Limit, page.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return users, pagination.NewMeta(page.Page, page.Limit, total), nil
}
