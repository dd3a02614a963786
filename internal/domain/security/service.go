package security

import "strings"

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Service interface {
	List(email string, limit int) ([]Event, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// List returns recent events, newest first. A non-positive limit means the
// default page size and larger limits are capped.
func (s *service) List(email string, limit int) ([]Event, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	events, err := s.repo.List(strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}
