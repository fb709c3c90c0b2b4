package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/internal/repository"
)

type groupStore interface {
	Create(ctx context.Context, name string, creatorID int64, memberIDs []int64) (*models.Group, error)
	GetByID(ctx context.Context, groupID int64) (*models.Group, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Group, error)
	AddMember(ctx context.Context, groupID, userID int64, role string) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
	SetRole(ctx context.Context, groupID, userID int64, role string) error
}

// GroupService enforces the membership and admin rules around groups. Every
// group keeps at least one admin at all times; the creator starts as the
// sole admin and is never duplicated into the plain-member set.
type GroupService struct {
	groupRepo groupStore
}

func NewGroupService(groupRepo groupStore) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

func (s *GroupService) Create(
	ctx context.Context,
	creatorID int64,
	name string,
	memberIDs []int64,
) (*models.Group, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	// The creator goes in as the sole admin, never doubled as a plain member.
	members := make([]int64, 0, len(memberIDs))
	seen := map[int64]struct{}{creatorID: {}}
	for _, memberID := range memberIDs {
		if _, ok := seen[memberID]; ok {
			continue
		}
		seen[memberID] = struct{}{}
		members = append(members, memberID)
	}

	return s.groupRepo.Create(ctx, trimmed, creatorID, members)
}

// ListForCaller splits the caller's groups by role. Belonging to no group
// yields two empty slices, not an error.
func (s *GroupService) ListForCaller(
	ctx context.Context,
	userID int64,
) (members []models.Group, admins []models.Group, err error) {
	groups, err := s.groupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	members = make([]models.Group, 0)
	admins = make([]models.Group, 0)
	for _, group := range groups {
		if group.HasAdmin(userID) {
			admins = append(admins, group)
		} else {
			members = append(members, group)
		}
	}
	return members, admins, nil
}

func (s *GroupService) AddMember(ctx context.Context, actorID, groupID, userID int64) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(actorID) {
		return ErrForbidden
	}
	if group.HasMember(userID) {
		return ErrAlreadyMember
	}
	return s.groupRepo.AddMember(ctx, groupID, userID, repository.RoleMember)
}

func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, userID int64) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(actorID) {
		return ErrForbidden
	}
	if group.HasAdmin(userID) {
		return ErrMustDemoteFirst
	}
	if userID == actorID {
		return ErrCannotRemoveSelf
	}
	return s.groupRepo.RemoveMember(ctx, groupID, userID)
}

// Promote moves a plain member into the admin role. A user not yet in the
// group is inserted straight into it as an admin.
func (s *GroupService) Promote(ctx context.Context, actorID, groupID, userID int64) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(actorID) {
		return ErrForbidden
	}
	if group.HasAdmin(userID) {
		return ErrAlreadyAdmin
	}
	if !group.HasMember(userID) {
		return s.groupRepo.AddMember(ctx, groupID, userID, repository.RoleAdmin)
	}
	return s.groupRepo.SetRole(ctx, groupID, userID, repository.RoleAdmin)
}

// Demote moves an admin back to plain membership, refusing to drop the
// group below one admin.
func (s *GroupService) Demote(ctx context.Context, actorID, groupID, userID int64) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasAdmin(actorID) {
		return ErrForbidden
	}
	if !group.HasAdmin(userID) {
		return ErrInvalidInput
	}
	if len(group.Admins) <= 1 {
		return ErrLastAdmin
	}
	return s.groupRepo.SetRole(ctx, groupID, userID, repository.RoleMember)
}

func (s *GroupService) IsAdmin(ctx context.Context, groupID, userID int64) (bool, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	return group.HasAdmin(userID), nil
}

func (s *GroupService) getGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	if groupID <= 0 {
		return nil, ErrInvalidInput
	}
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}
