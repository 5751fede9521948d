package memberships

import (
	"context"

	"carshare/internal/app/dto"
	"carshare/internal/domain/membership"
)

type ListPlansQuery struct{}

func (ListPlansQuery) Key() string { return "memberships.list" }

type Handler struct {
	Table membership.Table
}

func (h *Handler) Handle(context.Context, ListPlansQuery) (dto.MembershipPlans, error) {
	return dto.MapMembershipPlans(h.Table.Plans()), nil
}
