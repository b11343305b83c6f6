package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

const (
	TargetOrder   = "order"
	TargetPayment = "payment"
	TargetProduct = "product"
)

// Entry is one operation log line.
type Entry struct {
	Actor      types.Actor
	Action     enums.AuditAction
	TargetType string
	TargetID   string
	Content    string
}

// Recorder appends operation logs inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

// Service exposes operation log reads.
type Service interface {
	Recorder
	List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error)
}

// ListParams carries the query string filters of the log listing.
type ListParams struct {
	UserID     *uuid.UUID
	Action     string
	TargetType string
	TargetID   string
	Page       pagination.PageParams
}

// ListResult is one page of operation logs.
type ListResult struct {
	Items []models.OperationLog `json:"items"`
	pagination.PageMeta
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for operation log")
	}
	if entry.Action == "" || entry.TargetType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "operation log action and target required")
	}
	row := &models.OperationLog{
		Username:   entry.Actor.Username,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		Content:    entry.Content,
	}
	if entry.Actor.UserID != uuid.Nil {
		id := entry.Actor.UserID
		row.UserID = &id
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write operation log")
	}
	return nil
}

// List returns every log for admins; other callers only see their own entries.
func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error) {
	filter := ListFilter{
		Action:     enums.AuditAction(strings.TrimSpace(params.Action)),
		TargetType: strings.TrimSpace(params.TargetType),
		TargetID:   strings.TrimSpace(params.TargetID),
	}
	if actor.IsAdmin() {
		filter.UserID = params.UserID
	} else {
		if actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
		}
		self := actor.UserID
		filter.UserID = &self
	}

	rows, total, err := s.repo.List(ctx, filter, params.Page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list operation logs")
	}
	if rows == nil {
		rows = []models.OperationLog{}
	}
	return &ListResult{Items: rows, PageMeta: pagination.NewPageMeta(params.Page, total)}, nil
}
