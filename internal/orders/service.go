package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/internal/history"
	"github.com/angelmondragon/ordercore-backend/internal/inventory"
	"github.com/angelmondragon/ordercore-backend/internal/notifications"
	"github.com/angelmondragon/ordercore-backend/pkg/config"
	"github.com/angelmondragon/ordercore-backend/pkg/db"
	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/logger"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

const remarkOrderCreated = "order created"

// Service defines the order builder and order lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID, opts GetOptions) (*models.Order, error)
	GetBySN(ctx context.Context, actor types.Actor, orderSN string, opts GetOptions) (*models.Order, error)
	Timeline(ctx context.Context, actor types.Actor, id uuid.UUID) ([]models.OrderHistory, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*OrderList, error)
	Update(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor types.Actor, input BatchStatusInput) (*BatchStatusResult, error)
	Delete(ctx context.Context, actor types.Actor, id uuid.UUID) error
}

// ServiceParams wires the collaborators of the order service.
type ServiceParams struct {
	Repo     Repository
	Tx       db.TxRunner
	Ledger   inventory.Ledger
	Tracker  history.Tracker
	Notifier notifications.Notifier
	Audit    audit.Recorder
	Outbox   outbox.Emitter
	Metrics  Metrics
	Logger   *logger.Logger
	Config   config.OrdersConfig
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	ledger   inventory.Ledger
	tracker  history.Tracker
	notifier notifications.Notifier
	audit    audit.Recorder
	outbox   outbox.Emitter
	metrics  Metrics
	logg     *logger.Logger
	cfg      config.OrdersConfig
	now      func() time.Time
	serial   func(now time.Time) string
}

// NewService builds the order service with the required dependencies.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if p.Tracker == nil {
		return nil, fmt.Errorf("history tracker required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Metrics == nil {
		p.Metrics = noopMetrics{}
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Config.SerialPrefix == "" {
		p.Config.SerialPrefix = "ORD"
	}
	if p.Config.SerialMaxAttempts <= 0 {
		p.Config.SerialMaxAttempts = 5
	}
	prefix := p.Config.SerialPrefix
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		ledger:   p.Ledger,
		tracker:  p.Tracker,
		notifier: p.Notifier,
		audit:    p.Audit,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
		logg:     p.Logger,
		cfg:      p.Config,
		now:      func() time.Time { return time.Now().UTC() },
		serial:   func(now time.Time) string { return NewSerial(prefix, now) },
	}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateInput) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	shippingFee := decimal.Zero
	if input.ShippingFee != nil {
		shippingFee = input.ShippingFee.Round(2)
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		lines, subtotal, err := s.buildLines(ctx, repo, input.Items)
		if err != nil {
			return err
		}
		orderSN, err := s.nextSerial(ctx, repo)
		if err != nil {
			return err
		}

		order := &models.Order{
			OrderSN:         orderSN,
			UserID:          actor.UserID,
			CustomerID:      input.CustomerID,
			TotalAmount:     subtotal.Add(shippingFee),
			ShippingFee:     shippingFee,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.OrderPaymentUnpaid,
			ReceiverName:    strings.TrimSpace(input.ReceiverName),
			ReceiverPhone:   strings.TrimSpace(input.ReceiverPhone),
			ShippingAddress: strings.TrimSpace(input.ShippingAddress),
			Remark:          trimmedOrNil(input.Remark),
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_sn") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order serial already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		remark := remarkOrderCreated
		first := &models.OrderHistory{
			OrderID:  order.ID,
			Status:   enums.OrderStatusPending,
			Operator: actor.Operator(),
			Remark:   &remark,
		}
		if err := s.tracker.Append(ctx, tx, first); err != nil {
			return err
		}

		if err := s.deductLines(ctx, tx, lines); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditOrderCreate,
			TargetType: audit.TargetOrder,
			TargetID:   order.ID.String(),
			Content:    fmt.Sprintf("created order %s total %s", order.OrderSN, order.TotalAmount.StringFixed(2)),
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderSN:     order.OrderSN,
				UserID:      order.UserID,
				TotalAmount: order.TotalAmount,
				Items:       orderLines(lines),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		order.Items = lines
		order.Histories = []models.OrderHistory{*first}
		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			s.metrics.StockRejected()
		}
		return nil, err
	}

	s.metrics.OrderCreated()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": created.ID.String(),
		"order_sn": created.OrderSN,
		"total":    created.TotalAmount.StringFixed(2),
	})
	s.logg.Info(logCtx, "order created")
	return created, nil
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID, opts GetOptions) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id, opts)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) GetBySN(ctx context.Context, actor types.Actor, orderSN string, opts GetOptions) (*models.Order, error) {
	orderSN = strings.TrimSpace(orderSN)
	if orderSN == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order serial required")
	}
	order, err := s.repo.FindBySN(ctx, orderSN, opts)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) Timeline(ctx context.Context, actor types.Actor, id uuid.UUID) ([]models.OrderHistory, error) {
	if _, err := s.Get(ctx, actor, id, GetOptions{}); err != nil {
		return nil, err
	}
	return s.tracker.Timeline(ctx, id)
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*OrderList, error) {
	filters := ListFilters{
		DateStart: params.DateStart,
		DateEnd:   params.DateEnd,
		Keyword:   params.Keyword,
		SortBy:    strings.ToLower(strings.TrimSpace(params.SortBy)),
		SortOrder: strings.ToLower(strings.TrimSpace(params.SortOrder)),
	}
	if !actor.IsAdmin() {
		if actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		self := actor.UserID
		filters.UserID = &self
	}
	if params.Status != "" {
		status, err := enums.ParseOrderStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
				WithDetails(map[string]string{"status": params.Status})
		}
		filters.Status = &status
	}
	if filters.SortBy != "" {
		if _, ok := sortColumns[filters.SortBy]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort_by").
				WithDetails(map[string]string{"sort_by": params.SortBy})
		}
	}
	if filters.SortOrder != "" && filters.SortOrder != "asc" && filters.SortOrder != "desc" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort_order").
			WithDetails(map[string]string{"sort_order": params.SortOrder})
	}
	if filters.DateStart != nil && filters.DateEnd != nil && filters.DateEnd.Before(*filters.DateStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date_end before date_start")
	}

	rows, total, err := s.repo.List(ctx, filters, params.Page, params.IncludeItems)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	if rows == nil {
		rows = []models.Order{}
	}
	return &OrderList{Items: rows, PageMeta: pagination.NewPageMeta(params.Page, total)}, nil
}

func (s *service) Update(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateInput) (*models.Order, error) {
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, actor, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		var changed []string
		if input.ReceiverName != nil {
			updates["receiver_name"] = strings.TrimSpace(*input.ReceiverName)
			changed = append(changed, "receiver_name")
		}
		if input.ReceiverPhone != nil {
			updates["receiver_phone"] = strings.TrimSpace(*input.ReceiverPhone)
			changed = append(changed, "receiver_phone")
		}
		if input.ShippingAddress != nil {
			updates["shipping_address"] = strings.TrimSpace(*input.ShippingAddress)
			changed = append(changed, "shipping_address")
		}
		if input.Remark != nil {
			updates["remark"] = trimmedOrNil(input.Remark)
			changed = append(changed, "remark")
		}

		total := order.TotalAmount
		if input.Items != nil {
			if order.Status != enums.OrderStatusPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "items can only change while the order is pending").
					WithDetails(map[string]any{"status": order.Status})
			}
			if err := s.ensureNoOpenCheckout(ctx, repo, order.ID); err != nil {
				return err
			}
			subtotal, err := s.replaceItems(ctx, tx, repo, order.ID, *input.Items)
			if err != nil {
				return err
			}
			total = subtotal.Add(order.ShippingFee)
			updates["total_amount"] = total
			changed = append(changed, "items")
		}

		updates["updated_at"] = s.now()
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditOrderUpdate,
			TargetType: audit.TargetOrder,
			TargetID:   order.ID.String(),
			Content:    fmt.Sprintf("updated order %s: %s", order.OrderSN, strings.Join(changed, ", ")),
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderUpdatedEvent{
				OrderID:       order.ID,
				OrderSN:       order.OrderSN,
				ChangedFields: changed,
				TotalAmount:   total,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order updated")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			s.metrics.StockRejected()
		}
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, id, GetOptions{IncludeItems: true, IncludeHistory: true})
	if err != nil {
		return nil, mapLoadError(err)
	}
	return order, nil
}

func (s *service) Delete(ctx context.Context, actor types.Actor, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadForUpdate(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.OrderPaymentPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "paid orders cannot be deleted").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}
		settled, err := repo.HasSuccessfulPayment(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payments")
		}
		if settled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has a settled payment")
		}
		if err := s.ensureNoOpenCheckout(ctx, repo, order.ID); err != nil {
			return err
		}

		restocked := false
		if order.Status == enums.OrderStatusPending {
			if err := s.restockOrder(ctx, tx, repo, order.ID); err != nil {
				return err
			}
			restocked = true
		}

		if err := repo.DeleteCascade(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}

		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditOrderDelete,
			TargetType: audit.TargetOrder,
			TargetID:   order.ID.String(),
			Content:    fmt.Sprintf("deleted order %s (%s)", order.OrderSN, order.Status),
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderDeletedEvent{
				OrderID:   order.ID,
				OrderSN:   order.OrderSN,
				Status:    order.Status,
				Restocked: restocked,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order deleted")
		}
		return nil
	})
}

// buildLines loads the referenced products and snapshots name and effective price.
func (s *service) buildLines(ctx context.Context, repo Repository, items []ItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	subtotal := decimal.Zero
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if !product.IsActive {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		line := models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.EffectivePrice(),
			Quantity:    item.Quantity,
		}
		subtotal = subtotal.Add(line.Subtotal())
		lines = append(lines, line)
	}
	return lines, subtotal, nil
}

// deductLines takes stock in product id order so concurrent orders lock rows in the same sequence.
func (s *service) deductLines(ctx context.Context, tx *gorm.DB, lines []models.OrderItem) error {
	ordered := make([]models.OrderItem, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ProductID.String() < ordered[j].ProductID.String()
	})
	for _, line := range ordered {
		if err := s.ledger.Deduct(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) restockOrder(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID) error {
	items, err := repo.FindItems(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	for _, item := range items {
		if err := s.ledger.Restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) replaceItems(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID, items []ItemInput) (decimal.Decimal, error) {
	if err := s.restockOrder(ctx, tx, repo, orderID); err != nil {
		return decimal.Zero, err
	}
	if err := repo.DeleteItems(ctx, orderID); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order items")
	}
	lines, subtotal, err := s.buildLines(ctx, repo, items)
	if err != nil {
		return decimal.Zero, err
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	if err := repo.CreateItems(ctx, lines); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}
	if err := s.deductLines(ctx, tx, lines); err != nil {
		return decimal.Zero, err
	}
	return subtotal, nil
}

// nextSerial draws serials until one is free. The unique index still guards the insert.
func (s *service) nextSerial(ctx context.Context, repo Repository) (string, error) {
	for attempt := 0; attempt < s.cfg.SerialMaxAttempts; attempt++ {
		candidate := s.serial(s.now())
		exists, err := repo.SerialExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order serial")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order serial")
}

// ensureNoOpenCheckout rejects changes while the gateway may still capture the
// amount quoted at checkout.
func (s *service) ensureNoOpenCheckout(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	open, err := repo.HasOpenCheckout(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check gateway trades")
	}
	if open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has a gateway payment in progress").
			WithDetails(map[string]any{"gateway_trade_status": enums.GatewayTradeIssued})
	}
	return nil
}

func (s *service) loadForUpdate(ctx context.Context, repo Repository, actor types.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func validateCreate(input CreateInput) error {
	details := map[string]string{}
	if strings.TrimSpace(input.ReceiverName) == "" {
		details["receiver_name"] = "required"
	}
	if strings.TrimSpace(input.ReceiverPhone) == "" {
		details["receiver_phone"] = "required"
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		details["shipping_address"] = "required"
	}
	if input.ShippingFee != nil && input.ShippingFee.IsNegative() {
		details["shipping_fee"] = "must not be negative"
	}
	validateItems(input.Items, details)
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(details)
	}
	return nil
}

func validateUpdate(input UpdateInput) error {
	if input.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	details := map[string]string{}
	for field, value := range map[string]*string{
		"receiver_name":    input.ReceiverName,
		"receiver_phone":   input.ReceiverPhone,
		"shipping_address": input.ShippingAddress,
	} {
		if value != nil && strings.TrimSpace(*value) == "" {
			details[field] = "must not be blank"
		}
	}
	if input.Items != nil {
		validateItems(*input.Items, details)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order update").WithDetails(details)
	}
	return nil
}

func validateItems(items []ItemInput, details map[string]string) {
	if len(items) == 0 {
		details["items"] = "at least one item required"
		return
	}
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			details[fmt.Sprintf("items[%d].product_id", i)] = "required"
		}
		if item.Quantity < 1 {
			details[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actorRef(actor types.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String(), Username: actor.Username}
}

func orderLines(items []models.OrderItem) []payloads.OrderLine {
	out := make([]payloads.OrderLine, 0, len(items))
	for _, item := range items {
		out = append(out, payloads.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return out
}
