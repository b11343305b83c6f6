package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	"github.com/angelmondragon/ordercore-backend/internal/history"
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
	pkgredis "github.com/angelmondragon/ordercore-backend/pkg/redis"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

const remarkPaymentCompleted = "payment completed"

// Service is the payment reconciliation engine.
type Service interface {
	Pay(ctx context.Context, actor types.Actor, orderID uuid.UUID, input PayInput) (*PayResult, error)
	Checkout(ctx context.Context, actor types.Actor, orderID uuid.UUID, input CheckoutInput) (*ecpay.Checkout, error)
	HandleCallback(ctx context.Context, form url.Values) string
	ReturnRedirect(ctx context.Context, form url.Values) string
	List(ctx context.Context, actor types.Actor, params ListParams) (*PaymentList, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.Payment, error)
}

// Gateway is the ECPay surface the engine depends on.
type Gateway interface {
	NewTradeNo() (string, error)
	Checkout(req ecpay.CheckoutRequest) (*ecpay.Checkout, error)
	Verify(form url.Values) error
	MerchantID() string
	ResultPageURL() string
}

// CallbackGuard short-circuits redelivered gateway notices.
type CallbackGuard interface {
	Claim(ctx context.Context, tradeNo string) (pkgredis.ClaimState, error)
	Complete(ctx context.Context, tradeNo string) error
	Release(ctx context.Context, tradeNo string) error
}

// Emitter queues outbox events; EmitOnce is used for events that must not repeat per aggregate.
type Emitter interface {
	outbox.Emitter
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Metrics observes payment outcomes.
type Metrics interface {
	PaymentRecorded(method string)
	CallbackHandled(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) PaymentRecorded(string) {}
func (noopMetrics) CallbackHandled(string) {}

// Callback outcomes reported to metrics and logs.
const (
	OutcomePaid             = "paid"
	OutcomeFailed           = "failed"
	OutcomeDuplicate        = "duplicate"
	OutcomeInFlight         = "in_flight"
	OutcomeIgnored          = "ignored"
	OutcomeSignatureInvalid = "signature_invalid"
	OutcomeRejected         = "rejected"
	OutcomeError            = "error"
)

// PayInput is the body of POST /payments/{order_id}.
type PayInput struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

// PayResult is returned by a direct payment.
type PayResult struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	OrderID   uuid.UUID           `json:"order_id"`
	Amount    decimal.Decimal     `json:"amount"`
	Status    enums.PaymentStatus `json:"status"`
}

// CheckoutInput is the body of POST /payments/ecpay/{order_id}.
type CheckoutInput struct {
	ClientBackURL string `json:"client_back_url,omitempty" validate:"omitempty,url"`
}

// ListParams filters GET /payments.
type ListParams struct {
	OrderID *uuid.UUID
	Status  string
	Page    pagination.PageParams
}

// PaymentList is one page of payments.
type PaymentList struct {
	Items []models.Payment `json:"items"`
	pagination.PageMeta
}

// ServiceParams wires the engine.
type ServiceParams struct {
	Repo     Repository
	Tx       db.TxRunner
	Tracker  history.Tracker
	Notifier notifications.Notifier
	Audit    audit.Recorder
	Outbox   Emitter
	Gateway  Gateway
	Guard    CallbackGuard
	Metrics  Metrics
	Logger   *logger.Logger
	Config   config.OrdersConfig
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	tracker  history.Tracker
	notifier notifications.Notifier
	audit    audit.Recorder
	outbox   Emitter
	gateway  Gateway
	guard    CallbackGuard
	metrics  Metrics
	logg     *logger.Logger
	method   enums.PaymentMethod
	now      func() time.Time
}

// NewService builds the engine. Guard and Metrics are optional.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
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
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Metrics == nil {
		p.Metrics = noopMetrics{}
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	method := enums.PaymentMethodMock
	if p.Config.DefaultPaymentLabel != "" {
		parsed, err := enums.ParsePaymentMethod(p.Config.DefaultPaymentLabel)
		if err != nil {
			return nil, fmt.Errorf("default payment method: %w", err)
		}
		method = parsed
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		tracker:  p.Tracker,
		notifier: p.Notifier,
		audit:    p.Audit,
		outbox:   p.Outbox,
		gateway:  p.Gateway,
		guard:    p.Guard,
		metrics:  p.Metrics,
		logg:     p.Logger,
		method:   method,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Pay settles a pending order without a gateway round trip.
func (s *service) Pay(ctx context.Context, actor types.Actor, orderID uuid.UUID, input PayInput) (*PayResult, error) {
	method := s.method
	if raw := strings.TrimSpace(input.PaymentMethod); raw != "" {
		parsed, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
				WithDetails(map[string]string{"payment_method": raw})
		}
		method = parsed
	}
	if method == enums.PaymentMethodECPay {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ecpay payments go through the checkout endpoint").
			WithDetails(map[string]string{"payment_method": method.String()})
	}

	var result *PayResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadPendingOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}

		now := s.now()
		payment := &models.Payment{
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			Status:        enums.PaymentStatusSuccess,
			PaymentMethod: method,
			PaidAt:        &now,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		applied, err := s.markOrderPaid(ctx, tx, order, actor.Operator())
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}
		if err := s.afterPaid(ctx, tx, actor, order, payment, nil); err != nil {
			return err
		}

		result = &PayResult{PaymentID: payment.ID, OrderID: order.ID, Amount: payment.Amount, Status: payment.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded(method.String())
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order paid directly")
	return result, nil
}

// Checkout issues a merchant trade number and the signed AIO form for a pending order.
func (s *service) Checkout(ctx context.Context, actor types.Actor, orderID uuid.UUID, input CheckoutInput) (*ecpay.Checkout, error) {
	var checkout *ecpay.Checkout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadPendingOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		items, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}

		tradeNo, err := s.gateway.NewTradeNo()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue trade number")
		}
		lines := make([]ecpay.Item, 0, len(items))
		for _, item := range items {
			lines = append(lines, ecpay.Item{Name: item.ProductName, Quantity: item.Quantity})
		}
		built, err := s.gateway.Checkout(ecpay.CheckoutRequest{
			MerchantTradeNo: tradeNo,
			Amount:          order.TotalAmount,
			Items:           lines,
			OrderSN:         order.OrderSN,
			ClientBackURL:   input.ClientBackURL,
		})
		if err != nil {
			return err
		}

		payment := &models.Payment{
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			Status:        enums.PaymentStatusInitiated,
			PaymentMethod: enums.PaymentMethodECPay,
			TransactionID: &tradeNo,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "transaction_id") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "trade number already issued")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		trade := &models.GatewayTrade{
			MerchantTradeNo: tradeNo,
			OrderID:         order.ID,
			PaymentID:       payment.ID,
			Amount:          order.TotalAmount,
			Status:          enums.GatewayTradeIssued,
		}
		if err := repo.CreateTrade(ctx, trade); err != nil {
			if db.IsUniqueViolation(err, "merchant_trade_no") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "trade number already issued")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway trade")
		}

		checkout = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithTradeNo(s.logg.WithOrderID(ctx, orderID.String()), checkout.MerchantTradeNo)
	s.logg.Info(logCtx, "ecpay checkout issued")
	return checkout, nil
}

// HandleCallback reconciles a server-to-server notice and returns the
// acknowledgement body. It never fails the HTTP exchange; every problem is a
// "0|FAIL" so the gateway retries.
func (s *service) HandleCallback(ctx context.Context, form url.Values) string {
	ctx = s.logg.WithTradeNo(ctx, form.Get("MerchantTradeNo"))

	if err := s.gateway.Verify(form); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "ecpay callback rejected")
		s.metrics.CallbackHandled(OutcomeSignatureInvalid)
		return ecpay.AckFail
	}
	notice, err := ecpay.ParseNotice(form)
	if err != nil {
		s.logg.Error(ctx, "ecpay callback malformed", err)
		s.metrics.CallbackHandled(OutcomeRejected)
		return ecpay.AckFail
	}
	if notice.MerchantID != "" && notice.MerchantID != s.gateway.MerchantID() {
		s.logg.Warn(s.logg.WithField(ctx, "merchant_id", notice.MerchantID), "ecpay callback for another merchant")
		s.metrics.CallbackHandled(OutcomeRejected)
		return ecpay.AckFail
	}

	guarded := false
	if s.guard != nil && notice.Succeeded() {
		state, err := s.guard.Claim(ctx, notice.MerchantTradeNo)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback guard unavailable, falling back to database")
		case state == pkgredis.ClaimDone:
			s.metrics.CallbackHandled(OutcomeDuplicate)
			s.logg.Info(ctx, "ecpay callback already processed")
			return ecpay.AckOK
		case state == pkgredis.ClaimInFlight:
			s.metrics.CallbackHandled(OutcomeInFlight)
			s.logg.Info(ctx, "ecpay callback in flight, asking gateway to retry")
			return ecpay.AckFail
		default:
			guarded = true
		}
	}

	outcome, err := s.reconcile(ctx, notice)
	if err != nil {
		if guarded {
			if relErr := s.guard.Release(ctx, notice.MerchantTradeNo); relErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "callback guard release failed")
			}
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeGatewayProtocol) {
			s.metrics.CallbackHandled(OutcomeRejected)
		} else {
			s.metrics.CallbackHandled(OutcomeError)
		}
		s.logg.Error(ctx, "ecpay callback not applied", err)
		return ecpay.AckFail
	}

	if guarded {
		if err := s.guard.Complete(ctx, notice.MerchantTradeNo); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback guard completion failed")
		}
	}
	s.metrics.CallbackHandled(outcome)
	s.logg.Info(s.logg.WithField(ctx, "outcome", outcome), "ecpay callback handled")
	return ecpay.AckOK
}

func (s *service) reconcile(ctx context.Context, notice *ecpay.Notice) (string, error) {
	var outcome string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trade, err := repo.FindTradeForUpdate(ctx, notice.MerchantTradeNo)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeGatewayProtocol, "unknown merchant trade number")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway trade")
		}
		if notice.Succeeded() && ecpay.TradeAmount(trade.Amount) != notice.TradeAmt {
			return pkgerrors.New(pkgerrors.CodeGatewayProtocol, "trade amount mismatch").
				WithDetails(map[string]any{"expected": ecpay.TradeAmount(trade.Amount), "received": notice.TradeAmt})
		}
		payment, err := repo.FindPayment(ctx, trade.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		order, err := repo.FindOrderForUpdate(ctx, trade.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		owner := types.Actor{UserID: order.UserID, Username: "ecpay"}

		if !notice.Succeeded() {
			outcome, err = s.applyFailure(ctx, tx, repo, owner, order, payment, trade, notice)
			return err
		}
		outcome, err = s.applySuccess(ctx, tx, repo, owner, order, payment, trade, notice)
		return err
	})
	return outcome, err
}

func (s *service) applySuccess(ctx context.Context, tx *gorm.DB, repo Repository, owner types.Actor, order *models.Order, payment *models.Payment, trade *models.GatewayTrade, notice *ecpay.Notice) (string, error) {
	paidAt, ok := notice.PaidAt()
	if !ok {
		paidAt = s.now()
	}
	changed, err := repo.MarkPaymentSuccess(ctx, payment.ID, paidAt)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
	}
	if !changed {
		return OutcomeDuplicate, nil
	}
	payment.Status = enums.PaymentStatusSuccess
	payment.PaidAt = &paidAt

	if err := repo.UpdateTrade(ctx, trade.ID, tradeUpdates(enums.GatewayTradePaid, notice)); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update gateway trade")
	}

	if !trade.Amount.Equal(order.TotalAmount) {
		// The order total moved after the trade was issued; the captured amount
		// does not settle it.
		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      owner,
			Action:     enums.AuditPaymentIgnored,
			TargetType: audit.TargetPayment,
			TargetID:   payment.ID.String(),
			Content: fmt.Sprintf("trade %s paid %s but order %s totals %s",
				trade.MerchantTradeNo, trade.Amount.StringFixed(2), order.OrderSN, order.TotalAmount.StringFixed(2)),
		}); err != nil {
			return "", err
		}
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "ecpay trade amount differs from order total")
		return OutcomeIgnored, nil
	}

	applied, err := s.markOrderPaid(ctx, tx, order, owner.Operator())
	if err != nil {
		return "", err
	}
	if !applied {
		// Money was captured for an order that already left pending; keep the
		// payment and leave the order for manual review.
		if err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      owner,
			Action:     enums.AuditPaymentIgnored,
			TargetType: audit.TargetPayment,
			TargetID:   payment.ID.String(),
			Content:    fmt.Sprintf("trade %s paid while order %s was %s", trade.MerchantTradeNo, order.OrderSN, order.Status),
		}); err != nil {
			return "", err
		}
		return OutcomeIgnored, nil
	}

	if err := s.afterPaid(ctx, tx, owner, order, payment, &trade.MerchantTradeNo); err != nil {
		return "", err
	}
	return OutcomePaid, nil
}

func (s *service) applyFailure(ctx context.Context, tx *gorm.DB, repo Repository, owner types.Actor, order *models.Order, payment *models.Payment, trade *models.GatewayTrade, notice *ecpay.Notice) (string, error) {
	changed, err := repo.MarkPaymentFailed(ctx, payment.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	if !changed {
		return OutcomeDuplicate, nil
	}
	if err := repo.UpdateTrade(ctx, trade.ID, tradeUpdates(enums.GatewayTradeFailed, notice)); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update gateway trade")
	}

	link := "/orders/" + order.ID.String()
	if _, err := s.notifier.Notify(ctx, tx, notifications.Input{
		UserID:  order.UserID,
		Type:    enums.NotificationTypePaymentFailed,
		Title:   "Payment failed",
		Content: fmt.Sprintf("Payment for order %s failed: %s", order.OrderSN, notice.RtnMsg),
		Link:    &link,
	}); err != nil {
		return "", err
	}
	if err := s.audit.Record(ctx, tx, audit.Entry{
		Actor:      owner,
		Action:     enums.AuditPaymentFailed,
		TargetType: audit.TargetPayment,
		TargetID:   payment.ID.String(),
		Content:    fmt.Sprintf("trade %s failed with code %d", trade.MerchantTradeNo, notice.RtnCode),
	}); err != nil {
		return "", err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentFailedEvent{
			OrderID:         order.ID,
			PaymentID:       payment.ID,
			MerchantTradeNo: trade.MerchantTradeNo,
			RtnCode:         notice.RtnCode,
			RtnMsg:          notice.RtnMsg,
		},
	}); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment failed")
	}
	return OutcomeFailed, nil
}

// ReturnRedirect maps the browser auto-return post to the frontend result page.
// It performs no writes.
func (s *service) ReturnRedirect(ctx context.Context, form url.Values) string {
	query := url.Values{}
	rtnCode := "0"
	orderSN := ""

	if err := s.gateway.Verify(form); err != nil {
		s.logg.Warn(s.logg.WithTradeNo(ctx, form.Get("MerchantTradeNo")), "ecpay return signature mismatch")
	} else if notice, err := ecpay.ParseNotice(form); err == nil {
		rtnCode = fmt.Sprintf("%d", notice.RtnCode)
		orderSN = notice.CustomField1
		if trade, err := s.repo.FindTrade(ctx, notice.MerchantTradeNo); err == nil {
			if order, err := s.repo.FindOrder(ctx, trade.OrderID); err == nil {
				orderSN = order.OrderSN
			}
		}
	}

	if orderSN != "" {
		query.Set("order_sn", orderSN)
	}
	query.Set("rtn_code", rtnCode)
	return s.gateway.ResultPageURL() + "?" + query.Encode()
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*PaymentList, error) {
	filter := ListFilter{OrderID: params.OrderID}
	if !actor.IsAdmin() {
		if actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		owner := actor.UserID
		filter.OwnerID = &owner
	}
	if params.Status != "" {
		status, err := enums.ParsePaymentStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
				WithDetails(map[string]string{"status": params.Status})
		}
		filter.Status = &status
	}

	rows, total, err := s.repo.List(ctx, filter, params.Page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	if rows == nil {
		rows = []models.Payment{}
	}
	return &PaymentList{Items: rows, PageMeta: pagination.NewPageMeta(params.Page, total)}, nil
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindPayment(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if actor.IsAdmin() {
		return payment, nil
	}
	order, err := s.repo.FindOrder(ctx, payment.OrderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil || !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to user")
	}
	return payment, nil
}

func (s *service) loadPendingOrder(ctx context.Context, repo Repository, actor types.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").
			WithDetails(map[string]any{"status": order.Status})
	}
	return order, nil
}

func (s *service) markOrderPaid(ctx context.Context, tx *gorm.DB, order *models.Order, operator string) (bool, error) {
	paid := enums.OrderPaymentPaid
	return s.tracker.Record(ctx, tx, history.Transition{
		OrderID:       order.ID,
		From:          []enums.OrderStatus{enums.OrderStatusPending},
		To:            enums.OrderStatusPaid,
		Operator:      operator,
		Remark:        remarkPaymentCompleted,
		PaymentStatus: &paid,
	})
}

// afterPaid writes the side effects of a settled order inside the same transaction.
func (s *service) afterPaid(ctx context.Context, tx *gorm.DB, actor types.Actor, order *models.Order, payment *models.Payment, tradeNo *string) error {
	link := "/orders/" + order.ID.String()
	if _, err := s.notifier.Notify(ctx, tx, notifications.Input{
		UserID:  order.UserID,
		Type:    enums.NotificationTypePaymentSuccess,
		Title:   "Payment received",
		Content: fmt.Sprintf("Order %s has been paid (%s)", order.OrderSN, payment.Amount.StringFixed(2)),
		Link:    &link,
	}); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, tx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditPaymentSuccess,
		TargetType: audit.TargetOrder,
		TargetID:   order.ID.String(),
		Content:    fmt.Sprintf("order %s paid via %s", order.OrderSN, payment.PaymentMethod),
	}); err != nil {
		return err
	}
	paidAt := s.now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	if err := s.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String(), Username: actor.Username},
		Data: payloads.OrderPaidEvent{
			OrderID:         order.ID,
			OrderSN:         order.OrderSN,
			UserID:          order.UserID,
			PaymentID:       payment.ID,
			Amount:          payment.Amount,
			PaymentMethod:   payment.PaymentMethod,
			MerchantTradeNo: tradeNo,
			PaidAt:          paidAt,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
	}
	return nil
}

func tradeUpdates(status enums.GatewayTradeStatus, notice *ecpay.Notice) map[string]any {
	updates := map[string]any{
		"status":   status,
		"rtn_code": notice.RtnCode,
		"rtn_msg":  notice.RtnMsg,
	}
	if notice.TradeNo != "" {
		updates["gateway_trade_no"] = notice.TradeNo
	}
	return updates
}
