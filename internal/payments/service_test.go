package payments

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	"github.com/angelmondragon/ordercore-backend/internal/history"
	"github.com/angelmondragon/ordercore-backend/internal/notifications"
	"github.com/angelmondragon/ordercore-backend/pkg/config"
	"github.com/angelmondragon/ordercore-backend/pkg/db"
	"github.com/angelmondragon/ordercore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ordercore-backend/pkg/db/models"
	"github.com/angelmondragon/ordercore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/pagination"
	pkgredis "github.com/angelmondragon/ordercore-backend/pkg/redis"
	"github.com/angelmondragon/ordercore-backend/pkg/types"
)

const (
	hashKey = "pwFHCqoQZGmho4w6"
	hashIV  = "EkRm7iFT261dpevs"
)

func gatewayConfig() config.ECPayConfig {
	return config.ECPayConfig{
		MerchantID:  "3002607",
		HashKey:     hashKey,
		HashIV:      hashIV,
		EncryptType: ecpay.EncryptSHA256,
		ActionURL:   "https://payment-stage.ecpay.com.tw/Cashier/AioCheckOut/V5",
		TradePrefix: "OC",
		TradeDesc:   "ordercore payment",
		BackendURL:  "https://api.example.com",
		FrontendURL: "https://shop.example.com",
		NotifyPath:  "/api/v1/payments/ecpay/callback",
		ReturnPath:  "/api/v1/payments/ecpay/return",
		ResultPath:  "/payment/result",
	}
}

type memoryGuard struct {
	claims map[string]string
}

func (g *memoryGuard) Claim(_ context.Context, tradeNo string) (pkgredis.ClaimState, error) {
	switch g.claims[tradeNo] {
	case "":
		g.claims[tradeNo] = "processing"
		return pkgredis.ClaimAcquired, nil
	case "processed":
		return pkgredis.ClaimDone, nil
	default:
		return pkgredis.ClaimInFlight, nil
	}
}

func (g *memoryGuard) Complete(_ context.Context, tradeNo string) error {
	g.claims[tradeNo] = "processed"
	return nil
}

func (g *memoryGuard) Release(_ context.Context, tradeNo string) error {
	delete(g.claims, tradeNo)
	return nil
}

type recordingMetrics struct {
	methods  []string
	outcomes []string
}

func (m *recordingMetrics) PaymentRecorded(method string) { m.methods = append(m.methods, method) }
func (m *recordingMetrics) CallbackHandled(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

type harness struct {
	client  *db.Client
	svc     Service
	guard   *memoryGuard
	metrics *recordingMetrics
	signer  ecpay.Signer
}

func newHarness(t *testing.T, withGuard bool) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	tracker, err := history.NewTracker(conn)
	require.NoError(t, err)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	notifier, err := notifications.NewSink(notifications.NewRepository(conn), emitter)
	require.NoError(t, err)
	recorder, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	gateway, err := ecpay.NewClient(gatewayConfig())
	require.NoError(t, err)

	h := &harness{
		client:  client,
		metrics: &recordingMetrics{},
		signer:  ecpay.NewSigner(hashKey, hashIV, ecpay.EncryptSHA256),
	}
	params := ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       client,
		Tracker:  tracker,
		Notifier: notifier,
		Audit:    recorder,
		Outbox:   emitter,
		Gateway:  gateway,
		Metrics:  h.metrics,
		Config:   config.OrdersConfig{DefaultPaymentLabel: "mock"},
	}
	if withGuard {
		h.guard = &memoryGuard{claims: map[string]string{}}
		params.Guard = h.guard
	}
	h.svc, err = NewService(params)
	require.NoError(t, err)
	return h
}

func (h *harness) order(t *testing.T, owner uuid.UUID, total int64) models.Order {
	t.Helper()
	order := models.Order{
		OrderSN:         "ORD" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20],
		UserID:          owner,
		TotalAmount:     decimal.NewFromInt(total),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.OrderPaymentUnpaid,
		ReceiverName:    "Ann",
		ReceiverPhone:   "0912345678",
		ShippingAddress: "No. 1, Taipei",
	}
	require.NoError(t, h.client.DB().Create(&order).Error)
	item := models.OrderItem{OrderID: order.ID, ProductID: uuid.New(), ProductName: "Tea", Price: decimal.NewFromInt(total), Quantity: 1}
	require.NoError(t, h.client.DB().Create(&item).Error)
	return order
}

func (h *harness) reload(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, h.client.DB().First(&order, "id = ?", id).Error)
	return order
}

func (h *harness) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.client.DB().Model(model).Where(query, args...).Count(&n).Error)
	return n
}

// notice builds a signed gateway post for the given trade.
func (h *harness) notice(tradeNo string, rtnCode int, amount int64) url.Values {
	params := map[string]string{
		"MerchantID":      "3002607",
		"MerchantTradeNo": tradeNo,
		"RtnCode":         strconv.Itoa(rtnCode),
		"RtnMsg":          "Succeeded",
		"TradeNo":         "2305011003040001",
		"TradeAmt":        strconv.FormatInt(amount, 10),
		"PaymentDate":     "2026/05/01 10:05:00",
		"PaymentType":     "Credit_CreditCard",
		"SimulatePaid":    "0",
	}
	if rtnCode != ecpay.RtnCodeSuccess {
		params["RtnMsg"] = "Card declined"
	}
	params[ecpay.FieldCheckMacValue] = h.signer.Sign(params)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	return form
}

func customer() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer, Username: "buyer"}
}

func admin() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.RoleAdmin, Username: "admin"}
}

func TestPayDirectSettlesPendingOrder(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)

	res, err := h.svc.Pay(context.Background(), buyer, order.ID, PayInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, res.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(res.Amount))

	got := h.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusPaid, got.Status)
	assert.Equal(t, enums.OrderPaymentPaid, got.PaymentStatus)
	assert.EqualValues(t, 1, h.count(t, &models.OrderHistory{}, "order_id = ? AND status = ?", order.ID, enums.OrderStatusPaid))
	assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", buyer.UserID, enums.NotificationTypePaymentSuccess))
	assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderPaid))
	assert.Equal(t, []string{"mock"}, h.metrics.methods)
}

func TestPayDirectRejectsNonPendingOrder(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)

	_, err := h.svc.Pay(context.Background(), buyer, order.ID, PayInput{PaymentMethod: "cash"})
	require.NoError(t, err)

	_, err = h.svc.Pay(context.Background(), buyer, order.ID, PayInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.EqualValues(t, 1, h.count(t, &models.Payment{}, "order_id = ?", order.ID))
}

func TestPayDirectValidationAndOwnership(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	_, err := h.svc.Pay(ctx, buyer, order.ID, PayInput{PaymentMethod: "bitcoin"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Pay(ctx, buyer, order.ID, PayInput{PaymentMethod: "ecpay"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Pay(ctx, customer(), order.ID, PayInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Pay(ctx, buyer, uuid.New(), PayInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Equal(t, enums.OrderStatusPending, h.reload(t, order.ID).Status)
}

func TestCheckoutIssuesTradeAndSignedForm(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)

	checkout, err := h.svc.Checkout(context.Background(), buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)
	assert.Len(t, checkout.MerchantTradeNo, ecpay.MaxTradeNoLength)
	assert.Equal(t, "200", checkout.Params["TotalAmount"])
	assert.Equal(t, order.OrderSN, checkout.Params["CustomField1"])
	assert.True(t, h.signer.Verify(checkout.Params))

	var trade models.GatewayTrade
	require.NoError(t, h.client.DB().First(&trade, "merchant_trade_no = ?", checkout.MerchantTradeNo).Error)
	assert.Equal(t, enums.GatewayTradeIssued, trade.Status)

	var payment models.Payment
	require.NoError(t, h.client.DB().First(&payment, "id = ?", trade.PaymentID).Error)
	assert.Equal(t, enums.PaymentStatusInitiated, payment.Status)
	assert.Equal(t, enums.PaymentMethodECPay, payment.PaymentMethod)
}

func TestCallbackSettlesOnceUnderRedelivery(t *testing.T) {
	for _, withGuard := range []bool{false, true} {
		t.Run("guard="+strconv.FormatBool(withGuard), func(t *testing.T) {
			h := newHarness(t, withGuard)
			buyer := customer()
			order := h.order(t, buyer.UserID, 200)
			ctx := context.Background()

			checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
			require.NoError(t, err)
			form := h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)

			assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, form))
			assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, form))

			got := h.reload(t, order.ID)
			assert.Equal(t, enums.OrderStatusPaid, got.Status)
			assert.Equal(t, enums.OrderPaymentPaid, got.PaymentStatus)
			assert.EqualValues(t, 1, h.count(t, &models.Payment{}, "order_id = ? AND status = ?", order.ID, enums.PaymentStatusSuccess))
			assert.EqualValues(t, 1, h.count(t, &models.OrderHistory{}, "order_id = ? AND status = ?", order.ID, enums.OrderStatusPaid))
			assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ?", buyer.UserID))
			assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderPaid))
			assert.Equal(t, []string{OutcomePaid, OutcomeDuplicate}, h.metrics.outcomes)

			var trade models.GatewayTrade
			require.NoError(t, h.client.DB().First(&trade, "merchant_trade_no = ?", checkout.MerchantTradeNo).Error)
			assert.Equal(t, enums.GatewayTradePaid, trade.Status)
			require.NotNil(t, trade.GatewayTradeNo)
			assert.Equal(t, "2305011003040001", *trade.GatewayTradeNo)
		})
	}
}

func TestCallbackRejectsForgedSignature(t *testing.T) {
	h := newHarness(t, true)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)
	form := h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)
	form.Set("TradeAmt", "1")

	assert.Equal(t, ecpay.AckFail, h.svc.HandleCallback(ctx, form))
	assert.Equal(t, enums.OrderStatusPending, h.reload(t, order.ID).Status)
	assert.Empty(t, h.guard.claims)
	assert.Equal(t, []string{OutcomeSignatureInvalid}, h.metrics.outcomes)
}

func TestCallbackFailureNoticeKeepsOrderPending(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)

	assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, h.notice(checkout.MerchantTradeNo, 10100058, 200)))
	assert.Equal(t, enums.OrderStatusPending, h.reload(t, order.ID).Status)
	assert.EqualValues(t, 1, h.count(t, &models.Payment{}, "order_id = ? AND status = ?", order.ID, enums.PaymentStatusFailed))
	assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", buyer.UserID, enums.NotificationTypePaymentFailed))
	assert.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventPaymentFailed))

	// a later success for the same trade still settles the order
	assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)))
	assert.Equal(t, enums.OrderStatusPaid, h.reload(t, order.ID).Status)
}

func TestCallbackUnknownTradeAndAmountMismatch(t *testing.T) {
	h := newHarness(t, true)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	assert.Equal(t, ecpay.AckFail, h.svc.HandleCallback(ctx, h.notice("OC000000000000NOPE00", ecpay.RtnCodeSuccess, 200)))

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)
	assert.Equal(t, ecpay.AckFail, h.svc.HandleCallback(ctx, h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 199)))
	assert.Equal(t, enums.OrderStatusPending, h.reload(t, order.ID).Status)
	assert.Empty(t, h.guard.claims)
	assert.Equal(t, []string{OutcomeRejected, OutcomeRejected}, h.metrics.outcomes)

	// the guard was released, so the correct notice can still settle
	assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)))
	assert.Equal(t, enums.OrderStatusPaid, h.reload(t, order.ID).Status)
}

func TestCallbackOnCancelledOrderKeepsPaymentOnly(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)
	require.NoError(t, h.client.DB().Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", enums.OrderStatusCancelled).Error)

	assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)))
	assert.Equal(t, enums.OrderStatusCancelled, h.reload(t, order.ID).Status)
	assert.EqualValues(t, 1, h.count(t, &models.Payment{}, "order_id = ? AND status = ?", order.ID, enums.PaymentStatusSuccess))
	assert.EqualValues(t, 1, h.count(t, &models.OperationLog{}, "action = ?", enums.AuditPaymentIgnored))
	assert.Zero(t, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderPaid))
	assert.Equal(t, []string{OutcomeIgnored}, h.metrics.outcomes)
}

func TestCallbackInFlightClaimAsksForRetry(t *testing.T) {
	h := newHarness(t, true)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)
	form := h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)

	// another delivery holds the claim and has not committed yet
	h.guard.claims[checkout.MerchantTradeNo] = "processing"
	assert.Equal(t, ecpay.AckFail, h.svc.HandleCallback(ctx, form))
	assert.Equal(t, enums.OrderStatusPending, h.reload(t, order.ID).Status)

	// that delivery failed and released the claim; the retry settles the order
	require.NoError(t, h.guard.Release(ctx, checkout.MerchantTradeNo))
	assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, form))
	assert.Equal(t, enums.OrderStatusPaid, h.reload(t, order.ID).Status)
	assert.Equal(t, "processed", h.guard.claims[checkout.MerchantTradeNo])
	assert.Equal(t, []string{OutcomeInFlight, OutcomePaid}, h.metrics.outcomes)
}

func TestCallbackForStaleTradeAmountLeavesOrderUnpaid(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)
	require.NoError(t, h.client.DB().Model(&models.Order{}).Where("id = ?", order.ID).
		Update("total_amount", decimal.NewFromInt(400)).Error)

	assert.Equal(t, ecpay.AckOK, h.svc.HandleCallback(ctx, h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)))

	got := h.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	assert.Equal(t, enums.OrderPaymentUnpaid, got.PaymentStatus)
	assert.EqualValues(t, 1, h.count(t, &models.Payment{}, "order_id = ? AND status = ?", order.ID, enums.PaymentStatusSuccess))
	assert.EqualValues(t, 1, h.count(t, &models.OperationLog{}, "action = ?", enums.AuditPaymentIgnored))
	assert.Zero(t, h.count(t, &models.OrderHistory{}, "order_id = ? AND status = ?", order.ID, enums.OrderStatusPaid))
	assert.Equal(t, []string{OutcomeIgnored}, h.metrics.outcomes)
}

func TestReturnRedirect(t *testing.T) {
	h := newHarness(t, false)
	buyer := customer()
	order := h.order(t, buyer.UserID, 200)
	ctx := context.Background()

	checkout, err := h.svc.Checkout(ctx, buyer, order.ID, CheckoutInput{})
	require.NoError(t, err)

	target := h.svc.ReturnRedirect(ctx, h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200))
	parsed, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", parsed.Host)
	assert.Equal(t, "/payment/result", parsed.Path)
	assert.Equal(t, order.OrderSN, parsed.Query().Get("order_sn"))
	assert.Equal(t, "1", parsed.Query().Get("rtn_code"))

	forged := h.notice(checkout.MerchantTradeNo, ecpay.RtnCodeSuccess, 200)
	forged.Set(ecpay.FieldCheckMacValue, "BAD")
	parsed, err = url.Parse(h.svc.ReturnRedirect(ctx, forged))
	require.NoError(t, err)
	assert.Equal(t, "0", parsed.Query().Get("rtn_code"))
	assert.Empty(t, parsed.Query().Get("order_sn"))

	// the return post never settles anything
	assert.Equal(t, enums.OrderStatusPending, h.reload(t, order.ID).Status)
}

func TestListAndGetScopedToOwner(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	alice, bob := customer(), customer()
	aliceOrder := h.order(t, alice.UserID, 100)
	bobOrder := h.order(t, bob.UserID, 300)

	paid, err := h.svc.Pay(ctx, alice, aliceOrder.ID, PayInput{})
	require.NoError(t, err)
	_, err = h.svc.Pay(ctx, bob, bobOrder.ID, PayInput{})
	require.NoError(t, err)

	page := pagination.PageParams{Page: 1, PageSize: 10}
	mine, err := h.svc.List(ctx, alice, ListParams{Page: page})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, aliceOrder.ID, mine.Items[0].OrderID)

	all, err := h.svc.List(ctx, admin(), ListParams{Page: page, Status: "success"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	_, err = h.svc.List(ctx, admin(), ListParams{Page: page, Status: "refunded"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	got, err := h.svc.Get(ctx, alice, paid.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, aliceOrder.ID, got.OrderID)

	_, err = h.svc.Get(ctx, bob, paid.PaymentID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Get(ctx, admin(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
