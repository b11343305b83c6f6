package ecpay

import (
	"crypto/rand"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordercore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
)

const (
	// MaxTradeNoLength is the gateway limit on MerchantTradeNo.
	MaxTradeNoLength = 20
	maxItemNameRunes = 400
	tradeDateLayout  = "2006/01/02 15:04:05"
	tradeNoLayout    = "060102150405"
	tradeNoAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	AckOK   = "1|OK"
	AckFail = "0|FAIL"
)

// Gateway time is Taiwan local time.
var taipei = time.FixedZone("UTC+8", 8*60*60)

// Item is one line rendered into ItemName.
type Item struct {
	Name     string
	Quantity int
}

// CheckoutRequest describes the AIO checkout form to sign.
type CheckoutRequest struct {
	MerchantTradeNo string
	Amount          decimal.Decimal
	Items           []Item
	OrderSN         string
	ClientBackURL   string
}

// Checkout is returned to the client, which posts Params to ActionURL.
type Checkout struct {
	ActionURL       string            `json:"action_url"`
	MerchantTradeNo string            `json:"merchant_trade_no"`
	Params          map[string]string `json:"params"`
}

// Client builds signed checkout forms and verifies gateway payloads.
type Client struct {
	cfg    config.ECPayConfig
	signer Signer
	now    func() time.Time
	random io.Reader
}

func NewClient(cfg config.ECPayConfig) (*Client, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, fmt.Errorf("ecpay merchant id required")
	}
	if cfg.HashKey == "" || cfg.HashIV == "" {
		return nil, fmt.Errorf("ecpay hash key and iv required")
	}
	if cfg.EncryptType != EncryptMD5 && cfg.EncryptType != EncryptSHA256 {
		return nil, fmt.Errorf("ecpay encrypt type must be 0 or 1, got %d", cfg.EncryptType)
	}
	if cfg.TradePrefix == "" {
		cfg.TradePrefix = "OC"
	}
	if len(cfg.TradePrefix)+len(tradeNoLayout) >= MaxTradeNoLength {
		return nil, fmt.Errorf("ecpay trade prefix %q too long", cfg.TradePrefix)
	}
	return &Client{
		cfg:    cfg,
		signer: NewSigner(cfg.HashKey, cfg.HashIV, cfg.EncryptType),
		now:    time.Now,
		random: rand.Reader,
	}, nil
}

// NewTradeNo issues <prefix><yyMMddHHmmss><random A-Z0-9> padded to 20 characters.
func (c *Client) NewTradeNo() (string, error) {
	head := c.cfg.TradePrefix + c.now().In(taipei).Format(tradeNoLayout)
	suffix := make([]byte, MaxTradeNoLength-len(head))
	if _, err := io.ReadFull(c.random, suffix); err != nil {
		return "", fmt.Errorf("read random trade suffix: %w", err)
	}
	for i, b := range suffix {
		suffix[i] = tradeNoAlphabet[int(b)%len(tradeNoAlphabet)]
	}
	return head + string(suffix), nil
}

// Checkout renders and signs the AIO form fields.
func (c *Client) Checkout(req CheckoutRequest) (*Checkout, error) {
	if req.MerchantTradeNo == "" || len(req.MerchantTradeNo) > MaxTradeNoLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid merchant trade number")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout amount must be positive")
	}

	params := map[string]string{
		"MerchantID":        c.cfg.MerchantID,
		"MerchantTradeNo":   req.MerchantTradeNo,
		"MerchantTradeDate": c.now().In(taipei).Format(tradeDateLayout),
		"PaymentType":       "aio",
		"TotalAmount":       strconv.FormatInt(TradeAmount(req.Amount), 10),
		"TradeDesc":         c.cfg.TradeDesc,
		"ItemName":          ItemName(req.Items),
		"ReturnURL":         c.cfg.NotifyURL(),
		"OrderResultURL":    c.cfg.OrderResultURL(),
		"ChoosePayment":     "ALL",
		"EncryptType":       strconv.Itoa(c.cfg.EncryptType),
	}
	if req.OrderSN != "" {
		params["CustomField1"] = req.OrderSN
	}
	if req.ClientBackURL != "" {
		params["ClientBackURL"] = req.ClientBackURL
	}
	params[FieldCheckMacValue] = c.signer.Sign(params)

	return &Checkout{
		ActionURL:       c.cfg.ActionURL,
		MerchantTradeNo: req.MerchantTradeNo,
		Params:          params,
	}, nil
}

// Verify checks the CheckMacValue of a form posted by the gateway.
func (c *Client) Verify(values url.Values) error {
	if !c.signer.Verify(Flatten(values)) {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "CheckMacValue mismatch")
	}
	return nil
}

// MerchantID is the merchant the client signs for.
func (c *Client) MerchantID() string {
	return c.cfg.MerchantID
}

// ResultPageURL is the frontend page browsers are sent back to.
func (c *Client) ResultPageURL() string {
	return c.cfg.ResultPageURL()
}

// TradeAmount is the whole-dollar amount the gateway charges.
func TradeAmount(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// ItemName joins "name x qty" lines with '#', the gateway's line separator.
func ItemName(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.NewReplacer("#", " ", "\n", " ").Replace(strings.TrimSpace(item.Name))
		parts = append(parts, fmt.Sprintf("%s x %d", name, item.Quantity))
	}
	joined := strings.Join(parts, "#")
	if joined == "" {
		joined = "order"
	}
	if utf8.RuneCountInString(joined) > maxItemNameRunes {
		runes := []rune(joined)
		joined = string(runes[:maxItemNameRunes])
	}
	return joined
}
