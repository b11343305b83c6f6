package ecpay

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/ordercore-backend/pkg/errors"
)

// RtnCodeSuccess is the only RtnCode that means the payment went through.
const RtnCodeSuccess = 1

// Notice is the payment result the gateway posts to ReturnURL and OrderResultURL.
type Notice struct {
	MerchantID      string
	MerchantTradeNo string
	RtnCode         int
	RtnMsg          string
	TradeNo         string
	TradeAmt        int64
	PaymentDate     string
	PaymentType     string
	SimulatePaid    bool
	CustomField1    string
}

// Succeeded reports whether the gateway settled the trade.
func (n Notice) Succeeded() bool {
	return n.RtnCode == RtnCodeSuccess
}

// PaidAt parses PaymentDate, which the gateway sends in Taiwan local time.
func (n Notice) PaidAt() (time.Time, bool) {
	if n.PaymentDate == "" {
		return time.Time{}, false
	}
	at, err := time.ParseInLocation(tradeDateLayout, n.PaymentDate, taipei)
	if err != nil {
		return time.Time{}, false
	}
	return at.UTC(), true
}

// ParseNotice reads the result fields of a verified payload.
func ParseNotice(values url.Values) (*Notice, error) {
	get := func(key string) string { return strings.TrimSpace(values.Get(key)) }

	notice := &Notice{
		MerchantID:      get("MerchantID"),
		MerchantTradeNo: get("MerchantTradeNo"),
		RtnMsg:          get("RtnMsg"),
		TradeNo:         get("TradeNo"),
		PaymentDate:     get("PaymentDate"),
		PaymentType:     get("PaymentType"),
		SimulatePaid:    get("SimulatePaid") == "1",
		CustomField1:    get("CustomField1"),
	}
	if notice.MerchantTradeNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayProtocol, "MerchantTradeNo missing")
	}

	rtnCode, err := strconv.Atoi(get("RtnCode"))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayProtocol, err, "RtnCode not numeric")
	}
	notice.RtnCode = rtnCode

	if raw := get("TradeAmt"); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayProtocol, err, "TradeAmt not numeric")
		}
		notice.TradeAmt = amount
	} else if notice.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayProtocol, "TradeAmt missing")
	}
	return notice, nil
}
