package enums

// AuditAction names an operation recorded in the operation log.
type AuditAction string

const (
	AuditOrderCreate    AuditAction = "order.create"
	AuditOrderUpdate    AuditAction = "order.update"
	AuditOrderDelete    AuditAction = "order.delete"
	AuditOrderStatus    AuditAction = "order.status"
	AuditPaymentSuccess AuditAction = "payment.success"
	AuditPaymentFailed  AuditAction = "payment.failed"
	AuditPaymentIgnored AuditAction = "payment.ignored"
	AuditStockAdjust    AuditAction = "stock.adjust"
)

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}
