package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordercore-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "create_products")

	assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS products")
	assert.Contains(t, content, "CONSTRAINT products_stock_check CHECK (stock >= 0)")
	assert.Contains(t, content, "promo_price numeric(12,2)")
	assert.Contains(t, content, "DROP TABLE IF EXISTS products")
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")

	for _, sub := range []string{
		"CONSTRAINT ux_orders_order_sn UNIQUE (order_sn)",
		"CHECK (status IN ('pending', 'paid', 'shipped', 'delivered', 'cancelled'))",
		"CONSTRAINT order_items_quantity_check CHECK (quantity >= 1)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CREATE TABLE IF NOT EXISTS order_histories",
		"DROP TABLE IF EXISTS orders",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestPaymentsMigrationKeepsTradeReference(t *testing.T) {
	content := readMigration(t, "create_payments")

	for _, sub := range []string{
		"CONSTRAINT ux_payments_transaction_id UNIQUE (transaction_id)",
		"CONSTRAINT ux_gateway_trades_merchant_trade_no UNIQUE (merchant_trade_no)",
		"merchant_trade_no varchar(20) NOT NULL",
		"FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE RESTRICT",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestOutboxMigrationMatchesModels(t *testing.T) {
	content := readMigration(t, "create_outbox")

	assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS outbox_events")
	assert.Contains(t, content, "payload_json jsonb NOT NULL")
	assert.Contains(t, content, "WHERE published_at IS NULL")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Refund Table!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_refund_table.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	assert.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n\n-- +goose Down\nSELECT 1;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260501000000_broken.sql"), []byte(body), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}
