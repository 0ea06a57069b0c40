package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/set-night/cardpost/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cardpost.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("NOTIFY_BOT_TOKEN", "")

	s, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO accounts (id, current_balance, credit_limit) VALUES (10001, '100.00', '500.00')`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO cards (card_number, account_id) VALUES ('4000123412341234', 10001)`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	input := filepath.Join(dir, "daily.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"tran_id,type_code,category_code,source,description,amount,merchant_id,merchant_name,merchant_city,merchant_zip,card_number,orig_ts\n"+
			",01,0001,POS,Coffee,-4.50,,,,,4000123412341234,2026-10-13 08:15:00\n"+
			",01,0001,POS,Too much,900.00,,,,,4000123412341234,2026-10-13 08:16:00\n",
	), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--config", filepath.Join(dir, "none.env"), "--input", input, "--chunk-size", "1"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "read 2, posted 1, rejected 1")

	s, err = sqlite.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	var balance string
	require.NoError(t, s.DB().QueryRow(`SELECT current_balance FROM accounts WHERE id = 10001`).Scan(&balance))
	assert.Equal(t, "95.50", balance)
}
