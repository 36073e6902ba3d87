package advisor

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bobmcallan/rebal/internal/models"
)

const fingerprintVersion = "h1"

// fingerprintRow is the canonical form of one holding. Decimals are encoded as
// their exact string so "10" and "10.0" differ only if the backend says so.
type fingerprintRow struct {
	Symbol       string `msgpack:"s"`
	Quantity     int64  `msgpack:"q"`
	AvgBuyPrice  string `msgpack:"a"`
	CurrentPrice string `msgpack:"c"`
	PLPercent    string `msgpack:"p"`
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// Fingerprint returns a content key for a holdings list. Input order is part of
// the key because it determines finding and recommendation order.
func Fingerprint(holdings []models.Holding) (string, error) {
	rows := make([]fingerprintRow, len(holdings))
	for i, h := range holdings {
		rows[i] = fingerprintRow{
			Symbol:       h.Symbol,
			Quantity:     h.Quantity,
			AvgBuyPrice:  h.AvgBuyPrice.String(),
			CurrentPrice: nullDecimalString(h.CurrentPrice),
			PLPercent:    nullDecimalString(h.ProfitLossPercent),
		}
	}

	data, err := msgpack.Marshal(struct {
		Version string           `msgpack:"v"`
		Rows    []fingerprintRow `msgpack:"r"`
	}{fingerprintVersion, rows})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
