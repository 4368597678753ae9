package store

import (
	"testing"
	"time"

	"stocklens/pkg/provider"
)

func TestRecordRowConversion_zeroMetricsSurvive(t *testing.T) {
	rec := &provider.StockRecord{
		Ticker:         "PENNY",
		CompanyName:    "Penny Corp",
		Currency:       "USD",
		MarketCap:      0,
		Volume:         0,
		Price:          0,
		SourceProvider: "yahoo",
	}

	row := recordToRow(rec)
	if !row.MarketCap.Valid || !row.Volume.Valid || !row.Price.Valid {
		t.Fatalf("zero metrics must be stored as values, not NULL: %+v", row)
	}

	row.FetchedAt = time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	back := rowToRecord(row)
	if back.MarketCap != 0 || back.Volume != 0 || back.Price != 0 {
		t.Fatalf("round-trip changed metrics: %+v", back)
	}
	if back.Ticker != "PENNY" || back.CompanyName != "Penny Corp" {
		t.Fatalf("round-trip changed identity: %+v", back)
	}
}
