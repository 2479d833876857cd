package bitfinex

// mapping.go: positional decoding of Bitfinex v2 array payloads.
//
// The v2 API returns bare JSON arrays, not objects; every field is
// identified by its index. The index constants below follow the published
// wire format for each record type.

import (
	"fmt"
	"time"

	"github.com/rcabello/lendbot/internal/domain"
)

// Funding offer: [ID, SYMBOL, MTS_CREATED, MTS_UPDATED, AMOUNT, AMOUNT_ORIG,
// TYPE, _, _, FLAGS, STATUS, _, _, _, RATE, PERIOD, ...].
const (
	offerIdxID      = 0
	offerIdxSymbol  = 1
	offerIdxCreated = 2
	offerIdxAmount  = 4
	offerIdxType    = 6
	offerIdxRate    = 14
	offerIdxPeriod  = 15
	offerMinLen     = 16
)

// Wallet: [WALLET_TYPE, CURRENCY, BALANCE, UNSETTLED_INTEREST, AVAILABLE, ...].
const (
	walletIdxType      = 0
	walletIdxCurrency  = 1
	walletIdxBalance   = 2
	walletIdxAvailable = 4
	walletMinLen       = 5
)

// Funding credit: [ID, SYMBOL, SIDE, MTS_CREATE, MTS_UPDATE, AMOUNT, FLAGS,
// STATUS, _, _, _, RATE, PERIOD, MTS_OPENING, ...].
const (
	creditIdxID      = 0
	creditIdxSymbol  = 1
	creditIdxAmount  = 5
	creditIdxRate    = 11
	creditIdxPeriod  = 12
	creditIdxOpening = 13
	creditMinLen     = 14
)

func mapOffer(row []any) (domain.FundingOffer, error) {
	if len(row) < offerMinLen {
		return domain.FundingOffer{}, fmt.Errorf("offer row too short: %d fields", len(row))
	}
	return domain.FundingOffer{
		ID:        asInt64(row[offerIdxID]),
		Symbol:    asString(row[offerIdxSymbol]),
		Type:      domain.OfferType(asString(row[offerIdxType])),
		Amount:    asFloat(row[offerIdxAmount]),
		Rate:      asFloat(row[offerIdxRate]),
		Period:    int(asInt64(row[offerIdxPeriod])),
		CreatedAt: asMillis(row[offerIdxCreated]),
	}, nil
}

func mapWallet(row []any) (domain.Wallet, error) {
	if len(row) < walletMinLen {
		return domain.Wallet{}, fmt.Errorf("wallet row too short: %d fields", len(row))
	}
	return domain.Wallet{
		Type:             asString(row[walletIdxType]),
		Currency:         asString(row[walletIdxCurrency]),
		Balance:          asFloat(row[walletIdxBalance]),
		BalanceAvailable: asFloat(row[walletIdxAvailable]),
	}, nil
}

func mapCredit(row []any) (domain.Credit, error) {
	if len(row) < creditMinLen {
		return domain.Credit{}, fmt.Errorf("credit row too short: %d fields", len(row))
	}
	return domain.Credit{
		ID:       asInt64(row[creditIdxID]),
		Symbol:   asString(row[creditIdxSymbol]),
		Amount:   asFloat(row[creditIdxAmount]),
		Rate:     asFloat(row[creditIdxRate]),
		Period:   int(asInt64(row[creditIdxPeriod])),
		OpenedAt: asMillis(row[creditIdxOpening]),
	}, nil
}

// Candle: [MTS, OPEN, CLOSE, HIGH, LOW, VOLUME].
func mapCandle(row []float64) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("candle row too short: %d fields", len(row))
	}
	return domain.Candle{
		Timestamp: time.UnixMilli(int64(row[0])).UTC(),
		Open:      row[1],
		Close:     row[2],
		High:      row[3],
		Low:       row[4],
		Volume:    row[5],
	}, nil
}

// Funding ticker: [FRR, BID, BID_PERIOD, BID_SIZE, ASK, ASK_PERIOD,
// ASK_SIZE, DAILY_CHANGE, DAILY_CHANGE_REL, LAST, ...].
func mapTicker(row []float64) (domain.Ticker, error) {
	if len(row) < 10 {
		return domain.Ticker{}, fmt.Errorf("ticker row too short: %d fields", len(row))
	}
	return domain.Ticker{
		FRR:  row[0],
		Bid:  row[1],
		Ask:  row[4],
		Last: row[9],
	}, nil
}

// Write responses are notifications:
// [MTS, TYPE, MESSAGE_ID, _, NOTIFY_INFO, CODE, STATUS, TEXT].
// Anything but a SUCCESS status is an error even on HTTP 200.
func checkNotification(row []any) error {
	if len(row) < 8 {
		return fmt.Errorf("notification too short: %d fields", len(row))
	}
	status := asString(row[6])
	if status != "SUCCESS" {
		return fmt.Errorf("exchange rejected request: %s: %s", status, asString(row[7]))
	}
	return nil
}

// JSON numbers decode as float64 inside []any; null and unexpected types
// read as zero values so a single odd field does not poison a whole page.

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asInt64(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asMillis(v any) time.Time {
	f, ok := v.(float64)
	if !ok || f == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(f)).UTC()
}
