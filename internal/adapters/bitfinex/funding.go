package bitfinex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rcabello/lendbot/internal/domain"
)

// ActiveOffers implements ports.FundingDesk.
func (c *Client) ActiveOffers(ctx context.Context, symbol string) ([]domain.FundingOffer, error) {
	var raw [][]any
	if err := c.signedPost(ctx, "/v2/auth/r/funding/offers/"+symbol, nil, &raw); err != nil {
		return nil, fmt.Errorf("bitfinex.ActiveOffers: %s: %w", symbol, err)
	}

	offers := make([]domain.FundingOffer, 0, len(raw))
	for _, row := range raw {
		offer, err := mapOffer(row)
		if err != nil {
			return nil, fmt.Errorf("bitfinex.ActiveOffers: %w", err)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// SubmitOffer implements ports.FundingDesk. Amount and rate travel as
// strings per the v2 write API.
func (c *Client) SubmitOffer(ctx context.Context, req domain.OfferRequest) error {
	body := map[string]any{
		"type":   string(req.Type),
		"symbol": req.Symbol,
		"amount": strconv.FormatFloat(req.Amount, 'f', -1, 64),
		"rate":   strconv.FormatFloat(req.Rate, 'f', -1, 64),
		"period": req.Period,
	}

	var raw []any
	if err := c.signedPost(ctx, "/v2/auth/w/funding/offer/submit", body, &raw); err != nil {
		return fmt.Errorf("bitfinex.SubmitOffer: %w", err)
	}
	if err := checkNotification(raw); err != nil {
		return fmt.Errorf("bitfinex.SubmitOffer: %w", err)
	}
	return nil
}

// CancelOffer implements ports.FundingDesk.
func (c *Client) CancelOffer(ctx context.Context, id int64) error {
	var raw []any
	if err := c.signedPost(ctx, "/v2/auth/w/funding/offer/cancel", map[string]any{"id": id}, &raw); err != nil {
		return fmt.Errorf("bitfinex.CancelOffer: %d: %w", id, err)
	}
	if err := checkNotification(raw); err != nil {
		return fmt.Errorf("bitfinex.CancelOffer: %d: %w", id, err)
	}
	return nil
}

// Wallets implements ports.FundingDesk.
func (c *Client) Wallets(ctx context.Context) ([]domain.Wallet, error) {
	var raw [][]any
	if err := c.signedPost(ctx, "/v2/auth/r/wallets", nil, &raw); err != nil {
		return nil, fmt.Errorf("bitfinex.Wallets: %w", err)
	}

	wallets := make([]domain.Wallet, 0, len(raw))
	for _, row := range raw {
		wallet, err := mapWallet(row)
		if err != nil {
			return nil, fmt.Errorf("bitfinex.Wallets: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

// Credits implements ports.FundingDesk.
func (c *Client) Credits(ctx context.Context, symbol string) ([]domain.Credit, error) {
	var raw [][]any
	if err := c.signedPost(ctx, "/v2/auth/r/funding/credits/"+symbol, nil, &raw); err != nil {
		return nil, fmt.Errorf("bitfinex.Credits: %s: %w", symbol, err)
	}

	credits := make([]domain.Credit, 0, len(raw))
	for _, row := range raw {
		credit, err := mapCredit(row)
		if err != nil {
			return nil, fmt.Errorf("bitfinex.Credits: %w", err)
		}
		credits = append(credits, credit)
	}
	return credits, nil
}
