package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

// SpotClient queries the unauthenticated Coinbase v2 spot price API.
type SpotClient struct {
	baseURL string
	client  *http.Client
}

type spotPriceResp struct {
	Data struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// NewSpotClient creates a Coinbase REST client.
func NewSpotClient(baseURL string) *SpotClient {
	if baseURL == "" {
		baseURL = "https://api.coinbase.com/v2"
	}
	return &SpotClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SpotPrice fetches the current spot price for a currency pair like
// "BTC-USD".
func (c *SpotClient) SpotPrice(ctx context.Context, pair string) (float64, error) {
	url := fmt.Sprintf("%s/prices/%s/spot", c.baseURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &port.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result spotPriceResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(result.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase price %q not numeric: %w", result.Data.Amount, err)
	}
	return price, nil
}

// SpotPriceAt fetches the spot price on a historical date (YYYY-MM-DD),
// used to backfill price history at startup.
func (c *SpotClient) SpotPriceAt(ctx context.Context, pair, date string) (float64, error) {
	url := fmt.Sprintf("%s/prices/%s/spot?date=%s", c.baseURL, pair, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &port.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result spotPriceResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(result.Data.Amount, 64)
}

// DailyHistory backfills one closing price per day for the past days
// days, oldest first. Days that fail to resolve are skipped.
func (c *SpotClient) DailyHistory(ctx context.Context, pair string, days int) ([]model.PricePoint, error) {
	if days <= 0 {
		days = 14
	}
	out := make([]model.PricePoint, 0, days)
	now := time.Now().UTC()
	for i := days; i >= 1; i-- {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		day := now.AddDate(0, 0, -i)
		price, err := c.SpotPriceAt(ctx, pair, day.Format("2006-01-02"))
		if err != nil {
			continue
		}
		out = append(out, model.PricePoint{
			Timestamp: day.UnixMilli(),
			Price:     price,
		})
	}
	return out, nil
}
