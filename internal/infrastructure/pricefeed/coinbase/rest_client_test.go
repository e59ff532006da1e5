package coinbase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botty/internal/application/port"
)

func TestSpotPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prices/BTC-USD/spot" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"amount":"50123.45","currency":"USD"}}`))
	}))
	defer srv.Close()

	c := NewSpotClient(srv.URL)
	price, err := c.SpotPrice(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatalf("SpotPrice failed: %v", err)
	}
	if price != 50123.45 {
		t.Errorf("expected 50123.45, got %v", price)
	}
}

func TestSpotPriceNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSpotClient(srv.URL)
	_, err := c.SpotPrice(context.Background(), "BTC-USD")

	var apiErr *port.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected APIError 429, got %v", err)
	}
}

func TestSpotPriceBadAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"amount":"not-a-number","currency":"USD"}}`))
	}))
	defer srv.Close()

	c := NewSpotClient(srv.URL)
	if _, err := c.SpotPrice(context.Background(), "BTC-USD"); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestPollingFeedEmitsTicks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"amount":"2000","currency":"USD"}}`))
	}))
	defer srv.Close()

	feed := NewPollingFeed(srv.URL, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks, err := feed.Subscribe(ctx, []string{"ETH-USD"})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case tick := <-ticks:
		if tick.Symbol != "ETH-USD" || tick.PriceNum != 2000 {
			t.Errorf("unexpected tick %+v", tick)
		}
		if tick.Source != "COINBASE" {
			t.Errorf("unexpected source %q", tick.Source)
		}
	case <-time.After(time.Second):
		t.Fatalf("no tick received")
	}
}

func TestDailyHistoryOldestFirstSkipsFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		date := r.URL.Query().Get("date")
		if date == "" {
			t.Errorf("missing date query on %s", r.URL)
		}
		// fail every other day; history should simply skip those
		if calls%2 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"data":{"amount":"100","currency":"USD"}}`))
	}))
	defer srv.Close()

	c := NewSpotClient(srv.URL)
	history, err := c.DailyHistory(context.Background(), "BTC-USD", 6)
	if err != nil {
		t.Fatalf("DailyHistory: %v", err)
	}
	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
	if len(history) != 3 {
		t.Fatalf("history = %d points, want 3", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp <= history[i-1].Timestamp {
			t.Errorf("history not oldest-first at %d", i)
		}
	}
}
