package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"volume-core/pkg/exchanges/common"
)

// ServerTime fetches exchange server time in milliseconds.
func (c *Client) ServerTime() (int64, error) {
	body, err := c.execute(context.Background(), http.MethodGet, "/api/v3/time", nil, false)
	if err != nil {
		return 0, err
	}
	var res struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

// Depth returns up to limit levels of bids and asks, best first.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) (bids, asks [][2]float64, err error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.execute(ctx, http.MethodGet, "/api/v3/depth", params, false)
	if err != nil {
		return nil, nil, err
	}
	var res struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, nil, fmt.Errorf("decode depth: %w", err)
	}
	return parseLevels(res.Bids), parseLevels(res.Asks), nil
}

// BookTop returns the current best bid and ask.
func (c *Client) BookTop(ctx context.Context, symbol string) (common.BookTop, error) {
	bids, asks, err := c.Depth(ctx, symbol, 5)
	if err != nil {
		return common.BookTop{}, err
	}
	if len(bids) == 0 || len(asks) == 0 {
		return common.BookTop{}, fmt.Errorf("empty order book for %s", symbol)
	}
	return common.BookTop{Bid: bids[0][0], Ask: asks[0][0]}, nil
}

// AccountBalances returns all non-zero asset balances.
func (c *Client) AccountBalances(ctx context.Context) ([]common.Balance, error) {
	body, err := c.execute(ctx, http.MethodGet, "/api/v3/account", nil, true)
	if err != nil {
		return nil, err
	}
	var res struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	balances := make([]common.Balance, 0, len(res.Balances))
	for _, b := range res.Balances {
		free := parseFloat(b.Free)
		locked := parseFloat(b.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		balances = append(balances, common.Balance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

// AssetBalance returns the balance for one asset, zero when absent.
func (c *Client) AssetBalance(ctx context.Context, asset string) (common.Balance, error) {
	balances, err := c.AccountBalances(ctx)
	if err != nil {
		return common.Balance{}, err
	}
	for _, b := range balances {
		if b.Asset == asset {
			return b, nil
		}
	}
	return common.Balance{Asset: asset}, nil
}

func parseLevels(raw [][]string) [][2]float64 {
	levels := make([][2]float64, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) < 2 {
			continue
		}
		levels = append(levels, [2]float64{parseFloat(lvl[0]), parseFloat(lvl[1])})
	}
	return levels
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
