package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"volume-core/pkg/exchanges/common"
)

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
}

type orderDetail struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
}

// CreateOrder submits an order and returns the exchange acknowledgement.
func (c *Client) CreateOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	ordType := strings.ToUpper(string(req.Type))
	if ordType == "" {
		ordType = string(common.OrderTypeLimit)
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", strings.ToUpper(string(req.Side)))
	params.Set("type", ordType)
	params.Set("quantity", formatFloat(req.Qty))
	if req.Type != common.OrderTypeMarket {
		params.Set("price", formatFloat(req.Price))
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	body, err := c.execute(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return common.OrderAck{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderAck{}, fmt.Errorf("decode order response: %w", err)
	}
	return common.OrderAck{
		OrderID:  resp.OrderID,
		ClientID: resp.ClientOrderID,
		Status:   mapStatus(resp.Status),
	}, nil
}

// CancelOrder cancels a single resting order.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	_, err := c.execute(ctx, http.MethodDelete, "/api/v3/order", params, true)
	return err
}

// CancelAllOrders cancels every open order on the symbol.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	_, err := c.execute(ctx, http.MethodDelete, "/api/v3/openOrders", params, true)
	return err
}

// OrderStatus fetches the current state of one order.
func (c *Client) OrderStatus(ctx context.Context, symbol, orderID string) (common.OrderState, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	body, err := c.execute(ctx, http.MethodGet, "/api/v3/order", params, true)
	if err != nil {
		return common.OrderState{}, err
	}
	var d orderDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return common.OrderState{}, fmt.Errorf("decode order: %w", err)
	}
	return d.toState(), nil
}

// OpenOrders lists resting orders on the symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]common.OrderState, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.execute(ctx, http.MethodGet, "/api/v3/openOrders", params, true)
	if err != nil {
		return nil, err
	}
	var details []orderDetail
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	states := make([]common.OrderState, 0, len(details))
	for _, d := range details {
		states = append(states, d.toState())
	}
	return states, nil
}

func (d orderDetail) toState() common.OrderState {
	return common.OrderState{
		OrderID:     d.OrderID,
		Symbol:      d.Symbol,
		Side:        common.Side(strings.ToUpper(d.Side)),
		Status:      mapStatus(d.Status),
		Price:       parseFloat(d.Price),
		OrigQty:     parseFloat(d.OrigQty),
		ExecutedQty: parseFloat(d.ExecutedQty),
	}
}

func mapStatus(s string) common.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return common.StatusNew
	case "PARTIALLY_FILLED":
		return common.StatusPartial
	case "FILLED":
		return common.StatusFilled
	case "CANCELED", "PARTIALLY_CANCELED":
		return common.StatusCanceled
	case "REJECTED":
		return common.StatusRejected
	case "EXPIRED":
		return common.StatusExpired
	default:
		return common.StatusUnknown
	}
}
