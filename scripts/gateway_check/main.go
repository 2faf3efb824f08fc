package main

import (
	"context"
	"log"
	"os"
	"time"

	"volume-core/pkg/config"
	"volume-core/pkg/exchanges/common"
	"volume-core/pkg/exchanges/mexc"
)

// gateway_check exercises the wrapped MEXC REST API end to end.
//
// Usage:
//
//	go run ./scripts/gateway_check
//
// Environment variables match the main program (MEXC_API_KEY,
// MEXC_API_SECRET, TRADE_SYMBOL). Order placement is off by default:
//
//	GATEWAY_CHECK_PLACE_ORDERS=true enables a tiny LIMIT order test
//	that is cancelled right after submission.
func main() {
	log.Println("=== Gateway check starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	placeOrders := getenv("GATEWAY_CHECK_PLACE_ORDERS", "false") == "true"
	symbol := cfg.PairSymbol()

	client := mexc.New(mexc.Config{
		APIKey:     cfg.MEXCAPIKey,
		APISecret:  cfg.MEXCAPISecret,
		BaseURL:    cfg.MEXCBaseURL,
		RecvWindow: int64(cfg.RecvWindowMs),
	})

	serverTime, err := client.ServerTime()
	if err != nil {
		log.Fatalf("ServerTime error: %v", err)
	}
	log.Printf("server time %d (offset %dms)", serverTime, serverTime-time.Now().UnixMilli())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	top, err := client.BookTop(ctx, symbol)
	if err != nil {
		log.Printf("BookTop error: %v", err)
	} else {
		log.Printf("%s bid=%.8f ask=%.8f", symbol, top.Bid, top.Ask)
	}

	if cfg.MEXCAPIKey == "" || cfg.MEXCAPISecret == "" {
		log.Println("MEXC_API_KEY/SECRET empty, skipping signed checks")
		return
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	balances, err := client.AccountBalances(ctx2)
	if err != nil {
		log.Printf("AccountBalances error: %v", err)
	} else {
		log.Printf("non-zero balances=%d", len(balances))
	}

	ctx3, cancel3 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel3()
	open, err := client.OpenOrders(ctx3, symbol)
	if err != nil {
		log.Printf("OpenOrders error: %v", err)
	} else {
		log.Printf("open orders for %s: %d", symbol, len(open))
	}

	if !placeOrders {
		log.Println("Skip placing/canceling orders (GATEWAY_CHECK_PLACE_ORDERS=false)")
		return
	}

	ctx4, cancel4 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel4()
	// Price far below the book so the order rests instead of filling.
	ack, err := client.CreateOrder(ctx4, common.OrderRequest{
		Symbol: symbol,
		Side:   common.SideBuy,
		Type:   common.OrderTypeLimit,
		Qty:    1,
		Price:  top.Bid * 0.5,
	})
	if err != nil {
		log.Printf("CreateOrder returned error (acceptable for test, e.g. insufficient balance): %v", err)
		return
	}
	log.Printf("CreateOrder OK id=%s status=%s", ack.OrderID, ack.Status)

	ctx5, cancel5 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel5()
	if cancelErr := client.CancelOrder(ctx5, symbol, ack.OrderID); cancelErr != nil {
		log.Printf("CancelOrder error (may be filled already): %v", cancelErr)
	} else {
		log.Println("CancelOrder OK")
	}

	log.Println("=== Gateway check finished ===")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
