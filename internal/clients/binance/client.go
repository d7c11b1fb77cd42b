package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/market"
)

// quoteAsset is appended to coin symbols to form exchange pairs (BTC -> BTCUSDT)
const quoteAsset = "USDT"

// OrderResult is the normalized outcome of a filled market order
type OrderResult struct {
	OrderID  string
	Symbol   string
	Side     string
	Quantity float64
	Price    float64
	Status   string
}

// Client wraps the Binance REST API for order placement and market data
type Client struct {
	delegate *binance.Client
	log      zerolog.Logger
}

// NewClient creates a Binance client. With testnet enabled all orders go to
// the Binance spot testnet.
func NewClient(apiKey, secretKey string, testnet bool, log zerolog.Logger) *Client {
	binance.UseTestnet = testnet

	return &Client{
		delegate: binance.NewClient(apiKey, secretKey),
		log:      log.With().Str("client", "binance").Logger(),
	}
}

// Symbol maps a coin to its exchange trading pair
func Symbol(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin)) + quoteAsset
}

// PlaceMarketOrder submits a market order and returns the fill
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*OrderResult, error) {
	order, err := c.delegate.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(strings.ToUpper(side))).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(qty, 'f', -1, 64)).
		NewClientOrderID("ap-" + uuid.NewString()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place market order: %w", err)
	}

	result := &OrderResult{
		OrderID:  strconv.FormatInt(order.OrderID, 10),
		Symbol:   order.Symbol,
		Side:     string(order.Side),
		Quantity: qty,
		Status:   string(order.Status),
	}

	// Average the fills; a market order may execute across several.
	var filledQty, filledQuote float64
	for _, fill := range order.Fills {
		fillQty, _ := strconv.ParseFloat(fill.Quantity, 64)
		fillPrice, _ := strconv.ParseFloat(fill.Price, 64)
		filledQty += fillQty
		filledQuote += fillQty * fillPrice
	}
	if filledQty > 0 {
		result.Price = filledQuote / filledQty
		result.Quantity = filledQty
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("side", side).
		Float64("quantity", result.Quantity).
		Float64("price", result.Price).
		Str("order_id", result.OrderID).
		Msg("Market order filled")

	return result, nil
}

// GetQuotes fetches current price and 24h change for the given coins
func (c *Client) GetQuotes(ctx context.Context, coins []string) (map[string]market.Quote, error) {
	stats, err := c.delegate.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price stats: %w", err)
	}

	wanted := make(map[string]string, len(coins)) // symbol -> coin
	for _, coin := range coins {
		wanted[Symbol(coin)] = strings.ToUpper(strings.TrimSpace(coin))
	}

	quotes := make(map[string]market.Quote, len(coins))
	for _, stat := range stats {
		coin, ok := wanted[stat.Symbol]
		if !ok {
			continue
		}

		price, err := strconv.ParseFloat(stat.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}
		change, _ := strconv.ParseFloat(stat.PriceChangePercent, 64)

		quotes[coin] = market.Quote{Price: price, Change24h: change}
	}

	return quotes, nil
}
