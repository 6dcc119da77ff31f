package polymarket

// trading.go: live order execution against the CLOB order endpoint.
//
// Implements ports.OrderExecutor. Orders are EIP-712 signed GTC limit orders
// at the signal price, posted with L2 headers. A 4xx or an unsuccessful
// response body maps to domain.ErrRejectedOrder; transport and 5xx failures
// are returned as-is.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const (
	orderPath   = "/order"
	negRiskPath = "/neg-risk"
	balancePath = "/balance-allowance"
)

// TradingClient implements ports.OrderExecutor.
type TradingClient struct {
	client   *Client
	endpoint string
	signer   signer
	wallet   *wallet

	negRisk sync.Map // tokenID → bool
}

// NewTradingClient creates a TradingClient. If endpoint is empty the client's
// CLOB base URL is used.
func NewTradingClient(client *Client, endpoint string, creds Credentials) (*TradingClient, error) {
	if !creds.Valid() {
		return nil, errors.New("trading: missing API credentials or private key")
	}
	w, err := newWallet(creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("trading: %w", err)
	}
	if creds.Address == "" {
		creds.Address = w.address.Hex()
	} else if !strings.EqualFold(creds.Address, w.address.Hex()) {
		return nil, fmt.Errorf("trading: address %s does not match private key (%s)", creds.Address, w.address.Hex())
	}
	if endpoint == "" {
		endpoint = client.clobBase
	}
	return &TradingClient{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		signer:   signer{creds: creds, now: time.Now},
		wallet:   w,
	}, nil
}

// Address returns the wallet address orders are signed with.
func (tc *TradingClient) Address() string { return tc.wallet.address.Hex() }

// PlaceOrder signs and submits a GTC limit order.
func (tc *TradingClient) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.OrderResult, error) {
	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	negRisk, err := tc.isNegRisk(ctx, req.TokenID)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("place order: %w", err)
	}
	signed, err := tc.wallet.sign(req, negRisk)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("place order: sign: %w", err)
	}

	body := orderRequest{
		Order: orderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       req.TokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          string(req.Side),
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.signer.creds.APIKey,
		OrderType: "GTC",
	}

	var resp orderResponse
	err = tc.client.do(ctx, tc.client.clobLimiter, http.MethodPost, tc.endpoint+orderPath, body, tc.l2(http.MethodPost, orderPath), &resp)
	if err != nil {
		if isClientError(err) {
			return domain.OrderResult{}, fmt.Errorf("place order: %w: %w", domain.ErrRejectedOrder, err)
		}
		return domain.OrderResult{}, fmt.Errorf("place order: post: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		return domain.OrderResult{}, fmt.Errorf("place order: %w: %s", domain.ErrRejectedOrder, resp.ErrorMsg)
	}

	result := domain.OrderResult{
		OrderID:    clientID,
		ExchangeID: resp.OrderID,
		Status:     mapOrderStatus(resp.Status),
		At:         time.Now().UTC(),
	}
	if result.Status == domain.OrderFilled {
		result.FilledSize = parseAmount(resp.TakingAmount)
	}
	return result, nil
}

// GetBalance returns the USDC collateral available to the wallet in the CLOB.
func (tc *TradingClient) GetBalance(ctx context.Context) (float64, error) {
	q := url.Values{"asset_type": {"COLLATERAL"}, "signature_type": {"0"}}
	var resp balanceResponse
	err := tc.client.do(ctx, tc.client.clobLimiter, http.MethodGet, tc.endpoint+balancePath+"?"+q.Encode(), nil, tc.l2(http.MethodGet, balancePath), &resp)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	raw, err := strconv.ParseFloat(resp.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("get balance: parse %q: %w", resp.Balance, err)
	}
	return raw / usdcScale, nil
}

// isNegRisk pregunta al CLOB si el token opera en el exchange neg-risk.
// La respuesta se cachea: no cambia durante la vida de un mercado.
func (tc *TradingClient) isNegRisk(ctx context.Context, tokenID string) (bool, error) {
	if v, ok := tc.negRisk.Load(tokenID); ok {
		return v.(bool), nil
	}
	var resp negRiskResponse
	u := tc.endpoint + negRiskPath + "?" + url.Values{"token_id": {tokenID}}.Encode()
	if err := tc.client.get(ctx, tc.client.clobLimiter, u, &resp); err != nil {
		return false, fmt.Errorf("neg-risk check: %w", err)
	}
	tc.negRisk.Store(tokenID, resp.NegRisk)
	return resp.NegRisk, nil
}

// l2 firma sobre el path sin query, como valida el CLOB.
func (tc *TradingClient) l2(method, path string) func([]byte) (map[string]string, error) {
	return func(payload []byte) (map[string]string, error) {
		return tc.signer.headers(method, path, payload)
	}
}

// mapOrderStatus converts CLOB order statuses to domain statuses.
func mapOrderStatus(s string) domain.OrderStatus {
	switch strings.ToLower(s) {
	case "matched", "filled":
		return domain.OrderFilled
	default:
		return domain.OrderSubmitted
	}
}

func parseAmount(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
