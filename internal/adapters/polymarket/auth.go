package polymarket

// auth.go: authentication for the CLOB order endpoint.
//
// Two layers:
//   order: every order is an EIP-712 struct signed with the wallet key
//   L2:    every authenticated request carries HMAC-SHA256 headers over
//          timestamp + METHOD + path + body, keyed with the base64url API secret
//
// API credentials are provisioned out of band and passed in through config.

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const (
	polygonChainID = int64(137)

	// Taker vacío: orden pública.
	zeroAddress = "0x0000000000000000000000000000000000000000"

	// USDC y los shares del CTF usan 6 decimales.
	usdcScale = 1_000_000
)

// Credentials are the CLOB API credentials of a wallet.
// Address is derived from PrivateKey when empty.
type Credentials struct {
	PrivateKey string // hex, without 0x
	Address    string
	APIKey     string
	Secret     string
	Passphrase string
}

// Valid reports whether all fields needed to sign orders are present.
func (c Credentials) Valid() bool {
	return c.PrivateKey != "" && c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// signer builds L2 headers. now is injectable for tests.
type signer struct {
	creds Credentials
	now   func() time.Time
}

// headers returns the L2 headers for the request.
func (s signer) headers(method, path string, body []byte) (map[string]string, error) {
	secret, err := base64.URLEncoding.DecodeString(s.creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("auth: decode secret: %w", err)
	}

	ts := strconv.FormatInt(s.now().Unix(), 10)
	msg := ts + strings.ToUpper(method) + path + string(body)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_ADDRESS":    s.creds.Address,
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    s.creds.APIKey,
		"POLY_PASSPHRASE": s.creds.Passphrase,
	}, nil
}

// wallet firma órdenes EIP-712 con la clave de la cuenta.
type wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	builder builder.ExchangeOrderBuilder
}

func newWallet(privateKeyHex string) (*wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("auth: invalid private key: %w", err)
	}
	return &wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		builder: builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
	}, nil
}

// orderAmounts convierte price (USDC por share) y size (shares) en los enteros
// de 6 decimales del CLOB. El CLOB exige makerAmount == price * takerAmount
// exacto en BUY, así que todo se calcula en enteros.
func orderAmounts(side domain.Side, price, size float64) (maker, taker int64, err error) {
	precision := pricePrecision(price)
	priceInt := int64(math.Round(price * float64(precision)))
	sharesCents := int64(math.Floor(size*100 + 1e-9))

	usdc := sharesCents * priceInt * (usdcScale / (100 * precision))
	shares := sharesCents * (usdcScale / 100)
	if usdc <= 0 || shares <= 0 {
		return 0, 0, fmt.Errorf("invalid amounts: usdc=%d shares=%d (price=%.4f size=%.4f)", usdc, shares, price, size)
	}
	if side == domain.SideSell {
		return shares, usdc, nil
	}
	return usdc, shares, nil
}

// pricePrecision devuelve el multiplicador que corresponde al tick del precio:
// 0.60 → 100, 0.673 → 1000.
func pricePrecision(price float64) int64 {
	for _, prec := range []int64{100, 1000, 10000} {
		rounded := math.Round(price * float64(prec))
		if math.Abs(rounded/float64(prec)-price) < 1e-10 {
			return prec
		}
	}
	return 100
}

// sign construye y firma la orden. negRisk elige el contrato de exchange.
func (w *wallet) sign(req domain.PlaceOrderRequest, negRisk bool) (*gomodel.SignedOrder, error) {
	maker, taker, err := orderAmounts(req.Side, req.Price, req.Size)
	if err != nil {
		return nil, err
	}

	side := gomodel.BUY
	if req.Side == domain.SideSell {
		side = gomodel.SELL
	}
	contract := gomodel.CTFExchange
	if negRisk {
		contract = gomodel.NegRiskCTFExchange
	}

	signed, err := w.builder.BuildSignedOrder(w.key, &gomodel.OrderData{
		Maker:         w.address.Hex(),
		Taker:         zeroAddress,
		TokenId:       req.TokenID,
		MakerAmount:   strconv.FormatInt(maker, 10),
		TakerAmount:   strconv.FormatInt(taker, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        w.address.Hex(),
		Expiration:    "0",
		Side:          side,
		SignatureType: gomodel.EOA,
	}, contract)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}
