package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado de Gamma.
// outcomes, outcomePrices y clobTokenIds llegan como arrays JSON serializados
// dentro de un string; volume y liquidity a veces como string, usamos json.Number.
type gammaMarket struct {
	ID            string      `json:"id"`
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	Category      string      `json:"category"`
	EndDate       string      `json:"endDate"`
	EndDateISO    string      `json:"endDateIso"`
	ClosedTime    string      `json:"closedTime"`
	Outcomes      string      `json:"outcomes"`
	OutcomePrices string      `json:"outcomePrices"`
	ClobTokenIDs  string      `json:"clobTokenIds"`
	Volume        json.Number `json:"volume"`
	Volume24h     json.Number `json:"volume24hr"`
	Liquidity     json.Number `json:"liquidity"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

// --- CLOB API ---

// bookResponse es la respuesta de GET /book.
type bookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// priceHistoryResponse es la respuesta de GET /prices-history.
type priceHistoryResponse struct {
	History []pricePoint `json:"history"`
}

type pricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// orderRequest is the JSON body sent to POST /order.
type orderRequest struct {
	Order     orderBody `json:"order"`
	Owner     string    `json:"owner"`
	OrderType string    `json:"orderType"`
}

// orderBody is the signed order as the CLOB expects it: amounts as decimal strings.
type orderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// orderResponse is the body returned by POST /order.
type orderResponse struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	Status       string `json:"status"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
}
