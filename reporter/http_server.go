// Package reporter is C11 (SPEC_FULL.md §4 C11): the gin-based HTTP
// surface of spec.md §6.1. Every handler is a thin adapter over the
// store, orderbook client, and swap-creation flow — no business logic
// lives here, matching the teacher's HttpReporter shape of "fetch from
// an upstream source, publish on a route."
package reporter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"github.com/cbbtc-swap/coordinator/apperr"
	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/orderbook"
	"github.com/cbbtc-swap/coordinator/store"
	"github.com/cbbtc-swap/coordinator/swapcreate"
	"github.com/cbbtc-swap/coordinator/token"
)

const (
	RouteHealth     = "/health"
	RouteQuote      = "/quote"
	RouteSwap       = "/swap"
	RouteSwapStatus = "/swap/:id"
	RouteMetrics    = "/metrics"
)

// HttpReporter serves spec.md §6.1's public API. Its upstream data
// sources are the store, the orderbook client (for /quote), the
// swap-creation flow (for POST /swap), and the metrics registry.
type HttpReporter struct {
	serverIP   string
	serverPort string

	store       *store.Store
	orderbook   *orderbook.Client
	creator     *swapcreate.Creator
	metrics     *metrics.Registry
	reqTimeout  time.Duration
}

func NewHttpReporter(
	serverIP, serverPort string,
	st *store.Store,
	ob *orderbook.Client,
	creator *swapcreate.Creator,
	reg *metrics.Registry,
	reqTimeout time.Duration,
) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		store:      st,
		orderbook:  ob,
		creator:    creator,
		metrics:    reg,
		reqTimeout: reqTimeout,
	}
}

// requestTimeout enforces spec.md §5's "blanket per-request budget on
// the public API side [to] prevent head-of-line blocking."
func (h *HttpReporter) requestTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.reqTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(h.requestTimeout())

	router.GET(RouteHealth, h.Health)
	router.POST(RouteQuote, h.Quote)
	router.POST(RouteSwap, h.CreateSwap)
	router.GET(RouteSwapStatus, h.SwapStatus)
	router.GET(RouteMetrics, h.Metrics)

	return router
}

func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		logger.WithError(err).Fatal("reporter: http server exited")
	}
}

func (h *HttpReporter) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (h *HttpReporter) Metrics(c *gin.Context) {
	promhttp.HandlerFor(h.metrics.Gatherer(), promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

type quoteRequest struct {
	ChainID    int64  `json:"chainId" binding:"required"`
	BuyToken   token.Token `json:"buyToken"`
	SellAmount string `json:"sellAmount" binding:"required"`
}

type quoteResponse struct {
	CanFill    bool   `json:"canFill"`
	QuoteID    string `json:"quoteId,omitempty"`
	SellAmount string `json:"sellAmount,omitempty"`
	BuyAmount  string `json:"buyAmount,omitempty"`
	FeeAmount  string `json:"feeAmount,omitempty"`
	ValidTo    uint32 `json:"validTo,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Quote implements POST /quote (spec.md §6.1): an advisory price lookup
// against the orderbook, with the sell side fixed to CBBTC on chainId.
func (h *HttpReporter) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	chainID := chains.ID(req.ChainID)
	registry := h.creator.ChainRegistry()
	if !registry.Supported(chainID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported chain"})
		return
	}

	sellAmount, ok := parseAmount(req.SellAmount)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "sellAmount must be a positive decimal integer"})
		return
	}

	quote, err := h.orderbook.Quote(c.Request.Context(), chainID, chains.CBBTC, req.BuyToken.OnChainAddress(), sellAmount, chains.CBBTC)
	if err != nil {
		var up *orderbook.UpstreamError
		if errors.As(err, &up) {
			c.JSON(http.StatusBadRequest, quoteResponse{CanFill: false, Message: up.Body})
			return
		}
		logger.WithError(err).Warn("reporter: quote failed")
		c.JSON(http.StatusBadRequest, quoteResponse{CanFill: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, quoteResponse{
		CanFill:    true,
		QuoteID:    quote.QuoteID,
		SellAmount: quote.SellAmount.String(),
		BuyAmount:  quote.BuyAmount.String(),
		FeeAmount:  quote.FeeAmount.String(),
		ValidTo:    quote.ValidTo,
	})
}

type createSwapRequest struct {
	ChainID          int64       `json:"chainId" binding:"required"`
	BuyToken         token.Token `json:"buyToken"`
	RecipientAddress string      `json:"recipientAddress" binding:"required"`
	RefundAddress    string      `json:"refundAddress" binding:"required"`
}

type createSwapResponse struct {
	SwapID       string `json:"swapId"`
	VaultAddress string `json:"vaultAddress"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// CreateSwap implements POST /swap (spec.md §6.1 and §4.10's precursor):
// mint a fresh vault and record a pending_deposit row.
func (h *HttpReporter) CreateSwap(c *gin.Context) {
	var req createSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sw, err := h.creator.Create(c.Request.Context(), swapcreate.Request{
		Chain:            chains.ID(req.ChainID),
		BuyToken:         req.BuyToken,
		RecipientAddress: req.RecipientAddress,
		RefundAddress:    req.RefundAddress,
	})
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.WithError(err).Error("reporter: create swap failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, createSwapResponse{
		SwapID:       sw.SwapID.String(),
		VaultAddress: sw.VaultAddress.Hex(),
		ExpiresAt:    sw.ExpiresAt.UnixMilli(),
	})
}

type swapStatusResponse struct {
	SwapID            string `json:"swapId"`
	ChainID           int64  `json:"chainId"`
	VaultAddress      string `json:"vaultAddress"`
	Status            string `json:"status"`
	RecipientAddress  string `json:"recipientAddress"`
	RefundAddress     string `json:"refundAddress"`
	DepositTxHash     string `json:"depositTxHash,omitempty"`
	DepositAmount     string `json:"depositAmount,omitempty"`
	CowOrderUID       string `json:"cowOrderUid,omitempty"`
	OrderStatus       string `json:"orderStatus,omitempty"`
	SettlementTxHash  string `json:"settlementTxHash,omitempty"`
	ActualBuyAmount   string `json:"actualBuyAmount,omitempty"`
	FailureReason     string `json:"failureReason,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
	ExpiresAt         int64  `json:"expiresAt"`
}

// SwapStatus implements GET /swap/:id (spec.md §6.1).
func (h *HttpReporter) SwapStatus(c *gin.Context) {
	id := c.Param("id")

	sw, err := h.store.ByID(c.Request.Context(), store.SwapID(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "swap not found"})
			return
		}
		logger.WithError(err).Error("reporter: swap status lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := swapStatusResponse{
		SwapID:            sw.SwapID.String(),
		ChainID:           int64(sw.Chain),
		VaultAddress:      sw.VaultAddress.Hex(),
		Status:            string(sw.Status),
		RecipientAddress:  sw.RecipientAddress.Hex(),
		RefundAddress:     sw.RefundAddress.Hex(),
		DepositTxHash:     sw.DepositTxHash,
		CowOrderUID:       sw.CowOrderUID,
		OrderStatus:       string(sw.OrderStatus),
		SettlementTxHash:  sw.SettlementTxHash,
		FailureReason:     sw.FailureReason,
		CreatedAt:         sw.CreatedAt.UnixMilli(),
		ExpiresAt:         sw.ExpiresAt.UnixMilli(),
	}
	if sw.DepositAmount != nil {
		resp.DepositAmount = sw.DepositAmount.String()
	}
	if sw.ActualBuyAmount != nil {
		resp.ActualBuyAmount = sw.ActualBuyAmount.String()
	}

	c.JSON(http.StatusOK, resp)
}
