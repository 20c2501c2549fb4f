// This is a http type of reporter.
// It fetches data from the vault ledger
// and publishes it on read-only http routes.

package reporter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/vaultstate"
)

const (
	ROUTE_HELLO   = "/hello"
	ROUTE_STATE   = "/state"
	ROUTE_PRICE   = "/price"
	ROUTE_RECEIPT = "/receipt"
	ROUTE_SHARES  = "/shares"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	statedb *vaultstate.StateDB
}

func NewHttpReporter(serverIP string, serverPort string, statedb *vaultstate.StateDB) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		statedb:    statedb,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_STATE, h.State)
	router.GET(ROUTE_PRICE, h.RoundPrice)
	router.GET(ROUTE_RECEIPT, h.Receipt)
	router.GET(ROUTE_SHARES, h.Shares)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Current round bookkeeping.
func (h *HttpReporter) State(c *gin.Context) {
	var state *vaultstate.VaultState
	err := h.statedb.View(func(txn *vaultstate.Txn) error {
		var err error
		state, err = txn.GetState()
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"round":             state.Round,
		"total_pending":     state.TotalPending.String(),
		"locked_amount":     state.LockedAmount.String(),
		"total_supply":      state.TotalSupply.String(),
		"option_allocation": state.OptionAllocation,
		"current_option":    state.CurrentOption.Hex(),
	})
}

// Finalized price-per-share of a round, 404 while unpriced.
func (h *HttpReporter) RoundPrice(c *gin.Context) {
	round, err := strconv.ParseUint(c.Query("round"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "round must be a positive integer"})
		return
	}

	var price string
	var priced bool
	err = h.statedb.View(func(txn *vaultstate.Txn) error {
		p, ok, err := txn.GetRoundPrice(uint32(round))
		if err != nil {
			return err
		}
		priced = ok
		if ok {
			price = p.String()
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !priced {
		c.JSON(http.StatusNotFound, gin.H{"error": "round is not priced yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"round": round, "price": price})
}

// A depositor's pending deposit receipt.
func (h *HttpReporter) Receipt(c *gin.Context) {
	depositor := c.Query("depositor")
	if depositor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "depositor must be provided"})
		return
	}

	var receipt *vaultstate.DepositReceipt
	err := h.statedb.View(func(txn *vaultstate.Txn) error {
		var err error
		receipt, err = txn.GetDepositReceipt(common.DbHexToAddr(depositor))
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"round":             receipt.Round,
		"amount":            receipt.Amount.String(),
		"unredeemed_shares": receipt.UnredeemedShares.String(),
	})
}

// A holder's directly held share balance.
func (h *HttpReporter) Shares(c *gin.Context) {
	holder := c.Query("holder")
	if holder == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "holder must be provided"})
		return
	}

	var balance string
	err := h.statedb.View(func(txn *vaultstate.Txn) error {
		b, err := txn.ShareBalanceOf(common.DbHexToAddr(holder))
		if err != nil {
			return err
		}
		balance = b.String()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": holder, "balance": balance})
}
