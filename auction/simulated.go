package auction

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/custody"
)

var (
	ErrInvalidBid          = errors.New("bid parameters are invalid")
	ErrNoLiveAuction       = errors.New("counterparty has no live auction")
	ErrAuctionNotClaimable = errors.New("auction is not claimable yet")
)

type placedOrder struct {
	auctionID  *big.Int
	bidder     ethcommon.Address
	sellAmount *big.Int
}

// SimulatedAuctionHouse settles bids against an in-memory custodian.
// Fill ratio and claim timing are configurable so tests can exercise
// partial fills and legs that are not yet claimable.
type SimulatedAuctionHouse struct {
	addr      ethcommon.Address
	custodian custody.AssetCustodian

	mu           sync.Mutex
	nextUserID   uint64
	orders       map[uint64]placedOrder
	fillPercent  int64           // 0..100, portion of sellAmount actually filled
	notClaimable map[string]bool // auctionID -> claim blocked
}

func NewSimulatedAuctionHouse(addr ethcommon.Address, custodian custody.AssetCustodian) *SimulatedAuctionHouse {
	return &SimulatedAuctionHouse{
		addr:         addr,
		custodian:    custodian,
		nextUserID:   1,
		orders:       make(map[uint64]placedOrder),
		fillPercent:  100,
		notClaimable: make(map[string]bool),
	}
}

// SetFillPercent makes future claims refund (100-p)% of each sell amount.
func (h *SimulatedAuctionHouse) SetFillPercent(p int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fillPercent = p
}

// SetClaimable toggles whether claims against the auction succeed.
func (h *SimulatedAuctionHouse) SetClaimable(auctionID *big.Int, claimable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notClaimable[auctionID.String()] = !claimable
}

func (h *SimulatedAuctionHouse) PlaceBid(params *BidParams) (SellOrder, error) {
	if params == nil || params.AuctionID == nil ||
		params.LockedBalance == nil || params.LockedBalance.Sign() < 0 ||
		params.Premium == nil || params.Premium.Sign() <= 0 {
		return SellOrder{}, ErrInvalidBid
	}

	// allocation carries 2 implied decimals, so percent = allocation / 100
	sellAmount := new(big.Int).Mul(params.LockedBalance, big.NewInt(int64(params.Allocation)))
	sellAmount.Quo(sellAmount, big.NewInt(100*common.PercentMultiplier))

	buyAmount := new(big.Int).Mul(sellAmount, common.Pow10(params.AssetDecimals))
	buyAmount.Quo(buyAmount, params.Premium)

	if sellAmount.Sign() > 0 {
		if err := h.custodian.Transfer(params.Bidder, h.addr, sellAmount); err != nil {
			return SellOrder{}, err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	userID := h.nextUserID
	h.nextUserID++
	h.orders[userID] = placedOrder{
		auctionID:  common.BigIntClone(params.AuctionID),
		bidder:     params.Bidder,
		sellAmount: common.BigIntClone(sellAmount),
	}

	logger.WithFields(logger.Fields{
		"auction": params.AuctionID.String(),
		"user":    userID,
		"sell":    sellAmount.String(),
		"buy":     buyAmount.String(),
	}).Debug("simulated bid placed")

	return SellOrder{SellAmount: sellAmount, BuyAmount: buyAmount, UserID: userID}, nil
}

func (h *SimulatedAuctionHouse) Claim(order SellOrder, counterparty ethcommon.Address) error {
	if order.Empty() {
		return nil
	}

	h.mu.Lock()
	rec, live := h.orders[order.UserID]
	if !live {
		// already settled, claiming again is safe
		h.mu.Unlock()
		return nil
	}
	if h.notClaimable[rec.auctionID.String()] {
		h.mu.Unlock()
		return ErrAuctionNotClaimable
	}
	refund := new(big.Int).Mul(rec.sellAmount, big.NewInt(100-h.fillPercent))
	refund.Quo(refund, big.NewInt(100))
	delete(h.orders, order.UserID)
	h.mu.Unlock()

	if refund.Sign() > 0 {
		if err := h.custodian.Transfer(h.addr, rec.bidder, refund); err != nil {
			return err
		}
	}
	return nil
}

// SimulatedCounterpartyVault is an option-selling vault stub with a
// settable live auction.
type SimulatedCounterpartyVault struct {
	addr  ethcommon.Address
	asset ethcommon.Address

	mu        sync.Mutex
	auctionID *big.Int
}

func NewSimulatedCounterpartyVault(addr, asset ethcommon.Address) *SimulatedCounterpartyVault {
	return &SimulatedCounterpartyVault{addr: addr, asset: asset, auctionID: big.NewInt(1)}
}

func (v *SimulatedCounterpartyVault) Address() ethcommon.Address { return v.addr }

func (v *SimulatedCounterpartyVault) CurrentAuctionID() (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.auctionID == nil {
		return nil, ErrNoLiveAuction
	}
	return common.BigIntClone(v.auctionID), nil
}

func (v *SimulatedCounterpartyVault) Asset() (ethcommon.Address, error) {
	return v.asset, nil
}

// StartNextAuction advances the counterparty to a fresh auction id.
func (v *SimulatedCounterpartyVault) StartNextAuction() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.auctionID = new(big.Int).Add(v.auctionID, big.NewInt(1))
	return common.BigIntClone(v.auctionID)
}

// SimulatedOptionsIssuer derives a deterministic option token address
// per (asset, round) pair.
type SimulatedOptionsIssuer struct{}

func (SimulatedOptionsIssuer) NextOption(asset ethcommon.Address, round uint32) (ethcommon.Address, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, round)
	h := crypto.Keccak256Hash(asset.Bytes(), buf)
	return ethcommon.BytesToAddress(h.Bytes()[12:]), nil
}
