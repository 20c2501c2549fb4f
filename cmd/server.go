// Server = vault core + simulated collaborators + db/ledger + http reporter.
// All components are configured via a config file (strings!).

package cmd

import (
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/openhedge/straddle-go/auction"
	"github.com/openhedge/straddle-go/common"
	"github.com/openhedge/straddle-go/custody"
	"github.com/openhedge/straddle-go/reporter"
	"github.com/openhedge/straddle-go/roundctl"
	"github.com/openhedge/straddle-go/vault"
	"github.com/openhedge/straddle-go/vaultstate"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type VaultServerConfig struct {
	// ledger side
	DbFilePath string // db file path

	// role addresses (hex)
	VaultAddr    string
	Owner        string
	Keeper       string
	FeeRecipient string

	// share token metadata
	TokenName   string
	TokenSymbol string

	// asset side
	Asset     string // asset identifier (hex address)
	Decimals  uint8
	Cap       string // base-10 amount
	MinSupply string // base-10 amount

	// fee rates and allocation, 2 implied decimals
	ManagementFee    uint16
	PerformanceFee   uint16
	OptionAllocation uint16

	// counterparty auction vaults (hex)
	PutVaultAddr     string
	CallVaultAddr    string
	AuctionHouseAddr string

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// VaultServer holds the objects that consists of the vault server.
type VaultServer struct {
	MyStateDb   *vaultstate.StateDB
	MyCustodian *custody.SimulatedCustodian
	MyHouse     *auction.SimulatedAuctionHouse
	MyPutVault  *auction.SimulatedCounterpartyVault
	MyCallVault *auction.SimulatedCounterpartyVault
	MyVault     *vault.Vault
	MyReporter  *reporter.HttpReporter
}

// NewVaultServer creates the vault with its simulated collaborators.
// Real auction-house and custody adapters plug into the same ports.
func NewVaultServer(vsc *VaultServerConfig) (*VaultServer, error) {
	sqldb, err := sql.Open("sqlite3", vsc.DbFilePath)
	if err != nil {
		logger.Fatalf("failed to open db file: %v", err)
		return nil, err
	}

	myStateDb, err := vaultstate.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("failed to create vault state db: %v", err)
		return nil, err
	}

	asset := ethcommon.HexToAddress(vsc.Asset)
	vaultAddr := ethcommon.HexToAddress(vsc.VaultAddr)
	feeRecipient := ethcommon.HexToAddress(vsc.FeeRecipient)

	myCustodian := custody.NewSimulatedCustodian()
	myHouse := auction.NewSimulatedAuctionHouse(ethcommon.HexToAddress(vsc.AuctionHouseAddr), myCustodian)
	myPutVault := auction.NewSimulatedCounterpartyVault(ethcommon.HexToAddress(vsc.PutVaultAddr), asset)
	myCallVault := auction.NewSimulatedCounterpartyVault(ethcommon.HexToAddress(vsc.CallVaultAddr), asset)

	myController, err := roundctl.NewController(
		vaultAddr,
		feeRecipient,
		vsc.ManagementFee,
		myCustodian,
		auction.SimulatedOptionsIssuer{},
	)
	if err != nil {
		logger.Fatalf("failed to create round controller: %v", err)
		return nil, err
	}

	capAmount := common.DbStrToBigInt(vsc.Cap)
	minSupply := common.DbStrToBigInt(vsc.MinSupply)
	if capAmount == nil || minSupply == nil {
		logger.Fatalf("cap and min supply must be base-10 integers: cap=%s minSupply=%s", vsc.Cap, vsc.MinSupply)
		return nil, vaultstate.ErrInvalidAmount
	}

	myVault, err := vault.New(
		&vault.Config{
			VaultAddr:        vaultAddr,
			Owner:            ethcommon.HexToAddress(vsc.Owner),
			Keeper:           ethcommon.HexToAddress(vsc.Keeper),
			FeeRecipient:     feeRecipient,
			TokenName:        vsc.TokenName,
			TokenSymbol:      vsc.TokenSymbol,
			Asset:            asset,
			Decimals:         vsc.Decimals,
			Cap:              capAmount,
			MinSupply:        minSupply,
			ManagementFee:    vsc.ManagementFee,
			PerformanceFee:   vsc.PerformanceFee,
			OptionAllocation: vsc.OptionAllocation,
		},
		myStateDb,
		myCustodian,
		myHouse,
		myPutVault,
		myCallVault,
		myController,
	)
	if err != nil {
		logger.Fatalf("failed to create vault: %v", err)
		return nil, err
	}

	myReporter := reporter.NewHttpReporter(vsc.HttpIp, vsc.HttpPort, myStateDb)

	return &VaultServer{
		MyStateDb:   myStateDb,
		MyCustodian: myCustodian,
		MyHouse:     myHouse,
		MyPutVault:  myPutVault,
		MyCallVault: myCallVault,
		MyVault:     myVault,
		MyReporter:  myReporter,
	}, nil
}

// StartVaultServerAndWait runs the reporter and blocks until Ctrl+C.
func StartVaultServerAndWait(vsc *VaultServerConfig) {
	server, err := NewVaultServer(vsc)
	if err != nil {
		logger.Fatalf("failed to create vault server: %v", err)
		return
	}
	defer server.MyStateDb.Close()

	go server.MyReporter.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("vault server shutting down")
}
