package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/openhedge/straddle-go/cmd"
	"github.com/openhedge/straddle-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "VAULT_CONFIG"
)

func main() {
	logconfig.ConfigProductionLogger()
	// logconfig.ConfigDebugLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Vault server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Vault server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	vsc := PrepareVaultServerConfig()

	fmt.Println("Starting vault server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartVaultServerAndWait(vsc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareVaultServerConfig reads configuration variables and returns a VaultServerConfig.
func PrepareVaultServerConfig() *cmd.VaultServerConfig {
	return &cmd.VaultServerConfig{
		// ledger side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// roles
		VaultAddr:    viper.GetString("VAULT_ADDR"),
		Owner:        viper.GetString("OWNER_ADDR"),
		Keeper:       viper.GetString("KEEPER_ADDR"),
		FeeRecipient: viper.GetString("FEE_RECIPIENT_ADDR"),
		// share token
		TokenName:   viper.GetString("TOKEN_NAME"),
		TokenSymbol: viper.GetString("TOKEN_SYMBOL"),
		// asset side
		Asset:     viper.GetString("ASSET_ADDR"),
		Decimals:  uint8(viper.GetUint16("ASSET_DECIMALS")),
		Cap:       viper.GetString("VAULT_CAP"),
		MinSupply: viper.GetString("VAULT_MIN_SUPPLY"),
		// percentages, 2 implied decimals (1000 = 10%)
		ManagementFee:    viper.GetUint16("MANAGEMENT_FEE"),
		PerformanceFee:   viper.GetUint16("PERFORMANCE_FEE"),
		OptionAllocation: viper.GetUint16("OPTION_ALLOCATION"),
		// counterparties
		PutVaultAddr:     viper.GetString("PUT_VAULT_ADDR"),
		CallVaultAddr:    viper.GetString("CALL_VAULT_ADDR"),
		AuctionHouseAddr: viper.GetString("AUCTION_HOUSE_ADDR"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
