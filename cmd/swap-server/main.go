// Command swap-server is the coordinator process: it loads
// configuration from the environment, applies pending migrations, and
// runs every poller and the HTTP API until terminated. Modeled directly
// on the teacher's cmd/server_cmd/main.go.
package main

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/cbbtc-swap/coordinator/cmd"
	"github.com/cbbtc-swap/coordinator/config"
	"github.com/cbbtc-swap/coordinator/logconfig"
)

const envConfigFilePath = "SWAP_COORDINATOR_CONFIG"

func main() {
	logconfig.ConfigProductionLogger()
	viper.AutomaticEnv()

	if configFile := viper.GetString(envConfigFilePath); configFile != "" {
		if !cmd.FileExists(configFile) {
			logger.Fatalf("swap-server: configuration file not found: %s", configFile)
		}
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatalf("swap-server: error reading configuration file: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("swap-server: invalid configuration: %v", err)
	}

	fmt.Printf("Starting cbBTC swap coordinator (%s)... press Ctrl+C to stop\n", cfg)
	cmd.StartSwapCoordinatorAndWait(cfg)
}
