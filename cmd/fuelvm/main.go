package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fuelvm/core"
	"fuelvm/pkg/config"
)

var (
	log            = logrus.StandardLogger()
	gasLimitFlag   uint64
	scriptDataFlag string
	outputFormat   string
	debugAddr      string
	inputContracts []string
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "fuelvm",
		Short: "Run FuelVM bytecode and inspect its execution core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(os.Getenv("FUEL_LOG_LEVEL"))
			if err == nil {
				log.SetLevel(lvl)
			}
			return nil
		},
	}

	root.AddCommand(runCmd(), gasCostsCmd(), debugServerCmd())

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [script-file]",
		Short: "Execute a script transaction and print its receipts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			var scriptData []byte
			if scriptDataFlag != "" {
				scriptData, err = os.ReadFile(scriptDataFlag)
				if err != nil {
					return fmt.Errorf("read script data: %w", err)
				}
			}

			cfg, err := config.LoadFromEnv()
			if err != nil {
				log.WithError(err).Warn("using embedded default gas schedule, config load failed")
				cfg = &config.Config{}
			}
			params := core.DefaultConsensusParams()
			for mnemonic, override := range cfg.Gas.Overrides {
				if params.GasCosts.Overrides == nil {
					params.GasCosts.Overrides = map[string]core.Word{}
				}
				params.GasCosts.Overrides[mnemonic] = override
			}

			gasLimit := gasLimitFlag
			if gasLimit == 0 {
				gasLimit = params.MaxGasPerTx
			}

			inputs := make([]core.TxInput, 0, len(inputContracts))
			for _, raw := range inputContracts {
				id, err := parseContractID(raw)
				if err != nil {
					return fmt.Errorf("--input-contract %q: %w", raw, err)
				}
				inputs = append(inputs, core.TxInput{Kind: core.TxInputContract, ContractID: id, WitnessIndex: -1})
			}

			storage := core.NewInMemoryStorage()
			tx := core.ScriptTransaction{Script: script, ScriptData: scriptData, GasLimit: gasLimit, Inputs: inputs}

			transition, err := core.ExecuteScript(storage, params, tx)
			if err != nil {
				return fmt.Errorf("fatal interpreter error: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "gas used: %d\n", transition.GasUsed)
			fmt.Fprintf(cmd.OutOrStdout(), "receipts root: %s\n", hex.EncodeToString(transition.ReceiptsRoot[:]))
			for i, r := range transition.Receipts {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] kind=%d\n", i, r.Kind)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&gasLimitFlag, "gas-limit", 0, "gas limit for the transaction (0 = consensus default)")
	cmd.Flags().StringVar(&scriptDataFlag, "script-data", "", "path to a file containing script data bytes")
	cmd.Flags().StringArrayVar(&inputContracts, "input-contract", nil, "hex-encoded contract id to declare as a transaction input (repeatable); a script's CALL must target one of these")
	return cmd
}

// parseContractID decodes a hex-encoded 32-byte contract id.
func parseContractID(s string) (core.ContractID, error) {
	var id core.ContractID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("expected %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func gasCostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gas-costs",
		Short: "Print the active gas cost schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			costs := core.DefaultGasCosts()
			switch outputFormat {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(costs)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(costs)
			default:
				return fmt.Errorf("unsupported format %q (use json or yaml)", outputFormat)
			}
		},
	}
	cmd.Flags().StringVar(&outputFormat, "format", "json", "output format (json or yaml)")
	return cmd
}

func debugServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug-server",
		Short: "Run the opt-in HTTP introspection server (active gas cost schedule)",
		RunE: func(cmd *cobra.Command, args []string) error {
			costs := core.DefaultGasCosts()

			runID := uuid.New()
			log.WithField("run_id", runID).WithField("addr", debugAddr).Info("starting debug server")

			handler := newDebugServer(costs, log)
			return http.ListenAndServe(debugAddr, handler)
		},
	}
	cmd.Flags().StringVar(&debugAddr, "addr", "127.0.0.1:8547", "address to listen on")
	return cmd
}
