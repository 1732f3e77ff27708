package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miladsoleymani/brokerbridge/broker"
	"github.com/miladsoleymani/brokerbridge/provider"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file",
	Long:  `Load and validate the config file, including every startup instance and its backend.`,
	RunE:  runCheck,
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the available broker backends",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range broker.Names() {
			printf(cmd, "%s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(backendsCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for i, inst := range cfg.Instances {
		bc, err := provider.ParseBridgeConfig(inst.Configuration)
		if err != nil {
			return err
		}
		if !broker.Registered(bc.Backend) {
			return fmt.Errorf("instances[%d]: unknown backend %q (available: %s)",
				i, bc.Backend, strings.Join(broker.Names(), ", "))
		}
		name := inst.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		printf(cmd, "%-16s %-8s %s -> %s\n", name, bc.Backend, strings.Join(bc.Brokers, ","), bc.Topic)
	}
	node := cfg.NodeID
	if node == "" {
		node = "(random)"
	}
	printf(cmd, "config ok: %d instance(s), node %s\n", len(cfg.Instances), node)
	return nil
}
