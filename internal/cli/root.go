// Package cli is the publisher-side tool: key generation, message signing and
// admin token issuance.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ORACLECTL"

// NewRootCmd builds the oraclectl command tree. Every flag can also be set as
// ORACLECTL_<FLAG> with dashes turned into underscores.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "oraclectl",
		Short:         "Sign and verify price oracle messages",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	root.AddCommand(
		newKeygenCmd(),
		newSignCmd(v),
		newVerifyCmd(v),
		newAdminTokenCmd(v),
	)
	return root
}

// Execute runs the command tree; it is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func required(v *viper.Viper, names ...string) error {
	var missing []string
	for _, n := range names {
		if v.GetString(n) == "" {
			missing = append(missing, "--"+n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}
