package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"boardmaster/internal/uci"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Start the configured engine and verify the protocol handshake",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := FindEngine()
		if err != nil {
			return err
		}

		session, err := uci.NewSession(path, uci.DefaultVocabulary())
		if err != nil {
			return fmt.Errorf("probing %s: %w", path, err)
		}
		defer session.Close()

		id := session.EngineID()
		if id == "" {
			id = "(engine reported no identity)"
		}
		fmt.Printf("engine: %s\npath:   %s\n", id, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
