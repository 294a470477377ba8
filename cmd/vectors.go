// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-edhoc/edhoc-go"
	"github.com/go-edhoc/edhoc-go/internal/defaultcrypto"
)

// Published method 3 test vectors from the protocol's own conformance
// suite, replayed here to demonstrate the wire parser without requiring
// the caller to supply their own credentials. The first offers suites
// [6, 2] and is accepted; the second offers suite 6 only and is rejected.
const (
	vectorsMessage1          = "0382060258208af6f430ebe18d34184017a9a11bf511c8dff8f834730b96c1b7c8dbca2fc3b637"
	vectorsMessage1Unsuited  = "03065820741a13d7ba048fbb615e94386aa3b61bea5b3d8f65f32620b749bee8d278efa90e"
)

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Replay the published message_1 test vectors against this engine's parser",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVectorsDemo()
	},
}

func init() {
	rootCmd.AddCommand(vectorsCmd)
}

func runVectorsDemo() error {
	crypto := defaultcrypto.New()

	respStart, err := edhoc.NewResponder(crypto)
	if err != nil {
		return err
	}
	procM1, perr := respStart.ProcessMessage1(edhoc.FromHex(vectorsMessage1).AsSlice())
	if perr != nil {
		return fmt.Errorf("MESSAGE_1_TV unexpectedly rejected: %w", perr)
	}
	fmt.Printf("MESSAGE_1_TV accepted: C_I = %d\n", procM1.CI())

	respStart2, err := edhoc.NewResponder(crypto)
	if err != nil {
		return err
	}
	_, perr = respStart2.ProcessMessage1(edhoc.FromHex(vectorsMessage1Unsuited).AsSlice())
	if perr == nil {
		return fmt.Errorf("MESSAGE_1_TV_FIRST_TIME unexpectedly accepted")
	}
	fmt.Printf("MESSAGE_1_TV_FIRST_TIME rejected as expected: %s\n", perr.Kind)
	return nil
}
