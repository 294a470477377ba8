// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-edhoc/edhoc-go"
	"github.com/go-edhoc/edhoc-go/internal/defaultcrypto"
)

var (
	hsCredIPath string
	hsCredRPath string
	hsIPath     string
	hsRPath     string
)

var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Run a loopback Initiator/Responder handshake and print the derived exporter values",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return handshakeCmdLoadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHandshakeDemo()
	},
}

func init() {
	rootCmd.AddCommand(handshakeCmd)

	handshakeCmd.Flags().String("cred-i", "", "Initiator's CRED_I as a hex-encoded CCS credential")
	handshakeCmd.Flags().String("cred-r", "", "Responder's CRED_R as a hex-encoded CCS credential")
	handshakeCmd.Flags().String("i", "", "Initiator's static private key, hex-encoded")
	handshakeCmd.Flags().String("r", "", "Responder's static private key, hex-encoded")
}

func handshakeCmdLoadConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	hsCredIPath = viper.GetString("cred-i")
	hsCredRPath = viper.GetString("cred-r")
	hsIPath = viper.GetString("i")
	hsRPath = viper.GetString("r")

	if hsCredIPath == "" || hsCredRPath == "" || hsIPath == "" || hsRPath == "" {
		return fmt.Errorf("handshake requires --cred-i, --cred-r, --i, and --r")
	}
	return nil
}

func runHandshakeDemo() error {
	credI, iPriv, err := loadCredentialAndKey(hsCredIPath, hsIPath)
	if err != nil {
		return fmt.Errorf("initiator credential: %w", err)
	}
	credR, rPriv, err := loadCredentialAndKey(hsCredRPath, hsRPath)
	if err != nil {
		return fmt.Errorf("responder credential: %w", err)
	}

	crypto := defaultcrypto.New()

	initStart, ierr := edhoc.NewInitiator(crypto)
	if ierr != nil {
		return ierr
	}
	respStart, ierr := edhoc.NewResponder(crypto)
	if ierr != nil {
		return ierr
	}

	waitM2, wire1, ierr := initStart.PrepareMessage1(nil, nil)
	if ierr != nil {
		return fmt.Errorf("prepare_message_1: %w", ierr)
	}

	procM1, ierr := respStart.ProcessMessage1(wire1)
	if ierr != nil {
		return fmt.Errorf("process_message_1: %w", ierr)
	}

	idCredR := edhoc.IDCred{Kind: edhoc.ByReference, Kid: credR.Kid}
	waitM3, wire2, ierr := procM1.PrepareMessage2(rPriv, nil, idCredR, credR.Value.AsSlice(), nil)
	if ierr != nil {
		return fmt.Errorf("prepare_message_2: %w", ierr)
	}

	procM2, ierr := waitM2.ParseMessage2(wire2)
	if ierr != nil {
		return fmt.Errorf("parse_message_2: %w", ierr)
	}
	processedM2, ierr := procM2.VerifyMessage2(iPriv, credR)
	if ierr != nil {
		return fmt.Errorf("verify_message_2: %w", ierr)
	}

	idCredI := edhoc.IDCred{Kind: edhoc.ByReference, Kid: credI.Kid}
	initDone, wire3, ierr := processedM2.PrepareMessage3(idCredI, credI.Value.AsSlice(), nil)
	if ierr != nil {
		return fmt.Errorf("prepare_message_3: %w", ierr)
	}

	procM3, ierr := waitM3.ParseMessage3(wire3)
	if ierr != nil {
		return fmt.Errorf("parse_message_3: %w", ierr)
	}
	respDone, ierr := procM3.VerifyMessage3(credI)
	if ierr != nil {
		return fmt.Errorf("verify_message_3: %w", ierr)
	}

	iExp, ierr := initDone.Exporter(0, nil, 16)
	if ierr != nil {
		return ierr
	}
	rExp, ierr := respDone.Exporter(0, nil, 16)
	if ierr != nil {
		return ierr
	}

	fmt.Printf("handshake complete\n")
	fmt.Printf("initiator exporter(0, \"\", 16) = %x\n", iExp)
	fmt.Printf("responder exporter(0, \"\", 16) = %x\n", rExp)
	return nil
}

func loadCredentialAndKey(credHex, keyHex string) (edhoc.CredentialRPK, [32]byte, error) {
	var priv [32]byte

	credBytes, err := hex.DecodeString(credHex)
	if err != nil {
		return edhoc.CredentialRPK{}, priv, fmt.Errorf("invalid credential hex: %w", err)
	}
	cred, cerr := edhoc.NewCredentialRPK(credBytes)
	if cerr != nil {
		return edhoc.CredentialRPK{}, priv, cerr
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return edhoc.CredentialRPK{}, priv, fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return edhoc.CredentialRPK{}, priv, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	copy(priv[:], keyBytes)

	return cred, priv, nil
}
