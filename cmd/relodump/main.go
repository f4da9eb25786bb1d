package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/relo/pkg/snapfile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "relodump",
		Short:        "Inspect relocatable snapshot files",
		SilenceUsage: true,
	}
	root.AddCommand(newInfoCmd(), newHexCmd())
	return root
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print the container header of a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := snapfile.Map(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			h := m.Header()
			fmt.Printf("magic:    %#08x\n", h.Magic)
			fmt.Printf("version:  %d\n", h.Version)
			fmt.Printf("flags:    %#04x\n", h.Flags)
			fmt.Printf("payload:  %d bytes\n", h.PayloadLen)
			return nil
		},
	}
}

func newHexCmd() *cobra.Command {
	var offset uint64
	var length uint64

	cmd := &cobra.Command{
		Use:   "hex <file>",
		Short: "Hexdump a window of the snapshot payload",
		Long: "Hexdump a window of the snapshot payload. Offsets shown are relative\n" +
			"to the payload start, matching the offsets stored in pointer slots.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := snapfile.Map(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			payload := m.Payload()
			if offset >= uint64(len(payload)) {
				return fmt.Errorf("offset %d past payload end (%d bytes)", offset, len(payload))
			}
			end := uint64(len(payload))
			if length > 0 && offset+length < end {
				end = offset + length
			}

			d := hex.Dumper(os.Stdout)
			defer d.Close()
			if _, err := d.Write(payload[offset:end]); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&offset, "offset", 0, "payload offset to start at")
	cmd.Flags().Uint64Var(&length, "length", 0, "bytes to dump (0 = to the end)")
	return cmd
}
