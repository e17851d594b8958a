package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet/transfer"
	"github.com/knowable-run/namwallet/wallet/txbuilder"
	"github.com/knowable-run/namwallet/wallet/workflow"
)

const (
	flagNameRequestFile = "request-file"
	flagNameSchemaless  = "schemaless"
	flagNameOutput      = "output"
	flagHelpOutput      = "filename into which to save the CBOR encoded data, if not set then stdout"

	flagNameAmount   = "amount"
	flagNameToken    = "token"
	flagNameSource   = "source"
	flagNameReceiver = "receiver"
	flagNamePort     = "port"
	flagNameChannel  = "channel-id"
)

func encodeRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode-request",
		Short: "Convert transfer request file to CBOR",
		Long: `Reads transfer request (the same file which is accepted by the "request-file" flag of the ` +
			`transfer commands) and outputs it as CBOR. Files with extension 'plist', 'json' and 'yaml' ` +
			`are supported. With "schemaless" flag the content of the file is converted as-is, ` +
			`without checking that it is a valid transfer request.`,
		Example: fmt.Sprintf("namwallet tool encode-request --%s=./transfer.yaml --%s=./transfer.cbor", flagNameRequestFile, flagNameOutput),
		RunE:    runEncodeRequestCmd,
	}
	cmd.Flags().String(flagNameRequestFile, "", "filename of the transfer request")
	if err := cmd.MarkFlagRequired(flagNameRequestFile); err != nil {
		panic(err)
	}
	cmd.Flags().Bool(flagNameSchemaless, false, "do not decode the file as transfer request")
	cmd.Flags().String(flagNameOutput, "", flagHelpOutput)
	return cmd
}

func runEncodeRequestCmd(cmd *cobra.Command, args []string) error {
	filename, err := cmd.Flags().GetString(flagNameRequestFile)
	if err != nil {
		return fmt.Errorf("reading %q flag: %w", flagNameRequestFile, err)
	}
	schemaless, err := cmd.Flags().GetBool(flagNameSchemaless)
	if err != nil {
		return fmt.Errorf("reading %q flag: %w", flagNameSchemaless, err)
	}

	if schemaless {
		data, err := os.ReadFile(filepath.Clean(filename))
		if err != nil {
			return fmt.Errorf("reading %q file: %w", filename, err)
		}
		if data, err = convertToCBOR(data, filepath.Ext(filename)); err != nil {
			return err
		}
		return outputRaw(cmd, data)
	}

	order, err := workflow.ReadOrderFile(filename)
	if err != nil {
		return err
	}
	if _, err := transfer.ParseKind(order.Kind); err != nil {
		return err
	}
	if err := outputAsCBOR(cmd, order); err != nil {
		return fmt.Errorf("encoding request as CBOR: %w", err)
	}
	return nil
}

func ibcMemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ibc-memo",
		Short: "Render the memo line used by IBC transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var values [6]string
			for i, name := range []string{flagNameAmount, flagNameToken, flagNameSource, flagNameReceiver, flagNamePort, flagNameChannel} {
				v, err := cmd.Flags().GetString(name)
				if err != nil {
					return fmt.Errorf("reading %q flag: %w", name, err)
				}
				values[i] = v
			}
			if err := txbuilder.ValidateChannelID(values[5]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), transfer.IBCMemo(values[0], values[1], values[2], values[3], values[4], values[5]))
			return err
		},
	}
	cmd.Flags().String(flagNameAmount, "", "amount to transfer")
	cmd.Flags().String(flagNameToken, "", "token alias or address")
	cmd.Flags().String(flagNameSource, "", "source alias or address")
	cmd.Flags().String(flagNameReceiver, "", "receiver on the destination chain")
	cmd.Flags().String(flagNamePort, txbuilder.DefaultIBCPort, "IBC port")
	cmd.Flags().String(flagNameChannel, transfer.DefaultIBCChannel, "IBC channel")
	for _, name := range []string{flagNameAmount, flagNameToken, flagNameSource, flagNameReceiver} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

/*
convertToCBOR re-encodes input "data" as CBOR if the "format" is one of the
supported formats, otherwise the data will be returned as-is. Supported
formats are "plist", "json" and "yaml", the name is not case sensitive and
may have dot as a prefix (ie it's OK to pass `filepath.Ext(filename)` for
format).
*/
func convertToCBOR(data []byte, format string) (_ []byte, err error) {
	var v any
	switch strings.ToLower(strings.TrimLeft(format, ".")) {
	case "plist":
		if _, err := plist.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding data as plist: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding data as json: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding data as yaml: %w", err)
		}
	default:
		return data, nil
	}

	if data, err = types.Cbor.Marshal(v); err != nil {
		return nil, fmt.Errorf("encoding data as CBOR: %w", err)
	}
	return data, nil
}

/*
outputAsCBOR encodes "data" as CBOR and saves it to "output".
The "output" is either the filename set using "flagNameOutput" flag
or the output set for the "cmd" (stdout by default).
*/
func outputAsCBOR(cmd *cobra.Command, data any) error {
	return withOutput(cmd, func(out io.Writer) error {
		if err := types.Cbor.Encode(out, data); err != nil {
			return fmt.Errorf("encoding as CBOR: %w", err)
		}
		return nil
	})
}

func outputRaw(cmd *cobra.Command, data []byte) error {
	return withOutput(cmd, func(out io.Writer) error {
		_, err := out.Write(data)
		return err
	})
}

func withOutput(cmd *cobra.Command, f func(io.Writer) error) error {
	var out io.Writer = cmd.OutOrStdout()
	if cmd.Flags().Changed(flagNameOutput) {
		filename, err := cmd.Flags().GetString(flagNameOutput)
		if err != nil {
			return fmt.Errorf("reading flag %q value: %w", flagNameOutput, err)
		}
		file, err := os.Create(filepath.Clean(filename))
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	return f(out)
}
