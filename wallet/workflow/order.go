package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/knowable-run/namwallet/wallet"
)

/*
DecodeOrder decodes transfer order from "data" in given format. Supported
formats are "json", "yaml" and "plist", the name is not case sensitive and may
have a dot as prefix (ie result of filepath.Ext can be used as format).
*/
func DecodeOrder(data []byte, format string) (*Order, error) {
	order := &Order{}
	switch strings.ToLower(strings.TrimLeft(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, order); err != nil {
			return nil, fmt.Errorf("%w: decoding order as json: %w", wallet.ErrInvalidInput, err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, order); err != nil {
			return nil, fmt.Errorf("%w: decoding order as yaml: %w", wallet.ErrInvalidInput, err)
		}
	case "plist":
		if _, err := plist.Unmarshal(data, order); err != nil {
			return nil, fmt.Errorf("%w: decoding order as plist: %w", wallet.ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported order format %q", wallet.ErrInvalidInput, format)
	}
	return order, nil
}

// ReadOrderFile reads transfer order from file, the format is determined by the file extension.
func ReadOrderFile(filename string) (*Order, error) {
	data, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("reading order file: %w", err)
	}
	return DecodeOrder(data, filepath.Ext(filename))
}
