package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openops/mail-actions/internal/headers"
)

var (
	headersFile    string
	enforceCC      []string
	allowedDomains []string
	allowedUsers   []string
)

var processHeadersCmd = &cobra.Command{
	Use:   "process-headers",
	Short: "Parse raw email headers into normalized recipient lists",
	Long: `Reads a JSON list of raw header (name, value) pairs from stdin (or a
file), enforces the configured sender allow-list and mandatory CC rules, and
writes the normalized {to, from, cc, references, in_reply_to} result JSON to
stdout. A rejected sender is logged and exits with status 1.`,
	RunE: runProcessHeaders,
}

func init() {
	processHeadersCmd.Flags().StringVar(&headersFile, "headers-file", "",
		"read header pairs from this file instead of stdin")
	processHeadersCmd.Flags().StringArrayVar(&enforceCC, "enforce-cc", nil,
		"address that must be CC'd if not already a recipient (repeatable)")
	processHeadersCmd.Flags().StringArrayVar(&allowedDomains, "allowed-domain", nil,
		"permitted sender domain, as a regexp fragment (repeatable)")
	processHeadersCmd.Flags().StringArrayVar(&allowedUsers, "allowed-user", nil,
		"permitted sender address, as a regexp fragment (repeatable)")
	rootCmd.AddCommand(processHeadersCmd)
}

func runProcessHeaders(cmd *cobra.Command, args []string) error {
	raw, err := readHeadersInput()
	if err != nil {
		return err
	}

	var hs []headers.Header
	if err := json.Unmarshal(raw, &hs); err != nil {
		return fmt.Errorf("failed to decode header pairs: %w", err)
	}

	req := headers.Request{
		Headers:        hs,
		EnforceCC:      enforceCC,
		AllowedDomains: allowedDomains,
		AllowedUsers:   allowedUsers,
	}
	// Flags override config policy; config fills in whatever was not given.
	if len(req.EnforceCC) == 0 {
		req.EnforceCC = cfg.Policy.EnforceCC
	}
	if len(req.AllowedDomains) == 0 {
		req.AllowedDomains = cfg.Policy.AllowedDomains
	}
	if len(req.AllowedUsers) == 0 {
		req.AllowedUsers = cfg.Policy.AllowedUsers
	}

	result, err := headers.Process(req)
	if err != nil {
		if !errors.Is(err, headers.ErrSenderRejected) {
			slog.Error("header processing failed", "error", err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(result)
}

func readHeadersInput() ([]byte, error) {
	if headersFile != "" {
		data, err := os.ReadFile(headersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read headers file: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers from stdin: %w", err)
	}
	return data, nil
}
