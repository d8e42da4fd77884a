// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pagesmith/services/pagesmith/audit"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// errAuditFailed is returned by --strict when the audit reports errors.
var errAuditFailed = errors.New("audit reported errors")

// auditInput accepts the output of compose or a session snapshot.
type auditInput struct {
	Sequence []section.Node `json:"sequence"`
}

func newAuditCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "audit <sequence-file|->",
		Short: "Run accessibility, SEO and performance checks on a sequence",
		Long: `Reads a document with a "sequence" field, such as the output of
"pagesmith compose", and prints the audit report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			seq, err := decodeSequence(in)
			if err != nil {
				return err
			}

			report := audit.NewAuditor(rules.Default()).Audit(seq)
			if err := writeJSON(cmd.OutOrStdout(), report, opts.pretty); err != nil {
				return err
			}
			if strict && !report.Passed {
				return fmt.Errorf("%w: %d error(s)", errAuditFailed, len(report.Errors()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the audit does not pass")
	return cmd
}

func decodeSequence(r io.Reader) ([]section.Node, error) {
	var in auditInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}
	if len(in.Sequence) == 0 {
		return nil, errors.New("document has no sequence")
	}
	if err := section.Hydrate(catalog.Default(), in.Sequence); err != nil {
		return nil, err
	}
	return in.Sequence, nil
}
