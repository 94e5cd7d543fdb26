package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/yulsp/document"
	"github.com/chazu/yulsp/server"
	"github.com/chazu/yulsp/yul"
)

const positionHelp = `The position is either a byte offset or a 1-based line:column pair.`

// sourceFile is a Yul file read from disk or stdin ("-").
type sourceFile struct {
	path string
	doc  *document.Document
}

func readSource(cmd *cobra.Command, path string) (*sourceFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return &sourceFile{path: path, doc: document.New(path, 0, string(data))}, nil
}

// offset parses a byte offset or a 1-based line:column.
func (f *sourceFile) offset(arg string) (int, error) {
	if line, col, ok := strings.Cut(arg, ":"); ok {
		l, err := strconv.Atoi(line)
		if err != nil || l < 1 {
			return 0, fmt.Errorf("invalid line in %q", arg)
		}
		c, err := strconv.Atoi(col)
		if err != nil || c < 1 {
			return 0, fmt.Errorf("invalid column in %q", arg)
		}
		if l > f.doc.LineCount() {
			return 0, fmt.Errorf("line %d past the end of %s (%d lines)", l, f.path, f.doc.LineCount())
		}
		// columns past the end of a line clamp to it
		off, _ := f.doc.OffsetAt(protocol.Position{Line: protocol.UInteger(l - 1), Character: protocol.UInteger(c - 1)})
		return off, nil
	}

	off, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", arg)
	}
	if off < 0 || off > len(f.doc.Text) {
		return 0, fmt.Errorf("offset %d outside %s (%d bytes)", off, f.path, len(f.doc.Text))
	}
	return off, nil
}

// where formats loc as path:line:col, 1-based.
func (f *sourceFile) where(loc yul.SourceLocation) string {
	pos := f.doc.PositionAt(loc.Start)
	return fmt.Sprintf("%s:%d:%d", f.path, pos.Line+1, pos.Character+1)
}

func (f *sourceFile) describe(id *yul.Identifier) string {
	var b strings.Builder
	if id.Location != nil {
		fmt.Fprintf(&b, "%s: ", f.where(*id.Location))
	}
	fmt.Fprintf(&b, "%s %s", id.Name, id.Role.Kind)
	if id.Role.Kind == yul.Declaration || id.Role.Kind == yul.Reference {
		fmt.Fprintf(&b, " #%d", id.Role.ID)
	}
	return b.String()
}

// sourceAndOffset reads the file and position arguments shared by the
// position commands.
func sourceAndOffset(cmd *cobra.Command, args []string) (*sourceFile, int, error) {
	f, err := readSource(cmd, args[0])
	if err != nil {
		return nil, 0, err
	}
	off, err := f.offset(args[1])
	if err != nil {
		return nil, 0, err
	}
	return f, off, nil
}

func (a *app) newIdentifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "identify <file> <position>",
		Short: "Print the identifier at a position and its resolved role",
		Long:  "Print the identifier at a position and its resolved role.\n\n" + positionHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, off, err := sourceAndOffset(cmd, args)
			if err != nil {
				return err
			}
			id, err := server.Identify(f.doc.Text, off)
			if err != nil {
				return err
			}
			if id == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no identifier")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.describe(id))
			return nil
		},
	}
}

func (a *app) newDefinitionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "definition <file> <position>",
		Short: "Print the declaration bound to the identifier at a position",
		Long:  "Print the declaration bound to the identifier at a position.\n\n" + positionHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, off, err := sourceAndOffset(cmd, args)
			if err != nil {
				return err
			}
			decl, err := server.Definition(f.doc.Text, off)
			if err != nil {
				return err
			}
			if decl == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no definition")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.describe(decl))
			return nil
		},
	}
}

func (a *app) newReferencesCommand() *cobra.Command {
	var noDecl bool
	cmd := &cobra.Command{
		Use:   "references <file> <position>",
		Short: "Print every occurrence of the binding at a position",
		Long:  "Print every occurrence of the binding at a position.\n\n" + positionHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, off, err := sourceAndOffset(cmd, args)
			if err != nil {
				return err
			}
			refs, err := server.References(f.doc.Text, off, !noDecl)
			if err != nil {
				return err
			}
			for _, id := range refs {
				fmt.Fprintln(cmd.OutOrStdout(), f.describe(id))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noDecl, "no-declaration", false, "omit the declaration itself")
	return cmd
}

func (a *app) newHoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hover <file> <position>",
		Short: "Print the hover text for a selector or address literal",
		Long:  "Print the hover text for a selector or address literal.\n\n" + positionHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, off, err := sourceAndOffset(cmd, args)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.openLookup()
			if err != nil {
				return err
			}
			defer closeFn()

			h, err := server.HoverAt(cmd.Context(), svc, f.doc.Text, off)
			if err != nil {
				return err
			}
			if h == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no hover")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s\n%s\n", f.where(h.Location), h.Class, h.Literal, h.Markdown)
			return nil
		},
	}
}

func (a *app) newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Parse, resolve and verify Yul files",
		Long: `Parse and resolve each file, verify the resolved tree, and print any
diagnostics. Exits non-zero when a file has errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				ok, err := checkFile(cmd, path)
				if err != nil {
					return err
				}
				failed = failed || !ok
			}
			if failed {
				return errCheckFailed
			}
			return nil
		},
	}
}

// checkFile reports the diagnostics for one file and whether it is clean
// of errors. Only I/O failures are returned as errors.
func checkFile(cmd *cobra.Command, path string) (bool, error) {
	f, err := readSource(cmd, path)
	if err != nil {
		return false, err
	}
	out := cmd.OutOrStdout()

	diags, err := server.Check(f.doc.Text)
	var pe *yul.ParseError
	switch {
	case errors.As(err, &pe):
		fmt.Fprintf(out, "%s: error: %s\n", f.where(pe.Location()), pe.Message)
		return false, nil
	case err != nil:
		fmt.Fprintf(out, "%s: internal error: %v\n", f.path, err)
		return false, nil
	}

	ok := true
	for _, d := range diags {
		fmt.Fprintf(out, "%s: %s: %s\n", f.where(d.Location), d.Severity, d.Message)
		if d.Severity == yul.SeverityError {
			ok = false
		}
	}
	return ok, nil
}
