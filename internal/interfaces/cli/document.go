package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/patent"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/bulk"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// documentInput is a document read from a file argument or stdin.
type documentInput struct {
	Name   string
	Format parser.Format
	Data   []byte
}

// readDocument reads the single document named by args ("-" or no argument
// reads stdin) and resolves its format from formatFlag or by detection.
func readDocument(cmd *cobra.Command, cc *CLIContext, args []string, formatFlag string) (*documentInput, error) {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}

	var in io.Reader
	if name == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeNotFound, "opening document").WithDetailf("path=%s", name)
		}
		defer f.Close()
		in = f
	}

	limit := cc.Config.Parser.MaxDocumentSize
	data, err := io.ReadAll(io.LimitReader(in, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "reading document").WithDetailf("path=%s", name)
	}
	if int64(len(data)) > limit {
		return nil, errors.New(errors.ErrCodeValidation, "document exceeds parser.max_document_size").
			WithDetailf("path=%s limit=%d", name, limit)
	}

	format, err := resolveFormat(formatFlag, data)
	if err != nil {
		return nil, err
	}
	return &documentInput{Name: name, Format: format, Data: data}, nil
}

// resolveFormat parses an explicit --format or detects it from the content.
func resolveFormat(flag string, data []byte) (parser.Format, error) {
	if flag != "" {
		return parser.ParseFormat(flag)
	}
	format, ok := parser.Detect(data)
	if !ok {
		return 0, parser.ErrUnsupportedFormat.WithDetail("format not detected; pass --format")
	}
	return format, nil
}

func readerOptions(cc *CLIContext) []parser.Option {
	return []parser.Option{
		parser.WithLogger(cc.Logger),
		parser.WithMaxDocumentSize(cc.Config.Parser.MaxDocumentSize),
	}
}

// parseInput parses every document of in.  With split set, in is treated as
// a concatenated bulk file.
func parseInput(ctx context.Context, cc *CLIContext, in *documentInput, split bool) ([]patent.Patent, error) {
	r, err := parser.NewReader(in.Format, readerOptions(cc)...)
	if err != nil {
		return nil, err
	}
	if !split {
		p, err := r.Read(ctx, bytes.NewReader(in.Data))
		if err != nil {
			return nil, err
		}
		return []patent.Patent{p}, nil
	}

	sp, err := bulk.NewSplitter(in.Format)
	if err != nil {
		return nil, err
	}
	var out []patent.Patent
	n := 0
	err = sp.Split(bytes.NewReader(in.Data), func(doc []byte) error {
		n++
		p, err := r.Read(ctx, bytes.NewReader(doc))
		if err != nil {
			cc.Logger.Warn("Skipping unparseable document",
				logging.String("source", in.Name), logging.Int("index", n), logging.Err(err))
			return nil
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// parse
// ─────────────────────────────────────────────────────────────────────────────

type parseOptions struct {
	format string
	split  bool
}

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [FILE|-]",
		Short: "Parse a patent document into the unified document model",
		Long: "Parse reads one document (or, with --split, every document of a\n" +
			"concatenated bulk file) and prints the normalized record.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "document format (greenbook, redbook-application, redbook-grant, sgml, pap); detected when omitted")
	cmd.Flags().BoolVar(&opts.split, "split", false, "treat the input as a concatenated bulk file")
	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *parseOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cc)
	defer cancel()

	in, err := readDocument(cmd, cc, args, opts.format)
	if err != nil {
		return err
	}
	docs, err := parseInput(ctx, cc, in, opts.split)
	if err != nil {
		return err
	}
	cc.Logger.Debug("Parsed input", logging.String("source", in.Name), logging.Format(in.Format.String()), logging.Int("documents", len(docs)))

	records := make(recordList, 0, len(docs))
	for _, d := range docs {
		records = append(records, patent.NewRecord(d))
	}
	if !opts.split && len(records) == 1 {
		return PrintResult(cmd, singleRecord(records[0]))
	}
	return PrintResult(cmd, records)
}

type singleRecord patent.Record

func (r singleRecord) TableHeaders() []string { return []string{"Field", "Value"} }

func (r singleRecord) TableRows() [][]string {
	d := r.Document
	rows := [][]string{
		{"id", d.ID.String()},
		{"lifecycle", r.Lifecycle},
		{"type", string(d.PatentType)},
		{"title", truncateString(d.Title, 80)},
	}
	if d.ApplicationID != nil {
		rows = append(rows, []string{"application", d.ApplicationID.String()})
	}
	if d.DatePublished != nil {
		rows = append(rows, []string{"published", d.DatePublished.String()})
	}
	rows = append(rows,
		[]string{"classifications", strings.Join(d.Classifications.Strings(), ", ")},
		[]string{"claims", strconv.Itoa(len(d.Claims))},
		[]string{"citations", strconv.Itoa(len(d.Citations))},
		[]string{"inventors", strconv.Itoa(len(d.Inventors))},
	)
	if r.PrimaryExaminer != "" {
		rows = append(rows, []string{"examiner", r.PrimaryExaminer})
	}
	return rows
}

func (r singleRecord) WriteText(w io.Writer) error {
	for _, row := range r.TableRows() {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%-16s %s\n", color.CyanString(row[0]+":"), row[1])
	}
	return nil
}

type recordList []patent.Record

func (l recordList) TableHeaders() []string {
	return []string{"ID", "Lifecycle", "Title", "Classifications", "Claims"}
}

func (l recordList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.ID.String(),
			r.Lifecycle,
			truncateString(r.Title, 50),
			truncateString(strings.Join(r.Classifications.Strings(), " "), 40),
			strconv.Itoa(len(r.Claims)),
		})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// match
// ─────────────────────────────────────────────────────────────────────────────

type matchOptions struct {
	format string
	cpc    []string
	uspc   []string
	ipc    []string
}

// NewMatchCmd creates the match command.
func NewMatchCmd() *cobra.Command {
	opts := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match [FILE|-]",
		Short: "Check a document against wanted classifications",
		Long: "Match parses one document and reports whether it carries a wanted\n" +
			"CPC main group or USPC main class.  Without --cpc/--uspc/--ipc the\n" +
			"corpus classifications of the configuration are used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "document format; detected when omitted")
	cmd.Flags().StringSliceVar(&opts.cpc, "cpc", nil, "wanted CPC symbols, e.g. H04N21/00")
	cmd.Flags().StringSliceVar(&opts.uspc, "uspc", nil, "wanted USPC classes, e.g. 310/1")
	cmd.Flags().StringSliceVar(&opts.ipc, "ipc", nil, "wanted IPC symbols")
	return cmd
}

// wantedClassifications returns the flag classifications, or the configured
// corpus classifications when no flag is set.
func wantedClassifications(cc *CLIContext, cpc, uspc, ipc []string) ([]classification.Classification, error) {
	if len(cpc) == 0 && len(uspc) == 0 && len(ipc) == 0 {
		return cc.Config.Corpus.Wanted()
	}
	var wanted []classification.Classification
	for _, s := range []struct {
		scheme classification.Scheme
		codes  []string
	}{
		{classification.SchemeCPC, cpc},
		{classification.SchemeUSPC, uspc},
		{classification.SchemeIPC, ipc},
	} {
		parsed, err := classification.ParseList(s.scheme, s.codes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid classification flag").WithDetailf("scheme=%s", s.scheme)
		}
		wanted = append(wanted, parsed...)
	}
	return wanted, nil
}

func runMatch(cmd *cobra.Command, args []string, opts *matchOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cc)
	defer cancel()

	wanted, err := wantedClassifications(cc, opts.cpc, opts.uspc, opts.ipc)
	if err != nil {
		return err
	}
	if len(wanted) == 0 {
		return errors.New(errors.ErrCodeValidation, "no wanted classifications; pass --cpc/--uspc or set corpus.cpc/corpus.uspc")
	}
	m := corpus.NewClassificationMatcher(wanted,
		corpus.WithMatcherLogger(cc.Logger),
		corpus.WithReaderOptions(readerOptions(cc)...))
	if err := m.Setup(); err != nil {
		return err
	}

	in, err := readDocument(cmd, cc, args, opts.format)
	if err != nil {
		return err
	}
	doc, err := m.On(ctx, string(in.Data), in.Format)
	if err != nil {
		return err
	}
	decision := m.Evaluate(doc)

	return PrintResult(cmd, matchResult{
		Document:        doc.Base().ID.String(),
		Format:          in.Format.String(),
		Matched:         decision.Matched,
		Provenance:      decision.Provenance,
		Classifications: doc.Base().Classifications.Strings(),
	})
}

type matchResult struct {
	Document        string   `json:"document"`
	Format          string   `json:"format"`
	Matched         bool     `json:"matched"`
	Provenance      string   `json:"provenance,omitempty"`
	Classifications []string `json:"classifications"`
}

func (r matchResult) TableHeaders() []string {
	return []string{"Document", "Format", "Matched", "Provenance", "Classifications"}
}

func (r matchResult) TableRows() [][]string {
	return [][]string{{
		r.Document,
		r.Format,
		strconv.FormatBool(r.Matched),
		r.Provenance,
		truncateString(strings.Join(r.Classifications, " "), 60),
	}}
}

func (r matchResult) WriteText(w io.Writer) error {
	if r.Matched {
		fmt.Fprintf(w, "%s %s matched on %s\n", color.GreenString("MATCH"), r.Document, r.Provenance)
	} else {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("NO MATCH"), r.Document)
	}
	if len(r.Classifications) > 0 {
		fmt.Fprintf(w, "classifications: %s\n", strings.Join(r.Classifications, ", "))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// claims
// ─────────────────────────────────────────────────────────────────────────────

// NewClaimsCmd creates the claims command.
func NewClaimsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "claims [FILE|-]",
		Short: "Print the claim dependency tree of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			in, err := readDocument(cmd, cc, args, format)
			if err != nil {
				return err
			}
			docs, err := parseInput(ctx, cc, in, false)
			if err != nil {
				return err
			}
			return PrintResult(cmd, newClaimTreeResult(docs[0].Base()))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "document format; detected when omitted")
	return cmd
}

type claimTreeResult struct {
	Document    string             `json:"document"`
	Claims      int                `json:"claims"`
	Independent []int              `json:"independent"`
	Tree        []patent.ClaimNode `json:"tree"`

	tree patent.ClaimTree
}

func newClaimTreeResult(d *patent.Document) claimTreeResult {
	t := d.ClaimTree()
	return claimTreeResult{Document: d.ID.String(), Claims: t.Len(), Independent: t.Roots(), Tree: t.Nodes(), tree: t}
}

func (r claimTreeResult) TableHeaders() []string {
	return []string{"Claim", "Parent", "Depth", "Type", "Text"}
}

func (r claimTreeResult) TableRows() [][]string {
	var rows [][]string
	r.tree.Walk(func(c patent.Claim, depth int) {
		parent := ""
		if p, ok := r.tree.Parent(c.Number); ok {
			parent = strconv.Itoa(p)
		}
		kind := patent.ClaimTypeIndependent.String()
		if parent != "" {
			kind = patent.ClaimTypeDependent.String()
		}
		rows = append(rows, []string{strconv.Itoa(c.Number), parent, strconv.Itoa(depth), kind, truncateString(c.Text, 60)})
	})
	return rows
}

func (r claimTreeResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s: %d claims, %d independent\n", r.Document, r.Claims, len(r.Independent))
	r.tree.Walk(func(c patent.Claim, depth int) {
		label := strconv.Itoa(c.Number) + "."
		if depth == 0 {
			label = color.New(color.Bold).Sprint(label)
		}
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), label, truncateString(c.Text, 72))
	})
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// formats
// ─────────────────────────────────────────────────────────────────────────────

// NewFormatsCmd creates the formats command.
func NewFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported document formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, supportedFormats())
		},
	}
}

type formatInfo struct {
	Name        string `json:"name"`
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
}

type formatList []formatInfo

func supportedFormats() formatList {
	out := make(formatList, 0, len(parser.Formats()))
	for _, f := range parser.Formats() {
		ext, ct := f.MediaType()
		out = append(out, formatInfo{Name: f.String(), Extension: ext, ContentType: ct})
	}
	return out
}

func (l formatList) TableHeaders() []string { return []string{"Format", "Extension", "Content Type"} }

func (l formatList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, f := range l {
		rows = append(rows, []string{f.Name, f.Extension, f.ContentType})
	}
	return rows
}

func (l formatList) WriteText(w io.Writer) error {
	for _, f := range l {
		fmt.Fprintln(w, f.Name)
	}
	return nil
}

//Personal.AI order the ending
