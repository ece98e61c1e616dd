package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/bulk"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// NewCorpusCmd creates the corpus command group.
func NewCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Build classification filtered corpora from bulk archives",
	}
	cmd.AddCommand(newCorpusBuildCmd(), newCorpusPublishCmd())
	return cmd
}

type sourceOptions struct {
	format      string
	minioPrefix string
}

func (o *sourceOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "bulk file format; detected per file when omitted")
	cmd.Flags().StringVar(&o.minioPrefix, "minio-prefix", "", "read the zip archives under this prefix of the archives bucket instead of local files")
}

// source builds the document source for args: local bulk files, or the
// MinIO archives bucket when --minio-prefix is set.
func (o *sourceOptions) source(infra *bootstrap.Infrastructure, args []string) (corpus.DocumentSource, string, error) {
	var format parser.Format
	if o.format != "" {
		f, err := parser.ParseFormat(o.format)
		if err != nil {
			return nil, "", err
		}
		format = f
	}

	if o.minioPrefix != "" {
		if len(args) > 0 {
			return nil, "", errors.New(errors.ErrCodeValidation, "--minio-prefix and file arguments are mutually exclusive")
		}
		if infra.MinIO == nil {
			return nil, "", errors.New(errors.ErrCodeValidation, "--minio-prefix requires storage.minio.enabled")
		}
		bucket := infra.Config.Storage.MinIO.Buckets.Archives
		src := minio.NewArchiveSource(infra.MinIO, bucket, o.minioPrefix, format, infra.Logger)
		return src, "minio:" + bucket + "/" + o.minioPrefix, nil
	}

	if len(args) == 0 {
		return nil, "", errors.New(errors.ErrCodeValidation, "no bulk files given")
	}
	return bulk.NewFileSource(args, format, infra.Logger), "files:" + strings.Join(args, ","), nil
}

// openInfrastructure opens the configured stores for a command.
func openInfrastructure(cmd *cobra.Command, cc *CLIContext) (*bootstrap.Infrastructure, error) {
	return bootstrap.Open(cmd.Context(), cc.Config, cc.Logger)
}

// ─────────────────────────────────────────────────────────────────────────────
// corpus build
// ─────────────────────────────────────────────────────────────────────────────

type buildOptions struct {
	sourceOptions
	sinks   []string
	workers int
	noLock  bool
}

func newCorpusBuildCmd() *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build [FILE...]",
		Short: "Parse bulk files, keep documents with wanted classifications and write them to the sinks",
		Long: "Build walks local bulk files (plain or zip) or the MinIO archives bucket,\n" +
			"parses every document, matches it against corpus.cpc/corpus.uspc and\n" +
			"writes each match to the configured sinks.  With Redis enabled, builds of\n" +
			"the same source are serialized with a distributed lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpusBuild(cmd, args, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringSliceVar(&opts.sinks, "sinks", nil, "sinks to write to, overriding corpus.sinks ("+strings.Join(config.SinkNames(), ", ")+")")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parse workers, overriding corpus.workers")
	cmd.Flags().BoolVar(&opts.noLock, "no-lock", false, "do not take the Redis build lock")
	return cmd
}

func runCorpusBuild(cmd *cobra.Command, args []string, opts *buildOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cc)
	defer cancel()

	infra, err := openInfrastructure(cmd, cc)
	if err != nil {
		return err
	}
	defer infra.Close()

	src, sourceName, err := opts.source(infra, args)
	if err != nil {
		return err
	}

	builder, err := infra.NewBuilder(ctx, bootstrap.BuildOptions{Sinks: opts.sinks, Workers: opts.workers})
	if err != nil {
		return err
	}

	if lock := infra.Lock("corpus:build:" + sourceName); lock != nil && !opts.noLock {
		ok, err := lock.TryLock(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrCodeConflict, "another build of this source is running").WithDetailf("source=%s", sourceName)
		}
		defer func() {
			if err := lock.Unlock(ctx); err != nil {
				cc.Logger.Warn("Releasing build lock failed", logging.Err(err))
			}
		}()
	}

	summary, err := builder.Run(ctx, src)
	if summary != nil {
		if perr := PrintResult(cmd, buildResult{Source: sourceName, Summary: summary}); perr != nil {
			return perr
		}
	}
	return err
}

type buildResult struct {
	Source string `json:"source"`
	*corpus.Summary
}

func (r buildResult) TableHeaders() []string { return []string{"Metric", "Value"} }

func (r buildResult) TableRows() [][]string {
	rows := [][]string{
		{"run", r.Run.String()},
		{"source", r.Source},
		{"total", strconv.Itoa(r.Total)},
		{"parsed", strconv.Itoa(r.Parsed)},
		{"failed", strconv.Itoa(r.Failed)},
		{"duplicates", strconv.Itoa(r.Duplicates)},
		{"matched", strconv.Itoa(r.Matched)},
	}
	keys := make([]string, 0, len(r.ByProvenance))
	for k := range r.ByProvenance {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{"matched." + k, strconv.Itoa(r.ByProvenance[k])})
	}
	rows = append(rows,
		[]string{"sink_errors", strconv.Itoa(r.SinkErrors)},
		[]string{"elapsed", r.Elapsed.String()},
	)
	return rows
}

func (r buildResult) WriteText(w io.Writer) error {
	for _, row := range r.TableRows() {
		fmt.Fprintf(w, "%-14s %s\n", row[0]+":", row[1])
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("error:"), e)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// corpus publish
// ─────────────────────────────────────────────────────────────────────────────

func newCorpusPublishCmd() *cobra.Command {
	opts := &sourceOptions{}
	cmd := &cobra.Command{
		Use:   "publish [FILE...]",
		Short: "Publish the raw documents of bulk files to Kafka for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cc.Config.Messaging.Kafka.Enabled {
				return errors.New(errors.ErrCodeValidation, "corpus publish requires messaging.kafka.enabled")
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			infra, err := openInfrastructure(cmd, cc)
			if err != nil {
				return err
			}
			defer infra.Close()

			src, sourceName, err := opts.source(infra, args)
			if err != nil {
				return err
			}
			topic := cc.Config.Messaging.Kafka.Topics.Raw
			n, err := kafka.NewRawPublisher(infra.Producer, topic, cc.Logger).PublishAll(ctx, src)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("published %d documents from %s to %s", n, sourceName, topic))
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

//Personal.AI order the ending
