package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/KeyIP-PatentDoc/internal/config"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Migration runners, replaced in tests.
var (
	runMigrations     = postgres.RunMigrations
	rollbackMigration = postgres.RollbackMigration
	migrationStatus   = postgres.MigrationStatus
	forceMigration    = postgres.ForceMigrationVersion
	migrationVersions = postgres.MigrationVersions
)

// NewDBCmd creates the db command group.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Administer the PostgreSQL schema",
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withDSN(func(cmd *cobra.Command, dsn string, _ []string) error {
				if err := runMigrations(dsn); err != nil {
					return err
				}
				PrintSuccess(cmd, "migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down [STEPS]",
			Short: "Roll back STEPS migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withDSN(func(cmd *cobra.Command, dsn string, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return errors.New(errors.ErrCodeValidation, "steps must be a positive integer").WithDetailf("steps=%s", args[0])
					}
					steps = n
				}
				if err := rollbackMigration(dsn, steps); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied and available migration versions",
			Args:  cobra.NoArgs,
			RunE: withDSN(func(cmd *cobra.Command, dsn string, _ []string) error {
				version, dirty, err := migrationStatus(dsn)
				if err != nil {
					return err
				}
				available, err := migrationVersions()
				if err != nil {
					return err
				}
				return PrintResult(cmd, migrationState{Version: version, Dirty: dirty, Available: available})
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the migration version without running migrations, clearing the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: withDSN(func(cmd *cobra.Command, dsn string, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.New(errors.ErrCodeValidation, "version must be an integer").WithDetailf("version=%s", args[0])
				}
				if err := forceMigration(dsn, v); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("migration version forced to %d", v))
				return nil
			}),
		},
	)
	cmd.AddCommand(migrate)
	return cmd
}

// withDSN resolves the PostgreSQL DSN of the configuration before running fn.
func withDSN(fn func(cmd *cobra.Command, dsn string, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cc, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		if !cc.Config.Database.Postgres.Enabled {
			return errors.New(errors.ErrCodeValidation, "db commands require database.postgres.enabled")
		}
		return fn(cmd, postgres.BuildDSN(cc.Config.Database.Postgres.PostgresConfig), args)
	}
}

type migrationState struct {
	Version   uint   `json:"version"`
	Dirty     bool   `json:"dirty"`
	Available []uint `json:"available"`
}

func (s migrationState) latest() uint {
	var max uint
	for _, v := range s.Available {
		if v > max {
			max = v
		}
	}
	return max
}

func (s migrationState) TableHeaders() []string { return []string{"Version", "Applied", "Dirty"} }

func (s migrationState) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Available))
	for _, v := range s.Available {
		dirty := ""
		if v == s.Version && s.Dirty {
			dirty = "yes"
		}
		rows = append(rows, []string{strconv.FormatUint(uint64(v), 10), strconv.FormatBool(v <= s.Version), dirty})
	}
	return rows
}

func (s migrationState) WriteText(w io.Writer) error {
	state := "clean"
	if s.Dirty {
		state = "dirty"
	}
	fmt.Fprintf(w, "version: %d (%s)\nlatest:  %d\npending: %t\n", s.Version, state, s.latest(), s.Version < s.latest())
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// topics
// ─────────────────────────────────────────────────────────────────────────────

// topicAdmin is the part of kafka.TopicManager the topics commands use.
type topicAdmin interface {
	EnsureTopics(ctx context.Context, topics []kafka.TopicConfig) error
	ListTopics(ctx context.Context) ([]string, error)
	Close() error
}

// newTopicAdmin dials the first broker; replaced in tests.
var newTopicAdmin = func(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) (topicAdmin, error) {
	p := cfg.ProducerConfig()
	m, err := kafka.NewTopicManager(ctx, p.Brokers, p.Security, log)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewTopicsCmd creates the topics command group.
func NewTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Administer the Kafka topics of the document pipeline",
	}

	var replicas int
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Create the raw, matched and dead letter topics if missing",
		Args:  cobra.NoArgs,
		RunE: withTopicAdmin(func(ctx context.Context, cmd *cobra.Command, cc *CLIContext, admin topicAdmin) error {
			layout := cc.Config.Messaging.Kafka.TopicLayout(replicas)
			if err := admin.EnsureTopics(ctx, layout); err != nil {
				return err
			}
			return PrintResult(cmd, topicList{Topics: layout})
		}),
	}
	ensure.Flags().IntVar(&replicas, "replicas", 0, "cap the replication factor, e.g. 1 for a single broker")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the topics known to the cluster",
		Args:  cobra.NoArgs,
		RunE: withTopicAdmin(func(ctx context.Context, cmd *cobra.Command, cc *CLIContext, admin topicAdmin) error {
			names, err := admin.ListTopics(ctx)
			if err != nil {
				return err
			}
			sort.Strings(names)
			out := topicList{}
			for _, n := range names {
				out.Topics = append(out.Topics, kafka.TopicConfig{Name: n})
			}
			return PrintResult(cmd, out)
		}),
	}

	cmd.AddCommand(ensure, list)
	return cmd
}

func withTopicAdmin(fn func(ctx context.Context, cmd *cobra.Command, cc *CLIContext, admin topicAdmin) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cc, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		if !cc.Config.Messaging.Kafka.Enabled {
			return errors.New(errors.ErrCodeValidation, "topics commands require messaging.kafka.enabled")
		}
		ctx, cancel := commandContext(cmd, cc)
		defer cancel()

		admin, err := newTopicAdmin(ctx, cc.Config.Messaging.Kafka, cc.Logger)
		if err != nil {
			return err
		}
		defer admin.Close()
		return fn(ctx, cmd, cc, admin)
	}
}

type topicList struct {
	Topics []kafka.TopicConfig `json:"topics"`
}

func (l topicList) TableHeaders() []string {
	return []string{"Topic", "Partitions", "Replicas", "Retention"}
}

func (l topicList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Topics))
	for _, t := range l.Topics {
		row := []string{t.Name, "", "", ""}
		if t.NumPartitions > 0 {
			row[1] = strconv.Itoa(t.NumPartitions)
			row[2] = strconv.Itoa(t.ReplicationFactor)
		}
		if t.RetentionMs > 0 {
			row[3] = fmt.Sprintf("%dd", t.RetentionMs/(24*3600*1000))
		}
		rows = append(rows, row)
	}
	return rows
}

func (l topicList) WriteText(w io.Writer) error {
	names := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		names[i] = t.Name
	}
	_, err := fmt.Fprintln(w, strings.Join(names, "\n"))
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// config
// ─────────────────────────────────────────────────────────────────────────────

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets redacted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := GetCLIContext(cmd)
				if err != nil {
					return err
				}
				redacted := cc.Config.Redacted()
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd, redacted)
				}
				return writeYAML(cmd.OutOrStdout(), redacted)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := GetCLIContext(cmd)
				if err != nil {
					return err
				}
				// Loading already validated; report what is enabled.
				PrintSuccess(cmd, fmt.Sprintf("configuration valid; sinks=%v", cc.Config.Corpus.Sinks))
				return nil
			},
		},
	)
	return cmd
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding configuration")
	}
	return enc.Close()
}

//Personal.AI order the ending
