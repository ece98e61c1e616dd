package kafka

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

const sourceService = "patentdoc"

// Publisher is the producing side used by the corpus adapters.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventSink announces matched documents on TopicDocumentMatched, keyed by
// document id so every event of one document lands on the same partition.
type EventSink struct {
	pub   Publisher
	topic string
}

// NewEventSink returns a corpus.Sink publishing to topic, or to
// TopicDocumentMatched when topic is empty.
func NewEventSink(pub Publisher, topic string) *EventSink {
	if topic == "" {
		topic = TopicDocumentMatched
	}
	return &EventSink{pub: pub, topic: topic}
}

// Name implements corpus.Sink.
func (s *EventSink) Name() string { return "kafka" }

// Put implements corpus.Sink.
func (s *EventSink) Put(ctx context.Context, doc corpus.MatchedDocument) error {
	base := doc.Patent.Base()
	id := base.ID.String()
	env, err := NewEventEnvelope(EventDocumentMatched, sourceService, DocumentMatchedPayload{
		RunID:           doc.Run.String(),
		DocumentID:      id,
		Lifecycle:       doc.Patent.Lifecycle().String(),
		Format:          doc.Format.String(),
		Provenance:      doc.Provenance,
		Title:           base.Title,
		Classifications: base.Classifications.Strings(),
		SourceName:      doc.Source,
		MatchedAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"run_id": doc.Run.String()}
	msg, err := env.ToMessage(s.topic, []byte(id))
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, msg)
}

// RawPublisher feeds raw documents from a source onto TopicRawDocuments for
// the worker fleet.
type RawPublisher struct {
	pub   Publisher
	topic string
	log   logging.Logger
}

// NewRawPublisher returns a publisher writing to topic, or to
// TopicRawDocuments when topic is empty.
func NewRawPublisher(pub Publisher, topic string, log logging.Logger) *RawPublisher {
	if topic == "" {
		topic = TopicRawDocuments
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RawPublisher{pub: pub, topic: topic, log: log}
}

// PublishAll walks src and publishes every document.  It returns the number
// of documents published.
func (p *RawPublisher) PublishAll(ctx context.Context, src corpus.DocumentSource) (int, error) {
	n := 0
	err := src.Walk(ctx, func(doc corpus.RawDocument) error {
		if err := p.Publish(ctx, doc); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		if errors.GetCode(err) == errors.CodeUnknown {
			err = errors.Wrap(err, errors.ErrCodeCorpusSourceFailed, "publishing raw documents")
		}
		return n, err
	}
	p.log.Info("Raw documents published", logging.Int("count", n), logging.String("topic", p.topic))
	return n, nil
}

// Publish sends one raw document.
func (p *RawPublisher) Publish(ctx context.Context, doc corpus.RawDocument) error {
	return p.pub.Publish(ctx, &ProducerMessage{
		Topic: p.topic,
		Key:   []byte(doc.Name),
		Value: doc.Content,
		Headers: map[string]string{
			HeaderFormat:     doc.Format.String(),
			HeaderSourceName: doc.Name,
		},
	})
}

// DocumentHandler processes one raw document; *corpus.Builder satisfies it.
type DocumentHandler interface {
	Handle(ctx context.Context, doc corpus.RawDocument) (*corpus.Summary, error)
}

// NewRawDocumentHandler adapts h to a MessageHandler for TopicRawDocuments.
// Messages without a usable format header are dropped with a warning, since
// retrying cannot fix them.  Errors from h (sink failures) are returned so
// the consumer retries and eventually dead letters the message.
func NewRawDocumentHandler(h DocumentHandler, log logging.Logger) MessageHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return func(ctx context.Context, msg *Message) error {
		format, err := parser.ParseFormat(msg.Headers[HeaderFormat])
		if err != nil {
			if detected, ok := parser.Detect(msg.Value); ok {
				format = detected
			} else {
				log.Warn("Dropping raw document without format",
					logging.String("topic", msg.Topic),
					logging.Int64("offset", msg.Offset),
					logging.String(HeaderFormat, msg.Headers[HeaderFormat]))
				return nil
			}
		}
		name := msg.Headers[HeaderSourceName]
		if name == "" {
			name = string(msg.Key)
		}
		_, err = h.Handle(ctx, corpus.RawDocument{Name: name, Format: format, Content: msg.Value})
		return err
	}
}

//Personal.AI order the ending
