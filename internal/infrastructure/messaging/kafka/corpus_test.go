package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/application/corpus"
	"github.com/turtacn/KeyIP-PatentDoc/internal/parser"
	"github.com/turtacn/KeyIP-PatentDoc/internal/testutil"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

const motorDoc = "PATN\nWKU  039305848\nTTL  MOTOR\nCLAS\nOCL  310112\n"

type sliceSource []corpus.RawDocument

func (s sliceSource) Walk(_ context.Context, fn func(corpus.RawDocument) error) error {
	for _, d := range s {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

type fakeHandler struct {
	docs []corpus.RawDocument
	err  error
}

func (h *fakeHandler) Handle(_ context.Context, doc corpus.RawDocument) (*corpus.Summary, error) {
	h.docs = append(h.docs, doc)
	return &corpus.Summary{Total: 1}, h.err
}

func TestEventSink_Put(t *testing.T) {
	r, err := parser.NewReader(parser.FormatGreenbook)
	require.NoError(t, err)
	p, err := r.ReadString(context.Background(), motorDoc)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	sink := NewEventSink(pub, "")
	assert.Equal(t, "kafka", sink.Name())

	run := uuid.New()
	require.NoError(t, sink.Put(context.Background(), corpus.MatchedDocument{
		Run:        run,
		Source:     "pftaps.zip#1",
		Format:     parser.FormatGreenbook,
		Provenance: "uspc",
		Patent:     p,
	}))

	sent := pub.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, TopicDocumentMatched, sent[0].Topic)
	assert.Equal(t, p.Base().ID.String(), string(sent[0].Key))

	env, err := MessageToEventEnvelope(&Message{Value: sent[0].Value})
	require.NoError(t, err)
	assert.Equal(t, EventDocumentMatched, env.EventType)
	assert.Equal(t, run.String(), env.Metadata["run_id"])

	var payload DocumentMatchedPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "uspc", payload.Provenance)
	assert.Equal(t, "greenbook", payload.Format)
	assert.Equal(t, "grant", payload.Lifecycle)
	assert.Equal(t, "Motor", payload.Title)
	assert.NotEmpty(t, payload.Classifications)
}

func TestEventSink_PublishFailure(t *testing.T) {
	r, err := parser.NewReader(parser.FormatGreenbook)
	require.NoError(t, err)
	p, err := r.ReadString(context.Background(), motorDoc)
	require.NoError(t, err)

	pub := &recordingPublisher{err: ErrPublishFailed}
	err = NewEventSink(pub, "custom").Put(context.Background(), corpus.MatchedDocument{Patent: p, Format: parser.FormatGreenbook})
	assert.ErrorIs(t, err, ErrPublishFailed)
}

func TestRawPublisher_PublishAll(t *testing.T) {
	pub := &recordingPublisher{}
	src := sliceSource{
		{Name: "pftaps.txt#1", Format: parser.FormatGreenbook, Content: []byte(motorDoc)},
		{Name: "ipg.zip!ipg.xml#1", Format: parser.FormatRedbookGrant, Content: []byte("<us-patent-grant/>")},
	}
	n, err := NewRawPublisher(pub, "", nil).PublishAll(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sent := pub.Messages()
	require.Len(t, sent, 2)
	assert.Equal(t, TopicRawDocuments, sent[0].Topic)
	assert.Equal(t, "greenbook", sent[0].Headers[HeaderFormat])
	assert.Equal(t, "redbook-grant", sent[1].Headers[HeaderFormat])
	assert.Equal(t, "ipg.zip!ipg.xml#1", sent[1].Headers[HeaderSourceName])
}

func TestRawPublisher_PublishAllStopsOnError(t *testing.T) {
	pub := &recordingPublisher{err: stderrors.New("broker down")}
	n, err := NewRawPublisher(pub, "", nil).PublishAll(context.Background(), sliceSource{{Name: "a", Format: parser.FormatPAP}})
	assert.Equal(t, 0, n)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusSourceFailed))
}

func TestRawDocumentHandler(t *testing.T) {
	h := &fakeHandler{}
	handle := NewRawDocumentHandler(h, nil)

	err := handle(context.Background(), &Message{
		Key:     []byte("k"),
		Value:   []byte(motorDoc),
		Headers: map[string]string{HeaderFormat: "greenbook", HeaderSourceName: "pftaps.txt#1"},
	})
	require.NoError(t, err)
	require.Len(t, h.docs, 1)
	assert.Equal(t, parser.FormatGreenbook, h.docs[0].Format)
	assert.Equal(t, "pftaps.txt#1", h.docs[0].Name)
}

func TestRawDocumentHandler_DetectsMissingFormat(t *testing.T) {
	h := &fakeHandler{}
	err := NewRawDocumentHandler(h, nil)(context.Background(), &Message{
		Key:     []byte("pftaps.txt#1"),
		Value:   []byte(motorDoc),
		Headers: map[string]string{},
	})
	require.NoError(t, err)
	require.Len(t, h.docs, 1)
	assert.Equal(t, parser.FormatGreenbook, h.docs[0].Format)
	assert.Equal(t, "pftaps.txt#1", h.docs[0].Name)
}

func TestRawDocumentHandler_DropsUnknownFormat(t *testing.T) {
	h := &fakeHandler{}
	log := testutil.NewMockLogger()
	err := NewRawDocumentHandler(h, log)(context.Background(), &Message{
		Value:   []byte("plain text"),
		Headers: map[string]string{HeaderFormat: "docx"},
	})
	assert.NoError(t, err)
	assert.Empty(t, h.docs)
	assert.True(t, log.HasMessage("warn", "Dropping raw document without format"))
}

func TestRawDocumentHandler_PropagatesSinkFailure(t *testing.T) {
	sinkErr := errors.New(errors.ErrCodeCorpusSinkFailed, "sink failed")
	h := &fakeHandler{err: sinkErr}
	err := NewRawDocumentHandler(h, nil)(context.Background(), &Message{
		Value:   []byte(motorDoc),
		Headers: map[string]string{HeaderFormat: "greenbook"},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusSinkFailed))
}

//Personal.AI order the ending
