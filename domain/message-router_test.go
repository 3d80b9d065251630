package domain_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCodec decodes payloads by looking them up verbatim.
type mapCodec struct {
	messages map[string]*domain.Message
}

func (c *mapCodec) Decode(raw []byte) (*domain.Message, error) {
	msg, ok := c.messages[string(raw)]
	if !ok {
		return nil, errors.Errorf("malformed frame: %s", raw)
	}
	return msg, nil
}

func TestRouter_DispatchesByKind(t *testing.T) {
	codec := &mapCodec{messages: map[string]*domain.Message{
		"snap": {Kind: domain.KindSnapshot, Symbol: "BTCUSD"},
		"inc":  {Kind: domain.KindIncremental, Symbol: "BTCUSD"},
	}}
	router := domain.NewRouter(codec, nil)

	var snapshots, incrementals int
	router.Handle(domain.KindSnapshot, func(*domain.Message) error {
		snapshots++
		return nil
	})
	router.Handle(domain.KindIncremental, func(*domain.Message) error {
		incrementals++
		return nil
	})

	require.NoError(t, router.Route(domain.RawMessage{Payload: []byte("snap")}))
	require.NoError(t, router.Route(domain.RawMessage{Payload: []byte("inc")}))
	require.NoError(t, router.Route(domain.RawMessage{Payload: []byte("snap")}))

	assert.Equal(t, 2, snapshots)
	assert.Equal(t, 1, incrementals)
}

func TestRouter_IgnoreKindIsSilent(t *testing.T) {
	codec := &mapCodec{messages: map[string]*domain.Message{
		"hb": {Kind: domain.KindIgnore},
	}}
	router := domain.NewRouter(codec, nil)

	assert.NoError(t, router.Route(domain.RawMessage{Payload: []byte("hb")}))
}

func TestRouter_UnhandledKindIsDropped(t *testing.T) {
	codec := &mapCodec{messages: map[string]*domain.Message{
		"trade": {Kind: domain.KindTrade},
	}}
	router := domain.NewRouter(codec, nil)

	// No handler registered: dropped, not an error.
	assert.NoError(t, router.Route(domain.RawMessage{Payload: []byte("trade")}))
}

func TestRouter_MalformedFrameReportsDiagnostic(t *testing.T) {
	var diags []domain.Diagnostic
	codec := &mapCodec{messages: map[string]*domain.Message{}}
	router := domain.NewRouter(codec, func(d domain.Diagnostic) { diags = append(diags, d) })

	err := router.Route(domain.RawMessage{Payload: []byte("garbage")})

	assert.Error(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "stream.decode", diags[0].Code)
	assert.Equal(t, domain.SeverityError, diags[0].Severity)
}

func TestRouter_HandlerErrorPropagates(t *testing.T) {
	codec := &mapCodec{messages: map[string]*domain.Message{
		"exec": {Kind: domain.KindExecution},
	}}
	router := domain.NewRouter(codec, nil)
	router.Handle(domain.KindExecution, func(*domain.Message) error {
		return errors.New("boom")
	})

	assert.Error(t, router.Route(domain.RawMessage{Payload: []byte("exec")}))
}
