package bitfinex_test

import (
	"testing"

	"github.com/spooky-finn/go-broker-bridge/domain"
	"github.com/spooky-finn/go-broker-bridge/provider/bitfinex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribedCodec(t *testing.T) *bitfinex.Codec {
	t.Helper()
	codec := bitfinex.NewCodec()

	msg, err := codec.Decode([]byte(`{"event":"subscribed","channel":"book","chanId":42,"pair":"BTCUSD"}`))
	require.NoError(t, err)
	require.Equal(t, domain.KindSubscribeAck, msg.Kind)
	require.Equal(t, "BTCUSD", msg.Symbol)

	msg, err = codec.Decode([]byte(`{"event":"subscribed","channel":"trades","chanId":17,"pair":"BTCUSD"}`))
	require.NoError(t, err)
	require.Equal(t, domain.KindSubscribeAck, msg.Kind)
	return codec
}

func TestCodec_InfoAndHeartbeatIgnored(t *testing.T) {
	codec := subscribedCodec(t)

	msg, err := codec.Decode([]byte(`{"event":"info","version":2}`))
	require.NoError(t, err)
	assert.Equal(t, domain.KindIgnore, msg.Kind)

	msg, err = codec.Decode([]byte(`[42,"hb"]`))
	require.NoError(t, err)
	assert.Equal(t, domain.KindIgnore, msg.Kind)
}

func TestCodec_UnknownChannelIsAnError(t *testing.T) {
	codec := bitfinex.NewCodec()

	_, err := codec.Decode([]byte(`[99,[[100,1,1]]]`))
	assert.Error(t, err)
}

func TestCodec_MalformedFrameIsAnError(t *testing.T) {
	codec := bitfinex.NewCodec()

	_, err := codec.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestCodec_BookSnapshot(t *testing.T) {
	codec := subscribedCodec(t)

	msg, err := codec.Decode([]byte(`[42,[[100.5,3,2],[99,1,5],[101,2,-4]]]`))
	require.NoError(t, err)

	assert.Equal(t, domain.KindSnapshot, msg.Kind)
	assert.Equal(t, "BTCUSD", msg.Symbol)
	require.Len(t, msg.Book, 3)

	// Sign of the amount picks the side, the price doubles as the id.
	assert.Equal(t, domain.SideBid, msg.Book[0].Side)
	assert.Equal(t, "100.5", msg.Book[0].ID)
	assert.Equal(t, "2", msg.Book[0].Size.String())

	assert.Equal(t, domain.SideAsk, msg.Book[2].Side)
	assert.Equal(t, "4", msg.Book[2].Size.String())
}

func TestCodec_BookUpdate(t *testing.T) {
	codec := subscribedCodec(t)

	msg, err := codec.Decode([]byte(`[42,100.5,3,7]`))
	require.NoError(t, err)

	assert.Equal(t, domain.KindIncremental, msg.Kind)
	assert.Equal(t, domain.ActionUpdate, msg.Action)
	require.Len(t, msg.Book, 1)
	assert.Equal(t, "100.5", msg.Book[0].ID)
	assert.Equal(t, "7", msg.Book[0].Size.String())
}

func TestCodec_BookRemoval(t *testing.T) {
	codec := subscribedCodec(t)

	// count == 0 removes the level.
	msg, err := codec.Decode([]byte(`[42,100.5,0,1]`))
	require.NoError(t, err)

	assert.Equal(t, domain.KindIncremental, msg.Kind)
	assert.Equal(t, domain.ActionDelete, msg.Action)
	assert.Equal(t, "100.5", msg.Book[0].ID)
}

func TestCodec_TradeExecution(t *testing.T) {
	codec := subscribedCodec(t)

	msg, err := codec.Decode([]byte(`[17,"te",1234,1714000000.5,100.5,-2]`))
	require.NoError(t, err)

	assert.Equal(t, domain.KindTrade, msg.Kind)
	require.Len(t, msg.Trades, 1)
	assert.Equal(t, "100.5", msg.Trades[0].Price.String())
	assert.Equal(t, "2", msg.Trades[0].Size.String())
	assert.Equal(t, int64(1714000000), msg.Trades[0].Time.Unix())

	// "tu" duplicates on the public channel are ignored.
	msg, err = codec.Decode([]byte(`[17,"tu",1234,1714000000,100.5,-2]`))
	require.NoError(t, err)
	assert.Equal(t, domain.KindIgnore, msg.Kind)
}

func TestCodec_OrderCloseCanceled(t *testing.T) {
	codec := bitfinex.NewCodec()

	msg, err := codec.Decode([]byte(`[0,"oc",[736,"BTCUSD",0,-1,"LIMIT","CANCELED",100,0,"2024-01-01",0]]`))
	require.NoError(t, err)

	assert.Equal(t, domain.KindExecution, msg.Kind)
	require.Len(t, msg.Executions, 1)
	assert.Equal(t, "736", msg.Executions[0].BrokerID)
	assert.Equal(t, domain.StatusCanceled, msg.Executions[0].Status)
	assert.False(t, msg.Executions[0].FillPossible)
}

func TestCodec_OrderCloseExecuted(t *testing.T) {
	codec := bitfinex.NewCodec()

	// An executed close may still be followed by its fill notification.
	msg, err := codec.Decode([]byte(`[0,"oc",[736,"BTCUSD",0,0,"LIMIT","EXECUTED @ 100.5(1.0)",100,0,"2024-01-01",0]]`))
	require.NoError(t, err)

	require.Len(t, msg.Executions, 1)
	assert.Equal(t, domain.StatusCanceled, msg.Executions[0].Status)
	assert.True(t, msg.Executions[0].FillPossible)
}

func TestCodec_Fill(t *testing.T) {
	codec := bitfinex.NewCodec()

	msg, err := codec.Decode([]byte(`[0,"tu",[55,"trade","BTCUSD",1714000000,736,0.5,100.5,"LIMIT",0]]`))
	require.NoError(t, err)

	assert.Equal(t, domain.KindExecution, msg.Kind)
	require.Len(t, msg.Executions, 1)
	exec := msg.Executions[0]
	assert.Equal(t, "736", exec.BrokerID)
	assert.Equal(t, "BTCUSD", exec.Symbol)
	assert.Equal(t, domain.StatusPartiallyFilled, exec.Status)
	assert.Equal(t, "0.5", exec.FillQty.String())
	assert.Equal(t, "100.5", exec.FillPrice.String())
}

func TestCodec_Unsubscribe(t *testing.T) {
	codec := subscribedCodec(t)

	msg, err := codec.Decode([]byte(`{"event":"unsubscribed","chanId":42}`))
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnsubscribeAck, msg.Kind)
	assert.Equal(t, "BTCUSD", msg.Symbol)

	// The channel registry forgot the id: later frames are errors.
	_, err = codec.Decode([]byte(`[42,100.5,3,7]`))
	assert.Error(t, err)
}
