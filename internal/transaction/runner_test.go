package transaction

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmechanic/glucid/internal/metrics"
	"github.com/danmechanic/glucid/internal/protocol/lucid"
)

// scriptedTransport 按顺序返回预设的行，记录所有写入
type scriptedTransport struct {
	lines    [][]byte
	writes   [][]byte
	reads    int
	openErr  error
	closeErr error
	writeErr error
	readErr  error
	open     bool
}

func (s *scriptedTransport) Open() error {
	if s.openErr != nil {
		return s.openErr
	}
	s.open = true
	return nil
}

func (s *scriptedTransport) Close() error {
	if s.closeErr != nil {
		return s.closeErr
	}
	s.open = false
	return nil
}

func (s *scriptedTransport) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (s *scriptedTransport) ReadLine() ([]byte, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	if len(s.lines) == 0 {
		return nil, nil
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

func (s *scriptedTransport) Name() string { return "/dev/fake" }

type memRecorder struct{ items []Exchange }

func (m *memRecorder) RecordExchange(_ context.Context, ex Exchange) error {
	m.items = append(m.items, ex)
	return nil
}

func connected(t *testing.T, tr *scriptedTransport, opts Options) *Runner {
	t.Helper()
	r := New(tr, opts)
	require.NoError(t, r.Connect())
	require.Equal(t, StateConnected, r.State())
	return r
}

func TestRunner_InitialState(t *testing.T) {
	r := New(&scriptedTransport{}, Options{Address: 3})
	assert.Equal(t, StateDisconnected, r.State())
	assert.Equal(t, byte(3), r.Address())
	assert.Equal(t, "/dev/fake", r.InterfaceName())

	_, err := r.Send(lucid.GetSync)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRunner_SendOK(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{lucid.BuildResponse(0, 0x61, []byte{0x02})}}
	r := connected(t, tr, Options{})

	payload, err := r.Send(lucid.GetSync)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, payload)
	require.Len(t, tr.writes, 1)
	assert.Equal(t, lucid.Build(0x61, 0, []byte{0x00}), tr.writes[0])
}

func TestRunner_UnknownCommandDoesNotTouchTransport(t *testing.T) {
	tr := &scriptedTransport{}
	r := connected(t, tr, Options{})

	_, err := r.SendNamed("BogusName")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	_, err = r.Send(lucid.Command(0x7E))
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.ErrorIs(t, r.Post(lucid.Command(0x11)), ErrUnknownCommand)

	assert.Empty(t, tr.writes)
	assert.Zero(t, tr.reads)
	assert.Equal(t, StateConnected, r.State())
}

func TestRunner_SendNamed(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{lucid.BuildResponse(0, 0x21, nil)}}
	r := connected(t, tr, Options{})

	payload, err := r.SendNamed("SetSync", 0x03)
	require.NoError(t, err)
	assert.Empty(t, payload)
	assert.Equal(t, lucid.Build(0x21, 0, []byte{0x03}), tr.writes[0])
}

func TestRunner_ProbeUncheckedOpcode(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{lucid.BuildResponse(0, 0x7E, []byte{0x11, 0x22})}}
	r := connected(t, tr, Options{})

	payload, err := r.Probe(0x7E)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22}, payload)
}

func TestRunner_RetrySucceedsOnThirdRead(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{{}, nil, lucid.BuildResponse(0, 0x60, []byte{0x05})}}
	reg := metrics.NewRegistry()
	m := metrics.NewAppMetrics(reg)
	r := connected(t, tr, Options{Metrics: m})

	payload, err := r.Send(lucid.GetMode)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, payload)
	assert.Equal(t, 3, tr.reads)
	assert.Equal(t, StateConnected, r.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("GetMode", "ok")))
}

func TestRunner_NoResponseMovesToError(t *testing.T) {
	tr := &scriptedTransport{}
	rec := &memRecorder{}
	r := connected(t, tr, Options{Recorder: rec})

	_, err := r.Send(lucid.GetMode)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, 3, tr.reads)
	assert.Equal(t, StateError, r.State())

	// Error 状态下拒绝继续发送，且不触碰传输
	_, err = r.Send(lucid.GetMode)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Len(t, tr.writes, 1)

	require.Len(t, rec.items, 1)
	assert.ErrorIs(t, rec.items[0].Err, ErrNoResponse)
	assert.Equal(t, 3, rec.items[0].Attempts)

	r.ClearError()
	assert.Equal(t, StateConnected, r.State())
}

func TestRunner_ReadAttemptsConfigurable(t *testing.T) {
	tr := &scriptedTransport{}
	r := connected(t, tr, Options{ReadAttempts: 5})
	_, err := r.Send(lucid.GetMode)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, 5, tr.reads)
}

func TestRunner_WriteFailureMovesToError(t *testing.T) {
	tr := &scriptedTransport{writeErr: errors.New("broken pipe")}
	r := connected(t, tr, Options{})

	_, err := r.Send(lucid.GetSync)
	assert.Error(t, err)
	assert.Equal(t, StateError, r.State())
	assert.Zero(t, tr.reads)
}

func TestRunner_DecodeFailureIsData(t *testing.T) {
	bad := lucid.BuildResponse(0, 0x61, []byte{0x01})
	bad[4] = 0x42
	tr := &scriptedTransport{lines: [][]byte{bad, {0x01, 0x02}}}
	r := connected(t, tr, Options{})

	_, err := r.Send(lucid.GetSync)
	assert.ErrorIs(t, err, lucid.ErrBadModel)
	assert.Equal(t, StateConnected, r.State())

	_, err = r.Send(lucid.GetSync)
	assert.ErrorIs(t, err, lucid.ErrFrameNotFound)
	assert.Equal(t, StateConnected, r.State())
}

func TestRunner_AddressAdoption(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{
		lucid.BuildResponse(4, 0x61, []byte{0x01}),
		lucid.BuildResponse(4, 0x61, []byte{0x01}),
	}}
	r := connected(t, tr, Options{Address: 1})

	_, err := r.Send(lucid.GetSync)
	var mm *lucid.AddressMismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, byte(4), mm.Reported)
	assert.True(t, r.Mismatch())
	assert.Equal(t, byte(4), r.Address())
	assert.Equal(t, StateConnected, r.State())

	// 下一帧使用新地址，完全合法的解码清除标志
	payload, err := r.Send(lucid.GetSync)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, payload)
	assert.False(t, r.Mismatch())
	assert.Equal(t, byte(4), tr.writes[1][5])
}

func TestRunner_StrictAddress(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{lucid.BuildResponse(4, 0x61, []byte{0x01})}}
	r := connected(t, tr, Options{Address: 1, StrictAddress: true})

	_, err := r.Send(lucid.GetSync)
	assert.ErrorIs(t, err, lucid.ErrAddressMismatch)
	assert.True(t, r.Mismatch())
	assert.Equal(t, byte(1), r.Address())
}

func TestRunner_MismatchStickyUntilValid(t *testing.T) {
	tr := &scriptedTransport{lines: [][]byte{
		lucid.BuildResponse(2, 0x61, []byte{0x01}),
		{0x00},
	}}
	r := connected(t, tr, Options{})

	_, err := r.Send(lucid.GetSync)
	require.Error(t, err)
	_, err = r.Send(lucid.GetSync)
	require.ErrorIs(t, err, lucid.ErrFrameNotFound)
	assert.True(t, r.Mismatch())

	r.ClearError()
	assert.False(t, r.Mismatch())
}

func TestRunner_InvalidArgumentRejected(t *testing.T) {
	tr := &scriptedTransport{}
	r := connected(t, tr, Options{})
	_, err := r.Send(lucid.SetSync, 0xF7)
	assert.ErrorIs(t, err, lucid.ErrInvalidArgument)
	assert.Empty(t, tr.writes)
}

func TestRunner_Post(t *testing.T) {
	tr := &scriptedTransport{}
	r := connected(t, tr, Options{Address: 2})

	require.NoError(t, r.Post(lucid.SetSync, 0x01))
	require.Len(t, tr.writes, 1)
	assert.True(t, bytes.Equal(lucid.Build(0x21, 2, []byte{0x01}), tr.writes[0]))
	assert.Zero(t, tr.reads)
}

func TestRunner_ConnectFailure(t *testing.T) {
	tr := &scriptedTransport{openErr: errors.New("permission denied")}
	r := New(tr, Options{})

	err := r.Connect()
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, StateError, r.State())

	r.ClearError()
	assert.Equal(t, StateDisconnected, r.State())
}

func TestRunner_Disconnect(t *testing.T) {
	tr := &scriptedTransport{}
	r := connected(t, tr, Options{})
	r.Disconnect()
	assert.Equal(t, StateDisconnected, r.State())

	tr2 := &scriptedTransport{closeErr: errors.New("busy")}
	r2 := connected(t, tr2, Options{})
	r2.Disconnect()
	assert.Equal(t, StateConnected, r2.State())
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "no_response", Result(ErrNoResponse))
	assert.Equal(t, "address_mismatch", Result(&lucid.AddressMismatchError{}))
	assert.Equal(t, "bad_frame", Result(lucid.ErrNotAResponse))
	assert.Equal(t, "transport_error", Result(errors.New("eio")))
}
