package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/api/middleware"
	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/simulator"
	"github.com/danmechanic/glucid/internal/state"
	"github.com/danmechanic/glucid/internal/storage/models"
	"github.com/danmechanic/glucid/internal/transaction"
	"github.com/danmechanic/glucid/internal/transport"
)

type fakeJournal struct {
	port  string
	limit int
}

func (f *fakeJournal) RecentExchanges(_ context.Context, port string, limit int) ([]models.Exchange, error) {
	f.port, f.limit = port, limit
	return []models.Exchange{{Command: "GetSync", Result: "ok"}}, nil
}

type fixture struct {
	sim    *simulator.Device
	store  *state.MemoryStore
	router *gin.Engine
}

func newFixture(t *testing.T, family transport.Family, connect bool, journal JournalReader) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sim := simulator.New("sim0", 0)
	if family == transport.FamilyMIDI {
		sim.Silent(true)
	}
	runner := transaction.New(sim, transaction.Options{})
	sess := device.NewSession(runner, family, state.Snapshot{Sync: 3}, zap.NewNop())
	if connect {
		require.NoError(t, sess.Connect())
	}
	store := state.NewMemoryStore()
	ctl := NewController(sess, store, zap.NewNop())

	r := gin.New()
	RegisterDeviceRoutes(r, NewDeviceHandler(ctl, journal, zap.NewNop()), middleware.AuthConfig{}, nil, zap.NewNop())
	return &fixture{sim: sim, store: store, router: r}
}

func (f *fixture) call(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestDeviceStatus(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)
	rec, body := f.call(t, http.MethodGet, "/api/v1/device", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sim0", body["port"])
	assert.Equal(t, "connected", body["state"])
	assert.Equal(t, true, body["queryable"])
}

func TestSetAndReadSettings(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)

	rec, body := f.call(t, http.MethodPut, "/api/v1/device/sync", gin.H{"choice": "48 Internal"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 3, body["value"])
	_, sync, _, _, _ := f.sim.Registers()
	assert.EqualValues(t, 3, sync)

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/optical", gin.H{"value": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.call(t, http.MethodGet, "/api/v1/device/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := body["settings"].([]interface{})
	require.Len(t, settings, 6)
	first := settings[0].(map[string]interface{})
	assert.Equal(t, "sync", first["control"])
	assert.Equal(t, "48 Internal", first["name"])
	assert.Equal(t, "device", first["source"])

	snap, err := f.store.Load(context.Background(), "sim0")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Optical)
}

func TestSetControlValidation(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)

	rec, body := f.call(t, http.MethodPut, "/api/v1/device/sync", gin.H{"value": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", body["error"])

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/aes", gin.H{"choice": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/aes", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotConnectedMapsTo503(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, false, nil)
	rec, body := f.call(t, http.MethodGet, "/api/v1/device/settings", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_connected", body["error"])
}

func TestNoResponseMapsTo504(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)
	f.sim.Inject(simulator.FaultDrop)
	rec, body := f.call(t, http.MethodGet, "/api/v1/device/gains", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "no_response", body["error"])

	rec, body = f.call(t, http.MethodGet, "/api/v1/device", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", body["state"])

	rec, body = f.call(t, http.MethodPost, "/api/v1/device/clear-error", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", body["state"])
}

func TestBadFrameMapsTo502(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)
	f.sim.Inject(simulator.FaultBadModel)
	rec, body := f.call(t, http.MethodGet, "/api/v1/device/gains", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "bad_frame", body["error"])
}

func TestGains(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)

	rec, body := f.call(t, http.MethodGet, "/api/v1/device/gains", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-8", body["input"].([]interface{})[0])
	assert.Equal(t, "+1", body["output"].([]interface{})[7])

	rec, body = f.call(t, http.MethodPut, "/api/v1/device/gains/input/3", gin.H{"gain": "+6"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "+6", body["input"].([]interface{})[2])
	assert.Equal(t, "-8", body["input"].([]interface{})[0])
	assert.EqualValues(t, 102, f.sim.Gains()[2])

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/gains/output", gin.H{"gain": "-3"})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, b := range f.sim.Gains()[8:] {
		assert.EqualValues(t, 93, b)
	}

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/gains/input/9", gin.H{"gain": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/gains/input/1", gin.H{"gain": "+40"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/gains/middle/1", gin.H{"gain": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinkedStage(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)

	rec, body := f.call(t, http.MethodPut, "/api/v1/device/links", gin.H{"inputs": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["link_inputs"])

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/gains/input/2", gin.H{"gain": "0"})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, b := range f.sim.Gains()[:8] {
		assert.EqualValues(t, 96, b)
	}
	// 输出级未联动
	assert.EqualValues(t, 0x61, f.sim.Gains()[8])
}

func TestPreset(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)

	rec, _ := f.call(t, http.MethodPost, "/api/v1/device/preset", gin.H{"preset": "-10"})
	require.Equal(t, http.StatusOK, rec.Code)
	g := f.sim.Gains()
	assert.EqualValues(t, 100, g[0])
	assert.EqualValues(t, 85, g[15])

	rec, _ = f.call(t, http.MethodPost, "/api/v1/device/preset", gin.H{"preset": "+7"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMIDIUsesLastKnown(t *testing.T) {
	f := newFixture(t, transport.FamilyMIDI, true, nil)

	rec, body := f.call(t, http.MethodGet, "/api/v1/device/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := body["settings"].([]interface{})[0].(map[string]interface{})
	assert.EqualValues(t, 3, first["value"])
	assert.Equal(t, "last_known", first["source"])

	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/analog", gin.H{"value": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, _, analog, _ := f.sim.Registers()
	assert.EqualValues(t, 1, analog)

	// 无法回读增益，也没有持久化的增益表
	rec, _ = f.call(t, http.MethodPut, "/api/v1/device/gains/input", gin.H{"gain": "0"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReconnect(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, false, nil)
	rec, body := f.call(t, http.MethodPost, "/api/v1/device/reconnect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", body["state"])
}

func TestJournal(t *testing.T) {
	f := newFixture(t, transport.FamilyRS232, true, nil)
	rec, _ := f.call(t, http.MethodGet, "/api/v1/journal", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	j := &fakeJournal{}
	f = newFixture(t, transport.FamilyRS232, true, j)
	rec, body := f.call(t, http.MethodGet, "/api/v1/journal?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sim0", j.port)
	assert.Equal(t, 5, j.limit)
	assert.Len(t, body["exchanges"], 1)
}

func TestLinkStatus(t *testing.T) {
	sim := simulator.New("sim0", 0)
	sess := device.NewSession(transaction.New(sim, transaction.Options{}), transport.FamilyRS232, state.Snapshot{}, nil)
	ctl := NewController(sess, nil, nil)

	port, st, mismatch := ctl.LinkStatus()
	assert.Equal(t, "sim0", port)
	assert.Equal(t, "disconnected", st)
	assert.False(t, mismatch)
}
