//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/outagewatch/core/alerts"
	"github.com/kilianp07/outagewatch/core/model"
	coremqtt "github.com/kilianp07/outagewatch/core/mqtt"
	"github.com/kilianp07/outagewatch/internal/testutil"
)

func TestBrokerRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer cleanup()

	cli, err := NewPahoClient(Config{Enabled: true, Broker: broker, ClientID: "ow-test", QoS: map[string]byte{"alerts": 1, "reload": 1}})
	require.NoError(t, err)
	defer cli.Disconnect()

	reloads := make(chan coremqtt.ReloadRequest, 1)
	require.NoError(t, cli.OnReload(func(r coremqtt.ReloadRequest) { reloads <- r }))

	// observer subscribes to the alert topic
	received := make(chan []byte, 1)
	obs := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	tok := obs.Connect()
	tok.Wait()
	require.NoError(t, tok.Error())
	defer obs.Disconnect(100)
	tok = obs.Subscribe("outagewatch/alerts", 1, func(_ paho.Client, m paho.Message) { received <- m.Payload() })
	tok.Wait()
	require.NoError(t, tok.Error())

	list := alerts.AlertList{Alerts: []model.PowerOutageAlert{{FacilityID: "f1", FacilityName: "Clinic", Stage: 4}}, Total: 1}
	batchID, err := cli.PublishAlerts(ctx, list)
	require.NoError(t, err)

	select {
	case payload := <-received:
		var batch coremqtt.AlertBatch
		require.NoError(t, json.Unmarshal(payload, &batch))
		require.Equal(t, batchID, batch.BatchID)
		require.Len(t, batch.Alerts, 1)
	case <-ctx.Done():
		t.Fatal("alert batch not received")
	}

	tok = obs.Publish("outagewatch/schedule/reload", 1, false, `{"request_id":"abc","source":"ops"}`)
	tok.Wait()
	require.NoError(t, tok.Error())
	select {
	case r := <-reloads:
		require.Equal(t, "abc", r.RequestID)
	case <-ctx.Done():
		t.Fatal("reload request not received")
	}
}
