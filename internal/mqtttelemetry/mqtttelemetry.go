/*------------------------------------------------------------------------------
* mqtttelemetry.go : TrackingState/TrackingIQ over MQTT, one topic per channel
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* topic-per-channel publish mirrors how this pack's field-deployed
* monitoring stacks ship per-station telemetry off-box over MQTT
* rather than holding a dedicated socket open per consumer.
 */
package mqtttelemetry

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"trackcore/track"
)

/* Sink is a track.TelemetrySink publishing to an MQTT broker. */
type Sink struct {
	client    mqtt.Client
	baseTopic string
	qos       byte
}

/* Dial connects to brokerURL and returns a ready Sink; baseTopic is
 * prefixed to every published topic, e.g. "trackd/<session>". */
func Dial(brokerURL, clientID, baseTopic string, qos byte) (*Sink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	c := mqtt.NewClient(opts)
	if tok := c.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtttelemetry: connect %s: %w", brokerURL, tok.Error())
	}
	track.Tracet(3, "mqtttelemetry: connected %s as %s\n", brokerURL, clientID)
	return &Sink{client: c, baseTopic: baseTopic, qos: qos}, nil
}

func (s *Sink) publish(topic string, payload []byte) {
	tok := s.client.Publish(s.baseTopic+"/"+topic, s.qos, false, payload)
	if !tok.WaitTimeout(0) {
		return /* fire-and-forget: telemetry must never stall the cycle loop */
	}
	if err := tok.Error(); err != nil {
		track.Tracet(2, "mqtttelemetry: publish %s: %v\n", topic, err)
	}
}

func (s *Sink) SendTrackingState(st track.TrackingState) {
	b, err := json.Marshal(st)
	if err != nil {
		track.Tracet(1, "mqtttelemetry: marshal tracking_state: %v\n", err)
		return
	}
	s.publish("state", b)
}

func (s *Sink) SendTrackingIQ(iq track.TrackingIQ) {
	b, err := json.Marshal(iq)
	if err != nil {
		track.Tracet(1, "mqtttelemetry: marshal tracking_iq: %v\n", err)
		return
	}
	s.publish(fmt.Sprintf("iq/%d", iq.Channel), b)
}

/* Close disconnects from the broker, waiting up to 250ms to flush. */
func (s *Sink) Close() {
	s.client.Disconnect(250)
}
