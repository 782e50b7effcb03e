/*------------------------------------------------------------------------------
* trackd.go : console tracking-core daemon
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* flag parsing and the signal-driven shutdown below follow
* app/str2str/str2str.go's console-server shape: parse flags, start the
* long-running server, wait on a signal channel, print periodic status
* until told to stop.
*-----------------------------------------------------------------------------*/
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trackcore/internal/config"
	"trackcore/internal/iqrtp"
	"trackcore/internal/metrics"
	"trackcore/internal/mqtttelemetry"
	"trackcore/internal/navbit"
	"trackcore/internal/serialdevice"
	"trackcore/internal/wstelemetry"
	"trackcore/track"
)

var PRGNAME string = "trackd" /* program name */

/* help text -------------------------------------------------------------- */
var help []string = []string{
	"",
	" usage: trackd -conf receiver.yaml [-sim] [-t level]",
	"",
	" Run the tracking core against either a real NAP correlator over",
	" serial, or an in-memory simulated device for bench testing.",
	"",
	" -conf file   receiver.yaml settings document (default receiver.yaml)",
	" -sim         force the simulated device regardless of device.sim",
	" -t  level    override trace level from the settings document",
	"",
	" telemetry.rtp_addr in the settings document, when set, streams the",
	" per-channel IQ triple as RTP (§10.3) in addition to any configured",
	" websocket/MQTT sink.",
	"",
}

/* rtpSSRCBase seeds iqrtp.Packetizer's per-channel SSRC space; channel
 * id is added on top, so this just needs to avoid colliding with
 * another RTP source sharing the same multicast group. */
const rtpSSRCBase = 0x747263 /* 'trc' */

func printhelp() {
	for _, s := range help {
		fmt.Fprintln(os.Stderr, s)
	}
}

func main() {
	var (
		confPath string
		simFlag  bool
		trlevel  int
	)
	flag.StringVar(&confPath, "conf", "receiver.yaml", "settings document path")
	flag.BoolVar(&simFlag, "sim", false, "force the simulated device")
	flag.IntVar(&trlevel, "t", -1, "trace level override")
	flag.Usage = printhelp
	flag.Parse()

	cfg, err := config.Load(confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", PRGNAME, err)
		os.Exit(-1)
	}
	if trlevel >= 0 {
		cfg.TraceLevel = trlevel
	}
	track.TraceLevel(cfg.TraceLevel)

	sessionID := uuid.NewString()
	Trace(1, "session %s starting, %d channels\n", sessionID, cfg.NumChannels)

	dev, closeDev := openDevice(cfg, simFlag)
	defer closeDev()

	wsSink, mqttSink, rtpSink := openTelemetry(cfg, sessionID)
	if mqttSink != nil {
		defer mqttSink.Close()
	}
	if rtpSink != nil {
		defer rtpSink.Close()
	}
	sink := fanoutSink{ws: wsSink, mqtt: mqttSink, rtp: rtpSink}

	bank := track.NewTrackingBank(cfg.NumChannels, dev, sink, func() track.NavBitSync { return navbit.New() })
	if err := bank.SetLoopParams(cfg.LoopParams); err != nil {
		fmt.Fprintf(os.Stderr, "%s: loop_params: %v\n", PRGNAME, err)
		os.Exit(-1)
	}
	if err := bank.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", PRGNAME, err)
		os.Exit(-1)
	}

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(reg)
	serveMetrics(cfg, wsSink, reg)

	done := make(chan int, 64)
	go bank.Run(done)
	defer bank.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	statusTick := time.NewTicker(time.Second)
	defer statusTick.Stop()

	fmt.Fprintf(os.Stderr, "%s: running (session %s)\n", PRGNAME, sessionID)
	for {
		select {
		case s := <-sigc:
			Trace(1, "received signal %v, shutting down\n", s)
			return
		case <-statusTick.C:
			bank.PublishTrackingState()
			publishMetrics(bank, metricsReg)
		}
	}
}

/* openDevice selects a real serial NAP correlator or the in-memory
 * simulator per cfg.Device.Sim (overridable with -sim), exiting on any
 * open failure since a tracking core with no correlator has nothing to
 * do. */
func openDevice(cfg config.Config, simFlag bool) (track.CorrelatorDevice, func()) {
	if simFlag || cfg.Device.Sim {
		Trace(2, "device: using simulated correlator\n")
		return serialdevice.NewSimDevice("9.9.9"), func() {}
	}
	dev, err := serialdevice.Open(cfg.Device.Port, cfg.Device.Baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", PRGNAME, err)
		os.Exit(-1)
	}
	return dev, func() { dev.Close() }
}

/* openTelemetry dials the configured telemetry transports; any of the
 * three may be left unconfigured (empty address/URL), in which case
 * its sink is nil and fanoutSink skips it. */
func openTelemetry(cfg config.Config, sessionID string) (*wstelemetry.Sink, *mqtttelemetry.Sink, *iqrtp.Sink) {
	var wsSink *wstelemetry.Sink
	if cfg.Telemetry.WebsocketAddr != "" {
		s, err := wstelemetry.NewSink(sessionID, cfg.Telemetry.CompressIQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: websocket telemetry: %v\n", PRGNAME, err)
			os.Exit(-1)
		}
		wsSink = s
	}

	var mqttSink *mqtttelemetry.Sink
	if cfg.Telemetry.MQTTBrokerURL != "" {
		s, err := mqtttelemetry.Dial(cfg.Telemetry.MQTTBrokerURL, PRGNAME+"-"+sessionID, PRGNAME+"/"+sessionID, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: mqtt telemetry: %v\n", PRGNAME, err)
			os.Exit(-1)
		}
		mqttSink = s
	}

	var rtpSink *iqrtp.Sink
	if cfg.Telemetry.RTPAddr != "" {
		s, err := iqrtp.Dial(cfg.Telemetry.RTPAddr, rtpSSRCBase)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: rtp telemetry: %v\n", PRGNAME, err)
			os.Exit(-1)
		}
		rtpSink = s
	}
	return wsSink, mqttSink, rtpSink
}

/* fanoutSink is a track.TelemetrySink forwarding to whichever of the
 * websocket, MQTT and RTP sinks were configured; a nil sink is
 * skipped. */
type fanoutSink struct {
	ws   *wstelemetry.Sink
	mqtt *mqtttelemetry.Sink
	rtp  *iqrtp.Sink
}

func (f fanoutSink) SendTrackingState(st track.TrackingState) {
	if f.ws != nil {
		f.ws.SendTrackingState(st)
	}
	if f.mqtt != nil {
		f.mqtt.SendTrackingState(st)
	}
	if f.rtp != nil {
		f.rtp.SendTrackingState(st)
	}
}

func (f fanoutSink) SendTrackingIQ(iq track.TrackingIQ) {
	if f.ws != nil {
		f.ws.SendTrackingIQ(iq)
	}
	if f.mqtt != nil {
		f.mqtt.SendTrackingIQ(iq)
	}
	if f.rtp != nil {
		f.rtp.SendTrackingIQ(iq)
	}
}

/* serveMetrics serves /metrics and the websocket sink's Handler under
 * /ws on telemetry.websocket_addr; when that address is empty it
 * serves nothing, /metrics included. */
func serveMetrics(cfg config.Config, wsSink *wstelemetry.Sink, reg *prometheus.Registry) {
	if cfg.Telemetry.WebsocketAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if wsSink != nil {
		mux.HandleFunc("/ws", wsSink.Handler)
	}
	go func() {
		if err := http.ListenAndServe(cfg.Telemetry.WebsocketAddr, mux); err != nil {
			Trace(1, "http server exited: %v\n", err)
		}
	}()
}

/* publishMetrics walks every channel and pushes its snapshot fields
 * into the Prometheus registry; called from the same status tick as
 * PublishTrackingState so both stay in sync. */
func publishMetrics(bank *track.TrackingBank, reg *metrics.Registry) {
	for i := 0; i < len(bank.Channels); i++ {
		ch := bank.Channel(i)
		if ch == nil {
			continue
		}
		reg.ObserveChannel(i, ch.Prn, ch.State, ch.CN0, ch.LockCounter, ch.ModeChangeCount)
	}
}

func Trace(level int, format string, v ...interface{}) { track.Trace(level, format, v...) }
