package cmd

import (
	"fmt"
	"io"
	"log"
	"net/netip"
	"os"

	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/datarecording"
	"github.com/sarchlab/portmux/diag"
	"github.com/sarchlab/portmux/monitoring"
	"github.com/sarchlab/portmux/mux"
	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/network/loopback"
	"github.com/sarchlab/portmux/sim"
	"github.com/sarchlab/portmux/tracing"
)

const firstAgentPort = 5000

// MuxSummary reports what one demultiplexer did during a run.
type MuxSummary struct {
	Name      string
	Sent      uint64
	Delivered uint64
	Read      uint64
	Dropped   uint64
	Received  int
}

// Summary reports the outcome of a run.
type Summary struct {
	EndTime sim.VTimeInSec
	Muxes   []MuxSummary
}

type demoHost struct {
	host    *loopback.Host
	mux     *mux.Mux
	counter *tracing.TrafficCounter
	agents  []*mux.Agent
}

// Simulate runs two hosts whose agents exchange packets over a loopback
// fabric. Logs are written to logOut.
func Simulate(cfg Config, logOut io.Writer) (Summary, error) {
	logger := log.New(logOut, "", 0)

	engine := sim.NewSerialEngine()
	if cfg.LogEvents {
		engine.AcceptHook(sim.NewEventLogger(logger))
	}

	sink := diag.NewLogSink(logger)

	fabric := loopback.MakeBuilder().
		WithEngine(engine).
		WithLatency(sim.VTimeInSec(cfg.Latency)).
		WithSink(sink).
		Build("Fabric")

	var recorder datarecording.DataRecorder
	var tracer *tracing.TrafficTracer

	if cfg.Record {
		recorder = datarecording.New(cfg.RecordPath)
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Printf("close recording: %v", err)
			}
		}()

		tracer = tracing.NewTrafficTracer(recorder)
	}

	hosts := make([]*demoHost, 0, 2)
	for i, addr := range []string{"10.0.0.1", "10.0.0.2"} {
		h, err := buildDemoHost(cfg, engine, fabric, sink, logger,
			fmt.Sprintf("Host%d", i), netip.MustParseAddr(addr))
		if err != nil {
			return Summary{}, err
		}

		if tracer != nil {
			h.mux.AcceptHook(tracer)
		}

		hosts = append(hosts, h)
	}

	var monitor *monitoring.Monitor
	var bar *monitoring.ProgressBar

	if cfg.Monitor {
		monitor = startMonitor(cfg, engine, hosts)
		bar = monitor.CreateProgressBar("Packets",
			uint64(2*cfg.Agents*cfg.Packets))
		defer monitor.CompleteProgressBar(bar)
	}

	for _, h := range hosts {
		for _, a := range h.agents {
			a.OnReceive = func(*network.Packet) {
				if bar != nil {
					bar.IncrementFinished(1)
				}
			}
		}
	}

	err := sendAll(cfg, hosts)
	if err != nil {
		return Summary{}, err
	}

	err = engine.Run()
	if err != nil {
		return Summary{}, errors.Wrap(err, "run simulation")
	}

	engine.Finished()

	if recorder != nil {
		recorder.Flush()
	}

	return summarize(engine.CurrentTime(), hosts), nil
}

func buildDemoHost(
	cfg Config,
	engine sim.Engine,
	fabric *loopback.Fabric,
	sink diag.Sink,
	logger *log.Logger,
	name string,
	addr netip.Addr,
) (*demoHost, error) {
	host, err := fabric.NewHost(name, addr)
	if err != nil {
		return nil, err
	}

	builder := mux.MakeBuilder().
		WithEngine(engine).
		WithSink(sink).
		WithAddr(addr)
	if cfg.SendTrace {
		builder = builder.WithSendTrace(logger)
	}

	m := builder.Build(name + ".Mux")
	host.Attach(m, m.Protocol())

	counter := tracing.NewTrafficCounter()
	m.AcceptHook(counter)

	h := &demoHost{host: host, mux: m, counter: counter}

	for i := 0; i < cfg.Agents; i++ {
		agent, err := m.CreateNewAgent(firstAgentPort + i)
		if err != nil {
			return nil, err
		}

		h.agents = append(h.agents, agent)
	}

	return h, nil
}

func startMonitor(
	cfg Config,
	engine sim.Engine,
	hosts []*demoHost,
) *monitoring.Monitor {
	monitor := monitoring.NewMonitor().
		WithPortNumber(cfg.MonitorPort).
		WithBrowser(cfg.OpenBrowser)
	monitor.RegisterEngine(engine)

	for _, h := range hosts {
		monitor.RegisterMux(h.mux)
		monitor.RegisterBuffers(h.host)
	}

	_, err := monitor.StartServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitoring disabled: %v\n", err)
	}

	return monitor
}

// sendAll makes every agent send to the agent on the same port of the other
// host.
func sendAll(cfg Config, hosts []*demoHost) error {
	for i, h := range hosts {
		peer := hosts[(i+1)%len(hosts)]

		for j, a := range h.agents {
			for k := 0; k < cfg.Packets; k++ {
				err := a.Send(peer.host.Addr(), firstAgentPort+j,
					cfg.PacketSize, k)
				if err != nil {
					return errors.Wrapf(err, "%s", a.Name())
				}
			}
		}
	}

	return nil
}

func summarize(now sim.VTimeInSec, hosts []*demoHost) Summary {
	s := Summary{EndTime: now}

	for _, h := range hosts {
		ms := MuxSummary{
			Name:      h.mux.Name(),
			Sent:      h.counter.Count(mux.HookPosMuxSend),
			Delivered: h.counter.Count(mux.HookPosMuxDeliver),
			Read:      h.counter.Count(mux.HookPosMuxRead),
			Dropped:   h.counter.Count(mux.HookPosMuxDrop),
		}

		for _, a := range h.agents {
			ms.Received += a.NumReceived()
		}

		s.Muxes = append(s.Muxes, ms)
	}

	return s
}

// Print writes the summary in a human readable form.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Simulation finished at %.9f s\n", s.EndTime)

	for _, m := range s.Muxes {
		fmt.Fprintf(w,
			"%s: sent %d, delivered %d, read %d, dropped %d, received %d\n",
			m.Name, m.Sent, m.Delivered, m.Read, m.Dropped, m.Received)
	}
}
