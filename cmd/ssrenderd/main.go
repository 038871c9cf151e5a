// Command ssrenderd is a demo host binary: it parses flags into a
// config.Map, builds the engine core and one concrete renderer from
// it, opens a PortAudio stream, advertises itself over mDNS, and
// writes a rotating query snapshot log. It plays the role the
// teacher's main.go/direwolf.go play for the AX.25/APRS TNC: flag
// parsing, config validation, device open, and the top-level run loop
// are all host responsibilities outside the rendering core's scope,
// wired together here using github.com/spf13/pflag.
//
// A real deployment feeds this renderer a live audio source; this demo
// instead drives its one source with a fixed tone, so it can run and
// produce audible, spatialized output with nothing more than an
// optional reproduction setup file.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/doismellburning/ssrender/config"
	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/doismellburning/ssrender/engine/renderer"
	"github.com/doismellburning/ssrender/geometry"
	"github.com/doismellburning/ssrender/host/discovery"
	"github.com/doismellburning/ssrender/host/layout"
	"github.com/doismellburning/ssrender/host/paaudio"
	"github.com/doismellburning/ssrender/host/query"
	"github.com/doismellburning/ssrender/internal/rtcmd"
	"github.com/doismellburning/ssrender/internal/rtlog"
	"github.com/doismellburning/ssrender/render/binaural"
	"github.com/doismellburning/ssrender/render/brs"
	"github.com/doismellburning/ssrender/render/earconv"
	"github.com/doismellburning/ssrender/render/generic"
	"github.com/doismellburning/ssrender/render/hoa"
	"github.com/doismellburning/ssrender/render/wfs"
	"github.com/spf13/pflag"
)

func main() {
	var (
		blockSize  = pflag.Int("block-size", 64, "period size in samples, a positive multiple of 8")
		sampleRate = pflag.Float64("sample-rate", 44100, "sample rate in Hz")
		threads    = pflag.Int("threads", 1, "RT worker thread count")
		fifoSize   = pflag.Int("fifo-size", 128, "command queue capacity")

		rendererType = pflag.String("renderer", "generic",
			"which renderer to run: generic, wfs, hoa, binaural, brs")
		reproductionSetup = pflag.String("reproduction-setup", "", "path to a loudspeaker layout YAML file")

		delaylineSize = pflag.Int("delayline-size", 4096, "WFS delay line size in samples")
		initialDelay  = pflag.Int("initial-delay", 0, "WFS initial delay in samples")
		masterVolume  = pflag.Float64("master-volume-correction", 1.0, "linear master volume correction")
		name          = pflag.String("name", "ssrenderd", "client name hint")
		systemOutput  = pflag.String("system-output-prefix", "ssrenderd", "host-port naming hint")
		mdnsPort      = pflag.Int("mdns-port", 9450, "port advertised over mDNS")
		queryPattern  = pflag.String("query-log-pattern", "ssrenderd-query-%Y%m%d.jsonl", "strftime pattern for rotating query snapshot files")
		toneHz        = pflag.Float64("tone-hz", 220.0, "frequency of the demo tone fed to the single source")
	)
	pflag.Parse()

	logger := log.New(os.Stderr)

	cfg, err := config.Parse(config.Map{
		"block_size":               fmt.Sprint(*blockSize),
		"sample_rate":              fmt.Sprint(*sampleRate),
		"threads":                  fmt.Sprint(*threads),
		"fifo_size":                fmt.Sprint(*fifoSize),
		"reproduction_setup":       *reproductionSetup,
		"delayline_size":           fmt.Sprint(*delaylineSize),
		"initial_delay":            fmt.Sprint(*initialDelay),
		"master_volume_correction": fmt.Sprint(*masterVolume),
		"name":                     *name,
		"system_output_prefix":     *systemOutput,
	})
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	// commandQueueAnomalies carries per-period runtime anomalies from
	// the RT thread to the host without blocking it; drained once per
	// query cycle below.
	commandQueueAnomalies := rtlog.NewRing()
	proc := mimo.New(cfg.FifoSize, cfg.Threads, func(err error) {
		commandQueueAnomalies.Errorf("command queue overflow: %v", err)
	})
	proc.SetPeriodBudget(cfg.BlockSize, cfg.SampleRate)

	demo, outChannels, err := buildRenderer(*rendererType, proc, cfg)
	if err != nil {
		logger.Fatalf("renderer setup error: %v", err)
	}
	demo.masterCorrection.Write(cfg.MasterVolumeCorrection)

	writer, err := query.NewWriter(*queryPattern)
	if err != nil {
		logger.Fatalf("query writer setup error: %v", err)
	}
	defer writer.Close()
	collector := &query.Collector{
		Transport: func() string { return "playing" },
		CPULoad:   proc.Load,
		Master:    demo.masterLevel,
	}

	tone := newToneGenerator(*toneHz, cfg.SampleRate, cfg.BlockSize)

	host, err := paaudio.Open(cfg.SampleRate, cfg.BlockSize, 0, outChannels, func(_, out [][]float64) {
		demo.source.Feed(tone.next())
		proc.AudioCallback(func() { demo.process(out) }, func() {
			commandQueueAnomalies.Drain(logger)
			if demo.anomalies != nil {
				demo.anomalies.Drain(logger)
			}
			snap, ok := collector.Build(demo.sourceIDs, demo.sourceLevels())
			if ok {
				if err := writer.Write(snap); err != nil {
					logger.Errorf("query snapshot write error: %v", err)
				}
			}
		})
	})
	if err != nil {
		logger.Fatalf("audio host error: %v", err)
	}
	defer host.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	adv, err := discovery.Advertise(cfg.Name, hostname, *mdnsPort)
	if err != nil {
		logger.Warnf("mdns advertisement disabled: %v", err)
	} else {
		defer adv.Close()
	}

	if err := host.Start(); err != nil {
		logger.Fatalf("audio start error: %v", err)
	}
	defer host.Stop()

	logger.Infof("ssrenderd running renderer=%s block_size=%d sample_rate=%v", *rendererType, cfg.BlockSize, cfg.SampleRate)
	select {}
}

// toneFeeder is whatever a concrete renderer's Source implementation
// exposes for pushing one period's input samples in.
type toneFeeder interface {
	Feed(block []float64)
}

// demoRenderer adapts whichever concrete renderer buildRenderer chose
// to the handful of operations main needs: feed the demo source,
// process one period, and report query-level state. Exactly one
// source is ever registered.
type demoRenderer struct {
	source           toneFeeder
	process          func(out [][]float64)
	master           *rtcmd.SharedData[float64]
	masterCorrection *rtcmd.SharedData[float64]
	sourceIDs        []query.SourceID

	// anomalies is non-nil only for renderers that report their own
	// per-period anomalies (currently just render/wfs's invalid-delay
	// case); nil means this renderer has nothing to drain.
	anomalies *rtlog.Ring
}

func (d *demoRenderer) masterLevel() float64    { return d.master.ReadNRT() }
func (d *demoRenderer) sourceLevels() []float64 { return make([]float64, len(d.sourceIDs)) }

func buildRenderer(kind string, proc *mimo.Processor, cfg *config.Config) (*demoRenderer, int, error) {
	var setup *layout.Setup
	if cfg.ReproductionSetup != "" {
		f, err := os.Open(cfg.ReproductionSetup)
		if err != nil {
			return nil, 0, fmt.Errorf("open reproduction setup: %w", err)
		}
		defer f.Close()
		setup, err = layout.Load(f)
		if err != nil {
			return nil, 0, err
		}
	}

	pose := geometry.NewDirectionalPoint(geometry.NewPosition(0, 2), geometry.OrientationFromDegrees(0))
	params := renderer.Params{Gain: 1, ProcessingEnabled: true}
	ids := []query.SourceID{0}

	switch kind {
	case "wfs":
		speakers := demoWFSLoudspeakers(setup)
		r := wfs.NewRenderer(proc, cfg.BlockSize, cfg.SampleRate, speakers, []float64{1}, cfg.DelaylineSize, cfg.InitialDelay)
		_, src := r.AddSource(wfs.Point, pose, params)
		return &demoRenderer{
			source: src, process: r.Process,
			master: r.MasterVolume(), masterCorrection: r.MasterCorrection(),
			sourceIDs: ids, anomalies: r.Log(),
		}, len(speakers), nil

	case "hoa":
		positions := demoPositions(setup)
		r := hoa.NewRenderer(proc, cfg.BlockSize, cfg.SampleRate, positions)
		_, src := r.AddSource(hoa.Point, pose, params)
		return &demoRenderer{
			source: src, process: r.Process,
			master: r.MasterVolume(), masterCorrection: r.MasterCorrection(),
			sourceIDs: ids,
		}, len(positions), nil

	case "binaural":
		r := binaural.NewRenderer(proc, cfg.BlockSize)
		_, src := r.AddSource(1, neutralEarSet(), 0.25, pose, params)
		process := func(out [][]float64) { r.Process(out[0], out[1]) }
		return &demoRenderer{
			source: src, process: process,
			master: r.MasterVolume(), masterCorrection: r.MasterCorrection(),
			sourceIDs: ids,
		}, 2, nil

	case "brs":
		r := brs.NewRenderer(proc, cfg.BlockSize)
		_, src := r.AddSource(1, neutralEarSet(), params)
		process := func(out [][]float64) { r.Process(out[0], out[1]) }
		return &demoRenderer{
			source: src, process: process,
			master: r.MasterVolume(), masterCorrection: r.MasterCorrection(),
			sourceIDs: ids,
		}, 2, nil

	case "generic":
		outChannels := 2
		if setup != nil {
			outChannels = len(setup.Speakers)
		}
		r := generic.NewRenderer(proc, cfg.BlockSize, outChannels)
		irMatrix := make([][]float64, outChannels)
		for i := range irMatrix {
			irMatrix[i] = []float64{1}
		}
		_, src := r.AddSource(irMatrix, params)
		return &demoRenderer{
			source: src, process: r.Process,
			master: r.MasterVolume(), masterCorrection: r.MasterCorrection(),
			sourceIDs: ids,
		}, outChannels, nil

	default:
		return nil, 0, fmt.Errorf("unknown renderer %q", kind)
	}
}

func demoPositions(setup *layout.Setup) []geometry.Position {
	if setup != nil {
		return setup.Positions()
	}
	return circularArray(8, 2.0)
}

func demoWFSLoudspeakers(setup *layout.Setup) []wfs.Loudspeaker {
	if setup != nil {
		return setup.WFSLoudspeakers()
	}
	positions := circularArray(16, 1.5)
	speakers := make([]wfs.Loudspeaker, len(positions))
	for i, p := range positions {
		speakers[i] = wfs.Loudspeaker{
			Position:    p,
			Orientation: p.Angle().Add(geometry.OrientationFromDegrees(180)),
			Weight:      1,
		}
	}
	return speakers
}

func circularArray(n int, radius float64) []geometry.Position {
	out := make([]geometry.Position, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out[i] = geometry.NewPosition(radius*math.Cos(angle), radius*math.Sin(angle))
	}
	return out
}

func neutralEarSet() *earconv.Set {
	set := earconv.NewSet()
	dirac := earconv.NeutralDirac(8, 1)
	set.SetNeutral(earconv.Pair{Left: dirac, Right: dirac})
	for deg := 0; deg < 360; deg += 10 {
		set.Add(deg, earconv.Pair{Left: dirac, Right: dirac})
	}
	return set
}

// toneGenerator produces successive blockSize-sample periods of a
// fixed-frequency sine tone, reused as the demo's input signal.
type toneGenerator struct {
	phaseStep float64
	phase     float64
	block     []float64
}

func newToneGenerator(hz, sampleRate float64, blockSize int) *toneGenerator {
	return &toneGenerator{
		phaseStep: 2 * math.Pi * hz / sampleRate,
		block:     make([]float64, blockSize),
	}
}

func (t *toneGenerator) next() []float64 {
	for i := range t.block {
		t.block[i] = math.Sin(t.phase)
		t.phase += t.phaseStep
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return t.block
}
