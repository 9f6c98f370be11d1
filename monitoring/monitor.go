// Package monitoring turns a running simulation into a small HTTP server so
// that the engine can be paused and the demultiplexers inspected while the
// simulation runs.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	portmux "github.com/sarchlab/portmux/mux"
)

// A BufferReporter reports the fill state of the buffers it owns. It must be
// safe to call while the simulation runs on another goroutine.
type BufferReporter interface {
	BufferLevels() []sim.BufferLevel
}

// A Demultiplexer is something the monitor can report port state for.
type Demultiplexer interface {
	sim.Named
	BufferReporter
	Snapshot() portmux.Snapshot
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine      sim.Engine
	muxes       []Demultiplexer
	reporters   []BufferReporter
	portNumber  int
	openBrowser bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitoring page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterMux registers a demultiplexer to be monitored. Its mailbox levels
// are queried on every request, so ports attached later are included.
func (m *Monitor) RegisterMux(d Demultiplexer) {
	m.muxes = append(m.muxes, d)
}

// RegisterBuffers adds the buffers of r to the buffer level report.
func (m *Monitor) RegisterBuffers(r BufferReporter) {
	m.reporters = append(m.reporters, r)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        sim.GetIDGenerator().Generate(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/run", m.run)
	r.HandleFunc("/api/list_muxes", m.listMuxes)
	r.HandleFunc("/api/mux/{name}", m.muxStatus)
	r.HandleFunc("/api/mux/{name}/detail", m.muxDetail)
	r.HandleFunc("/api/hangdetector/buffers", m.hangDetectorBuffers)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", errors.Wrap(err, "start monitoring server")
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	r := m.router()
	go func() {
		err := http.Serve(listener, r)
		if err != nil {
			log.Printf("monitoring server stopped: %v", err)
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url + "/api/list_muxes")
		if err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	return url, nil
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr404(w) {
		return
	}

	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr404(w) {
		return
	}

	m.engine.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr404(w) {
		return
	}

	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

func (m *Monitor) run(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr404(w) {
		return
	}

	go func() {
		err := m.engine.Run()
		if err != nil {
			log.Printf("simulation stopped: %v", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (m *Monitor) engineOr404(w http.ResponseWriter) bool {
	if m.engine != nil {
		return true
	}

	http.Error(w, "No engine registered", http.StatusNotFound)

	return false
}

func (m *Monitor) listMuxes(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.muxes))
	for _, d := range m.muxes {
		names = append(names, d.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) muxStatus(w http.ResponseWriter, r *http.Request) {
	d := m.findMuxOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	writeJSON(w, d.Snapshot())
}

func (m *Monitor) muxDetail(w http.ResponseWriter, r *http.Request) {
	d := m.findMuxOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	snapshot := d.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(2)

	err := serializer.Serialize(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *Monitor) findMuxOr404(
	w http.ResponseWriter,
	name string,
) Demultiplexer {
	for _, d := range m.muxes {
		if d.Name() == name {
			return d
		}
	}

	http.Error(w, "Mux not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) hangDetectorBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := buffersParseParams(r)
	if err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	levels := sortAndSelectBuffers(m.bufferLevels(), sortMethod, limit, offset)

	writeJSON(w, levels)
}

func (m *Monitor) bufferLevels() []sim.BufferLevel {
	var levels []sim.BufferLevel
	for _, r := range m.reporters {
		levels = append(levels, r.BufferLevels()...)
	}

	for _, d := range m.muxes {
		levels = append(levels, d.BufferLevels()...)
	}

	return levels
}

func buffersParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "level"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, errors.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %s", name)
	}

	if n < 0 {
		return 0, errors.Errorf("parameter %s must not be negative", name)
	}

	return n, nil
}

// sortAndSelectBuffers returns all levels from offset on when limit is 0.
func sortAndSelectBuffers(
	levels []sim.BufferLevel,
	sortMethod string,
	limit, offset int,
) []sim.BufferLevel {
	sorted := make([]sim.BufferLevel, len(levels))
	copy(sorted, levels)

	byLevel := func(i, j int) (bool, bool) {
		si, sj := sorted[i].Level, sorted[j].Level
		return si > sj, si == sj
	}
	byPercent := func(i, j int) (bool, bool) {
		pi, pj := sorted[i].Percent(), sorted[j].Percent()
		return pi > pj, pi == pj
	}

	first, second := byLevel, byPercent
	if sortMethod == "percent" {
		first, second = byPercent, byLevel
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if less, equal := first(i, j); !equal {
			return less
		}

		less, _ := second(i, j)

		return less
	})

	if offset > len(sorted) {
		offset = len(sorted)
	}

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sorted[offset:end]
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(body)
	if err != nil {
		log.Printf("monitoring: write response: %v", err)
	}
}
