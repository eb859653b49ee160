package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

// Stage is one status response of a simulated job.
type Stage struct {
	Status string
	Info   any
}

func progress(step models.Step, current, total int) Stage {
	info := map[string]any{"step": string(step)}
	if total > 0 {
		info["current"] = current
		info["total"] = total
	}
	return Stage{Status: "PROGRESS", Info: info}
}

func completed(songs, covers int) Stage {
	return Stage{
		Status: "SUCCESS",
		Info:   fmt.Sprintf("¡Escaneo completado! Se crearon %d canciones nuevas y se encontraron %d portadas.", songs, covers),
	}
}

func counted(step models.Step, total int) []Stage {
	stages := make([]Stage, 0, total)
	for i := 1; i <= total; i++ {
		stages = append(stages, progress(step, i, total))
	}
	return stages
}

// DefaultScripts returns the stage scripts of the three scan kinds, keyed by submission path.
func DefaultScripts() map[string][]Stage {
	pending := Stage{Status: "PENDING"}
	started := Stage{Status: "STARTED"}

	full := []Stage{pending, started, progress(models.StepSearchingAudioFiles, 0, 0)}
	full = append(full, counted(models.StepProcessingAudioFiles, 3)...)
	full = append(full, progress(models.StepGettingExistingAlbums, 0, 0))
	full = append(full, counted(models.StepCovers, 2)...)
	full = append(full, completed(3, 2))

	quick := []Stage{
		pending,
		progress(models.StepGettingExistingFiles, 0, 0),
		progress(models.StepSearchingNewFiles, 0, 0),
		progress(models.StepProcessingAudioFiles, 1, 1),
		completed(1, 0),
	}

	covers := []Stage{pending, progress(models.StepGettingExistingAlbums, 0, 0)}
	covers = append(covers, counted(models.StepCovers, 4)...)
	covers = append(covers, completed(0, 4))

	return map[string][]Stage{
		"/start-scan/":       full,
		"/start-quick-scan/": quick,
		"/start-cover-scan/": covers,
	}
}

type job struct {
	script []Stage
	next   int
	served int
}

// SimulatorOpts configures a [Simulator].
type SimulatorOpts struct {
	Scripts   map[string][]Stage // keyed by submission path; defaults to [DefaultScripts]
	FailAfter int                // jobs report FAILURE once this many stages were served (0 disables)
	Logger    *log.Logger
}

// Simulator imitates the job endpoints of the media library server.
//
// Every status request for a job returns its current stage and advances it by one;
// the last stage repeats. Unknown task ids report PENDING.
type Simulator struct {
	mu        sync.Mutex
	jobs      map[string]*job
	scripts   map[string][]Stage
	failAfter int
	logger    *log.Logger
}

func NewSimulator(opts SimulatorOpts) *Simulator {
	scripts := opts.Scripts
	if scripts == nil {
		scripts = DefaultScripts()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{
		jobs:      make(map[string]*job),
		scripts:   scripts,
		failAfter: opts.FailAfter,
		logger:    logger,
	}
}

// Routes returns the submission endpoints plus the status endpoint.
func (s *Simulator) Routes() []string {
	routes := make([]string, 0, len(s.scripts)+1)
	for path := range s.scripts {
		routes = append(routes, "POST "+path)
	}
	return append(routes, "GET /task-status/{id}/")
}

func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); id != "" {
		s.status(w, id)
		return
	}
	s.start(w, r.URL.Path)
}

// Submit creates a job for the script registered under path and returns its id.
func (s *Simulator) Submit(path string) (string, error) {
	script, ok := s.scripts[path]
	if !ok || len(script) == 0 {
		return "", fmt.Errorf("%w: no job script for %s", shared.ErrInvalidArgument, path)
	}

	id := shared.GenerateID()

	s.mu.Lock()
	s.jobs[id] = &job{script: script}
	s.mu.Unlock()

	s.logger.Info("job submitted", "task", id, "path", path, "stages", len(script))
	return id, nil
}

func (s *Simulator) start(w http.ResponseWriter, path string) {
	id, err := s.Submit(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
}

// Advance returns the current stage of a job and moves it forward.
func (s *Simulator) Advance(id string) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Stage{Status: "PENDING"}
	}

	if s.failAfter > 0 && j.served >= s.failAfter {
		return Stage{
			Status: "FAILURE",
			Info: map[string]any{
				"exc_type":    "RuntimeError",
				"exc_message": fmt.Sprintf("Simulated failure after %d stages", s.failAfter),
			},
		}
	}

	j.served++
	stage := j.script[j.next]
	if j.next < len(j.script)-1 {
		j.next++
	}
	return stage
}

func (s *Simulator) status(w http.ResponseWriter, id string) {
	stage := s.Advance(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": id,
		"status":  stage.Status,
		"info":    stage.Info,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewSimulatorRouter wires a simulator behind the logging and recovery middleware, plus GET /healthz.
func NewSimulatorRouter(sim *Simulator, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(sim)
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	return router
}
