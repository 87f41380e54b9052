package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// mockJob tracks the progress of one submitted job.
type mockJob struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`

	pollsLeft int
}

// StartMockJobServer runs a mock job API:
//
//	POST /login          form user=...; returns a token
//	POST /jobs           JSON {"name": "..."}; requires the token
//	GET  /jobs/{id}      job status; moves to "done" after a few polls
//
// Call this in a goroutine before sending requests.
func StartMockJobServer(addr string) {
	var (
		jobs   = make(map[int]*mockJob)
		nextID = 1
		mu     sync.Mutex
	)
	const token = "demo-token"

	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+token
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("user") == "" {
			http.Error(w, `{"error":"user required"}`, http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprint(w, token)
	})

	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
			return
		}

		mu.Lock()
		job := &mockJob{ID: nextID, Name: req.Name, Status: "queued", pollsLeft: 3 + rand.Intn(4)}
		jobs[job.ID] = job
		nextID++
		mu.Unlock()

		slog.Info("job created", "id", job.ID, "name", job.Name)
		writeJob(w, job)
	})

	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		// simulate small latency variance
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		job, ok := jobs[id]
		if !ok {
			mu.Unlock()
			http.NotFound(w, r)
			return
		}
		advance(job)
		snapshot := *job
		mu.Unlock()

		writeJob(w, &snapshot)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

// advance moves a job one poll closer to completion.
func advance(job *mockJob) {
	if job.Status == "done" {
		return
	}
	job.pollsLeft--
	if job.pollsLeft <= 0 {
		job.Status, job.Progress = "done", 100
		slog.Info("job finished", "id", job.ID, "name", job.Name)
		return
	}
	job.Status = "running"
	job.Progress = min(95, job.Progress+10+rand.Intn(30))
}

func writeJob(w http.ResponseWriter, job *mockJob) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(job); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
