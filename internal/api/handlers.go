package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MJE43/montyhall-sim-go/internal/engine"
	"github.com/MJE43/montyhall-sim-go/internal/games"
	"github.com/MJE43/montyhall-sim-go/internal/report"
	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

// handlePlay plays repeated rounds and returns the win fraction
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if fe := ValidatePlayRequest(&req, s.limits); fe != nil {
		s.errorHandler.HandleValidationError(w, r, fe.Field, fe.Message)
		return
	}

	sim, err := games.NewSimulation(req.Doors, engine.FromSeeds(req.Seeds, req.Nonce))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	workers := req.Workers
	if workers == 0 && !req.Seeds.IsZero() {
		workers = 1
	}

	s.logger.Printf("play_request doors=%d iterations=%d switch=%t workers=%d server_hash=%s nonce=%d",
		req.Doors, req.Iterations, req.Switch, workers, hashSeed(req.Seeds.Server), req.Nonce)

	wins, err := sim.WinsParallel(r.Context(), req.Switch, req.Iterations, workers)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	fraction := float64(wins) / float64(req.Iterations)
	resp := PlayResponse{
		RunID:         uuid.NewString(),
		WinFraction:   fraction,
		Percentage:    report.FormatPercentage(fraction, report.DefaultPrecision),
		Wins:          wins,
		Iterations:    req.Iterations,
		Doors:         req.Doors,
		Switched:      req.Switch,
		Expected:      games.Expected(req.Doors, req.Switch),
		Workers:       workers,
		EngineVersion: EngineVersion,
	}
	if !req.Seeds.IsZero() {
		resp.ServerSeedHash = engine.HashServerSeed(req.Seeds.Server)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleRound plays one round and shows how it resolved
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	var req RoundRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if fe := ValidateRoundRequest(&req, s.limits); fe != nil {
		s.errorHandler.HandleValidationError(w, r, fe.Field, fe.Message)
		return
	}

	sim, err := games.NewSimulation(req.Doors, engine.FromSeeds(req.Seeds, req.Nonce))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	out := sim.Round()
	resp := RoundResponse{
		Outcome:       out,
		StayWins:      out.Won(false),
		SwitchWins:    out.Won(true),
		EngineVersion: EngineVersion,
	}
	if !req.Seeds.IsZero() {
		resp.ServerSeedHash = engine.HashServerSeed(req.Seeds.Server)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// runSweep decodes, validates and runs a sweep, writing any error itself
func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) (*sweep.Result, bool) {
	var req sweep.Request
	if !s.decodeJSON(w, r, &req) {
		return nil, false
	}
	if fe := ValidateSweepRequest(&req, s.limits); fe != nil {
		s.errorHandler.HandleValidationError(w, r, fe.Field, fe.Message)
		return nil, false
	}

	result, err := s.sweeper.Run(r.Context(), req)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return result, true
}

// handleSweep returns sweep records and summary as JSON
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runSweep(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, SweepResponse{Result: result, EngineVersion: EngineVersion})
}

// handleSweepReport renders a sweep as an svg, png, csv or json artifact
func (s *Server) handleSweepReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	result, ok := s.runSweep(w, r)
	if !ok {
		return
	}

	// Render into a buffer so a failure can still produce an error response.
	var buf bytes.Buffer
	if err := report.Write(&buf, format, result.Records, report.ChartOptions{}); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	filename := report.Filename(result.Echo.Doors, result.Echo.Iterations, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Run-ID", result.RunID)
	w.Header().Set("X-Timed-Out", strconv.FormatBool(result.Summary.TimedOut))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Printf("report_write_failed run_id=%s err=%v", result.RunID, err)
	}
}

// handleSeedHash returns the commitment of a server seed
func (s *Server) handleSeedHash(w http.ResponseWriter, r *http.Request) {
	var req SeedHashRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if fe := ValidateSeedHashRequest(&req); fe != nil {
		s.errorHandler.HandleValidationError(w, r, fe.Field, fe.Message)
		return
	}

	s.writeJSON(w, http.StatusOK, SeedHashResponse{
		Hash:          engine.HashServerSeed(req.ServerSeed),
		EngineVersion: EngineVersion,
	})
}

// handleVersion reports build information
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}
