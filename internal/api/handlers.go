package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"speakwall/internal/auth"
	"speakwall/internal/model"
	"speakwall/internal/pipeline"
	"speakwall/internal/report"
	"speakwall/internal/repository"
	"speakwall/internal/storage"
	"speakwall/internal/utils"
)

const presignExpiry = 15 * time.Minute

type registerRecordingRequest struct {
	RecordingKey string `json:"recording_key"`
	DurationSec  *int   `json:"duration_sec"`
	UserID       string `json:"user_id"`
}

// registerRecording handles POST /api/recordings.
func (s *Server) registerRecording(c *gin.Context) {
	var req registerRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Missing recording_key or user_id")
		return
	}
	if req.RecordingKey == "" || req.UserID == "" {
		utils.Error(c, http.StatusBadRequest, "Missing recording_key or user_id")
		return
	}

	sessionID, err := s.pipe.RegisterRecording(c.Request.Context(), req.UserID, req.RecordingKey, req.DurationSec)
	if err != nil {
		if errors.Is(err, pipeline.ErrTrialLimitExceeded) {
			utils.Error(c, http.StatusForbidden, "Trial limit reached. Please upgrade.")
			return
		}
		s.log.WithRequest(c.Request).WithField("error", err.Error()).Error("register recording failed")
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(c, http.StatusOK, gin.H{
		"ok":         true,
		"session_id": sessionID,
	})
}

type analyzeRequest struct {
	SessionID    string `json:"session_id"`
	RecordingKey string `json:"recording_key"`
}

// analyzeRecording handles POST /api/analyze.
func (s *Server) analyzeRecording(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Missing session_id or recording_key")
		return
	}
	if req.SessionID == "" || req.RecordingKey == "" {
		utils.Error(c, http.StatusBadRequest, "Missing session_id or recording_key")
		return
	}

	out, err := s.pipe.AnalyzeRecording(c.Request.Context(), req.SessionID, req.RecordingKey)
	if err != nil {
		s.log.WithRequest(c.Request).
			WithField("session_id", req.SessionID).
			WithField("error", err.Error()).
			Error("analysis failed")
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(c, http.StatusOK, gin.H{
		"analysis_id":   out.AnalysisID,
		"transcript":    out.Transcript,
		"wpm":           out.WPM,
		"filler":        out.Filler,
		"total_fillers": out.TotalFillers,
		"duration_sec":  out.DurationSec,
	})
}

type recommendationsRequest struct {
	SessionID  string              `json:"session_id"`
	Transcript string              `json:"transcript"`
	WPM        *int                `json:"wpm"`
	Filler     []model.FillerCount `json:"filler"`
}

// generateRecommendations handles POST /api/recommendations.
func (s *Server) generateRecommendations(c *gin.Context) {
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "Missing transcript")
		return
	}
	if req.Transcript == "" {
		utils.Error(c, http.StatusBadRequest, "Missing transcript")
		return
	}

	suggestions, err := s.pipe.GenerateRecommendations(c.Request.Context(), req.SessionID, req.Transcript, req.WPM, req.Filler)
	if err != nil {
		s.log.WithRequest(c.Request).
			WithField("session_id", req.SessionID).
			WithField("error", err.Error()).
			Error("recommendations failed")
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(c, http.StatusOK, gin.H{
		"suggestions": suggestions,
	})
}

type presignRequest struct {
	RecordingKey string `json:"recording_key"`
}

// presignUpload handles POST /api/presign. The legacy deployment moved
// clients to direct storage uploads, so the default mode answers 410;
// PRESIGN_MODE=signed re-enables it for backends that can sign.
func (s *Server) presignUpload(c *gin.Context) {
	if s.cfg.PresignMode != "signed" {
		utils.Error(c, http.StatusGone, "Deprecated. Use Supabase Storage directly.")
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RecordingKey == "" {
		utils.Error(c, http.StatusBadRequest, "Missing recording_key")
		return
	}

	presigner, ok := s.objects.(storage.Presigner)
	if !ok {
		utils.Error(c, http.StatusInternalServerError, "storage backend cannot sign uploads")
		return
	}

	signed, err := presigner.SignUpload(c.Request.Context(), req.RecordingKey, presignExpiry)
	if err != nil {
		s.log.WithRequest(c.Request).WithField("error", err.Error()).Error("presign failed")
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, signed)
}

// billingWebhook handles POST /api/billing/webhook. Payments are not
// processed here; the endpoint only acknowledges delivery so the billing
// provider stops retrying.
func (s *Server) billingWebhook(c *gin.Context) {
	utils.JSON(c, http.StatusOK, gin.H{
		"received": true,
	})
}

type sessionView struct {
	model.Session
	Analysis *analysisPreview `json:"analysis,omitempty"`
}

type analysisPreview struct {
	ID             string              `json:"id"`
	WordsPerMinute int                 `json:"words_per_minute"`
	Filler         []model.FillerCount `json:"filler"`
	TotalFillers   int                 `json:"total_fillers"`
	HasSuggestions bool                `json:"has_suggestions"`
}

// listSessions handles GET /api/sessions for the authenticated user.
func (s *Server) listSessions(c *gin.Context) {
	userID := auth.UserID(c)

	limit := queryInt(c, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.store.ListSessionsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		view := sessionView{Session: sess}
		if a, err := s.store.GetAnalysisBySession(c.Request.Context(), sess.ID); err == nil {
			view.Analysis = &analysisPreview{
				ID:             a.ID,
				WordsPerMinute: a.WordsPerMinute,
				Filler:         a.Filler,
				TotalFillers:   a.TotalFillers(),
				HasSuggestions: a.Recommendations != nil,
			}
		}
		views = append(views, view)
	}

	utils.JSON(c, http.StatusOK, gin.H{
		"sessions": views,
	})
}

// getSession handles GET /api/sessions/:id.
func (s *Server) getSession(c *gin.Context) {
	userID := auth.UserID(c)
	id := c.Param("id")

	sess, err := s.store.GetSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(c, http.StatusNotFound, "Session not found")
			return
		}
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	// Sessions of other users read as absent.
	if sess.UserID != userID {
		utils.Error(c, http.StatusNotFound, "Session not found")
		return
	}

	resp := gin.H{"session": sess}
	if a, err := s.store.GetAnalysisBySession(c.Request.Context(), id); err == nil {
		resp["analysis"] = a
	}
	utils.JSON(c, http.StatusOK, resp)
}

const exportLimit = 500

// exportSessions handles GET /api/sessions/export, streaming an xlsx
// workbook of the user's history.
func (s *Server) exportSessions(c *gin.Context) {
	userID := auth.UserID(c)

	sessions, err := s.store.ListSessionsByUser(c.Request.Context(), userID, exportLimit, 0)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	analyses := make(map[string]*model.Analysis, len(sessions))
	for _, sess := range sessions {
		if a, err := s.store.GetAnalysisBySession(c.Request.Context(), sess.ID); err == nil {
			analyses[sess.ID] = a
		}
	}

	buf, err := report.BuildWorkbook(sessions, analyses)
	if err != nil {
		s.log.WithRequest(c.Request).WithField("error", err.Error()).Error("export failed")
		utils.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="speakwall-sessions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
