package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/internal/translator"
)

const actionTranslate = "translate"

// TranslateRequest POST /translate 请求体
type TranslateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	SourceLang string `json:"source_lang"`
	UseSync    *bool  `json:"use_sync"`
}

// TranslateResponse POST /translate 响应体
type TranslateResponse struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Provider string `json:"provider,omitempty"`
}

// PageRequest POST /translate/page 请求体
type PageRequest struct {
	HTML       string `json:"html"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// PageResponse POST /translate/page 响应体
type PageResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
	RunID   string `json:"run_id"`
	Chunks  int    `json:"chunks"`
	Failed  int    `json:"failed"`
}

// MessageRequest 浏览器扩展发来的消息
type MessageRequest struct {
	Action     string `json:"action"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
	HTML       string `json:"html"`
}

// MessageResponse 扩展消息的回复
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Provider   string
		TargetLang string
	}{
		Provider:   s.translator.ProviderName(),
		TargetLang: s.options.DefaultTargetLang,
	}
	if err := s.index.Execute(w, data); err != nil {
		s.logger.Error("渲染首页失败", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": s.translator.ProviderName(),
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	}

	sync := s.options.DefaultSync
	if req.UseSync != nil {
		sync = *req.UseSync
	}
	target := req.TargetLang
	if target == "" {
		target = s.options.DefaultTargetLang
	}

	result, err := s.translator.TranslateTexts(r.Context(), translator.TextRequest{
		Texts:      []string{req.Text},
		SourceLang: req.SourceLang,
		TargetLang: target,
		Sync:       sync,
	})
	if err != nil {
		s.logger.Error("文本翻译失败", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TranslateResponse{
		Success:  true,
		Output:   strings.Join(result.Translations, "\n"),
		Provider: result.Provider,
	})
}

func (s *Server) handleTranslatePage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		writeError(w, http.StatusBadRequest, "No html provided")
		return
	}
	target := req.TargetLang
	if target == "" {
		target = s.options.DefaultTargetLang
	}

	result, err := s.translator.TranslateHTML(r.Context(), req.HTML, req.SourceLang, target)
	if err != nil {
		s.logger.Error("页面翻译失败", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PageResponse{
		Success: true,
		HTML:    result.HTML,
		RunID:   result.Summary.RunID,
		Chunks:  result.Summary.Total(),
		Failed:  result.Summary.Failed(),
	})
}

// handleMessage 扩展消息入口。单个分块失败不影响整体状态，只有整体失败才回复 error。
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Status: "error", Message: "invalid message"})
		return
	}

	resp, status := s.dispatchMessage(r, req)
	writeJSON(w, status, resp)
}

func (s *Server) dispatchMessage(r *http.Request, req MessageRequest) (resp MessageResponse, status int) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("处理扩展消息时发生 panic", zap.Any("panic", rec))
			resp = MessageResponse{Status: "error", Message: fmt.Sprint(rec)}
			status = http.StatusInternalServerError
		}
	}()

	if req.Action != actionTranslate {
		return MessageResponse{Status: "error", Message: fmt.Sprintf("unknown action %q", req.Action)}, http.StatusBadRequest
	}

	target := req.TargetLang
	if target == "" {
		target = s.options.DefaultTargetLang
	}

	result, err := s.translator.TranslateHTML(r.Context(), req.HTML, req.SourceLang, target)
	if err != nil {
		s.logger.Error("页面翻译失败", zap.String("action", req.Action), zap.Error(err))
		return MessageResponse{Status: "error", Message: err.Error()}, http.StatusOK
	}

	if failed := result.Summary.Failed(); failed > 0 {
		s.logger.Warn("部分分块翻译失败",
			zap.String("runID", result.Summary.RunID),
			zap.Int("failed", failed),
			zap.Int("total", result.Summary.Total()))
	}
	return MessageResponse{Status: "success", HTML: result.HTML}, http.StatusOK
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large: %w", err)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
