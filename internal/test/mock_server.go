package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockIntentoServer 模拟 Intento API 的测试服务器
type MockIntentoServer struct {
	*httptest.Server

	// Transform 生成译文，默认转大写
	Transform func(text, to string) string
	// Async 为 true 时先返回 operation id，结果在第 PendingPolls+1 次轮询时给出
	Async        bool
	PendingPolls int
	// FailOn 文本包含该子串时返回 500
	FailOn string
	// ProviderName 写入 meta.providers[0].name
	ProviderName string

	mu         sync.Mutex
	requests   []TranslateCall
	operations map[string]*operation
	seq        int
}

// TranslateCall 收到的翻译请求
type TranslateCall struct {
	Texts    []string
	From     string
	To       string
	Provider string
	Routing  string
	Async    bool
}

type operation struct {
	results []string
	polls   int
}

// NewMockIntentoServer 创建并启动模拟服务器，调用方负责 Close
func NewMockIntentoServer() *MockIntentoServer {
	s := &MockIntentoServer{
		Transform: func(text, _ string) string {
			return strings.ToUpper(text)
		},
		ProviderName: "Mock MT",
		operations:   make(map[string]*operation),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ai/text/translate", s.handleTranslate)
	mux.HandleFunc("/ai/text/translate/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"intento_code": "de", "iso_name": "German"},
			{"intento_code": "es", "iso_name": "Spanish"},
			{"intento_code": "fr", "iso_name": "French"},
		})
	})
	mux.HandleFunc("/operations/", s.handleOperation)
	mux.HandleFunc("/routing-designer/", s.handleRouting)

	s.Server = httptest.NewServer(mux)
	return s
}

// Requests 已收到的翻译请求
func (s *MockIntentoServer) Requests() []TranslateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TranslateCall(nil), s.requests...)
}

func (s *MockIntentoServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": "ai.text.translate.deepl.api", "name": "DeepL API", "vendor": "DeepL"},
			{"id": "ai.text.translate.google.translate_api.v3", "name": "Google Cloud Translation", "vendor": "Google"},
		})
		return
	}
	if r.Header.Get("apikey") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing api key"})
		return
	}

	var body struct {
		Context struct {
			Text json.RawMessage `json:"text"`
			From string          `json:"from"`
			To   string          `json:"to"`
		} `json:"context"`
		Service struct {
			Provider string `json:"provider"`
			Routing  string `json:"routing"`
			Async    bool   `json:"async"`
		} `json:"service"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var texts []string
	if err := json.Unmarshal(body.Context.Text, &texts); err != nil {
		var single string
		if err := json.Unmarshal(body.Context.Text, &single); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "context.text must be a string or an array"})
			return
		}
		texts = []string{single}
	}

	s.mu.Lock()
	s.requests = append(s.requests, TranslateCall{
		Texts:    texts,
		From:     body.Context.From,
		To:       body.Context.To,
		Provider: body.Service.Provider,
		Routing:  body.Service.Routing,
		Async:    body.Service.Async,
	})
	s.mu.Unlock()

	results := make([]string, len(texts))
	for i, text := range texts {
		if s.FailOn != "" && strings.Contains(text, s.FailOn) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "mock translation failure"})
			return
		}
		results[i] = s.Transform(text, body.Context.To)
	}

	if !s.Async {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"results": results,
			"meta":    s.meta(),
		})
		return
	}

	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("op-%d", s.seq)
	s.operations[id] = &operation{results: results}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "done": false})
}

func (s *MockIntentoServer) handleOperation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/operations/")

	s.mu.Lock()
	op, ok := s.operations[id]
	if ok {
		op.polls++
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation not found"})
		return
	}
	if op.polls <= s.PendingPolls {
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "done": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id,
		"done":     true,
		"response": []map[string]interface{}{{"results": op.results}},
		"meta":     s.meta(),
	})
}

func (s *MockIntentoServer) handleRouting(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/routing-designer/")
	switch name {
	case "":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": []map[string]interface{}{
				{"name": "best-quality", "description": "Best quality", "is_public": true, "is_active": true},
			},
		})
	case "best-quality":
		writeJSON(w, http.StatusOK, map[string]interface{}{"name": "best-quality", "rules": []interface{}{}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routing profile not found"})
	}
}

func (s *MockIntentoServer) meta() map[string]interface{} {
	return map[string]interface{}{
		"providers": []map[string]string{{"name": s.ProviderName}},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
