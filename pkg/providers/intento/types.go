package intento

import "encoding/json"

// translateRequest POST /ai/text/translate 请求体
type translateRequest struct {
	Context requestContext `json:"context"`
	Service serviceOptions `json:"service"`
}

type requestContext struct {
	// Text 单条文本为字符串，多条为数组
	Text     interface{} `json:"text"`
	From     string      `json:"from,omitempty"`
	To       string      `json:"to"`
	Category string      `json:"category,omitempty"`
}

type serviceOptions struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Routing  string `json:"routing,omitempty"`
	Async    bool   `json:"async"`
	Trace    bool   `json:"trace,omitempty"`
}

// translateResponse 同时覆盖同步结果、异步任务受理和 /operations 轮询三种响应
type translateResponse struct {
	ID       string            `json:"id"`
	Done     bool              `json:"done"`
	Results  []string          `json:"results"`
	Meta     responseMeta      `json:"meta"`
	Error    json.RawMessage   `json:"error"`
	Response []operationResult `json:"response"`
}

type operationResult struct {
	Results []string     `json:"results"`
	Meta    responseMeta `json:"meta"`
}

type responseMeta struct {
	Providers []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"providers"`
}

func (m responseMeta) providerName() string {
	if len(m.Providers) == 0 {
		return ""
	}
	return m.Providers[0].Name
}

// ProviderInfo 提供商目录条目
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Vendor      string `json:"vendor"`
	Description string `json:"description,omitempty"`
}

// LanguageInfo 支持的语言
type LanguageInfo struct {
	IntentoCode string `json:"intento_code"`
	ISOName     string `json:"iso_name"`
	ClientCode  string `json:"client_code,omitempty"`
}

// RoutingProfile Smart Routing 配置
type RoutingProfile struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	IsPublic    bool        `json:"is_public"`
	IsActive    bool        `json:"is_active"`
	RuleGroups  []RuleGroup `json:"rule_groups,omitempty"`
}

// RuleGroup 路由规则组
type RuleGroup struct {
	Description string `json:"description"`
}
