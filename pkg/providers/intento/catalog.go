package intento

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ListProviders 列出可用的翻译提供商
func (p *Provider) ListProviders(ctx context.Context) ([]ProviderInfo, error) {
	var list []ProviderInfo
	if err := p.doJSON(ctx, http.MethodGet, translatePath, nil, &list); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return list, nil
}

// ListLanguages 列出支持的语言
func (p *Provider) ListLanguages(ctx context.Context) ([]LanguageInfo, error) {
	var list []LanguageInfo
	if err := p.doJSON(ctx, http.MethodGet, translatePath+"/languages", nil, &list); err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	return list, nil
}

// ListRoutingProfiles 列出 Smart Routing 配置
func (p *Provider) ListRoutingProfiles(ctx context.Context) ([]RoutingProfile, error) {
	var envelope struct {
		Data []RoutingProfile `json:"data"`
	}
	if err := p.doJSON(ctx, http.MethodGet, routingPath, nil, &envelope); err != nil {
		return nil, fmt.Errorf("list routing profiles: %w", err)
	}
	return envelope.Data, nil
}

// GetRoutingProfile 获取单个路由配置的原始 JSON
func (p *Provider) GetRoutingProfile(ctx context.Context, name string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := p.doJSON(ctx, http.MethodGet, routingPath+url.PathEscape(name), nil, &raw); err != nil {
		return nil, fmt.Errorf("get routing profile %q: %w", name, err)
	}
	return raw, nil
}
