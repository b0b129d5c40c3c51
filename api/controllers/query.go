package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"planning-service/service/meta"
	"planning-service/service/preprocess"
)

// parseFilters 从查询参数中提取维度过滤条件，仅接受允许列表中的字段
func parseFilters(r *http.Request) preprocess.Filters {
	filters := make(preprocess.Filters)
	query := r.URL.Query()
	for field := range meta.AllowedGroupFields {
		values := query[field]
		if len(values) == 0 {
			continue
		}
		var cleaned []string
		for _, value := range values {
			for _, part := range strings.Split(value, ",") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					cleaned = append(cleaned, trimmed)
				}
			}
		}
		if len(cleaned) > 0 {
			filters[field] = cleaned
		}
	}
	return filters
}

// parseGroupBy 解析逗号分隔的group_by参数
func parseGroupBy(r *http.Request) []string {
	raw := r.URL.Query().Get("group_by")
	if raw == "" {
		return nil
	}
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}

// parseIntParam 解析整数查询参数，缺失或非法时返回默认值
func parseIntParam(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
