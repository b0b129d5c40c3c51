/*
 * @module service/notification/center
 * @description 进程内通知中心，记录上传、预计算等长任务的进度与结果，
 *              供前端轮询展示，条目数量有上限，超出后淘汰最旧条目
 * @architecture 分层架构 - 业务服务层（内存态）
 * @documentReference ai_docs/notification_design.md
 * @stateFlow running -> completed/failed；Update只在running状态下生效
 * @rules 所有访问经互斥锁串行化；List返回副本，调用方不可变更内部状态
 * @dependencies github.com/google/uuid
 * @refs api/controllers/notification_controller.go
 */

package notification

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 通知状态
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// MaxItems 通知中心保留的最大条目数
const MaxItems = 50

// Entry 单条通知
type Entry struct {
	ID            string                 `json:"id"`
	Category      string                 `json:"category"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Status        string                 `json:"status"`
	Progress      *float64               `json:"progress,omitempty"`
	ProcessedRows *int                   `json:"processed_rows,omitempty"`
	TotalRows     *int                   `json:"total_rows,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Center 通知中心
type Center struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewCenter 创建通知中心实例
func NewCenter() *Center {
	return &Center{entries: make(map[string]*Entry)}
}

// Start 创建一条running状态的通知，返回通知ID
func (c *Center) Start(category, title, message string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	entry := &Entry{
		ID:        uuid.New().String(),
		Category:  category,
		Title:     title,
		Message:   message,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.entries[entry.ID] = entry
	c.trimLocked()
	return entry.ID
}

// Update 更新进行中通知的进度，已结束的通知不再变更
func (c *Center) Update(id, message string, processedRows, totalRows int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok || entry.Status != StatusRunning {
		return
	}
	entry.Message = message
	entry.ProcessedRows = &processedRows
	entry.TotalRows = &totalRows
	if totalRows > 0 {
		progress := float64(processedRows) / float64(totalRows)
		if progress > 1 {
			progress = 1
		}
		entry.Progress = &progress
	}
	entry.UpdatedAt = time.Now().UTC()
}

// Complete 将通知标记为完成，metadata 携带结果摘要
func (c *Center) Complete(id, message string, metadata map[string]interface{}) {
	c.finish(id, StatusCompleted, message, metadata)
}

// Fail 将通知标记为失败
func (c *Center) Fail(id, message string, metadata map[string]interface{}) {
	c.finish(id, StatusFailed, message, metadata)
}

func (c *Center) finish(id, status, message string, metadata map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return
	}
	entry.Status = status
	entry.Message = message
	if metadata != nil {
		entry.Metadata = metadata
	}
	if status == StatusCompleted {
		progress := 1.0
		entry.Progress = &progress
	}
	entry.UpdatedAt = time.Now().UTC()
}

// List 按更新时间倒序返回通知副本
func (c *Center) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// trimLocked 超出上限时淘汰更新时间最旧的条目，调用方必须持锁
func (c *Center) trimLocked() {
	for len(c.entries) > MaxItems {
		oldestID := ""
		var oldestAt time.Time
		for id, entry := range c.entries {
			if oldestID == "" || entry.UpdatedAt.Before(oldestAt) {
				oldestID = id
				oldestAt = entry.UpdatedAt
			}
		}
		delete(c.entries, oldestID)
	}
}
