// Package session 管理多轮对话的会话历史
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

const (
	// 会话在 Redis 中的过期时间（24小时）
	sessionTTL = 24 * time.Hour
	// Redis key 前缀
	sessionKeyPrefix = "conversation:"
	// 每个会话保留的最大消息数
	maxHistoryMessages = 40
)

// Manager 会话管理器
// Redis 可为 nil（纯内存模式，进程重启后历史丢失）
type Manager struct {
	mu     sync.RWMutex
	memory map[string]*Session
	redis  *redis.Client
}

// Session 会话状态
type Session struct {
	ID        string
	Messages  []*schema.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// sessionData 会话数据（用于 Redis 存储）
type sessionData struct {
	ID        string        `json:"id"`
	Messages  []messageData `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// messageData 消息数据（用于 Redis 存储）
type messageData struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case "system":
		return schema.System
	case "assistant":
		return schema.Assistant
	default:
		return schema.User
	}
}

// NewManager 创建会话管理器
func NewManager(redisClient *redis.Client) *Manager {
	return &Manager{
		memory: make(map[string]*Session),
		redis:  redisClient,
	}
}

// Get 获取会话（不存在则创建）
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.memory[sessionID]
	m.mu.RUnlock()

	if ok {
		return sess, nil
	}

	// 从 Redis 加载
	if m.redis != nil {
		if sess := m.loadFromRedis(ctx, sessionID); sess != nil {
			m.mu.Lock()
			m.memory[sessionID] = sess
			m.mu.Unlock()
			return sess, nil
		}
	}

	sess = &Session{
		ID:        sessionID,
		Messages:  []*schema.Message{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.mu.Lock()
	m.memory[sessionID] = sess
	m.mu.Unlock()

	return sess, nil
}

// Append 追加一条消息并续期
func (m *Manager) Append(ctx context.Context, sessionID string, msg *schema.Message) error {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	sess.Messages = append(sess.Messages, msg)
	if len(sess.Messages) > maxHistoryMessages {
		sess.Messages = sess.Messages[len(sess.Messages)-maxHistoryMessages:]
	}
	sess.UpdatedAt = time.Now()
	m.mu.Unlock()

	// 同步到 Redis
	if m.redis != nil {
		if err := m.saveToRedis(ctx, sess); err != nil {
			// 记录错误但不影响主流程
			fmt.Printf("Warning: failed to save session to redis: %v\n", err)
		}
	}

	return nil
}

// GetHistory 获取历史消息
func (m *Manager) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]*schema.Message, len(sess.Messages))
	copy(history, sess.Messages)
	return history, nil
}

// Clear 清空会话
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.memory, sessionID)
	m.mu.Unlock()

	// 从 Redis 删除
	if m.redis != nil {
		key := sessionKeyPrefix + sessionID
		if err := m.redis.Del(ctx, key).Err(); err != nil {
			fmt.Printf("Warning: failed to delete session from redis: %v\n", err)
		}
	}

	return nil
}

// loadFromRedis 从 Redis 加载会话
func (m *Manager) loadFromRedis(ctx context.Context, sessionID string) *Session {
	key := sessionKeyPrefix + sessionID
	data, err := m.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var sd sessionData
	if err := json.Unmarshal([]byte(data), &sd); err != nil {
		return nil
	}

	messages := make([]*schema.Message, len(sd.Messages))
	for i, md := range sd.Messages {
		messages[i] = &schema.Message{
			Role:    roleToSchema(md.Role),
			Content: md.Content,
		}
	}

	return &Session{
		ID:        sd.ID,
		Messages:  messages,
		CreatedAt: sd.CreatedAt,
		UpdatedAt: sd.UpdatedAt,
	}
}

// saveToRedis 保存会话到 Redis 并刷新 TTL
func (m *Manager) saveToRedis(ctx context.Context, sess *Session) error {
	key := sessionKeyPrefix + sess.ID

	m.mu.RLock()
	messages := make([]messageData, len(sess.Messages))
	for i, msg := range sess.Messages {
		messages[i] = messageData{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	sd := sessionData{
		ID:        sess.ID,
		Messages:  messages,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	m.mu.RUnlock()

	data, err := json.Marshal(sd)
	if err != nil {
		return err
	}

	return m.redis.Set(ctx, key, data, sessionTTL).Err()
}
