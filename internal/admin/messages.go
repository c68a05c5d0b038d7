package admin

// Level 提示级别
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message 返回给操作员的提示
// ID 用于本地化，Text 为默认英文文案（可含模板）
type Message struct {
	Level Level                  `json:"level"`
	ID    string                 `json:"-"`
	Text  string                 `json:"text"`
	Data  map[string]interface{} `json:"-"`
}

// Messages 提示收集器
type Messages struct {
	items []Message
}

// Add 追加提示
func (m *Messages) Add(level Level, id, text string, data map[string]interface{}) {
	m.items = append(m.items, Message{Level: level, ID: id, Text: text, Data: data})
}

// Items 全部提示
func (m *Messages) Items() []Message {
	return m.items
}
