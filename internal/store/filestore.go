package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// SchemaVersion 当前快照文档的格式版本。
const SchemaVersion = 1

// ClientDoc 是落盘文档里单个客户端的形状。
type ClientDoc struct {
	Password string   `json:"password"`
	Proxies  []string `json:"proxies"`
}

// Snapshot 是完整的落盘文档：整库序列化，不做增量。
type Snapshot struct {
	SchemaVersion int                  `json:"schemaVersion"`
	Clients       map[string]ClientDoc `json:"clients"`
}

// FileStore 把客户端表持久化为单个 JSON 文档。
// 写入走 temp+rename，崩溃时读者永远不会看到截断的文档。
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("config file path required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

// Path 返回落盘文件位置，用于启动日志。
func (f *FileStore) Path() string { return f.path }

// Load 读取快照；文件不存在时初始化空库并立即写盘，
// 让文件从一开始就成为持久化锚点。
func (f *FileStore) Load() (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Snapshot{}, err
		}
		snap := Snapshot{SchemaVersion: SchemaVersion, Clients: map[string]ClientDoc{}}
		if werr := f.writeLocked(snap); werr != nil {
			return Snapshot{}, werr
		}
		return snap, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if snap.SchemaVersion > SchemaVersion {
		return Snapshot{}, fmt.Errorf("%s: schema version %d newer than supported %d", f.path, snap.SchemaVersion, SchemaVersion)
	}
	if snap.Clients == nil {
		snap.Clients = map[string]ClientDoc{}
	}
	return snap, nil
}

// Save 覆盖写整个快照。调用方在变更请求返回前同步调用，
// 保证响应成功时变更已经落盘。
func (f *FileStore) Save(snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap.SchemaVersion = SchemaVersion
	return f.writeLocked(snap)
}

func (f *FileStore) writeLocked(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
