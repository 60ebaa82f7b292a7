package loader

import "strings"

// ModPresence 回答宿主中某个 mod 是否存在。
type ModPresence interface {
	IsModLoaded(modID string) bool
}

// StaticModPresence 基于配置给出的固定 mod 集合，比较时忽略大小写。
type StaticModPresence struct {
	mods map[string]struct{}
}

// NewStaticModPresence 创建固定集合。
func NewStaticModPresence(modIDs ...string) StaticModPresence {
	set := make(map[string]struct{}, len(modIDs))
	for _, id := range modIDs {
		if id = strings.TrimSpace(id); id != "" {
			set[strings.ToLower(id)] = struct{}{}
		}
	}
	return StaticModPresence{mods: set}
}

// IsModLoaded 实现 ModPresence。
func (s StaticModPresence) IsModLoaded(modID string) bool {
	_, ok := s.mods[strings.ToLower(strings.TrimSpace(modID))]
	return ok
}
