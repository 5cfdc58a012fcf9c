// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package discord holds plain serializable snapshots of chat-platform state.
// The bot process hands these in; nothing in this module talks to the chat
// platform directly.
package discord

// RoleSnapshot is an immutable view of a guild role.
type RoleSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Permissions uint64 `json:"permissions"`
	Managed     bool   `json:"managed"`
	Mentionable bool   `json:"mentionable"`
	Hoisted     bool   `json:"hoisted"`
}

// MemberSnapshot is an immutable view of a guild member.
type MemberSnapshot struct {
	ID         string   `json:"id"`
	RoleIDs    []string `json:"roleIds"`
	Nickname   string   `json:"nickname,omitempty"`
	GlobalName string   `json:"globalName,omitempty"`
	Username   string   `json:"username"`
	Mention    string   `json:"mention"`
}

// HasRole reports whether the member currently holds the given role.
func (m MemberSnapshot) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// DisplayedName returns the name shown for the member in the guild:
// nickname, then global name, then username.
func (m MemberSnapshot) DisplayedName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	if m.GlobalName != "" {
		return m.GlobalName
	}
	return m.Username
}

// GuildSnapshot is an immutable view of a guild and its roles, keyed by role id.
type GuildSnapshot struct {
	ID    string                  `json:"id"`
	Name  string                  `json:"name"`
	Roles map[string]RoleSnapshot `json:"roles"`
}
