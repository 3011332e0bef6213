package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid reports whether r is one of the club roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole normalizes user input into a Role.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	return role, role.IsValid()
}

var memberKeys = []string{"id", "name", "avatar", "img", "role", "joinedAt"}

// Member is an identity's entry in a club's member list.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Img      string `json:"img,omitempty"`
	Role     Role   `json:"role"`
	JoinedAt string `json:"joinedAt,omitempty"`

	extra rawFields
	// raw keeps entries that are not JSON objects so they are written back as found.
	raw json.RawMessage
}

type memberAlias Member

func (m *Member) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*m = Member{raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}

	var alias memberAlias
	if err := json.Unmarshal(trimmed, &alias); err != nil {
		*m = Member{raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}
	extra, err := splitFields(trimmed, memberKeys...)
	if err != nil {
		return err
	}
	*m = Member(alias)
	m.extra = extra
	return nil
}

func (m Member) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	return mergeFields(memberAlias(m), m.extra)
}

// Photo returns the member's picture URL from whichever field carries it.
func (m Member) Photo() string {
	if m.Avatar != "" {
		return m.Avatar
	}
	return m.Img
}

// Members decodes from either a JSON array or an object keyed by push id and
// always encodes as an array. Null entries are dropped.
type Members []Member

func (ms *Members) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*ms = nil
		return nil
	}

	var entries []json.RawMessage
	if trimmed[0] == '{' {
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return err
		}
		keys := make([]string, 0, len(keyed))
		for key := range keyed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			entries = append(entries, keyed[key])
		}
	} else if err := json.Unmarshal(trimmed, &entries); err != nil {
		return err
	}

	out := make(Members, 0, len(entries))
	for _, entry := range entries {
		if len(bytes.TrimSpace(entry)) == 0 || bytes.Equal(bytes.TrimSpace(entry), []byte("null")) {
			continue
		}
		var m Member
		if err := m.UnmarshalJSON(entry); err != nil {
			return err
		}
		out = append(out, m)
	}
	*ms = out
	return nil
}

func (ms Members) MarshalJSON() ([]byte, error) {
	if ms == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Member(ms))
}
