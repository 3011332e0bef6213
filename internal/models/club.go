package models

var clubKeys = []string{"name", "description", "coverColor", "coverImage", "isPublic", "members", "memberCount"}

// Club is the club document stored at clubs/{id}. Reading fields such as
// booksRead or currentBook are owned by other clients and kept verbatim.
type Club struct {
	ID          string  `json:"-"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CoverColor  string  `json:"coverColor,omitempty"`
	CoverImage  string  `json:"coverImage,omitempty"`
	IsPublic    bool    `json:"isPublic"`
	Members     Members `json:"members"`
	MemberCount int     `json:"memberCount"`

	extra rawFields
}

type clubAlias Club

func (c *Club) UnmarshalJSON(data []byte) error {
	var alias clubAlias
	if err := unmarshalObject(data, &alias); err != nil {
		return err
	}
	extra, err := splitFields(data, clubKeys...)
	if err != nil {
		return err
	}
	id := c.ID
	*c = Club(alias)
	c.ID = id
	c.extra = extra
	return nil
}

func (c Club) MarshalJSON() ([]byte, error) {
	return mergeFields(clubAlias(c), c.extra)
}

// MemberIndex returns the position of the member with the given id, or -1.
func (c Club) MemberIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, m := range c.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (c Club) HasMember(id string) bool {
	return c.MemberIndex(id) >= 0
}

func (c Club) IsAdmin(id string) bool {
	i := c.MemberIndex(id)
	return i >= 0 && c.Members[i].Role == RoleAdmin
}

func (c Club) AdminCount() int {
	n := 0
	for _, m := range c.Members {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n
}

// IsSoleAdmin reports whether id is the only admin of the club.
func (c Club) IsSoleAdmin(id string) bool {
	return c.IsAdmin(id) && c.AdminCount() == 1
}

// AddMember appends m unless a member with the same id is already present.
func (c *Club) AddMember(m Member) bool {
	if c.HasMember(m.ID) {
		return false
	}
	c.Members = append(c.Members, m)
	c.SyncMemberCount()
	return true
}

// RemoveMember drops every entry with the given id.
func (c *Club) RemoveMember(id string) bool {
	kept := c.Members[:0]
	removed := false
	for _, m := range c.Members {
		if m.ID == id && id != "" {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	c.Members = kept
	c.SyncMemberCount()
	return removed
}

// SyncMemberCount restores the memberCount == len(members) invariant.
func (c *Club) SyncMemberCount() {
	c.MemberCount = len(c.Members)
}

// MemberIDs lists member ids in document order, including empty ones.
func (c Club) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
