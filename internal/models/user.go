package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

var profileKeys = []string{
	"clubs", "first_name", "last_name",
	"onboarding_completed", "onboarding_completed_at", "hardcoverApiToken",
}

// UserProfile is the document stored at users/{id}.
type UserProfile struct {
	ID                    string  `json:"-"`
	Clubs                 ClubIDs `json:"clubs"`
	FirstName             string  `json:"first_name,omitempty"`
	LastName              string  `json:"last_name,omitempty"`
	OnboardingCompleted   bool    `json:"onboarding_completed,omitempty"`
	OnboardingCompletedAt string  `json:"onboarding_completed_at,omitempty"`
	HardcoverAPIToken     string  `json:"hardcoverApiToken,omitempty"`

	extra rawFields
}

type profileAlias UserProfile

func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var alias profileAlias
	if err := unmarshalObject(data, &alias); err != nil {
		return err
	}
	extra, err := splitFields(data, profileKeys...)
	if err != nil {
		return err
	}
	id := p.ID
	*p = UserProfile(alias)
	p.ID = id
	p.extra = extra
	return nil
}

func (p UserProfile) MarshalJSON() ([]byte, error) {
	return mergeFields(profileAlias(p), p.extra)
}

// DisplayName joins the stored name fields.
func (p UserProfile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// ClubIDs is the set of club ids on a profile. It decodes from an array or a
// keyed object and keeps first-seen order without duplicates.
type ClubIDs []string

func (ids *ClubIDs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*ids = nil
		return nil
	}

	var values []*string
	if trimmed[0] == '{' {
		var keyed map[string]*string
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return err
		}
		keys := make([]string, 0, len(keyed))
		for key := range keyed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values = append(values, keyed[key])
		}
	} else if err := json.Unmarshal(trimmed, &values); err != nil {
		return err
	}

	var out ClubIDs
	for _, v := range values {
		if v != nil && *v != "" {
			out = out.Add(*v)
		}
	}
	*ids = out
	return nil
}

func (ids ClubIDs) MarshalJSON() ([]byte, error) {
	if ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(ids))
}

func (ids ClubIDs) Contains(id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Add returns the union of ids and {id}.
func (ids ClubIDs) Add(id string) ClubIDs {
	if id == "" || ids.Contains(id) {
		return ids
	}
	return append(ids, id)
}

// Remove returns ids without id.
func (ids ClubIDs) Remove(id string) ClubIDs {
	out := make(ClubIDs, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

var errNotObject = errors.New("document is not a JSON object")

func unmarshalObject(data []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(trimmed, v)
}
