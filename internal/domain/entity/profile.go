package entity

// Profile is the subset of a user profile the chat list needs.
type Profile struct {
	UserID      string   `json:"user_id" firestore:"-"`
	DisplayName string   `json:"display_name,omitempty" firestore:"displayName,omitempty"`
	Name        string   `json:"name,omitempty" firestore:"name,omitempty"`
	Photos      []string `json:"photos,omitempty" firestore:"photos,omitempty"`
}

func (p *Profile) ResolvedName() string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

func (p *Profile) AvatarURL() string {
	if p == nil {
		return ""
	}
	for _, photo := range p.Photos {
		if photo != "" {
			return photo
		}
	}
	return ""
}
