package entity

import "sort"

// Reactions maps an emoji to the users who reacted with it. A user appears in
// at most one bucket.
type Reactions map[string][]string

type ToggleOutcome int

const (
	ReactionAdded ToggleOutcome = iota
	ReactionMoved
	ReactionRemoved
)

func (r Reactions) Clone() Reactions {
	if r == nil {
		return nil
	}
	c := make(Reactions, len(r))
	for emoji, users := range r {
		c[emoji] = append([]string(nil), users...)
	}
	return c
}

// BucketOf returns the emoji userID currently reacted with, or "".
func (r Reactions) BucketOf(userID string) string {
	for emoji, users := range r {
		for _, u := range users {
			if u == userID {
				return emoji
			}
		}
	}
	return ""
}

// Toggle applies a tap on emoji by userID and returns the new map. The user is
// removed from whichever bucket held them (empty buckets are pruned); tapping
// the same emoji again leaves them with no reaction.
func (r Reactions) Toggle(userID, emoji string) (Reactions, ToggleOutcome) {
	next := r.Clone()
	if next == nil {
		next = Reactions{}
	}

	previous := ""
	for e, users := range next {
		kept := users[:0]
		for _, u := range users {
			if u == userID {
				previous = e
				continue
			}
			kept = append(kept, u)
		}
		if len(kept) == 0 {
			delete(next, e)
		} else {
			next[e] = kept
		}
	}

	if previous == emoji {
		return next, ReactionRemoved
	}

	next[emoji] = append(next[emoji], userID)
	if previous != "" {
		return next, ReactionMoved
	}
	return next, ReactionAdded
}

func (r Reactions) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(r))
	for emoji, users := range r {
		fields[emoji] = append([]string(nil), users...)
	}
	return fields
}

type ReactionGroup struct {
	Emoji           string   `json:"emoji"`
	Count           int      `json:"count"`
	Users           []string `json:"users"`
	ReactedByViewer bool     `json:"reacted_by_viewer"`
}

// Groups summarizes the reactions for display, most popular first.
func (r Reactions) Groups(viewerID string) []ReactionGroup {
	groups := make([]ReactionGroup, 0, len(r))
	for emoji, users := range r {
		if len(users) == 0 {
			continue
		}
		g := ReactionGroup{
			Emoji: emoji,
			Count: len(users),
			Users: append([]string(nil), users...),
		}
		for _, u := range users {
			if u == viewerID {
				g.ReactedByViewer = true
				break
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Emoji < groups[j].Emoji
	})
	return groups
}
