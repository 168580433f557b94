package feed

import (
	"minifeed/domain/post"
	"minifeed/domain/user"
)

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// Snapshot is what the presentation layer renders. In a ready snapshot
// every candidate has an entry in FollowState.
type Snapshot struct {
	Posts       []post.Post    `json:"posts"`
	Candidates  []user.User    `json:"candidates"`
	FollowState map[int64]bool `json:"followState"`
	Phase       Phase          `json:"phase"`
	Error       string         `json:"error,omitempty"`
}

// Suggestion is a candidate paired with its resolved follow state.
type Suggestion struct {
	User      user.User `json:"user"`
	Following bool      `json:"following"`
}

func Empty() Snapshot {
	return Snapshot{
		Posts:       []post.Post{},
		Candidates:  []user.User{},
		FollowState: map[int64]bool{},
		Phase:       PhaseReady,
	}
}

func (s Snapshot) IsEmpty() bool {
	return s.Phase == PhaseReady && len(s.Posts) == 0
}

// Discover returns at most limit candidates, in server order, whose follow
// state is known. Candidates with unknown state are skipped: no follow
// control may be offered for them. A limit <= 0 means no limit.
func (s Snapshot) Discover(limit int) []Suggestion {
	out := make([]Suggestion, 0)
	for _, u := range s.Candidates {
		if limit > 0 && len(out) == limit {
			break
		}
		following, ok := s.FollowState[u.Id]
		if !ok {
			continue
		}
		out = append(out, Suggestion{User: u, Following: following})
	}
	return out
}

// Clone returns a deep copy so callers can't mutate published state.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Posts = append([]post.Post{}, s.Posts...)
	c.Candidates = append([]user.User{}, s.Candidates...)
	c.FollowState = make(map[int64]bool, len(s.FollowState))
	for k, v := range s.FollowState {
		c.FollowState[k] = v
	}
	return c
}
