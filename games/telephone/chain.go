/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

// EntryKind tags what a chain entry holds.
type EntryKind string

const (
	KindTopic   EntryKind = "topic"
	KindDrawing EntryKind = "drawing"
	KindGuess   EntryKind = "guess"
)

const (
	// TimeUpGuess stands in for a guess nobody could make.
	TimeUpGuess = "(time's up)"
	// LeftTopic stands in for the topic of a player who was kicked or left.
	LeftTopic = "(left)"
)

// Entry is one immutable link in a chain. Drawing content is an image
// payload the engine never inspects.
type Entry struct {
	Kind    EntryKind `json:"type"`
	Content string    `json:"content"`
	Author  string    `json:"playerName"`
}

// Chain is the sequence seeded by one player's topic.
type Chain struct {
	SeedIndex int     `json:"topicPlayerIdx"`
	SeedName  string  `json:"topicPlayerName"`
	Entries   []Entry `json:"entries"`
}

func (c *Chain) last() Entry {
	return c.Entries[len(c.Entries)-1]
}

// ChainFor returns the chain player acts on in round. Each round the mapping
// is a permutation of [0, n), and over n-1 rounds a player visits every chain
// except its own seed exactly once.
func ChainFor(n, player, round int) int {
	return ((player-1-round)%n + n) % n
}

// roundKind reports whether round collects drawings or guesses.
func roundKind(round int) EntryKind {
	if round%2 == 0 {
		return KindDrawing
	}
	return KindGuess
}

// placeholder is the content submitted for a player who cannot act.
func placeholder(kind EntryKind) string {
	if kind == KindGuess {
		return TimeUpGuess
	}
	return ""
}

// buildChains seeds one chain per roster slot from the collected topics and
// resets the round counters.
func buildChains(r *Room) {
	n := len(r.Players)

	r.Chains = make([]Chain, 0, n)
	for i, p := range r.Players {
		r.Chains = append(r.Chains, Chain{
			SeedIndex: i,
			SeedName:  p.Name,
			Entries: []Entry{{
				Kind:    KindTopic,
				Content: r.Topics[i],
				Author:  p.Name,
			}},
		})
	}

	r.Round = 0
	r.TotalRounds = n - 1
	r.Submitted = make(map[string]bool)
}

// assignedChain is the chain the player at index acts on this round.
func (r *Room) assignedChain(index int) *Chain {
	return &r.Chains[ChainFor(len(r.Players), index, r.Round)]
}

// appendEntry records a submission from the player at index for the
// current round. It returns false if that player already submitted.
func (r *Room) appendEntry(index int, kind EntryKind, content string) bool {
	p := r.Players[index]
	if r.Submitted[p.Session] {
		return false
	}

	chain := r.assignedChain(index)
	chain.Entries = append(chain.Entries, Entry{
		Kind:    kind,
		Content: content,
		Author:  p.Name,
	})
	r.Submitted[p.Session] = true

	return true
}
