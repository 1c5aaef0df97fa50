/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

// RevealState is where the host-driven playback stands.
type RevealState string

const (
	RevealIdle          RevealState = "idle"
	RevealRevealing     RevealState = "revealing"
	RevealChainComplete RevealState = "chainComplete"
	RevealAllRevealed   RevealState = "allRevealed"
)

// Reveal is the room-wide playback cursor. Every client is driven from it,
// so there is no per-player playback state.
type Reveal struct {
	State RevealState
	Chain int
	Step  int
}

// revealControl returns true when the player at idx may drive playback.
func (e *Engine) revealControl(r *Room, idx int, action string) bool {
	if r.Phase != PhaseReveal || len(r.Chains) == 0 {
		e.log.Debug().Str("room", r.Code).Str("action", action).Msg("dropped reveal control outside reveal")
		return false
	}
	if !r.isHost(r.Players[idx]) {
		e.log.Debug().Str("room", r.Code).Str("action", action).Str("player", r.Players[idx].Name).Msg("dropped reveal control from non-host")
		return false
	}
	return true
}

func (e *Engine) startReveal(r *Room, idx int) {
	if !e.revealControl(r, idx, MsgStartReveal) {
		return
	}

	r.Reveal = Reveal{State: RevealRevealing}

	e.broadcastChainStart(r)
}

func (e *Engine) nextRevealStep(r *Room, idx int) {
	if !e.revealControl(r, idx, MsgNextRevealStep) {
		return
	}

	switch r.Reveal.State {
	case RevealRevealing, RevealChainComplete:
	default:
		return
	}

	chain := r.Chains[r.Reveal.Chain]
	if r.Reveal.Step < len(chain.Entries) {
		r.Reveal.Step++
	}

	if r.Reveal.Step >= len(chain.Entries) {
		r.Reveal.State = RevealChainComplete
		e.broadcast(r, func(p *Player) any { return e.chainComplete(r, p) })
		return
	}

	e.broadcast(r, func(p *Player) any { return e.revealStep(r, p) })
}

func (e *Engine) nextChain(r *Room, idx int) {
	if !e.revealControl(r, idx, MsgNextChain) {
		return
	}

	switch r.Reveal.State {
	case RevealRevealing, RevealChainComplete:
	default:
		return
	}

	r.Reveal.Chain++
	r.Reveal.Step = 0

	if r.Reveal.Chain >= len(r.Chains) {
		r.Reveal.State = RevealAllRevealed
		e.log.Info().Str("room", r.Code).Msg("playback finished")
		e.broadcastAllRevealed(r)
		return
	}

	r.Reveal.State = RevealRevealing
	e.broadcastChainStart(r)
}

func (e *Engine) broadcastChainStart(r *Room) {
	e.broadcast(r, func(p *Player) any { return e.chainStart(r, p) })
}

func (e *Engine) chainStart(r *Room, p *Player) StartChainRevealMessage {
	chain := r.Chains[r.Reveal.Chain]
	return StartChainRevealMessage{
		Type:            "startChainReveal",
		ChainIdx:        r.Reveal.Chain,
		TotalChains:     len(r.Chains),
		TopicPlayerName: chain.SeedName,
		TotalSteps:      len(chain.Entries),
		FirstEntry:      chain.Entries[0],
		IsHost:          r.isHost(p),
	}
}

func (e *Engine) revealStep(r *Room, p *Player) RevealStepMessage {
	chain := r.Chains[r.Reveal.Chain]
	return RevealStepMessage{
		Type:            "revealStep",
		ChainIdx:        r.Reveal.Chain,
		StepIdx:         r.Reveal.Step,
		TotalSteps:      len(chain.Entries),
		Entry:           chain.Entries[r.Reveal.Step],
		IsLast:          r.Reveal.Step >= len(chain.Entries)-1,
		TopicPlayerName: chain.SeedName,
		OriginalTopic:   chain.Entries[0].Content,
		IsHost:          r.isHost(p),
	}
}

func (e *Engine) chainComplete(r *Room, p *Player) ChainCompleteMessage {
	return ChainCompleteMessage{
		Type:          "chainComplete",
		ChainIdx:      r.Reveal.Chain,
		Chain:         r.Chains[r.Reveal.Chain],
		HasMoreChains: r.Reveal.Chain < len(r.Chains)-1,
		IsHost:        r.isHost(p),
	}
}

// revealView replays the sequencer's current screen to one player.
func (e *Engine) revealView(r *Room, p *Player) {
	e.sendTo(p, e.allRevealed(r, p))

	switch r.Reveal.State {
	case RevealRevealing:
		e.sendTo(p, e.chainStart(r, p))
		if r.Reveal.Step > 0 {
			e.sendTo(p, e.revealStep(r, p))
		}
	case RevealChainComplete:
		e.sendTo(p, e.chainComplete(r, p))
	}
}
