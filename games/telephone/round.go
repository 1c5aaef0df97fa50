/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import "strings"

func (e *Engine) startGame(conn string, msg ClientMessage, r *Room, idx int) {
	switch {
	case !r.isHost(r.Players[idx]):
		e.reply(conn, msg, StartGameReply{Error: ErrNotHost.Error()})
		return
	case r.Phase != PhaseLobby:
		e.reply(conn, msg, StartGameReply{Error: ErrWrongPhase.Error()})
		return
	case len(r.Players) < MinPlayers:
		e.reply(conn, msg, StartGameReply{Error: ErrNotEnoughPlayers.Error()})
		return
	}

	e.enterTopics(r)
	e.reply(conn, msg, StartGameReply{Success: true})

	e.log.Info().Str("room", r.Code).Int("players", len(r.Players)).Msg("game started")

	e.broadcastEnterTopic(r)
}

// enterTopics moves the room into topic collection. Offline lobby players
// keep their slots, so any pending grace removals are called off.
func (e *Engine) enterTopics(r *Room) {
	r.resetGame()
	r.Phase = PhaseTopics

	for _, p := range r.Players {
		e.cancelGrace(p.Session)
	}
}

func (e *Engine) broadcastEnterTopic(r *Room) {
	e.broadcast(r, func(p *Player) any {
		return EnterTopicMessage{Type: "enterTopic", IsHost: r.isHost(p)}
	})
}

func (r *Room) topicCount() int {
	n := 0
	for i := range r.Players {
		if _, ok := r.Topics[i]; ok {
			n++
		}
	}
	return n
}

func (e *Engine) submitTopic(r *Room, idx int, topic string) {
	if r.Phase != PhaseTopics {
		e.log.Debug().Str("room", r.Code).Str("phase", string(r.Phase)).Msg("dropped topic outside topic phase")
		return
	}

	if !e.recordTopic(r, idx, strings.TrimSpace(topic)) {
		return
	}

	e.sendTo(r.Players[idx], TopicSubmittedMessage{Type: "topicSubmitted"})
	e.afterTopic(r)
}

// recordTopic stores the first topic for a slot and ignores the rest.
func (e *Engine) recordTopic(r *Room, idx int, topic string) bool {
	if _, exists := r.Topics[idx]; exists {
		e.log.Debug().Str("room", r.Code).Str("player", r.Players[idx].Name).Msg("dropped duplicate topic")
		return false
	}
	r.Topics[idx] = topic
	return true
}

// afterTopic reports progress and starts play once every slot has a topic.
func (e *Engine) afterTopic(r *Room) {
	submitted, total := r.topicCount(), len(r.Players)

	e.broadcastAll(r, ProgressMessage{
		Type:      "topicProgress",
		Submitted: submitted,
		Total:     total,
	})

	if submitted < total {
		return
	}

	r.Phase = PhasePlaying
	buildChains(r)

	e.log.Info().Str("room", r.Code).Int("rounds", r.TotalRounds).Msg("chains built, play started")

	if e.startRound(r) {
		e.advanceUntilBlocked(r)
	}
}

// startRound opens the current round. Kicked and unreachable players are
// filled in first; it reports true when that alone completed the round, in
// which case nobody is prompted.
func (e *Engine) startRound(r *Room) bool {
	r.Submitted = make(map[string]bool)

	e.autoSubmitInactive(r)

	if len(r.Submitted) >= len(r.Players) {
		e.log.Debug().Str("room", r.Code).Int("round", r.Round).Msg("round closed by auto-submission")
		return true
	}

	for i, p := range r.Players {
		if p.Conn == "" || p.Kicked || r.Submitted[p.Session] {
			continue
		}
		e.sendTo(p, e.prompt(r, i))
	}

	e.broadcastRoundProgress(r)

	return false
}

func (e *Engine) autoSubmitInactive(r *Room) {
	kind := roundKind(r.Round)

	for i, p := range r.Players {
		if !p.Kicked && p.Online {
			continue
		}
		if r.appendEntry(i, kind, placeholder(kind)) {
			e.log.Debug().Str("room", r.Code).Str("player", p.Name).Int("round", r.Round).Msg("auto-submitted for inactive player")
		}
	}
}

// prompt is the yourTurn message for the player at idx in the current round.
func (e *Engine) prompt(r *Room, idx int) YourTurnMessage {
	last := r.assignedChain(idx).last()

	kind := "draw"
	if roundKind(r.Round) == KindGuess {
		kind = "guess"
	}

	return YourTurnMessage{
		Type:        "yourTurn",
		Kind:        kind,
		Prompt:      last.Content,
		PromptType:  last.Kind,
		RoundNumber: r.Round + 1,
		TotalRounds: r.TotalRounds,
	}
}

func (e *Engine) roundProgress(r *Room, typ string) ProgressMessage {
	return ProgressMessage{
		Type:      typ,
		Submitted: len(r.Submitted),
		Total:     len(r.Players),
	}
}

func (e *Engine) broadcastRoundProgress(r *Room) {
	e.broadcastAll(r, e.roundProgress(r, "roundProgress"))
}

func (e *Engine) submitEntry(r *Room, idx int, kind EntryKind, content string) {
	if r.Phase != PhasePlaying {
		e.log.Debug().Str("room", r.Code).Str("phase", string(r.Phase)).Msg("dropped submission outside play")
		return
	}
	if roundKind(r.Round) != kind {
		e.log.Debug().Str("room", r.Code).Str("kind", string(kind)).Int("round", r.Round).Msg("dropped submission of the wrong kind")
		return
	}
	if kind == KindGuess {
		content = strings.TrimSpace(content)
	}

	e.recordSubmission(r, idx, content)
}

// recordSubmission appends the player's entry for the current round, then
// advances the game as far as it can go.
func (e *Engine) recordSubmission(r *Room, idx int, content string) {
	if !r.appendEntry(idx, roundKind(r.Round), content) {
		e.log.Debug().Str("room", r.Code).Str("player", r.Players[idx].Name).Msg("dropped duplicate submission")
		return
	}

	e.sendTo(r.Players[idx], e.roundProgress(r, "waitingForOthers"))
	e.broadcastRoundProgress(r)

	e.advanceUntilBlocked(r)
}

// advanceUntilBlocked closes finished rounds and opens the next one until a
// round is waiting on a real player or the game reaches the reveal.
func (e *Engine) advanceUntilBlocked(r *Room) {
	for r.Phase == PhasePlaying && len(r.Submitted) >= len(r.Players) {
		r.Round++

		if r.Round >= r.TotalRounds {
			e.enterReveal(r)
			return
		}

		if !e.startRound(r) {
			return
		}
	}
}

func (e *Engine) enterReveal(r *Room) {
	r.Phase = PhaseReveal
	r.Reveal = Reveal{State: RevealIdle}

	e.log.Info().Str("room", r.Code).Int("chains", len(r.Chains)).Msg("all rounds complete")

	e.broadcastAllRevealed(r)
}

func (e *Engine) broadcastAllRevealed(r *Room) {
	e.broadcast(r, func(p *Player) any { return e.allRevealed(r, p) })
}

func (e *Engine) allRevealed(r *Room, p *Player) AllRevealedMessage {
	return AllRevealedMessage{
		Type:   "allRevealed",
		Chains: r.Chains,
		IsHost: r.isHost(p),
	}
}
