/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import "errors"

// Rejections reported back to the requesting client.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNameRequired     = errors.New("display name is required")
	ErrNameTaken        = errors.New("that name is already taken")
	ErrGameInProgress   = errors.New("a game is already in progress")
	ErrNotEnoughPlayers = errors.New("at least 3 players are required")
	ErrNotHost          = errors.New("only the host can do that")
	ErrWrongPhase       = errors.New("not allowed at this point in the game")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPlayerOnline     = errors.New("connected players cannot be kicked")
)

// ErrStopped is returned by Engine calls made after the event loop exited.
var ErrStopped = errors.New("engine stopped")
