/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

// Inbound message types.
const (
	MsgCreateRoom       = "createRoom"
	MsgJoinRoom         = "joinRoom"
	MsgReconnectSession = "reconnectSession"
	MsgStartGame        = "startGame"
	MsgSubmitTopic      = "submitTopic"
	MsgSubmitDrawing    = "submitDrawing"
	MsgSubmitGuess      = "submitGuess"
	MsgStartReveal      = "startReveal"
	MsgNextRevealStep   = "nextRevealStep"
	MsgNextChain        = "nextChain"
	MsgNewGame          = "newGame"
	MsgBackToLobby      = "backToLobby"
	MsgLeaveRoom        = "leaveRoom"
	MsgKickPlayer       = "kickPlayer"
)

// ClientMessage is every request a client can send. Only the fields the
// given Type uses are read.
type ClientMessage struct {
	Type         string `json:"type"`
	ID           int    `json:"id,omitempty"`           // echoed in the reply
	DisplayName  string `json:"displayName,omitempty"`  // createRoom / joinRoom
	RoomCode     string `json:"roomCode,omitempty"`     // joinRoom
	SessionToken string `json:"sessionToken,omitempty"` // createRoom / joinRoom / reconnectSession
	Text         string `json:"text,omitempty"`         // submitTopic / submitGuess
	Image        string `json:"image,omitempty"`        // submitDrawing
	Target       string `json:"target,omitempty"`       // kickPlayer (session token)
}

// ReplyMessage answers a single request, matched by ID.
type ReplyMessage struct {
	Type string `json:"type"` // "reply"
	ID   int    `json:"id"`
	Data any    `json:"data"`
}

type RoomReply struct {
	Success      bool   `json:"success"`
	RoomCode     string `json:"roomCode,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
	Error        string `json:"error,omitempty"`
}

type ReconnectReply struct {
	Success     bool   `json:"success"`
	RoomCode    string `json:"roomCode,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Phase       Phase  `json:"phase,omitempty"`
}

type StartGameReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type LeaveReply struct {
	OK bool `json:"ok"`
}

type KickReply struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg,omitempty"`
}

// PlayerView is how a roster slot is shown to clients.
type PlayerView struct {
	SessionToken string `json:"sessionToken"`
	Name         string `json:"name"`
	Online       bool   `json:"online"`
	Kicked       bool   `json:"kicked"`
}

// RoomStateMessage drives the lobby screen.
type RoomStateMessage struct {
	Type     string       `json:"type"` // "roomState"
	Code     string       `json:"code"`
	Players  []PlayerView `json:"players"`
	HostName string       `json:"hostName"`
	Phase    Phase        `json:"phase"`
	IsHost   bool         `json:"isHost"`
}

type PlayersStatusMessage struct {
	Type     string       `json:"type"` // "playersStatus"
	Players  []PlayerView `json:"players"`
	HostName string       `json:"hostName"`
	IsHost   bool         `json:"isHost"`
}

type EnterTopicMessage struct {
	Type   string `json:"type"` // "enterTopic"
	IsHost bool   `json:"isHost"`
}

type TopicSubmittedMessage struct {
	Type string `json:"type"` // "topicSubmitted"
}

// ProgressMessage carries topicProgress, roundProgress and waitingForOthers.
type ProgressMessage struct {
	Type      string `json:"type"`
	Submitted int    `json:"submitted"`
	Total     int    `json:"total"`
}

// YourTurnMessage prompts one player for the current round.
type YourTurnMessage struct {
	Type        string    `json:"type"`       // "yourTurn"
	Kind        string    `json:"kind"`       // "draw" or "guess"
	Prompt      string    `json:"prompt"`     // content of the entry to respond to
	PromptType  EntryKind `json:"promptType"` // kind of that entry
	RoundNumber int       `json:"roundNumber"`
	TotalRounds int       `json:"totalRounds"`
}

type AllRevealedMessage struct {
	Type   string  `json:"type"` // "allRevealed"
	Chains []Chain `json:"chains"`
	IsHost bool    `json:"isHost"`
}

type StartChainRevealMessage struct {
	Type            string `json:"type"` // "startChainReveal"
	ChainIdx        int    `json:"chainIdx"`
	TotalChains     int    `json:"totalChains"`
	TopicPlayerName string `json:"topicPlayerName"`
	TotalSteps      int    `json:"totalSteps"`
	FirstEntry      Entry  `json:"firstEntry"`
	IsHost          bool   `json:"isHost"`
}

type RevealStepMessage struct {
	Type            string `json:"type"` // "revealStep"
	ChainIdx        int    `json:"chainIdx"`
	StepIdx         int    `json:"stepIdx"`
	TotalSteps      int    `json:"totalSteps"`
	Entry           Entry  `json:"entry"`
	IsLast          bool   `json:"isLast"`
	TopicPlayerName string `json:"topicPlayerName"`
	OriginalTopic   string `json:"originalTopic"`
	IsHost          bool   `json:"isHost"`
}

type ChainCompleteMessage struct {
	Type          string `json:"type"` // "chainComplete"
	ChainIdx      int    `json:"chainIdx"`
	Chain         Chain  `json:"chain"`
	HasMoreChains bool   `json:"hasMoreChains"`
	IsHost        bool   `json:"isHost"`
}

// PresenceMessage carries playerReconnected and playerWentOffline.
type PresenceMessage struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	OnlineCount int    `json:"onlineCount"`
}

// SimpleMessage is for notifications with no structured payload.
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}
