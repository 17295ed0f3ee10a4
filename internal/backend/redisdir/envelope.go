package redisdir

import (
	"encoding/json"
	"slices"

	"github.com/dep2p/go-lobby/pkg/types"
)

// 推送事件类型
const (
	evtChanged = "changed"
	evtJoined  = "joined"
	evtLeft    = "left"
)

// envelope 房间频道上的推送消息
type envelope struct {
	Type      string            `json:"type"`
	Change    *types.RoomChange `json:"change,omitempty"`
	Players   []types.Player    `json:"players,omitempty"`
	PlayerIDs []string          `json:"player_ids,omitempty"`

	// Kicked 为 true 时 PlayerIDs 是被房主移出的成员
	Kicked bool `json:"kicked,omitempty"`
}

func (e envelope) encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEnvelope(payload string) (envelope, error) {
	var e envelope
	err := json.Unmarshal([]byte(payload), &e)
	return e, err
}

func (e envelope) mentions(playerID string) bool {
	return slices.Contains(e.PlayerIDs, playerID)
}

// record 存储在 room 键中的房间记录
type record struct {
	Room *types.Room `json:"room"`
	Seq  int64       `json:"seq"`
}

func (r *record) encode() ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(b []byte) (*record, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	if r.Room == nil {
		return nil, ErrCorruptRecord
	}
	return &r, nil
}
